package laundry

import "time"

type NotificationCategory string

const (
	CategoryOrderStatus NotificationCategory = "order_status"
	CategoryPoints      NotificationCategory = "points"
	CategoryLevelUp     NotificationCategory = "level_up"
	CategoryAchievement NotificationCategory = "achievement"
	CategoryRedemption  NotificationCategory = "redemption"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Запрос на отправку уведомления
type Notification struct {
	UserID    string               `json:"userId"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Category  NotificationCategory `json:"category"`
	Priority  NotificationPriority `json:"priority"`
	ActionRef string               `json:"actionRef,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}
