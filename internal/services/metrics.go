package laundry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// метрики

var (
	pointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laundry_points_awarded_total",
			Help: "Начислено баллов по типам",
		},
		[]string{"type"},
	)

	pointsRedeemed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laundry_points_redeemed_total",
			Help: "Списано баллов",
		},
	)

	ledgerConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laundry_ledger_conflicts_total",
			Help: "Конфликты версий при записи счета",
		},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laundry_order_transitions_total",
			Help: "Смены статусов заказов",
		},
		[]string{"status"},
	)

	notificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laundry_notifications_dropped_total",
			Help: "Уведомления, не поставленные в очередь",
		},
	)

	notificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laundry_notifications_failed_total",
			Help: "Ошибки отправки уведомлений",
		},
	)
)
