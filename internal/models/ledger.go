package laundry

import (
	"fmt"
	"time"
)

type LedgerStats struct {
	TotalOrders        int     `bson:"totalOrders" json:"totalOrders"`
	TotalSpent         float64 `bson:"totalSpent" json:"totalSpent"`
	EcoFriendlyChoices int     `bson:"ecoFriendlyChoices" json:"ecoFriendlyChoices"`
	UrgentOrders       int     `bson:"urgentOrders" json:"urgentOrders"`
}

type UnlockedAchievement struct {
	ID         string    `bson:"id" json:"id"`
	UnlockedAt time.Time `bson:"unlockedAt" json:"unlockedAt"`
}

// записи, ожидающие переноса в журнал
type Outbox struct {
	Rewards     []Reward     `bson:"rewards,omitempty"`
	Redemptions []Redemption `bson:"redemptions,omitempty"`
}

func (o Outbox) Empty() bool {
	return len(o.Rewards) == 0 && len(o.Redemptions) == 0
}

func (o Outbox) Len() int {
	return len(o.Rewards) + len(o.Redemptions)
}

// бонус пригласившему, еще не записанный в его счет
type ReferralCredit struct {
	ReferrerID string    `bson:"referrerId"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// Счет лояльности пользователя
type Ledger struct {
	UserID string `bson:"userId" json:"userId"`

	TotalPointsEarned int64 `bson:"totalPointsEarned" json:"totalPointsEarned"`
	RedeemedPoints    int64 `bson:"redeemedPoints" json:"redeemedPoints"`
	AvailablePoints   int64 `bson:"availablePoints" json:"availablePoints"`

	CurrentLevel      int    `bson:"currentLevel" json:"currentLevel"`
	LevelName         string `bson:"levelName" json:"levelName"`
	PointsToNextLevel int64  `bson:"pointsToNextLevel" json:"pointsToNextLevel"`

	CurrentStreak           int        `bson:"currentStreak" json:"currentStreak"`
	LongestStreak           int        `bson:"longestStreak" json:"longestStreak"`
	LastOrderCompletionDate *time.Time `bson:"lastOrderCompletionDate,omitempty" json:"lastOrderCompletionDate,omitempty"`

	UnlockedAchievements []UnlockedAchievement `bson:"unlockedAchievements" json:"unlockedAchievements"`
	Stats                LedgerStats           `bson:"stats" json:"stats"`

	ReferralCode         string `bson:"referralCode" json:"referralCode"`
	ReferredBy           string `bson:"referredBy,omitempty" json:"referredBy,omitempty"`
	ReferralsCount       int    `bson:"referralsCount" json:"referralsCount"`
	ReferralPointsEarned int64  `bson:"referralPointsEarned" json:"referralPointsEarned"`

	PendingReferral   *ReferralCredit `bson:"pendingReferral,omitempty" json:"-"`
	// приглашенные, за которых бонус уже начислен (последние MaxProcessedIDs)
	CreditedReferrals []string        `bson:"creditedReferrals" json:"-"`

	// заказы, по которым уже начислены баллы (последние MaxProcessedIDs)
	ProcessedOrders []string `bson:"processedOrders" json:"-"`
	Outbox          Outbox   `bson:"outbox" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
	Version   int64     `bson:"version" json:"version"`
}

func (l *Ledger) HasAchievement(id string) bool {
	for _, a := range l.UnlockedAchievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Сколько id хранится для защиты от повторов. Основная защита заказа - флаг RewardsApplied,
// список закрывает только окно между записью счета и записью заказа.
const MaxProcessedIDs = 200

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// добавить id, отбросив самые старые сверх MaxProcessedIDs
func appendCapped(ids []string, id string) []string {
	ids = append(ids, id)
	if n := len(ids) - MaxProcessedIDs; n > 0 {
		ids = append([]string(nil), ids[n:]...)
	}
	return ids
}

func (l *Ledger) OrderProcessed(orderID string) bool {
	return contains(l.ProcessedOrders, orderID)
}

func (l *Ledger) MarkOrderProcessed(orderID string) {
	l.ProcessedOrders = appendCapped(l.ProcessedOrders, orderID)
}

func (l *Ledger) ReferralCredited(userID string) bool {
	return contains(l.CreditedReferrals, userID)
}

func (l *Ledger) MarkReferralCredited(userID string) {
	l.CreditedReferrals = appendCapped(l.CreditedReferrals, userID)
}

// Проверка инвариантов счета
func (l *Ledger) Check() error {
	if l.AvailablePoints != l.TotalPointsEarned-l.RedeemedPoints {
		return fmt.Errorf("ledger %s: available %d != earned %d - redeemed %d",
			l.UserID, l.AvailablePoints, l.TotalPointsEarned, l.RedeemedPoints)
	}
	if l.AvailablePoints < 0 {
		return fmt.Errorf("ledger %s: negative balance %d", l.UserID, l.AvailablePoints)
	}
	seen := make(map[string]struct{}, len(l.UnlockedAchievements))
	for _, a := range l.UnlockedAchievements {
		if _, ok := seen[a.ID]; ok {
			return fmt.Errorf("ledger %s: achievement %s unlocked twice", l.UserID, a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// Копия без общих срезов
func (l Ledger) Clone() Ledger {
	c := l
	if l.LastOrderCompletionDate != nil {
		t := *l.LastOrderCompletionDate
		c.LastOrderCompletionDate = &t
	}
	c.UnlockedAchievements = append([]UnlockedAchievement(nil), l.UnlockedAchievements...)
	c.ProcessedOrders = append([]string(nil), l.ProcessedOrders...)
	c.CreditedReferrals = append([]string(nil), l.CreditedReferrals...)
	if l.PendingReferral != nil {
		p := *l.PendingReferral
		c.PendingReferral = &p
	}
	c.Outbox.Rewards = append([]Reward(nil), l.Outbox.Rewards...)
	c.Outbox.Redemptions = append([]Redemption(nil), l.Outbox.Redemptions...)
	return c
}
