package laundry

import (
	"fmt"
	"time"
)

// Тип начисления. Набор закрыт: метаданные каждого типа лежат в rewardTypes.
type RewardType int

const (
	RewardOrderCompletion RewardType = iota + 1
	RewardStreakBonus
	RewardLevelUp
	RewardAchievement
	RewardReferral
	RewardWelcome
)

type rewardTypeInfo struct {
	code        string
	title       string
	description string
}

var rewardTypes = map[RewardType]rewardTypeInfo{
	RewardOrderCompletion: {"order_completion", "Order completed", "Points for a completed order"},
	RewardStreakBonus:     {"streak_bonus", "Streak bonus", "Bonus for keeping your order streak"},
	RewardLevelUp:         {"level_up", "Level up", "Bonus for reaching a new level"},
	RewardAchievement:     {"achievement", "Achievement unlocked", "Bonus for an unlocked achievement"},
	RewardReferral:        {"referral", "Referral bonus", "A friend joined with your referral code"},
	RewardWelcome:         {"welcome", "Welcome bonus", "Bonus for joining with a referral code"},
}

func (t RewardType) String() string {
	return rewardTypes[t].code
}

func (t RewardType) Title() string {
	return rewardTypes[t].title
}

func (t RewardType) Description() string {
	return rewardTypes[t].description
}

func (t RewardType) Valid() bool {
	_, ok := rewardTypes[t]
	return ok
}

func (t RewardType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("reward type %d: %w", int(t), ErrValidation)
	}
	return []byte(t.String()), nil
}

func (t *RewardType) UnmarshalText(b []byte) error {
	for k, v := range rewardTypes {
		if v.code == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("reward type %q: %w", string(b), ErrValidation)
}

type RewardStatus string

const (
	RewardActive   RewardStatus = "active"
	RewardRedeemed RewardStatus = "redeemed"
	RewardExpired  RewardStatus = "expired"
)

// Запись начисления, после создания не меняется
type Reward struct {
	ID        string         `bson:"id" json:"id"`
	UserID    string         `bson:"userId" json:"userId"`
	Type      RewardType     `bson:"type" json:"type"`
	Points    int64          `bson:"points" json:"points"`
	Source    string         `bson:"source" json:"source"` // заказ, реферал или достижение
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Status    RewardStatus   `bson:"status" json:"status"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time      `bson:"expiresAt" json:"expiresAt"`
}

type RedemptionType string

const (
	RedemptionDiscount    RedemptionType = "discount"
	RedemptionFreeService RedemptionType = "free_service"
	RedemptionCashCredit  RedemptionType = "cash_credit"
)

func (t RedemptionType) Valid() bool {
	switch t {
	case RedemptionDiscount, RedemptionFreeService, RedemptionCashCredit:
		return true
	}
	return false
}

// купон выдается только для скидки и бесплатной услуги
func (t RedemptionType) HasCoupon() bool {
	return t == RedemptionDiscount || t == RedemptionFreeService
}

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionApplied   RedemptionStatus = "applied"
	RedemptionUsed      RedemptionStatus = "used"
	RedemptionExpired   RedemptionStatus = "expired"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

type Redemption struct {
	ID         string           `bson:"id" json:"id"`
	UserID     string           `bson:"userId" json:"userId"`
	Type       RedemptionType   `bson:"type" json:"type"`
	PointsCost int64            `bson:"pointsCost" json:"pointsCost"`
	CashValue  float64          `bson:"cashValue" json:"cashValue"`
	CouponCode string           `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	Status     RedemptionStatus `bson:"status" json:"status"`
	CreatedAt  time.Time        `bson:"createdAt" json:"createdAt"`
	ValidFrom  time.Time        `bson:"validFrom" json:"validFrom"`
	ValidUntil time.Time        `bson:"validUntil" json:"validUntil"`
	UsedAt     *time.Time       `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
}

type RedemptionRequest struct {
	Type   RedemptionType `json:"type"`
	Points int64          `json:"points"`
	// идентификатор запроса из очереди, возвращается в подтверждении
	RequestID string `json:"requestId,omitempty"`
}
