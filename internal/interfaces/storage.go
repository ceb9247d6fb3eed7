package laundry

import (
	"context"
	"time"

	model "github.com/glkeru/laundry/internal/models"
)

//go:generate mockgen -destination=./../services/mock_storage_test.go -package=laundry . LedgerStorage

// Заказы. UpdateOrder пишет только если версия в хранилище равна order.Version,
// иначе ErrVersionConflict.
type OrderStorage interface {
	CreateOrder(ctx context.Context, order model.Order) error
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	GetOrderByTag(ctx context.Context, tagID string) (model.Order, error)
	GetOrderByTracking(ctx context.Context, trackingCode string) (model.Order, error)
	UpdateOrder(ctx context.Context, order model.Order) error
}

// Счета лояльности. UpdateLedger - compare-and-swap по ledger.Version.
type LedgerStorage interface {
	GetLedger(ctx context.Context, userID string) (model.Ledger, error)
	GetLedgerByReferralCode(ctx context.Context, code string) (model.Ledger, error)
	CreateLedger(ctx context.Context, ledger model.Ledger) error
	UpdateLedger(ctx context.Context, ledger model.Ledger) error
}

// Журнал начислений и списаний. Save* идемпотентны по ID.
type JournalStorage interface {
	SaveRewards(ctx context.Context, rewards []model.Reward) error
	SaveRedemptions(ctx context.Context, redemptions []model.Redemption) error
	GetRewards(ctx context.Context, userID string) ([]model.Reward, error)
	GetRedemptions(ctx context.Context, userID string) ([]model.Redemption, error)
	GetRedemptionByCoupon(ctx context.Context, code string) (model.Redemption, error)
	// смена статуса, только если текущий статус равен from
	UpdateRedemptionStatus(ctx context.Context, id string, from model.RedemptionStatus, to model.RedemptionStatus, at time.Time) error
	ExpireRedemptions(ctx context.Context, now time.Time) (int64, error)
}

// Кэш счетов. SetLedger не перезаписывает счет с большей версией.
type CacheStorage interface {
	GetLedger(ctx context.Context, userID string) (model.Ledger, error)
	SetLedger(ctx context.Context, ledger model.Ledger) error
	InvalidateLedger(ctx context.Context, userID string) error
}
