package laundry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	model "github.com/glkeru/laundry/internal/models"
)

// Хранилище в памяти: локальный запуск и тесты. Возвращает копии, версии проверяются так же, как в mongo.
type MemoryDB struct {
	mu          sync.RWMutex
	orders      map[string]model.Order
	ledgers     map[string]model.Ledger
	rewards     map[string]model.Reward
	redemptions map[string]model.Redemption
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		orders:      make(map[string]model.Order),
		ledgers:     make(map[string]model.Ledger),
		rewards:     make(map[string]model.Reward),
		redemptions: make(map[string]model.Redemption),
	}
}

func cloneOrder(o model.Order) model.Order {
	c := o
	c.StatusLog = append([]model.StatusLogEntry(nil), o.StatusLog...)
	c.Items = append([]model.OrderItem(nil), o.Items...)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// заказы

func (m *MemoryDB) CreateOrder(ctx context.Context, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return fmt.Errorf("order %s %w", order.ID, model.ErrAlreadyExists)
	}
	for _, o := range m.orders {
		if o.OrderNumber == order.OrderNumber || o.TrackingCode == order.TrackingCode || o.TagID == order.TagID {
			return fmt.Errorf("order codes %w", model.ErrAlreadyExists)
		}
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *MemoryDB) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return model.Order{}, fmt.Errorf("order %s %w", orderID, model.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (m *MemoryDB) findOrder(match func(o model.Order) bool) (model.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if match(o) {
			return cloneOrder(o), true
		}
	}
	return model.Order{}, false
}

func (m *MemoryDB) GetOrderByTag(ctx context.Context, tagID string) (model.Order, error) {
	o, ok := m.findOrder(func(o model.Order) bool { return o.TagID == tagID })
	if !ok {
		return model.Order{}, fmt.Errorf("tag %s %w", tagID, model.ErrNotFound)
	}
	return o, nil
}

func (m *MemoryDB) GetOrderByTracking(ctx context.Context, trackingCode string) (model.Order, error) {
	o, ok := m.findOrder(func(o model.Order) bool { return o.TrackingCode == trackingCode })
	if !ok {
		return model.Order{}, fmt.Errorf("tracking code %s %w", trackingCode, model.ErrNotFound)
	}
	return o, nil
}

func (m *MemoryDB) UpdateOrder(ctx context.Context, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %s %w", order.ID, model.ErrNotFound)
	}
	if cur.Version != order.Version {
		return fmt.Errorf("order %s %w", order.ID, model.ErrVersionConflict)
	}
	order = cloneOrder(order)
	order.Version++
	m.orders[order.ID] = order
	return nil
}

// счета

func (m *MemoryDB) GetLedger(ctx context.Context, userID string) (model.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[userID]
	if !ok {
		return model.Ledger{}, fmt.Errorf("ledger %s %w", userID, model.ErrNotFound)
	}
	return l.Clone(), nil
}

func (m *MemoryDB) GetLedgerByReferralCode(ctx context.Context, code string) (model.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.ledgers {
		if l.ReferralCode == code {
			return l.Clone(), nil
		}
	}
	return model.Ledger{}, fmt.Errorf("referral code %s %w", code, model.ErrNotFound)
}

func (m *MemoryDB) CreateLedger(ctx context.Context, ledger model.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ledgers[ledger.UserID]; ok {
		return fmt.Errorf("ledger %s %w", ledger.UserID, model.ErrAlreadyExists)
	}
	for _, l := range m.ledgers {
		if l.ReferralCode == ledger.ReferralCode {
			return fmt.Errorf("referral code %w", model.ErrAlreadyExists)
		}
	}
	m.ledgers[ledger.UserID] = ledger.Clone()
	return nil
}

func (m *MemoryDB) UpdateLedger(ctx context.Context, ledger model.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.ledgers[ledger.UserID]
	if !ok {
		return fmt.Errorf("ledger %s %w", ledger.UserID, model.ErrNotFound)
	}
	if cur.Version != ledger.Version {
		return fmt.Errorf("ledger %s %w", ledger.UserID, model.ErrVersionConflict)
	}
	ledger = ledger.Clone()
	ledger.Version++
	m.ledgers[ledger.UserID] = ledger
	return nil
}

// журнал

func (m *MemoryDB) SaveRewards(ctx context.Context, rewards []model.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rewards {
		m.rewards[r.ID] = r
	}
	return nil
}

func (m *MemoryDB) SaveRedemptions(ctx context.Context, redemptions []model.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range redemptions {
		m.redemptions[r.ID] = r
	}
	return nil
}

func (m *MemoryDB) GetRewards(ctx context.Context, userID string) ([]model.Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.Reward
	for _, r := range m.rewards {
		if r.UserID == userID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryDB) GetRedemptions(ctx context.Context, userID string) ([]model.Redemption, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []model.Redemption
	for _, r := range m.redemptions {
		if r.UserID == userID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryDB) GetRedemptionByCoupon(ctx context.Context, code string) (model.Redemption, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.redemptions {
		if r.CouponCode != "" && r.CouponCode == code {
			return r, nil
		}
	}
	return model.Redemption{}, fmt.Errorf("coupon %s %w", code, model.ErrNotFound)
}

func (m *MemoryDB) UpdateRedemptionStatus(ctx context.Context, id string, from model.RedemptionStatus,
	to model.RedemptionStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.redemptions[id]
	if !ok {
		return fmt.Errorf("redemption %s %w", id, model.ErrNotFound)
	}
	if r.Status != from {
		return fmt.Errorf("redemption %s %w", id, model.ErrVersionConflict)
	}
	r.Status = to
	if to == model.RedemptionUsed {
		r.UsedAt = &at
	}
	m.redemptions[id] = r
	return nil
}

func (m *MemoryDB) ExpireRedemptions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, r := range m.redemptions {
		if r.Status == model.RedemptionPending && now.After(r.ValidUntil) {
			r.Status = model.RedemptionExpired
			m.redemptions[id] = r
			count++
		}
	}
	return count, nil
}

// Кэш в памяти с той же проверкой версии, что и в redis
type MemoryCache struct {
	mu      sync.Mutex
	ledgers map[string]model.Ledger
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{ledgers: make(map[string]model.Ledger)}
}

func (c *MemoryCache) GetLedger(ctx context.Context, userID string) (model.Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.ledgers[userID]
	if !ok {
		return model.Ledger{}, fmt.Errorf("cache %w", model.ErrNotFound)
	}
	return l.Clone(), nil
}

func (c *MemoryCache) SetLedger(ctx context.Context, ledger model.Ledger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.ledgers[ledger.UserID]; ok && cur.Version > ledger.Version {
		return nil
	}
	c.ledgers[ledger.UserID] = ledger.Clone()
	return nil
}

func (c *MemoryCache) InvalidateLedger(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ledgers, userID)
	return nil
}
