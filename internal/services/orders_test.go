package laundry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	db "github.com/glkeru/laundry/internal/db"
	model "github.com/glkeru/laundry/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompletion struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeCompletion) ProcessOrderCompletion(ctx context.Context, order model.Order) (model.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return model.Ledger{}, f.err
	}
	return model.Ledger{UserID: order.UserID}, nil
}

func (f *fakeCompletion) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeCompletion) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var (
	owner = model.Actor{UserID: "u1"}
	staff = model.Actor{UserID: "staff", Admin: true}
)

func newTestOrders(t *testing.T) (*OrderService, *db.MemoryDB, *fakeCompletion, *captureNotifier) {
	t.Helper()
	store := db.NewMemoryDB()
	completion := &fakeCompletion{}
	notes := &captureNotifier{}
	s := NewOrderService(zap.NewNop(), store, completion, notes, 5)
	// часы стоят: порядок записей журнала обеспечивает сервис
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s, store, completion, notes
}

func createOrder(t *testing.T, s *OrderService) model.Order {
	t.Helper()
	o, err := s.CreateOrder(context.Background(), model.NewOrder{UserID: "u1", Total: 30}, owner)
	require.NoError(t, err)
	return o
}

func advance(t *testing.T, s *OrderService, id string, to model.OrderStatus) model.Order {
	t.Helper()
	var o model.Order
	var err error
	for _, st := range model.StatusFlow[1:] {
		o, err = s.TransitionOrder(context.Background(), id, st, staff, "", nil)
		require.NoError(t, err, st)
		if st == to {
			break
		}
	}
	return o
}

func TestCanTransition(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from model.OrderStatus
		to   model.OrderStatus
		want bool
	}{
		{model.StatusPending, model.StatusConfirmed, true},
		{model.StatusConfirmed, model.StatusPickedUp, true},
		{model.StatusOutForDelivery, model.StatusDelivered, true},
		{model.StatusPending, model.StatusDelivered, false},
		{model.StatusPending, model.StatusWashing, false},
		{model.StatusWashing, model.StatusPickedUp, false},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusConfirmed, model.StatusCancelled, true},
		{model.StatusPickedUp, model.StatusCancelled, false},
		{model.StatusDelivered, model.StatusCancelled, false},
		{model.StatusCancelled, model.StatusPending, false},
		{model.StatusDelivered, model.StatusDelivered, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, store, _, _ := newTestOrders(t)

	o := createOrder(t, s)
	require.Equal(t, model.StatusPending, o.Status)
	require.Regexp(t, `^LDR-20250301-[0-9A-F]{6}$`, o.OrderNumber)
	require.Regexp(t, `^TRK[0-9A-F]{10}$`, o.TrackingCode)
	require.Equal(t, model.PaymentPending, o.PaymentStatus)
	require.Len(t, o.StatusLog, 1)
	require.False(t, o.RewardsApplied)

	byTracking, err := s.GetOrderByTracking(ctx, o.TrackingCode)
	require.NoError(t, err)
	require.Equal(t, o.ID, byTracking.ID)
	byTag, err := store.GetOrderByTag(ctx, o.TagID)
	require.NoError(t, err)
	require.Equal(t, o.ID, byTag.ID)

	tests := []struct {
		name  string
		in    model.NewOrder
		actor model.Actor
		want  error
	}{
		{"no user", model.NewOrder{}, staff, model.ErrValidation},
		{"other user", model.NewOrder{UserID: "u2"}, owner, model.ErrForbidden},
		{"negative total", model.NewOrder{UserID: "u1", Total: -1}, owner, model.ErrValidation},
		{"bad item", model.NewOrder{UserID: "u1", Items: []model.OrderItem{{Service: "wash", Quantity: 0}}}, owner, model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateOrder(ctx, tt.in, tt.actor)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFullLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, store, completion, notes := newTestOrders(t)
	o := createOrder(t, s)

	_, err := s.TransitionOrder(ctx, o.ID, model.StatusDelivered, staff, "", nil)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	require.Equal(t, 0, completion.count())

	o = advance(t, s, o.ID, model.StatusDelivered)
	require.Equal(t, model.StatusDelivered, o.Status)
	require.True(t, o.RewardsApplied)
	require.NotNil(t, o.CompletedAt)
	require.Equal(t, 1, completion.count())
	require.Equal(t, len(model.StatusFlow)-1, notes.count(model.CategoryOrderStatus))

	stored, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, stored.RewardsApplied)
	require.Len(t, stored.StatusLog, len(model.StatusFlow))
	for i := 1; i < len(stored.StatusLog); i++ {
		require.True(t, stored.StatusLog[i].Timestamp.After(stored.StatusLog[i-1].Timestamp))
		require.Equal(t, model.StatusFlow[i], stored.StatusLog[i].Status)
	}
	completedAt := *stored.CompletedAt

	// повторная доставка отклоняется, начисление не повторяется
	_, err = s.TransitionOrder(ctx, o.ID, model.StatusDelivered, staff, "", nil)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = s.TransitionOrder(ctx, o.ID, model.StatusCancelled, staff, "", nil)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	require.Equal(t, 1, completion.count())

	stored, err = store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, completedAt, *stored.CompletedAt)
}

func TestCancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, completion, _ := newTestOrders(t)

	pending := createOrder(t, s)
	o, err := s.TransitionOrder(ctx, pending.ID, model.StatusCancelled, owner, "changed my mind", nil)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, o.Status)
	require.Equal(t, "changed my mind", o.StatusLog[len(o.StatusLog)-1].Note)
	_, err = s.TransitionOrder(ctx, pending.ID, model.StatusConfirmed, staff, "", nil)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	picked := createOrder(t, s)
	advance(t, s, picked.ID, model.StatusPickedUp)
	_, err = s.TransitionOrder(ctx, picked.ID, model.StatusCancelled, staff, "", nil)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	require.Equal(t, 0, completion.count())
}

func TestOrderAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _, _ := newTestOrders(t)
	o := createOrder(t, s)
	stranger := model.Actor{UserID: "u2"}

	_, err := s.GetOrder(ctx, o.ID, stranger)
	require.ErrorIs(t, err, model.ErrForbidden)
	_, err = s.TransitionOrder(ctx, o.ID, model.StatusCancelled, stranger, "", nil)
	require.ErrorIs(t, err, model.ErrForbidden)
	_, err = s.GetOrder(ctx, "missing", staff)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.TransitionOrder(ctx, "missing", model.StatusConfirmed, staff, "", nil)
	require.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.TransitionOrder(ctx, o.ID, "lost", staff, "", nil)
	require.ErrorIs(t, err, model.ErrValidation)

	got, err := s.GetOrder(ctx, o.ID, owner)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
}

func TestRewardsRetryAfterFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, store, completion, _ := newTestOrders(t)
	o := createOrder(t, s)
	advance(t, s, o.ID, model.StatusOutForDelivery)

	completion.setErr(errors.New("ledger unavailable"))
	delivered, err := s.TransitionOrder(ctx, o.ID, model.StatusDelivered, staff, "", nil)
	require.ErrorIs(t, err, model.ErrRewardsPending)
	require.Equal(t, model.StatusDelivered, delivered.Status)
	require.False(t, delivered.RewardsApplied)

	stored, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDelivered, stored.Status)
	require.False(t, stored.RewardsApplied)
	logLen := len(stored.StatusLog)

	// повтор доводит начисление, статус и журнал не меняются
	completion.setErr(nil)
	retried, err := s.TransitionOrder(ctx, o.ID, model.StatusDelivered, staff, "", nil)
	require.NoError(t, err)
	require.True(t, retried.RewardsApplied)
	require.Len(t, retried.StatusLog, logLen)
	require.Equal(t, 2, completion.count())

	_, err = s.TransitionOrder(ctx, o.ID, model.StatusDelivered, staff, "", nil)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	require.Equal(t, 2, completion.count())
}

func collect(errs chan error) (accepted int, rejected []error) {
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		rejected = append(rejected, err)
	}
	return accepted, rejected
}

// два экземпляра на одном хранилище: выигрывает одна запись по версии
func TestConcurrentTransitionsAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, store, completion, _ := newTestOrders(t)
	other := NewOrderService(zap.NewNop(), store, completion, &captureNotifier{}, 5)
	o := createOrder(t, s)

	wg := sync.WaitGroup{}
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		svc := s
		if i%2 == 1 {
			svc = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TransitionOrder(ctx, o.ID, model.StatusConfirmed, staff, "", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted, rejected := collect(errs)
	require.Equal(t, 1, accepted)
	for _, err := range rejected {
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	}
	stored, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusLog, 2)
}

func TestConcurrentDelivery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, store, completion, _ := newTestOrders(t)
	o := createOrder(t, s)
	advance(t, s, o.ID, model.StatusOutForDelivery)

	wg := sync.WaitGroup{}
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TransitionOrder(ctx, o.ID, model.StatusDelivered, staff, "", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted, rejected := collect(errs)
	require.Equal(t, 1, accepted)
	for _, err := range rejected {
		require.ErrorIs(t, err, model.ErrInvalidTransition)
	}
	require.Equal(t, 1, completion.count())

	stored, err := store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusLog, len(model.StatusFlow))
	require.True(t, stored.RewardsApplied)
}

func TestScanTag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _, _ := newTestOrders(t)
	o := createOrder(t, s)

	scanned, err := s.ScanTag(ctx, model.TagScan{TagID: o.TagID, Status: model.StatusConfirmed, DeviceID: "dev1"})
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, scanned.Status)
	last := scanned.StatusLog[len(scanned.StatusLog)-1]
	require.Equal(t, "scanner:dev1", last.Actor)
	require.Equal(t, "tag scan", last.Note)

	loc := &model.Location{Lat: 1, Lng: 2, Address: "hub"}
	scanned, err = s.ScanTag(ctx, model.TagScan{TagID: o.TagID, Status: model.StatusPickedUp, DeviceID: "dev1", Note: "picked", Location: loc})
	require.NoError(t, err)
	last = scanned.StatusLog[len(scanned.StatusLog)-1]
	require.Equal(t, "picked", last.Note)
	require.Equal(t, loc, last.Location)

	_, err = s.ScanTag(ctx, model.TagScan{Status: model.StatusWashing})
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = s.ScanTag(ctx, model.TagScan{TagID: "TAG-NOPE", Status: model.StatusWashing})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestLifecycleWithRewardEngine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rewards, store, _, _ := newTestRewards(t)
	s := NewOrderService(zap.NewNop(), store, rewards, &captureNotifier{}, 5)

	o, err := s.CreateOrder(ctx, model.NewOrder{UserID: "u1", Total: 200, Detergent: model.DetergentEco}, owner)
	require.NoError(t, err)
	advance(t, s, o.ID, model.StatusDelivered)

	ledger, err := rewards.GetLoyaltyLedger(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, ledger.Stats.TotalOrders)
	require.Equal(t, int64(225), ledger.TotalPointsEarned)
}
