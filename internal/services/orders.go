package laundry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	interf "github.com/glkeru/laundry/internal/interfaces"
	model "github.com/glkeru/laundry/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Жизненный цикл заказа
type OrderService struct {
	logger   *zap.Logger
	orders   interf.OrderStorage
	rewards  interf.CompletionHandler
	notifier interf.Notifier
	locks    *keyedMutex
	retries  int
	now      func() time.Time
}

func NewOrderService(logger *zap.Logger, orders interf.OrderStorage, rewards interf.CompletionHandler,
	notifier interf.Notifier, retries int) *OrderService {
	if retries < 1 {
		retries = 1
	}
	return &OrderService{
		logger:   logger,
		orders:   orders,
		rewards:  rewards,
		notifier: notifier,
		locks:    newKeyedMutex(),
		retries:  retries,
		now:      time.Now,
	}
}

func (s *OrderService) Log(service string, orderID string, err error) {
	s.logger.Error("Order Lifecycle",
		zap.String("service", service),
		zap.String("orderId", orderID),
		zap.Error(err),
	)
}

// Допустимые переходы: следующий статус по порядку, отмена только из pending и confirmed.
// delivered и cancelled - конечные.
func CanTransition(from, to model.OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == model.StatusCancelled {
		return from == model.StatusPending || from == model.StatusConfirmed
	}
	for i, st := range model.StatusFlow {
		if st == from {
			return i+1 < len(model.StatusFlow) && model.StatusFlow[i+1] == to
		}
	}
	return false
}

// Создание заказа в статусе pending
func (s *OrderService) CreateOrder(ctx context.Context, in model.NewOrder, actor model.Actor) (model.Order, error) {
	if in.UserID == "" {
		return model.Order{}, fmt.Errorf("user is required: %w", model.ErrValidation)
	}
	if !actor.Admin && actor.UserID != in.UserID {
		return model.Order{}, fmt.Errorf("create order for %s: %w", in.UserID, model.ErrForbidden)
	}
	if in.Total < 0 {
		return model.Order{}, fmt.Errorf("total must not be negative: %w", model.ErrValidation)
	}
	for _, i := range in.Items {
		if i.Quantity <= 0 || i.Price < 0 {
			return model.Order{}, fmt.Errorf("item %q: %w", i.Service, model.ErrValidation)
		}
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = model.PaymentPending
	}

	now := s.now()
	var err error
	for i := 0; i < 3; i++ {
		order := model.Order{
			ID:            uuid.NewString(),
			OrderNumber:   newOrderNumber(now),
			TrackingCode:  newTrackingCode(),
			TagID:         newTagID(),
			UserID:        in.UserID,
			Status:        model.StatusPending,
			StatusLog:     []model.StatusLogEntry{{Status: model.StatusPending, Timestamp: now, Actor: actor.UserID, Note: "order created"}},
			Items:         in.Items,
			Total:         in.Total,
			PaymentStatus: in.PaymentStatus,
			Detergent:     in.Detergent,
			Urgent:        in.Urgent,
			CreatedAt:     now,
			LastUpdated:   now,
		}
		err = s.orders.CreateOrder(ctx, order)
		if err == nil {
			orderTransitions.WithLabelValues(string(model.StatusPending)).Inc()
			return order, nil
		}
		// совпал один из уникальных кодов
		if !errors.Is(err, model.ErrAlreadyExists) {
			break
		}
	}
	s.Log("CreateOrder", "", err)
	return model.Order{}, err
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor model.Actor) (model.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if !actor.CanAccess(order) {
		return model.Order{}, fmt.Errorf("order %s: %w", orderID, model.ErrForbidden)
	}
	return order, nil
}

// Публичный трекинг по коду
func (s *OrderService) GetOrderByTracking(ctx context.Context, code string) (model.Order, error) {
	if code == "" {
		return model.Order{}, fmt.Errorf("tracking code is required: %w", model.ErrValidation)
	}
	return s.orders.GetOrderByTracking(ctx, code)
}

// Смена статуса заказа. Переходы одного заказа выполняются по одному:
// мьютекс на заказ и запись при неизменной версии.
func (s *OrderService) TransitionOrder(ctx context.Context, orderID string, status model.OrderStatus,
	actor model.Actor, note string, loc *model.Location) (model.Order, error) {
	ctx, span := tracer.Start(ctx, "TransitionOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status", string(status)))

	if !status.Valid() {
		return model.Order{}, fmt.Errorf("status %q: %w", status, model.ErrValidation)
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	for attempt := 0; attempt < s.retries; attempt++ {
		order, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return model.Order{}, err
		}
		if !actor.CanAccess(order) {
			return model.Order{}, fmt.Errorf("order %s: %w", orderID, model.ErrForbidden)
		}

		// повтор после сбоя начисления: заказ уже доставлен, баллы не отмечены
		if status == model.StatusDelivered && order.Status == model.StatusDelivered && !order.RewardsApplied {
			return s.complete(ctx, order)
		}
		if !CanTransition(order.Status, status) {
			return model.Order{}, fmt.Errorf("order %s: %s -> %s: %w", orderID, order.Status, status, model.ErrInvalidTransition)
		}

		now := s.now()
		if n := len(order.StatusLog); n > 0 && !now.After(order.StatusLog[n-1].Timestamp) {
			now = order.StatusLog[n-1].Timestamp.Add(time.Millisecond)
		}
		order.StatusLog = append(order.StatusLog, model.StatusLogEntry{
			Status:    status,
			Timestamp: now,
			Actor:     actor.UserID,
			Note:      note,
			Location:  loc,
		})
		order.Status = status
		order.LastUpdated = now
		if status == model.StatusDelivered && order.CompletedAt == nil {
			completed := now
			order.CompletedAt = &completed
		}

		err = s.orders.UpdateOrder(ctx, order)
		if errors.Is(err, model.ErrVersionConflict) {
			continue
		}
		if err != nil {
			s.Log("TransitionOrder", orderID, err)
			return model.Order{}, err
		}
		order.Version++
		orderTransitions.WithLabelValues(string(status)).Inc()
		s.notifier.Notify(ctx, statusNotification(order))

		if status == model.StatusDelivered {
			return s.complete(ctx, order)
		}
		return order, nil
	}
	return model.Order{}, fmt.Errorf("order %s: %w", orderID, model.ErrConcurrencyConflict)
}

// Начисление баллов по доставленному заказу и отметка rewardsApplied
func (s *OrderService) complete(ctx context.Context, order model.Order) (model.Order, error) {
	if _, err := s.rewards.ProcessOrderCompletion(ctx, order); err != nil {
		s.Log("ProcessOrderCompletion", order.ID, err)
		return order, fmt.Errorf("order %s delivered: %w: %w", order.ID, model.ErrRewardsPending, err)
	}
	for attempt := 0; attempt < s.retries; attempt++ {
		order.RewardsApplied = true
		err := s.orders.UpdateOrder(ctx, order)
		if err == nil {
			order.Version++
			return order, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			s.Log("RewardsApplied", order.ID, err)
			break
		}
		current, err := s.orders.GetOrder(ctx, order.ID)
		if err != nil {
			s.Log("RewardsApplied", order.ID, err)
			break
		}
		if current.RewardsApplied {
			return current, nil
		}
		order = current
	}
	// баллы начислены, флаг не записан: повторный вызов задублирован не будет (проверка по заказу в счете)
	return order, nil
}

// Сканирование метки: тот же переход, действие от имени сканера
func (s *OrderService) ScanTag(ctx context.Context, scan model.TagScan) (model.Order, error) {
	if scan.TagID == "" {
		return model.Order{}, fmt.Errorf("tag is required: %w", model.ErrValidation)
	}
	order, err := s.orders.GetOrderByTag(ctx, scan.TagID)
	if err != nil {
		return model.Order{}, err
	}
	actor := model.Actor{UserID: "scanner:" + scan.DeviceID, Admin: true}
	note := scan.Note
	if note == "" {
		note = "tag scan"
	}
	return s.TransitionOrder(ctx, order.ID, scan.Status, actor, note, scan.Location)
}

func statusNotification(o model.Order) model.Notification {
	pretty := strings.ReplaceAll(string(o.Status), "_", " ")
	priority := model.PriorityNormal
	switch o.Status {
	case model.StatusOutForDelivery, model.StatusDelivered, model.StatusReadyForPickup:
		priority = model.PriorityHigh
	case model.StatusWashing, model.StatusIroning:
		priority = model.PriorityLow
	}
	return model.Notification{
		UserID:    o.UserID,
		Title:     fmt.Sprintf("Order %s: %s", o.OrderNumber, pretty),
		Body:      fmt.Sprintf("Your order %s is now %s.", o.OrderNumber, pretty),
		Category:  model.CategoryOrderStatus,
		Priority:  priority,
		ActionRef: "/orders/" + o.ID,
		CreatedAt: o.LastUpdated,
	}
}
