package laundry

import (
	"context"

	model "github.com/glkeru/laundry/internal/models"
)

// Обработчик завершения заказа (начисление баллов)
type CompletionHandler interface {
	ProcessOrderCompletion(ctx context.Context, order model.Order) (model.Ledger, error)
}

// Постановка уведомления в очередь, не блокирует
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Транспорт уведомлений
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}
