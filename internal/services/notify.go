package laundry

import (
	"context"
	"sync"
	"time"

	interf "github.com/glkeru/laundry/internal/interfaces"
	model "github.com/glkeru/laundry/internal/models"
	"go.uber.org/zap"
)

// Асинхронная отправка уведомлений: очередь + воркеры.
// Notify не ждет доставки, при переполнении очереди уведомление отбрасывается.
type Dispatcher struct {
	sender  interf.Sender
	logger  *zap.Logger
	queue   chan model.Notification
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender interf.Sender, logger *zap.Logger, workers int, queueLength int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueLength < 1 {
		queueLength = 1
	}
	d := &Dispatcher{
		sender:  sender,
		logger:  logger,
		queue:   make(chan model.Notification, queueLength),
		timeout: 5 * time.Second,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, n model.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		notificationsDropped.Inc()
		return
	}
	select {
	case d.queue <- n:
	default:
		notificationsDropped.Inc()
		d.logger.Warn("notification queue is full",
			zap.String("service", "Notify"),
			zap.String("userId", n.UserID),
			zap.String("category", string(n.Category)),
		)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sender.Send(ctx, n)
		cancel()
		if err != nil {
			notificationsFailed.Inc()
			d.logger.Error("notification send error",
				zap.String("service", "Dispatcher"),
				zap.String("userId", n.UserID),
				zap.Error(err),
			)
		}
	}
}

// Close дожидается отправки уже поставленных уведомлений
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

// Отправка в лог, если брокер не настроен
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger}
}

func (l *LogSender) Send(ctx context.Context, n model.Notification) error {
	l.logger.Info("notification",
		zap.String("userId", n.UserID),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.String("category", string(n.Category)),
		zap.String("priority", string(n.Priority)),
		zap.String("actionRef", n.ActionRef),
	)
	return nil
}
