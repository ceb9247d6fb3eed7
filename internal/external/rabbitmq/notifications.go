package laundry

import (
	"context"
	"encoding/json"
	"sync"

	model "github.com/glkeru/laundry/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const notificationsQueue = "notifications"

// Публикация уведомлений в очередь
type NotificationPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex // канал amqp не потокобезопасен
}

func NewNotificationPublisher(dsn string) (*NotificationPublisher, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err = declareQueue(ch, notificationsQueue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &NotificationPublisher{conn: conn, ch: ch}, nil
}

func (p *NotificationPublisher) Send(ctx context.Context, n model.Notification) error {
	msg, err := json.Marshal(n)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		"",                 // exchange
		notificationsQueue, // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         msg,
		})
}

func (p *NotificationPublisher) Close() {
	p.ch.Close()
	p.conn.Close()
}
