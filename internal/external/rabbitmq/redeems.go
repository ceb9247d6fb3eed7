package laundry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	model "github.com/glkeru/laundry/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const redeemsQueue = "redemptions"
const confirmsQueue = "redemption_confirms"

type RedeemConsumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	Msg   <-chan amqp.Delivery
	chout *amqp.Channel
	mu    sync.Mutex
}

// Запрос на списание из очереди
type RedeemMessage struct {
	RequestID string               `json:"requestId"`
	UserID    string               `json:"userId"`
	Type      model.RedemptionType `json:"type"`
	Points    int64                `json:"points"`
}

func (m RedeemMessage) Request() model.RedemptionRequest {
	return model.RedemptionRequest{Type: m.Type, Points: m.Points, RequestID: m.RequestID}
}

func DecodeRedeem(body []byte) (RedeemMessage, error) {
	var m RedeemMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return RedeemMessage{}, fmt.Errorf("redeem message: %w", err)
	}
	if m.RequestID == "" || m.UserID == "" {
		return m, fmt.Errorf("redeem message: requestId and userId %w", model.ErrValidation)
	}
	return m, nil
}

func NewRedeemConsumer(dsn string) (*RedeemConsumer, error) {
	conn, err := amqp.Dial(dsn)
	if err != nil {
		return nil, err
	}
	// канал для входящих
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err = declareQueue(ch, redeemsQueue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// канал для исходящих
	chout, err := conn.Channel()
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err = declareQueue(chout, confirmsQueue); err != nil {
		chout.Close()
		ch.Close()
		conn.Close()
		return nil, err
	}

	msg, err := ch.Consume(
		redeemsQueue, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		chout.Close()
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RedeemConsumer{conn: conn, ch: ch, Msg: msg, chout: chout}, nil
}

func (r *RedeemConsumer) Close() {
	r.chout.Close()
	r.ch.Close()
	r.conn.Close()
}

type RedeemConfirm struct {
	RequestID  string            `json:"requestId"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Redemption *model.Redemption `json:"redemption,omitempty"`
}

// подтверждение списания
func (r *RedeemConsumer) Processed(ctx context.Context, requestID string, redemption *model.Redemption, procErr error) error {
	st := RedeemConfirm{RequestID: requestID, Success: procErr == nil, Redemption: redemption}
	if procErr != nil {
		st.Error = procErr.Error()
	}
	msg, err := json.Marshal(st)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chout.PublishWithContext(ctx,
		"",            // exchange
		confirmsQueue, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: requestID,
			Body:          msg,
		})
}
