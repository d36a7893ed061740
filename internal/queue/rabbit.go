package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// delayedExchangeArgs declares the exchange as a delayed topic exchange.
// Requires the rabbitmq_delayed_message_exchange plugin on the broker.
var delayedExchangeArgs = amqp.Table{"x-delayed-type": "topic"}

type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbit(url, exchange string) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		exchange, "x-delayed-message", true, false, false, false, delayedExchangeArgs,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	return nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, key string, event any, reqID string) error {
	_, err := p.publish(ctx, key, event, 0, amqp.Table{"X-Request-ID": reqID})
	return err
}

func (p *RabbitPublisher) PublishDelayed(ctx context.Context, key string, event any, delay time.Duration) (string, error) {
	return p.publish(ctx, key, event, delay, amqp.Table{})
}

func (p *RabbitPublisher) publish(ctx context.Context, key string, event any, delay time.Duration, headers amqp.Table) (string, error) {
	if p == nil || p.ch == nil {
		return "", nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	if delay > 0 {
		headers["x-delay"] = delay.Milliseconds()
	}

	// bounded publish so a slow broker cannot stall a request
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) <= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
	}

	msgID := uuid.NewString()
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		MessageId:    msgID,
		Timestamp:    time.Now(),
		Headers:      headers,
	})
	if err != nil {
		return "", err
	}
	return msgID, nil
}
