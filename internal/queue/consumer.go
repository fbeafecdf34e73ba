package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-booking/internal/metrics"
)

// Handler processes one decoded notification.
type Handler interface {
	Handle(ctx context.Context, n Notification) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, n Notification) error

func (f HandlerFunc) Handle(ctx context.Context, n Notification) error { return f(ctx, n) }

// Consumer reads the notification queue and hands each message to a Handler.
type Consumer struct {
	url      string
	queue    string
	prefetch int
	handler  Handler
}

func NewConsumer(url, queue string, h Handler) *Consumer {
	return &Consumer{url: url, queue: queue, prefetch: 50, handler: h}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// cancelled.  Broker failures are retried with exponential backoff capped at
// 30s; processing errors reject the offending message without requeueing so
// a poison message cannot spin the worker.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			slog.Warn("notification consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("notification consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		slog.Warn("notification consumer: set QoS failed", "error", err)
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleDelivery(ctx, d.Body); err != nil {
				slog.Error("notification consumer: handle message failed", "error", err, "message_id", d.MessageId)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, body []byte) error {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		metrics.TrackNotification("deliver", "unknown", metrics.ResultError)
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.handler.Handle(ctx, n); err != nil {
		metrics.TrackNotification("deliver", string(n.Type), metrics.ResultError)
		return fmt.Errorf("%s for reservation %d: %w", n.Type, n.ReservationID, err)
	}
	metrics.TrackNotification("deliver", string(n.Type), metrics.ResultOK)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
