package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/event-booking/internal/metrics"
	"github.com/iliyamo/event-booking/internal/queue"
)

// Publisher is the outbound side of the notification queue.
type Publisher interface {
	Publish(ctx context.Context, n queue.Notification) error
}

// Dispatcher runs post-commit side effects in the background.  Failures are
// logged and counted, never returned to the caller.
type Dispatcher struct {
	pub     Publisher
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher publishing through pub.  A nil pub
// disables notifications.
func NewDispatcher(pub Publisher) *Dispatcher {
	return &Dispatcher{pub: pub, timeout: 10 * time.Second}
}

// Go builds and publishes notifications on a new goroutine.  build runs
// outside any transaction and must only read committed state.
func (d *Dispatcher) Go(kind queue.NotificationType, build func(ctx context.Context) ([]queue.Notification, error)) {
	if d == nil || d.pub == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		// A partial build still publishes what it produced.
		msgs, err := build(ctx)
		if err != nil {
			metrics.TrackNotification("publish", string(kind), metrics.ResultError)
			slog.Error("notification: build failed", "type", kind, "error", err)
		}
		for _, n := range msgs {
			if err := d.pub.Publish(ctx, n); err != nil {
				metrics.TrackNotification("publish", string(n.Type), metrics.ResultError)
				slog.Error("notification: publish failed", "type", n.Type, "reservation_id", n.ReservationID, "error", err)
				continue
			}
			metrics.TrackNotification("publish", string(n.Type), metrics.ResultOK)
		}
	}()
}

// Wait blocks until every dispatched side effect has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
