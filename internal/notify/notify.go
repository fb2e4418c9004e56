// Package notify fans review events out to best-effort sinks. Delivery never
// blocks or fails the operation that produced the event.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event describes a newly submitted review.
type Event struct {
	ReviewID   string    `json:"reviewId"`
	UserID     string    `json:"userId"`
	MediaID    string    `json:"mediaId"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Sink delivers one event somewhere.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

// Dispatcher delivers events to every sink asynchronously.
// A nil *Dispatcher is a no-op.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher bounded by timeout per delivery.
func NewDispatcher(logger *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, logger: logger}
}

// Notify schedules delivery of ev and returns immediately. The caller's
// cancellation does not abort delivery.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if d == nil || len(d.sinks) == 0 {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	base := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			deliverCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := sink.Deliver(deliverCtx, ev); err != nil {
				d.logger.Warn("notify: delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("review_id", ev.ReviewID),
					zap.Error(err))
			}
		}(sink)
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
