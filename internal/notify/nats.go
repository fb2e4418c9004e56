package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// DefaultSubject is the JetStream subject review events are published on.
const DefaultSubject = "reviews.created"

// Publisher is the subset of nats.JetStreamContext used by NATSSink.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSSink publishes events to JetStream behind a circuit breaker so a
// broker outage does not pile up goroutines waiting on publish timeouts.
type NATSSink struct {
	js      Publisher
	subject string
	breaker *gobreaker.CircuitBreaker[*nats.PubAck]
}

// NewNATSSink wraps js. An empty subject falls back to DefaultSubject.
func NewNATSSink(js Publisher, subject string, logger *zap.Logger) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        "notify-nats",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("notify: circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &NATSSink{
		js:      js,
		subject: subject,
		breaker: gobreaker.NewCircuitBreaker[*nats.PubAck](settings),
	}
}

func (s *NATSSink) Name() string { return "nats" }

// Deliver publishes ev with a unique message id so JetStream can dedupe retries.
func (s *NATSSink) Deliver(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.breaker.Execute(func() (*nats.PubAck, error) {
		return s.js.Publish(s.subject, data, nats.Context(ctx), nats.MsgId(uuid.NewString()))
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}

// StreamName is the JetStream stream that captures review events.
const StreamName = "REVIEWS"

// Connect dials NATS and makes sure StreamName covers subject. A failure to
// create the stream is logged since it usually already exists.
func Connect(url, subject string, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url,
		nats.Name("media-reviews"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
	}); err != nil {
		logger.Warn("notify: failed to create stream (may already exist)",
			zap.String("stream", StreamName), zap.Error(err))
	}
	logger.Info("notify: nats connected", zap.String("subject", subject))
	return nc, js, nil
}
