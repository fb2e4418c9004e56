// Package ratings is the review/rating aggregation engine. It keeps each
// media entry's rating aggregate and each review's reaction counters in step
// with the review and reaction ledgers by running every mutation as one
// atomic unit on a Store.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/metrics"
	"github.com/Clark-Hu/media-reviews/internal/notify"
)

// DefaultUnitTimeout bounds a single atomic unit when Options.UnitTimeout is zero.
const DefaultUnitTimeout = 5 * time.Second

// Notifier receives fire-and-forget review events.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// Options configures a Service.
type Options struct {
	Notifier    Notifier
	Logger      *zap.Logger
	UnitTimeout time.Duration
}

// Service coordinates ledger and aggregate writes. It holds no state across
// calls and never retries; a domain.ErrTransient result may be retried by
// the caller.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	metrics  metricStore
}

// NewService constructs a Service on top of st.
func NewService(st Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.UnitTimeout
	if timeout <= 0 {
		timeout = DefaultUnitTimeout
	}
	return &Service{
		store:    st,
		notifier: opts.Notifier,
		logger:   logger,
		timeout:  timeout,
	}
}

// runUnit executes fn as one atomic unit under the unit deadline.
func (s *Service) runUnit(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	start := time.Now()
	unitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.store.RunInTx(unitCtx, fn)
	if err != nil && !errors.Is(err, domain.ErrTransient) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		err = fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	outcome := outcomeOf(err)
	metrics.ObserveUnit(op, outcome, time.Since(start))
	switch outcome {
	case "invalid_state", "internal":
		s.logger.Error("ratings: unit aborted", zap.String("operation", op), zap.Error(err))
	case "transient", "error":
		s.logger.Warn("ratings: unit aborted", zap.String("operation", op), zap.Error(err))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	case errors.Is(err, domain.ErrInternal):
		return "internal"
	default:
		return "error"
	}
}
