package ratings

import (
	"context"
	"fmt"
	"math"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// afterNewRating returns m with one more rating folded into the running mean.
func afterNewRating(m domain.MediaMetrics, rating int) (domain.MediaMetrics, error) {
	if err := checkRating(rating); err != nil {
		return m, err
	}
	if m.RatingCount < 0 {
		return m, fmt.Errorf("rating count %d is negative: %w", m.RatingCount, domain.ErrInvalidState)
	}
	count := m.RatingCount + 1
	m.RatingAvg = clampAvg((m.RatingAvg*float64(m.RatingCount) + float64(rating)) / float64(count))
	m.RatingCount = count
	return m, nil
}

// afterRatingChange replaces oldRating with newRating in the running mean.
// The count is unchanged.
func afterRatingChange(m domain.MediaMetrics, oldRating, newRating int) (domain.MediaMetrics, error) {
	if err := checkRating(oldRating); err != nil {
		return m, err
	}
	if err := checkRating(newRating); err != nil {
		return m, err
	}
	if m.RatingCount <= 0 {
		return m, fmt.Errorf("rating change with count %d: %w", m.RatingCount, domain.ErrInvalidState)
	}
	count := float64(m.RatingCount)
	m.RatingAvg = clampAvg((m.RatingAvg*count - float64(oldRating) + float64(newRating)) / count)
	return m, nil
}

// afterRatingRemoval takes rating out of the running mean. An empty aggregate
// always has a zero average.
func afterRatingRemoval(m domain.MediaMetrics, rating int) (domain.MediaMetrics, error) {
	if err := checkRating(rating); err != nil {
		return m, err
	}
	if m.RatingCount <= 0 {
		return m, fmt.Errorf("rating removal with count %d: %w", m.RatingCount, domain.ErrInvalidState)
	}
	count := m.RatingCount - 1
	if count == 0 {
		m.RatingAvg = 0
	} else {
		m.RatingAvg = clampAvg((m.RatingAvg*float64(m.RatingCount) - float64(rating)) / float64(count))
	}
	m.RatingCount = count
	return m, nil
}

// clampAvg keeps the mean of a non-empty aggregate inside the rating range.
// Without it rounding drift can produce e.g. 10.000000000000004.
func clampAvg(avg float64) float64 {
	return math.Min(math.Max(avg, domain.MinRating), domain.MaxRating)
}

func checkRating(rating int) error {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return fmt.Errorf("rating %d outside [%d,%d]: %w", rating, domain.MinRating, domain.MaxRating, domain.ErrInvalidState)
	}
	return nil
}

// metricStore applies the incremental formulas to the media row locked
// inside the current transaction.
type metricStore struct{}

func (s metricStore) applyNewRating(ctx context.Context, tx Tx, mediaID string, rating int) (domain.MediaMetrics, error) {
	return s.apply(ctx, tx, mediaID, func(m domain.MediaMetrics) (domain.MediaMetrics, error) {
		return afterNewRating(m, rating)
	})
}

func (s metricStore) applyRatingChange(ctx context.Context, tx Tx, mediaID string, oldRating, newRating int) (domain.MediaMetrics, error) {
	return s.apply(ctx, tx, mediaID, func(m domain.MediaMetrics) (domain.MediaMetrics, error) {
		return afterRatingChange(m, oldRating, newRating)
	})
}

func (s metricStore) applyRatingRemoval(ctx context.Context, tx Tx, mediaID string, rating int) (domain.MediaMetrics, error) {
	return s.apply(ctx, tx, mediaID, func(m domain.MediaMetrics) (domain.MediaMetrics, error) {
		return afterRatingRemoval(m, rating)
	})
}

func (metricStore) apply(ctx context.Context, tx Tx, mediaID string, next func(domain.MediaMetrics) (domain.MediaMetrics, error)) (domain.MediaMetrics, error) {
	media, err := tx.LockMedia(ctx, mediaID)
	if err != nil {
		return domain.MediaMetrics{}, err
	}
	updated, err := next(media.Metrics)
	if err != nil {
		return domain.MediaMetrics{}, fmt.Errorf("media %s: %w", mediaID, err)
	}
	if err := tx.SaveMediaMetrics(ctx, mediaID, updated); err != nil {
		return domain.MediaMetrics{}, err
	}
	return updated, nil
}
