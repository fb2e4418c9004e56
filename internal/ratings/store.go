package ratings

import (
	"context"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// Store is the persistence layer the aggregation core runs on.
//
// RunInTx executes fn as one atomic unit: every write made through tx is
// committed when fn returns nil and discarded otherwise. Implementations
// must serialize units that lock the same media or review and let units on
// unrelated entities proceed in parallel.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Review(ctx context.Context, reviewID string) (domain.Review, error)
}

// Tx is the set of reads and writes available inside an atomic unit.
// Lock* calls hold the entity until the unit ends. Callers lock a review
// before its media.
type Tx interface {
	// LockMedia returns the media entry, or domain.ErrNotFound.
	LockMedia(ctx context.Context, mediaID string) (domain.Media, error)
	SaveMediaMetrics(ctx context.Context, mediaID string, metrics domain.MediaMetrics) error

	// LockReview returns the review, or domain.ErrNotFound.
	LockReview(ctx context.Context, reviewID string) (domain.Review, error)
	// InsertReview fails with domain.ErrConflict when the user already
	// reviewed the media.
	InsertReview(ctx context.Context, review domain.Review) (domain.Review, error)
	UpdateReview(ctx context.Context, review domain.Review) (domain.Review, error)
	// DeleteReview removes the review together with its reactions.
	DeleteReview(ctx context.Context, reviewID string) error
	// AddReviewCounters adjusts the like/dislike counters by the given
	// deltas. A counter that would go negative fails with domain.ErrInvalidState.
	AddReviewCounters(ctx context.Context, reviewID string, likes, dislikes int64) (domain.ReactionCounts, error)

	// FindReaction returns the user's reaction to the review, or domain.ErrNotFound.
	FindReaction(ctx context.Context, reviewID, userID string) (domain.ReviewReaction, error)
	InsertReaction(ctx context.Context, reaction domain.ReviewReaction) (domain.ReviewReaction, error)
	SetReactionValue(ctx context.Context, reactionID string, value domain.ReactionValue) error
}
