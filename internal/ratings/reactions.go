package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// React records the caller's like or dislike of someone else's review.
// Repeating the same value is a no-op; the opposite value flips the stored
// reaction. There is no way back to "no reaction".
func (s *Service) React(ctx context.Context, reviewID, userID string, value domain.ReactionValue) (domain.ReactionCounts, error) {
	if !value.Valid() {
		return domain.ReactionCounts{}, fmt.Errorf("react: reaction value %d: %w", value, domain.ErrInvalidState)
	}

	err := s.runUnit(ctx, "react", func(ctx context.Context, tx Tx) error {
		review, err := tx.LockReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if review.UserID == userID {
			return fmt.Errorf("self-reaction on review %s: %w", reviewID, domain.ErrForbidden)
		}

		existing, err := tx.FindReaction(ctx, reviewID, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if _, err := tx.InsertReaction(ctx, domain.ReviewReaction{
				ReviewID: reviewID,
				UserID:   userID,
				Value:    value,
			}); err != nil {
				return err
			}
			likes, dislikes := counterDeltas(0, value)
			_, err = tx.AddReviewCounters(ctx, reviewID, likes, dislikes)
			return err
		case err != nil:
			return err
		case existing.Value == value:
			return nil
		default:
			if err := tx.SetReactionValue(ctx, existing.ID, value); err != nil {
				return err
			}
			likes, dislikes := counterDeltas(existing.Value, value)
			_, err = tx.AddReviewCounters(ctx, reviewID, likes, dislikes)
			return err
		}
	})
	if err != nil {
		return domain.ReactionCounts{}, err
	}

	fresh, err := s.store.Review(ctx, reviewID)
	if err != nil {
		return domain.ReactionCounts{}, fmt.Errorf("react: reload review: %w", err)
	}
	return fresh.Counts(), nil
}

// counterDeltas returns the like/dislike adjustments for moving from prev
// (0 when there was no reaction) to next.
func counterDeltas(prev, next domain.ReactionValue) (likes, dislikes int64) {
	switch prev {
	case domain.ReactionLike:
		likes--
	case domain.ReactionDislike:
		dislikes--
	}
	switch next {
	case domain.ReactionLike:
		likes++
	case domain.ReactionDislike:
		dislikes++
	}
	return likes, dislikes
}
