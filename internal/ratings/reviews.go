package ratings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/notify"
)

// CreateReviewInput carries an already validated review submission.
type CreateReviewInput struct {
	MediaID string
	UserID  string
	Title   string
	Comment string
	Rating  int
}

// ReviewPatch holds the optional fields of a review edit.
type ReviewPatch struct {
	Title   *string
	Comment *string
	Rating  *int
}

// CreateReview stores a new review and folds its rating into the media
// aggregate. Media approval status is not checked.
func (s *Service) CreateReview(ctx context.Context, in CreateReviewInput) (domain.Review, error) {
	if err := checkRating(in.Rating); err != nil {
		return domain.Review{}, fmt.Errorf("create_review: %w", err)
	}

	var (
		created    domain.Review
		mediaTitle string
	)
	err := s.runUnit(ctx, "create_review", func(ctx context.Context, tx Tx) error {
		media, err := tx.LockMedia(ctx, in.MediaID)
		if err != nil {
			return err
		}
		mediaTitle = media.Title

		created, err = tx.InsertReview(ctx, domain.Review{
			MediaID: in.MediaID,
			UserID:  in.UserID,
			Title:   in.Title,
			Comment: in.Comment,
			Rating:  in.Rating,
		})
		if err != nil {
			return err
		}
		_, err = s.metrics.applyNewRating(ctx, tx, in.MediaID, in.Rating)
		return err
	})
	if err != nil {
		return domain.Review{}, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, notify.Event{
			ReviewID: created.ID,
			UserID:   created.UserID,
			MediaID:  created.MediaID,
			Message:  fmt.Sprintf("user %s added a review to %s", created.UserID, mediaTitle),
		})
	}
	s.logger.Debug("ratings: review created",
		zap.String("review_id", created.ID),
		zap.String("media_id", created.MediaID))
	return created, nil
}

// UpdateReview edits the caller's own review. A changed rating is swapped
// into the media aggregate in the same unit.
func (s *Service) UpdateReview(ctx context.Context, reviewID, userID string, patch ReviewPatch) (domain.Review, error) {
	if patch.Rating != nil {
		if err := checkRating(*patch.Rating); err != nil {
			return domain.Review{}, fmt.Errorf("update_review: %w", err)
		}
	}

	var updated domain.Review
	err := s.runUnit(ctx, "update_review", func(ctx context.Context, tx Tx) error {
		review, err := tx.LockReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if review.UserID != userID {
			return fmt.Errorf("review %s belongs to another user: %w", reviewID, domain.ErrForbidden)
		}

		oldRating := review.Rating
		if patch.Title != nil {
			review.Title = *patch.Title
		}
		if patch.Comment != nil {
			review.Comment = *patch.Comment
		}
		if patch.Rating != nil {
			review.Rating = *patch.Rating
		}

		updated, err = tx.UpdateReview(ctx, review)
		if err != nil {
			return err
		}
		if review.Rating != oldRating {
			if _, err := s.metrics.applyRatingChange(ctx, tx, review.MediaID, oldRating, review.Rating); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Review{}, err
	}
	return updated, nil
}

// DeleteReview removes the caller's own review and takes its rating out of
// the media aggregate.
func (s *Service) DeleteReview(ctx context.Context, reviewID, userID string) error {
	return s.runUnit(ctx, "delete_review", func(ctx context.Context, tx Tx) error {
		review, err := tx.LockReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if review.UserID != userID {
			return fmt.Errorf("review %s belongs to another user: %w", reviewID, domain.ErrForbidden)
		}
		if err := tx.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		_, err = s.metrics.applyRatingRemoval(ctx, tx, review.MediaID, review.Rating)
		return err
	})
}
