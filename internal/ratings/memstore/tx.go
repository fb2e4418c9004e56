package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// tx stages writes against the locked entities of one unit.
type tx struct {
	s *Store

	held  map[string]struct{}
	order []string

	metrics        map[string]domain.MediaMetrics
	reviews        map[string]domain.Review
	deletedReviews map[string]struct{}
	reactions      map[string]domain.ReviewReaction
}

func newTx(s *Store) *tx {
	return &tx{
		s:              s,
		held:           make(map[string]struct{}),
		metrics:        make(map[string]domain.MediaMetrics),
		reviews:        make(map[string]domain.Review),
		deletedReviews: make(map[string]struct{}),
		reactions:      make(map[string]domain.ReviewReaction),
	}
}

func mediaKey(id string) string  { return "media:" + id }
func reviewKey(id string) string { return "review:" + id }

func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = struct{}{}
	t.order = append(t.order, key)
	return nil
}

func (t *tx) requireLock(key string) error {
	if _, ok := t.held[key]; !ok {
		return fmt.Errorf("write to %s without lock: %w", key, domain.ErrInternal)
	}
	return nil
}

func (t *tx) releaseAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
	t.held = nil
}

func (t *tx) LockMedia(ctx context.Context, mediaID string) (domain.Media, error) {
	if err := t.lock(ctx, mediaKey(mediaID)); err != nil {
		return domain.Media{}, err
	}
	t.s.mu.RLock()
	m, ok := t.s.media[mediaID]
	t.s.mu.RUnlock()
	if !ok {
		return domain.Media{}, fmt.Errorf("media %s: %w", mediaID, domain.ErrNotFound)
	}
	if staged, ok := t.metrics[mediaID]; ok {
		m.Metrics = staged
	}
	return m, nil
}

func (t *tx) SaveMediaMetrics(_ context.Context, mediaID string, metrics domain.MediaMetrics) error {
	if err := t.requireLock(mediaKey(mediaID)); err != nil {
		return err
	}
	t.metrics[mediaID] = metrics
	return nil
}

func (t *tx) review(reviewID string) (domain.Review, bool) {
	if _, gone := t.deletedReviews[reviewID]; gone {
		return domain.Review{}, false
	}
	if r, ok := t.reviews[reviewID]; ok {
		return r, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	r, ok := t.s.reviews[reviewID]
	return r, ok
}

func (t *tx) LockReview(ctx context.Context, reviewID string) (domain.Review, error) {
	if err := t.lock(ctx, reviewKey(reviewID)); err != nil {
		return domain.Review{}, err
	}
	r, ok := t.review(reviewID)
	if !ok {
		return domain.Review{}, fmt.Errorf("review %s: %w", reviewID, domain.ErrNotFound)
	}
	return r, nil
}

func (t *tx) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	// The media lock serializes every writer of the (media, user) index.
	if err := t.requireLock(mediaKey(review.MediaID)); err != nil {
		return domain.Review{}, err
	}
	pair := pairKey{parent: review.MediaID, user: review.UserID}
	for id, staged := range t.reviews {
		if staged.MediaID == review.MediaID && staged.UserID == review.UserID {
			if _, gone := t.deletedReviews[id]; !gone {
				return domain.Review{}, fmt.Errorf("review by %s for media %s: %w", review.UserID, review.MediaID, domain.ErrConflict)
			}
		}
	}
	t.s.mu.RLock()
	existing, taken := t.s.reviewKey[pair]
	t.s.mu.RUnlock()
	if taken {
		if _, gone := t.deletedReviews[existing]; !gone {
			return domain.Review{}, fmt.Errorf("review by %s for media %s: %w", review.UserID, review.MediaID, domain.ErrConflict)
		}
	}

	now := t.s.now()
	review.ID = uuid.NewString()
	review.LikesCount = 0
	review.DislikesCount = 0
	review.CreatedAt = now
	review.UpdatedAt = now
	if err := t.lock(ctx, reviewKey(review.ID)); err != nil {
		return domain.Review{}, err
	}
	t.reviews[review.ID] = review
	return review, nil
}

func (t *tx) UpdateReview(_ context.Context, review domain.Review) (domain.Review, error) {
	if err := t.requireLock(reviewKey(review.ID)); err != nil {
		return domain.Review{}, err
	}
	current, ok := t.review(review.ID)
	if !ok {
		return domain.Review{}, fmt.Errorf("review %s: %w", review.ID, domain.ErrNotFound)
	}
	current.Title = review.Title
	current.Comment = review.Comment
	current.Rating = review.Rating
	current.UpdatedAt = t.s.now()
	t.reviews[review.ID] = current
	return current, nil
}

func (t *tx) DeleteReview(_ context.Context, reviewID string) error {
	if err := t.requireLock(reviewKey(reviewID)); err != nil {
		return err
	}
	if _, ok := t.review(reviewID); !ok {
		return fmt.Errorf("review %s: %w", reviewID, domain.ErrNotFound)
	}
	t.deletedReviews[reviewID] = struct{}{}
	for id, r := range t.reactions {
		if r.ReviewID == reviewID {
			delete(t.reactions, id)
		}
	}
	return nil
}

func (t *tx) AddReviewCounters(_ context.Context, reviewID string, likes, dislikes int64) (domain.ReactionCounts, error) {
	if err := t.requireLock(reviewKey(reviewID)); err != nil {
		return domain.ReactionCounts{}, err
	}
	r, ok := t.review(reviewID)
	if !ok {
		return domain.ReactionCounts{}, fmt.Errorf("review %s: %w", reviewID, domain.ErrNotFound)
	}
	if r.LikesCount+likes < 0 || r.DislikesCount+dislikes < 0 {
		return domain.ReactionCounts{}, fmt.Errorf("review %s counters would go negative: %w", reviewID, domain.ErrInvalidState)
	}
	r.LikesCount += likes
	r.DislikesCount += dislikes
	t.reviews[reviewID] = r
	return r.Counts(), nil
}

func (t *tx) FindReaction(_ context.Context, reviewID, userID string) (domain.ReviewReaction, error) {
	if err := t.requireLock(reviewKey(reviewID)); err != nil {
		return domain.ReviewReaction{}, err
	}
	for _, r := range t.reactions {
		if r.ReviewID == reviewID && r.UserID == userID {
			return r, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if id, ok := t.s.reactionKey[pairKey{parent: reviewID, user: userID}]; ok {
		return t.s.reactions[id], nil
	}
	return domain.ReviewReaction{}, fmt.Errorf("reaction by %s on review %s: %w", userID, reviewID, domain.ErrNotFound)
}

func (t *tx) InsertReaction(ctx context.Context, reaction domain.ReviewReaction) (domain.ReviewReaction, error) {
	if _, err := t.FindReaction(ctx, reaction.ReviewID, reaction.UserID); err == nil {
		return domain.ReviewReaction{}, fmt.Errorf("reaction by %s on review %s: %w", reaction.UserID, reaction.ReviewID, domain.ErrConflict)
	} else if err := t.requireLock(reviewKey(reaction.ReviewID)); err != nil {
		return domain.ReviewReaction{}, err
	}
	now := t.s.now()
	reaction.ID = uuid.NewString()
	reaction.CreatedAt = now
	reaction.UpdatedAt = now
	t.reactions[reaction.ID] = reaction
	return reaction, nil
}

func (t *tx) SetReactionValue(_ context.Context, reactionID string, value domain.ReactionValue) error {
	r, ok := t.reactions[reactionID]
	if !ok {
		t.s.mu.RLock()
		r, ok = t.s.reactions[reactionID]
		t.s.mu.RUnlock()
	}
	if !ok {
		return fmt.Errorf("reaction %s: %w", reactionID, domain.ErrNotFound)
	}
	if err := t.requireLock(reviewKey(r.ReviewID)); err != nil {
		return err
	}
	r.Value = value
	r.UpdatedAt = t.s.now()
	t.reactions[reactionID] = r
	return nil
}

// commit publishes every staged write at once.
func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, m := range t.metrics {
		media, ok := t.s.media[id]
		if !ok {
			continue
		}
		media.Metrics = m
		media.UpdatedAt = t.s.now()
		t.s.media[id] = media
	}
	for id := range t.deletedReviews {
		r, ok := t.s.reviews[id]
		if ok {
			delete(t.s.reviewKey, pairKey{parent: r.MediaID, user: r.UserID})
			delete(t.s.reviews, id)
		}
		for rid, reaction := range t.s.reactions {
			if reaction.ReviewID == id {
				delete(t.s.reactionKey, pairKey{parent: id, user: reaction.UserID})
				delete(t.s.reactions, rid)
			}
		}
	}
	for id, r := range t.reviews {
		if _, gone := t.deletedReviews[id]; gone {
			continue
		}
		t.s.reviews[id] = r
		t.s.reviewKey[pairKey{parent: r.MediaID, user: r.UserID}] = id
	}
	for id, r := range t.reactions {
		if _, gone := t.deletedReviews[r.ReviewID]; gone {
			continue
		}
		t.s.reactions[id] = r
		t.s.reactionKey[pairKey{parent: r.ReviewID, user: r.UserID}] = id
	}
}
