// Package memstore is an in-memory ratings.Store. Writes made inside a unit
// are staged and become visible to other callers only on commit; entities
// are locked per id so units on different media or reviews run in parallel.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/ratings"
)

type pairKey struct {
	parent string
	user   string
}

// Store keeps media, reviews and reactions in maps.
type Store struct {
	mu          sync.RWMutex
	media       map[string]domain.Media
	reviews     map[string]domain.Review
	reviewKey   map[pairKey]string
	reactions   map[string]domain.ReviewReaction
	reactionKey map[pairKey]string

	locks *keyedLocks
	now   func() time.Time
}

var _ ratings.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		media:       make(map[string]domain.Media),
		reviews:     make(map[string]domain.Review),
		reviewKey:   make(map[pairKey]string),
		reactions:   make(map[string]domain.ReviewReaction),
		reactionKey: make(map[pairKey]string),
		locks:       newKeyedLocks(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PutMedia inserts or replaces a media entry, assigning an id when empty.
func (s *Store) PutMedia(m domain.Media) domain.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MediaStatusPending
	}
	now := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	s.media[m.ID] = m
	return m
}

// Media returns the committed media entry.
func (s *Store) Media(_ context.Context, mediaID string) (domain.Media, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.media[mediaID]
	if !ok {
		return domain.Media{}, fmt.Errorf("media %s: %w", mediaID, domain.ErrNotFound)
	}
	return m, nil
}

// Review returns the committed review.
func (s *Store) Review(_ context.Context, reviewID string) (domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return domain.Review{}, fmt.Errorf("review %s: %w", reviewID, domain.ErrNotFound)
	}
	return r, nil
}

// ReviewsByMedia returns the committed reviews of a media entry ordered by creation.
func (s *Store) ReviewsByMedia(mediaID string) []domain.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.MediaID == mediaID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ReactionsByReview returns the committed reactions of a review.
func (s *Store) ReactionsByReview(reviewID string) []domain.ReviewReaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ReviewReaction
	for _, r := range s.reactions {
		if r.ReviewID == reviewID {
			out = append(out, r)
		}
	}
	return out
}

// RunInTx runs fn against a staging transaction and commits it when fn
// returns nil and ctx is still live.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ratings.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	defer t.releaseAll()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}
