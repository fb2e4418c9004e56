package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/ratings"
)

func TestKeyedLocksHonourContext(t *testing.T) {
	locks := newKeyedLocks()
	if err := locks.acquire(context.Background(), "media:1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := locks.acquire(ctx, "media:1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := locks.acquire(context.Background(), "media:2"); err != nil {
		t.Fatalf("unrelated key blocked: %v", err)
	}

	locks.release("media:1")
	locks.release("media:2")
	if err := locks.acquire(context.Background(), "media:1"); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	locks.release("media:1")

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Fatalf("expected no lock entries left, got %d", len(locks.locks))
	}
}

func TestRunInTxDiscardsOnError(t *testing.T) {
	s := New()
	m := s.PutMedia(domain.Media{Title: "Solaris", Type: domain.MediaTypeMovie})
	boom := errors.New("boom")

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx ratings.Tx) error {
		if _, err := tx.LockMedia(ctx, m.ID); err != nil {
			return err
		}
		if _, err := tx.InsertReview(ctx, domain.Review{MediaID: m.ID, UserID: "u1", Rating: 4}); err != nil {
			return err
		}
		if err := tx.SaveMediaMetrics(ctx, m.ID, domain.MediaMetrics{RatingCount: 1, RatingAvg: 4}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := s.ReviewsByMedia(m.ID); len(got) != 0 {
		t.Fatalf("expected no reviews, got %d", len(got))
	}
	stored, _ := s.Media(context.Background(), m.ID)
	if stored.Metrics.RatingCount != 0 {
		t.Fatalf("metrics leaked: %+v", stored.Metrics)
	}
}

func TestTxWritesRequireLocks(t *testing.T) {
	s := New()
	m := s.PutMedia(domain.Media{Title: "Stalker", Type: domain.MediaTypeMovie})

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx ratings.Tx) error {
		return tx.SaveMediaMetrics(ctx, m.ID, domain.MediaMetrics{RatingCount: 1, RatingAvg: 1})
	})
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal for unlocked write, got %v", err)
	}

	err = s.RunInTx(context.Background(), func(ctx context.Context, tx ratings.Tx) error {
		_, err := tx.InsertReview(ctx, domain.Review{MediaID: m.ID, UserID: "u1", Rating: 3})
		return err
	})
	if !errors.Is(err, domain.ErrInternal) {
		t.Fatalf("expected ErrInternal for unlocked insert, got %v", err)
	}
}

func TestStagedReviewVisibleInsideTx(t *testing.T) {
	s := New()
	m := s.PutMedia(domain.Media{Title: "Mirror", Type: domain.MediaTypeMovie})

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx ratings.Tx) error {
		if _, err := tx.LockMedia(ctx, m.ID); err != nil {
			return err
		}
		r, err := tx.InsertReview(ctx, domain.Review{MediaID: m.ID, UserID: "u1", Rating: 6})
		if err != nil {
			return err
		}
		if _, err := tx.InsertReview(ctx, domain.Review{MediaID: m.ID, UserID: "u1", Rating: 7}); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("expected staged conflict, got %v", err)
		}
		if _, err := s.Review(ctx, r.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("staged review visible outside tx: %v", err)
		}
		counts, err := tx.AddReviewCounters(ctx, r.ID, 0, -1)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState for negative counter, got %v (%+v)", err, counts)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := s.ReviewsByMedia(m.ID); len(got) != 1 {
		t.Fatalf("expected 1 committed review, got %d", len(got))
	}
}

func TestRunInTxCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.RunInTx(ctx, func(context.Context, ratings.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected canceled without running fn, got %v (called=%v)", err, called)
	}
}
