package ratings

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

const epsilon = 1e-9

func TestAfterNewRating(t *testing.T) {
	tests := []struct {
		name      string
		in        domain.MediaMetrics
		rating    int
		wantCount int64
		wantAvg   float64
	}{
		{"first rating", domain.MediaMetrics{}, 8, 1, 8},
		{"second rating", domain.MediaMetrics{RatingCount: 1, RatingAvg: 8}, 4, 2, 6},
		{"lower bound", domain.MediaMetrics{RatingCount: 3, RatingAvg: 5}, 1, 4, 4},
		{"upper bound", domain.MediaMetrics{RatingCount: 1, RatingAvg: 10}, 10, 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := afterNewRating(tt.in, tt.rating)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.RatingCount != tt.wantCount || math.Abs(got.RatingAvg-tt.wantAvg) > epsilon {
				t.Fatalf("got {%d, %v}, want {%d, %v}", got.RatingCount, got.RatingAvg, tt.wantCount, tt.wantAvg)
			}
		})
	}
}

func TestAfterNewRatingKeepsOtherFields(t *testing.T) {
	in := domain.MediaMetrics{RatingCount: 1, RatingAvg: 5, Likes: 3, Dislikes: 2, WeightedScore: 1.5}
	got, err := afterNewRating(in, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Likes != 3 || got.Dislikes != 2 || got.WeightedScore != 1.5 {
		t.Fatalf("unrelated fields changed: %+v", got)
	}
}

func TestAfterRatingChange(t *testing.T) {
	got, err := afterRatingChange(domain.MediaMetrics{RatingCount: 2, RatingAvg: 6}, 8, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RatingCount != 2 || math.Abs(got.RatingAvg-7) > epsilon {
		t.Fatalf("got {%d, %v}, want {2, 7}", got.RatingCount, got.RatingAvg)
	}

	if _, err := afterRatingChange(domain.MediaMetrics{}, 5, 6); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on empty aggregate, got %v", err)
	}
}

func TestAfterRatingRemoval(t *testing.T) {
	got, err := afterRatingRemoval(domain.MediaMetrics{RatingCount: 2, RatingAvg: 7}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RatingCount != 1 || math.Abs(got.RatingAvg-10) > epsilon {
		t.Fatalf("got {%d, %v}, want {1, 10}", got.RatingCount, got.RatingAvg)
	}

	got, err = afterRatingRemoval(domain.MediaMetrics{RatingCount: 1, RatingAvg: 10}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RatingCount != 0 || got.RatingAvg != 0 {
		t.Fatalf("expected empty aggregate, got %+v", got)
	}

	if _, err := afterRatingRemoval(domain.MediaMetrics{}, 3); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState removing from empty aggregate, got %v", err)
	}
}

func TestRatingBounds(t *testing.T) {
	for _, rating := range []int{-1, 0, 11, 100} {
		if _, err := afterNewRating(domain.MediaMetrics{}, rating); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("rating %d: expected ErrInvalidState, got %v", rating, err)
		}
	}
	if _, err := afterRatingChange(domain.MediaMetrics{RatingCount: 1, RatingAvg: 5}, 5, 0); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("change to 0: expected ErrInvalidState, got %v", err)
	}
}

func TestCounterDeltas(t *testing.T) {
	tests := []struct {
		prev, next      domain.ReactionValue
		likes, dislikes int64
	}{
		{0, domain.ReactionLike, 1, 0},
		{0, domain.ReactionDislike, 0, 1},
		{domain.ReactionLike, domain.ReactionDislike, -1, 1},
		{domain.ReactionDislike, domain.ReactionLike, 1, -1},
		{domain.ReactionLike, domain.ReactionLike, 0, 0},
	}
	for _, tt := range tests {
		likes, dislikes := counterDeltas(tt.prev, tt.next)
		if likes != tt.likes || dislikes != tt.dislikes {
			t.Errorf("counterDeltas(%d, %d) = (%d, %d), want (%d, %d)", tt.prev, tt.next, likes, dislikes, tt.likes, tt.dislikes)
		}
	}
}

type ratingStep struct {
	op       string // "new", "chg" or "del"
	old, val int
}

// highRatingSequence accumulates rounding error that used to leave the mean
// at 10.000000000000004 with five ratings of 10.
var highRatingSequence = []ratingStep{
	{op: "new", val: 1}, {op: "new", val: 10}, {op: "new", val: 9}, {op: "new", val: 10},
	{op: "new", val: 7}, {op: "new", val: 10}, {op: "new", val: 10}, {op: "chg", old: 9, val: 10},
	{op: "new", val: 10}, {op: "del", val: 10}, {op: "del", val: 1}, {op: "del", val: 7},
}

func applyStep(m domain.MediaMetrics, s ratingStep) (domain.MediaMetrics, error) {
	switch s.op {
	case "new":
		return afterNewRating(m, s.val)
	case "chg":
		return afterRatingChange(m, s.old, s.val)
	default:
		return afterRatingRemoval(m, s.val)
	}
}

func TestHighRatingSequenceStaysInRange(t *testing.T) {
	var m domain.MediaMetrics
	for i, s := range highRatingSequence {
		var err error
		if m, err = applyStep(m, s); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if m.RatingAvg <= 0 || m.RatingAvg > domain.MaxRating {
			t.Fatalf("step %d: avg %v outside (0, 10]", i, m.RatingAvg)
		}
	}
	if m.RatingCount != 5 || m.RatingAvg != 10 {
		t.Fatalf("final metrics = %+v, want {5, 10}", m)
	}
}

func TestRandomSequenceStaysInRange(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		var (
			m    domain.MediaMetrics
			live []int
		)
		for step := 0; step < 400; step++ {
			rating := domain.MaxRating
			if rng.Intn(5) == 0 {
				rating = rng.Intn(domain.MaxRating) + 1
			}
			var err error
			switch op := rng.Intn(3); {
			case len(live) == 0 || op == 0:
				m, err = afterNewRating(m, rating)
				live = append(live, rating)
			case op == 1:
				i := rng.Intn(len(live))
				m, err = afterRatingChange(m, live[i], rating)
				live[i] = rating
			default:
				i := rng.Intn(len(live))
				m, err = afterRatingRemoval(m, live[i])
				live = append(live[:i], live[i+1:]...)
			}
			if err != nil {
				t.Fatalf("seed %d step %d: %v", seed, step, err)
			}
			if m.RatingCount == 0 {
				if m.RatingAvg != 0 {
					t.Fatalf("seed %d step %d: empty aggregate with avg %v", seed, step, m.RatingAvg)
				}
				continue
			}
			if m.RatingAvg < domain.MinRating || m.RatingAvg > domain.MaxRating {
				t.Fatalf("seed %d step %d: avg %v outside [1, 10]", seed, step, m.RatingAvg)
			}
		}
	}
}
