package domain

import "time"

const (
	MinRating = 1
	MaxRating = 10
)

// Review is a single user's review of a media entry. There is at most one
// review per (MediaID, UserID).
type Review struct {
	ID            string
	MediaID       string
	UserID        string
	Title         string
	Comment       string
	Rating        int
	LikesCount    int64
	DislikesCount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Counts returns the denormalized reaction counters of the review.
func (r Review) Counts() ReactionCounts {
	return ReactionCounts{Likes: r.LikesCount, Dislikes: r.DislikesCount}
}

// ReactionValue is +1 for a like and -1 for a dislike.
type ReactionValue int

const (
	ReactionLike    ReactionValue = 1
	ReactionDislike ReactionValue = -1
)

// Valid reports whether v is a like or a dislike.
func (v ReactionValue) Valid() bool {
	return v == ReactionLike || v == ReactionDislike
}

// ReviewReaction is one user's like or dislike of a review.
type ReviewReaction struct {
	ID        string
	ReviewID  string
	UserID    string
	Value     ReactionValue
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReactionCounts are the like/dislike counters of a review.
type ReactionCounts struct {
	Likes    int64 `json:"likesCount"`
	Dislikes int64 `json:"dislikesCount"`
}
