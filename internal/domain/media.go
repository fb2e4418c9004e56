package domain

import "time"

// MediaType enumerates the catalog entry kinds.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeAnime  MediaType = "anime"
	MediaTypeSeries MediaType = "series"
)

// MediaStatus is the moderation state of a media entry.
type MediaStatus string

const (
	MediaStatusPending  MediaStatus = "pending"
	MediaStatusApproved MediaStatus = "approved"
	MediaStatusRejected MediaStatus = "rejected"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeMovie, MediaTypeAnime, MediaTypeSeries:
		return true
	}
	return false
}

// Valid reports whether s is a known moderation state.
func (s MediaStatus) Valid() bool {
	switch s {
	case MediaStatusPending, MediaStatusApproved, MediaStatusRejected:
		return true
	}
	return false
}

// Category is the normalized category reference of a media entry.
type Category struct {
	ID   *string `json:"id,omitempty"`
	Name string  `json:"name"`
}

// MediaMetrics is the running aggregate kept alongside each media entry.
// RatingAvg is 0 whenever RatingCount is 0.
type MediaMetrics struct {
	RatingCount   int64   `json:"ratingCount"`
	RatingAvg     float64 `json:"ratingAvg"`
	Likes         int64   `json:"likes"`
	Dislikes      int64   `json:"dislikes"`
	WeightedScore float64 `json:"weightedScore"`
}

// Media represents a catalog entry subject to review.
type Media struct {
	ID          string
	Title       string
	Slug        string
	Type        MediaType
	Description string
	Category    Category
	Year        *int
	ImageURL    *string
	Status      MediaStatus
	CreatedBy   string
	ApprovedBy  *string
	ApprovedAt  *time.Time
	Metrics     MediaMetrics
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
