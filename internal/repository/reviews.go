package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// ReviewsRepository serves review reads. Writes go through TxStore.
type ReviewsRepository struct {
	pool *pgxpool.Pool
}

const reviewColumns = `
    id,
    media_id,
    user_id,
    title,
    comment,
    rating,
    likes_count,
    dislikes_count,
    created_at,
    updated_at
`

// ReviewListResult returns a page of reviews.
type ReviewListResult struct {
	Items      []domain.Review
	NextCursor *string
}

// GetByID fetches a review by its identifier.
func (r *ReviewsRepository) GetByID(ctx context.Context, id string) (domain.Review, error) {
	return getReview(ctx, r.pool, id)
}

// ListByMedia returns the newest reviews of a media entry first.
func (r *ReviewsRepository) ListByMedia(ctx context.Context, mediaID string, limit int, cursor *Cursor) (ReviewListResult, error) {
	limit = clampLimit(limit)
	args := []interface{}{mediaID}
	where := "media_id = $1"
	if cursor != nil {
		args = append(args, cursor.CreatedAt, cursor.ID)
		where += " AND (created_at, id) < ($2, $3)"
	}
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d`, reviewColumns, where, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ReviewListResult{}, classify(err, "list reviews")
	}
	defer rows.Close()

	items := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return ReviewListResult{}, classify(err, "list reviews")
		}
		items = append(items, review)
	}
	if err := rows.Err(); err != nil {
		return ReviewListResult{}, classify(err, "list reviews")
	}

	var next *string
	if len(items) > 0 {
		last := items[len(items)-1]
		next, err = nextCursor(len(items), limit, last.CreatedAt, last.ID)
		if err != nil {
			return ReviewListResult{}, err
		}
	}
	return ReviewListResult{Items: items, NextCursor: next}, nil
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getReview(ctx context.Context, q querier, id string) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)
	review, err := scanReview(q.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Review{}, classify(err, "review "+id)
	}
	return review, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.MediaID,
		&review.UserID,
		&review.Title,
		&review.Comment,
		&review.Rating,
		&review.LikesCount,
		&review.DislikesCount,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	return review, err
}
