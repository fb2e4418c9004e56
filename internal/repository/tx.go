package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/ratings"
)

// TxStore runs ratings units as Postgres transactions. Entity locks are row
// locks taken with SELECT ... FOR UPDATE (reviews) and FOR NO KEY UPDATE
// (media, so review inserts referencing it are not blocked by the FK check).
type TxStore struct {
	pool *pgxpool.Pool
}

var _ ratings.Store = (*TxStore)(nil)

// RunInTx executes fn in a READ COMMITTED transaction and commits when fn
// returns nil.
func (s *TxStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ratings.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify(err, "begin")
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(err, "commit")
	}
	return nil
}

// Review reads the committed review.
func (s *TxStore) Review(ctx context.Context, reviewID string) (domain.Review, error) {
	return getReview(ctx, s.pool, reviewID)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockMedia(ctx context.Context, mediaID string) (domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM media WHERE id = $1 FOR NO KEY UPDATE`, mediaColumns)
	media, err := scanMedia(t.tx.QueryRow(ctx, query, mediaID))
	if err != nil {
		return domain.Media{}, classify(err, "lock media "+mediaID)
	}
	return media, nil
}

func (t *pgTx) SaveMediaMetrics(ctx context.Context, mediaID string, m domain.MediaMetrics) error {
	const query = `
        UPDATE media
        SET rating_count = $2,
            rating_avg = $3,
            likes = $4,
            dislikes = $5,
            weighted_score = $6,
            updated_at = now()
        WHERE id = $1
    `
	tag, err := t.tx.Exec(ctx, query, mediaID, m.RatingCount, m.RatingAvg, m.Likes, m.Dislikes, m.WeightedScore)
	if err != nil {
		return classify(err, "save metrics "+mediaID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save metrics %s: %w", mediaID, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) LockReview(ctx context.Context, reviewID string) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1 FOR UPDATE`, reviewColumns)
	review, err := scanReview(t.tx.QueryRow(ctx, query, reviewID))
	if err != nil {
		return domain.Review{}, classify(err, "lock review "+reviewID)
	}
	return review, nil
}

func (t *pgTx) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	query := fmt.Sprintf(`
        INSERT INTO reviews (media_id, user_id, title, comment, rating)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING %s
    `, reviewColumns)

	created, err := scanReview(t.tx.QueryRow(ctx, query, review.MediaID, review.UserID, review.Title, review.Comment, review.Rating))
	if err != nil {
		return domain.Review{}, classify(err, "insert review")
	}
	return created, nil
}

func (t *pgTx) UpdateReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	query := fmt.Sprintf(`
        UPDATE reviews
        SET title = $2, comment = $3, rating = $4, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, reviewColumns)

	updated, err := scanReview(t.tx.QueryRow(ctx, query, review.ID, review.Title, review.Comment, review.Rating))
	if err != nil {
		return domain.Review{}, classify(err, "update review "+review.ID)
	}
	return updated, nil
}

func (t *pgTx) DeleteReview(ctx context.Context, reviewID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		return classify(err, "delete review "+reviewID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete review %s: %w", reviewID, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) AddReviewCounters(ctx context.Context, reviewID string, likes, dislikes int64) (domain.ReactionCounts, error) {
	const query = `
        UPDATE reviews
        SET likes_count = likes_count + $2,
            dislikes_count = dislikes_count + $3,
            updated_at = now()
        WHERE id = $1
        RETURNING likes_count, dislikes_count
    `
	var counts domain.ReactionCounts
	if err := t.tx.QueryRow(ctx, query, reviewID, likes, dislikes).Scan(&counts.Likes, &counts.Dislikes); err != nil {
		return domain.ReactionCounts{}, classify(err, "review counters "+reviewID)
	}
	return counts, nil
}

const reactionColumns = `id, review_id, user_id, value, created_at, updated_at`

func (t *pgTx) FindReaction(ctx context.Context, reviewID, userID string) (domain.ReviewReaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM review_reactions WHERE review_id = $1 AND user_id = $2`, reactionColumns)
	reaction, err := scanReaction(t.tx.QueryRow(ctx, query, reviewID, userID))
	if err != nil {
		return domain.ReviewReaction{}, classify(err, "reaction on review "+reviewID)
	}
	return reaction, nil
}

func (t *pgTx) InsertReaction(ctx context.Context, reaction domain.ReviewReaction) (domain.ReviewReaction, error) {
	query := fmt.Sprintf(`
        INSERT INTO review_reactions (review_id, user_id, value)
        VALUES ($1,$2,$3)
        RETURNING %s
    `, reactionColumns)

	created, err := scanReaction(t.tx.QueryRow(ctx, query, reaction.ReviewID, reaction.UserID, int16(reaction.Value)))
	if err != nil {
		return domain.ReviewReaction{}, classify(err, "insert reaction")
	}
	return created, nil
}

func (t *pgTx) SetReactionValue(ctx context.Context, reactionID string, value domain.ReactionValue) error {
	tag, err := t.tx.Exec(ctx, `UPDATE review_reactions SET value = $2, updated_at = now() WHERE id = $1`, reactionID, int16(value))
	if err != nil {
		return classify(err, "reaction "+reactionID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reaction %s: %w", reactionID, domain.ErrNotFound)
	}
	return nil
}

func scanReaction(row pgx.Row) (domain.ReviewReaction, error) {
	var (
		r     domain.ReviewReaction
		value int16
	)
	if err := row.Scan(&r.ID, &r.ReviewID, &r.UserID, &value, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.ReviewReaction{}, err
	}
	r.Value = domain.ReactionValue(value)
	return r, nil
}
