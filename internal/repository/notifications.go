package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// NotificationsRepository stores the moderation inbox.
type NotificationsRepository struct {
	pool *pgxpool.Pool
}

const notificationColumns = `id, review_id, user_id, media_id, message, status, created_at, updated_at`

// Create inserts a notification. An empty status defaults to pending.
func (r *NotificationsRepository) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if n.Status == "" {
		n.Status = domain.NotificationPending
	}
	query := fmt.Sprintf(`
        INSERT INTO notifications (review_id, user_id, media_id, message, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING %s
    `, notificationColumns)

	created, err := scanNotification(r.pool.QueryRow(ctx, query, n.ReviewID, n.UserID, n.MediaID, n.Message, string(n.Status)))
	if err != nil {
		return domain.Notification{}, classify(err, "create notification")
	}
	return created, nil
}

// List returns notifications newest first, optionally filtered by status.
func (r *NotificationsRepository) List(ctx context.Context, status *domain.NotificationStatus, limit int) ([]domain.Notification, error) {
	var (
		b    strings.Builder
		args []interface{}
	)
	b.WriteString("SELECT ")
	b.WriteString(notificationColumns)
	b.WriteString(" FROM notifications")
	if status != nil {
		args = append(args, string(*status))
		b.WriteString(" WHERE status = $1")
	}
	b.WriteString(fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", clampLimit(limit)))

	rows, err := r.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, classify(err, "list notifications")
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, classify(err, "list notifications")
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list notifications")
	}
	return items, nil
}

// UpdateStatus marks a notification pending or read.
func (r *NotificationsRepository) UpdateStatus(ctx context.Context, id string, status domain.NotificationStatus) (domain.Notification, error) {
	query := fmt.Sprintf(`
        UPDATE notifications SET status = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, notificationColumns)

	n, err := scanNotification(r.pool.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		return domain.Notification{}, classify(err, "notification "+id)
	}
	return n, nil
}

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var (
		n      domain.Notification
		status string
	)
	err := row.Scan(&n.ID, &n.ReviewID, &n.UserID, &n.MediaID, &n.Message, &status, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return domain.Notification{}, err
	}
	n.Status = domain.NotificationStatus(status)
	return n, nil
}
