package notify

import (
	"context"

	"github.com/Clark-Hu/media-reviews/internal/domain"
)

// NotificationWriter persists notifications for the moderation inbox.
type NotificationWriter interface {
	Create(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// StoreSink records each event as a pending notification.
type StoreSink struct {
	Writer NotificationWriter
}

func (s StoreSink) Name() string { return "store" }

func (s StoreSink) Deliver(ctx context.Context, ev Event) error {
	_, err := s.Writer.Create(ctx, domain.Notification{
		ReviewID: ev.ReviewID,
		UserID:   ev.UserID,
		MediaID:  ev.MediaID,
		Message:  ev.Message,
		Status:   domain.NotificationPending,
	})
	return err
}
