package domain

import "time"

// NotificationStatus tracks whether an administrator has seen a notification.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationRead    NotificationStatus = "read"
)

// Valid reports whether s is a known notification status.
func (s NotificationStatus) Valid() bool {
	return s == NotificationPending || s == NotificationRead
}

// Notification records that a review was submitted.
type Notification struct {
	ID        string
	ReviewID  string
	UserID    string
	MediaID   string
	Message   string
	Status    NotificationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
