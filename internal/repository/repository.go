package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-reviews/internal/store"
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Media         *MediaRepository
	Reviews       *ReviewsRepository
	Notifications *NotificationsRepository
	// Tx runs the atomic review and reaction units.
	Tx *TxStore
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Media:         &MediaRepository{pool: pool},
		Reviews:       &ReviewsRepository{pool: pool},
		Notifications: &NotificationsRepository{pool: pool},
		Tx:            &TxStore{pool: pool},
	}
}
