package repositories

import (
	"context"

	"freshcart/internal/models"
)

// LoginAttemptRepository stores the single OTP/secondary session per store.
type LoginAttemptRepository interface {
	GetByStoreID(ctx context.Context, storeID string) (*models.LoginAttemptSession, error)

	// Mutate locks the session row and saves what fn leaves in it. It
	// returns ErrNotFound when the store has no session; it never creates one.
	Mutate(ctx context.Context, storeID string, fn func(*models.LoginAttemptSession) error) (*models.LoginAttemptSession, error)

	// Upsert creates the session or replaces every field of the existing one.
	Upsert(ctx context.Context, session *models.LoginAttemptSession) error
}
