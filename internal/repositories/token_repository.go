package repositories

import (
	"context"
	"time"

	"freshcart/internal/models"
)

// TokenRepository stores customer tokens by the SHA-256 of their value.
type TokenRepository interface {
	Create(ctx context.Context, token *models.Token) error
	FindByHash(ctx context.Context, hash string) (*models.Token, error)
	Delete(ctx context.Context, hash string) error

	// Consume deletes and returns the token of type typ with hash. A token
	// can be consumed once; later calls get ErrNotFound.
	Consume(ctx context.Context, hash string, typ models.TokenType) (*models.Token, error)

	// ReplaceRefresh deletes the customer's refresh tokens and stores token.
	ReplaceRefresh(ctx context.Context, token *models.Token) error

	// Rotate overwrites an unexpired refresh token in place. It returns
	// ErrStaleToken when oldHash no longer matches a live row.
	Rotate(ctx context.Context, oldHash, newHash string, expiresAt, now time.Time) error

	// DeleteByCustomer removes the customer's tokens, limited to types when
	// any are given.
	DeleteByCustomer(ctx context.Context, customerID uint, types ...models.TokenType) error
}
