package repositories

import (
	"context"

	"freshcart/internal/models"
)

// ShopOwnerRepository stores shop-owner accounts and their refresh tokens.
type ShopOwnerRepository interface {
	// Create returns ErrDuplicate when the store id or email is taken.
	Create(ctx context.Context, owner *models.ShopOwner) error
	GetByID(ctx context.Context, id uint) (*models.ShopOwner, error)
	GetByStoreID(ctx context.Context, storeID string) (*models.ShopOwner, error)
	GetByEmail(ctx context.Context, email string) (*models.ShopOwner, error)
	MarkEmailVerified(ctx context.Context, id uint) error

	AddRefreshToken(ctx context.Context, token *models.ShopOwnerRefreshToken) error
	// FindRefreshToken looks a token up by its public id (the JWT jti).
	FindRefreshToken(ctx context.Context, tokenID string) (*models.ShopOwnerRefreshToken, error)
	// RotateRefreshToken replaces the row matching oldTokenID and oldHash
	// with next. It returns ErrStaleToken if that row is already gone.
	RotateRefreshToken(ctx context.Context, oldTokenID, oldHash string, next *models.ShopOwnerRefreshToken) error
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	DeleteRefreshTokens(ctx context.Context, ownerID uint) error
}
