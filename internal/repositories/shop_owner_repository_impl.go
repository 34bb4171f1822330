package repositories

import (
	"context"
	"fmt"
	"strings"

	"freshcart/internal/models"

	"gorm.io/gorm"
)

type shopOwnerRepository struct {
	db *gorm.DB
}

// NewShopOwnerRepository creates a new instance of ShopOwnerRepository
func NewShopOwnerRepository(db *gorm.DB) ShopOwnerRepository {
	return &shopOwnerRepository{db: db}
}

func (r *shopOwnerRepository) Create(ctx context.Context, owner *models.ShopOwner) error {
	owner.Email = strings.ToLower(strings.TrimSpace(owner.Email))
	return mapError(r.db.WithContext(ctx).Create(owner).Error)
}

func (r *shopOwnerRepository) GetByID(ctx context.Context, id uint) (*models.ShopOwner, error) {
	var owner models.ShopOwner
	if err := r.db.WithContext(ctx).First(&owner, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &owner, nil
}

func (r *shopOwnerRepository) GetByStoreID(ctx context.Context, storeID string) (*models.ShopOwner, error) {
	var owner models.ShopOwner
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).First(&owner).Error; err != nil {
		return nil, mapError(err)
	}
	return &owner, nil
}

func (r *shopOwnerRepository) GetByEmail(ctx context.Context, email string) (*models.ShopOwner, error) {
	var owner models.ShopOwner
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&owner).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &owner, nil
}

func (r *shopOwnerRepository) MarkEmailVerified(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.ShopOwner{}).
		Where("id = ?", id).
		Update("email_verified", true)
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *shopOwnerRepository) AddRefreshToken(ctx context.Context, token *models.ShopOwnerRefreshToken) error {
	return mapError(r.db.WithContext(ctx).Create(token).Error)
}

func (r *shopOwnerRepository) FindRefreshToken(ctx context.Context, tokenID string) (*models.ShopOwnerRefreshToken, error) {
	var token models.ShopOwnerRefreshToken
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&token).Error; err != nil {
		return nil, mapError(err)
	}
	return &token, nil
}

func (r *shopOwnerRepository) RotateRefreshToken(ctx context.Context, oldTokenID, oldHash string, next *models.ShopOwnerRefreshToken) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("token_id = ? AND token_hash = ?", oldTokenID, oldHash).
			Delete(&models.ShopOwnerRefreshToken{})
		if result.Error != nil {
			return result.Error
		}
		// Someone else rotated or revoked it first.
		if result.RowsAffected != 1 {
			return ErrStaleToken
		}
		return tx.Create(next).Error
	})
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", mapError(err))
	}
	return nil
}

func (r *shopOwnerRepository) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).Delete(&models.ShopOwnerRefreshToken{}).Error
	return mapError(err)
}

func (r *shopOwnerRepository) DeleteRefreshTokens(ctx context.Context, ownerID uint) error {
	err := r.db.WithContext(ctx).Where("shop_owner_id = ?", ownerID).Delete(&models.ShopOwnerRefreshToken{}).Error
	return mapError(err)
}
