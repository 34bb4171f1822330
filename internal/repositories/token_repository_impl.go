package repositories

import (
	"context"
	"time"

	"freshcart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.Token) error {
	return mapError(r.db.WithContext(ctx).Create(token).Error)
}

func (r *tokenRepository) FindByHash(ctx context.Context, hash string) (*models.Token, error) {
	var token models.Token
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		return nil, mapError(err)
	}
	return &token, nil
}

func (r *tokenRepository) Delete(ctx context.Context, hash string) error {
	return mapError(r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&models.Token{}).Error)
}

func (r *tokenRepository) Consume(ctx context.Context, hash string, typ models.TokenType) (*models.Token, error) {
	var deleted []models.Token
	result := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("token_hash = ? AND type = ?", hash, typ).
		Delete(&deleted)
	if result.Error != nil {
		return nil, mapError(result.Error)
	}
	if len(deleted) == 0 {
		return nil, ErrNotFound
	}
	return &deleted[0], nil
}

func (r *tokenRepository) ReplaceRefresh(ctx context.Context, token *models.Token) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ? AND type = ?", token.CustomerID, models.TokenRefresh).
			Delete(&models.Token{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	return mapError(err)
}

func (r *tokenRepository) Rotate(ctx context.Context, oldHash, newHash string, expiresAt, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Token{}).
		Where("token_hash = ? AND type = ? AND expires_at > ?", oldHash, models.TokenRefresh, now).
		Updates(map[string]interface{}{
			"token_hash": newHash,
			"expires_at": expiresAt,
		})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected != 1 {
		return ErrStaleToken
	}
	return nil
}

func (r *tokenRepository) DeleteByCustomer(ctx context.Context, customerID uint, types ...models.TokenType) error {
	q := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	return mapError(q.Delete(&models.Token{}).Error)
}
