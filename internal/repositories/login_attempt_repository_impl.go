package repositories

import (
	"context"
	"fmt"

	"freshcart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type loginAttemptRepository struct {
	db *gorm.DB
}

func NewLoginAttemptRepository(db *gorm.DB) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) GetByStoreID(ctx context.Context, storeID string) (*models.LoginAttemptSession, error) {
	var session models.LoginAttemptSession
	if err := r.db.WithContext(ctx).Where("store_id = ?", storeID).First(&session).Error; err != nil {
		return nil, mapError(err)
	}
	return &session, nil
}

func (r *loginAttemptRepository) Mutate(ctx context.Context, storeID string, fn func(*models.LoginAttemptSession) error) (*models.LoginAttemptSession, error) {
	var session models.LoginAttemptSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("store_id = ?", storeID).
			First(&session).Error; err != nil {
			return err
		}
		if err := fn(&session); err != nil {
			return err
		}
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &session, nil
}

func (r *loginAttemptRepository) Upsert(ctx context.Context, session *models.LoginAttemptSession) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_id"}},
		UpdateAll: true,
	}).Create(session).Error
	if err != nil {
		return fmt.Errorf("upsert login attempt session: %w", mapError(err))
	}
	return nil
}
