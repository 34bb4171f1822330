package repositories

import (
	"context"
	"fmt"

	"freshcart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deviceFailureRepository struct {
	db *gorm.DB
}

func NewDeviceFailureRepository(db *gorm.DB) DeviceFailureRepository {
	return &deviceFailureRepository{db: db}
}

func (r *deviceFailureRepository) Get(ctx context.Context, key models.DeviceKey) (*models.DeviceFailureRecord, error) {
	var rec models.DeviceFailureRecord
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND browser_token = ?", key.DeviceID, key.BrowserToken).
		First(&rec).Error
	if err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

func (r *deviceFailureRepository) Mutate(ctx context.Context, key models.DeviceKey, fn func(*models.DeviceFailureRecord) error) (*models.DeviceFailureRecord, error) {
	var rec models.DeviceFailureRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Concurrent first failures converge on one row.
		seed := models.DeviceFailureRecord{DeviceID: key.DeviceID, BrowserToken: key.BrowserToken}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("device_id = ? AND browser_token = ?", key.DeviceID, key.BrowserToken).
			First(&rec).Error; err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, fmt.Errorf("device failure update: %w", mapError(err))
	}
	return &rec, nil
}

func (r *deviceFailureRepository) Delete(ctx context.Context, key models.DeviceKey) error {
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND browser_token = ?", key.DeviceID, key.BrowserToken).
		Delete(&models.DeviceFailureRecord{}).Error
	return mapError(err)
}
