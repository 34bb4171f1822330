package repositories

import (
	"context"

	"freshcart/internal/models"
)

// DeviceFailureRepository stores per-device primary-login failures.
type DeviceFailureRepository interface {
	// Get returns ErrNotFound when the device has no record.
	Get(ctx context.Context, key models.DeviceKey) (*models.DeviceFailureRecord, error)

	// Mutate locks the record for key, creating it first when missing, and
	// saves whatever fn leaves in it. If fn returns an error nothing is saved.
	Mutate(ctx context.Context, key models.DeviceKey, fn func(*models.DeviceFailureRecord) error) (*models.DeviceFailureRecord, error)

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, key models.DeviceKey) error
}
