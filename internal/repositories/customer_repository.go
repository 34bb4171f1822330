package repositories

import (
	"context"

	"freshcart/internal/models"
)

// CustomerRepository stores customer accounts.
type CustomerRepository interface {
	// Create returns ErrDuplicate when the email or phone is taken.
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id uint) (*models.Customer, error)
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error

	// Mutate locks the customer row and saves what fn leaves in it.
	Mutate(ctx context.Context, id uint, fn func(*models.Customer) error) (*models.Customer, error)

	SetStripeCustomerID(ctx context.Context, id uint, stripeID string) error

	// DeleteAccount removes the customer's tokens, anonymizes their orders,
	// scrubs contact fields and soft-deletes the row in one transaction.
	DeleteAccount(ctx context.Context, id uint) error
}
