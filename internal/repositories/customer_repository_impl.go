package repositories

import (
	"context"
	"fmt"
	"strings"

	"freshcart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	customer.Email = normalizeEmail(customer.Email)
	return mapError(r.db.WithContext(ctx).Create(customer).Error)
}

func (r *customerRepository) GetByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&customer).Error; err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&customer).Error; err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

func (r *customerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return mapError(r.db.WithContext(ctx).Save(customer).Error)
}

func (r *customerRepository) Mutate(ctx context.Context, id uint, fn func(*models.Customer) error) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&customer, id).Error; err != nil {
			return err
		}
		if err := fn(&customer); err != nil {
			return err
		}
		return tx.Save(&customer).Error
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &customer, nil
}

func (r *customerRepository) SetStripeCustomerID(ctx context.Context, id uint, stripeID string) error {
	err := r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Update("stripe_customer_id", stripeID).Error
	return mapError(err)
}

func (r *customerRepository) DeleteAccount(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("customer_id = ?", id).Updates(map[string]interface{}{
			"customer_id":   nil,
			"customer_name": "Deleted customer",
			"contact_phone": "",
		}).Error; err != nil {
			return err
		}
		// Free the unique email and phone for a future sign-up.
		result := tx.Model(&models.Customer{}).Where("id = ?", id).Updates(map[string]interface{}{
			"email":          fmt.Sprintf("deleted-%d@deleted.invalid", id),
			"phone":          nil,
			"first_name":     "",
			"last_name":      "",
			"password_hash":  "",
			"google_subject": "",
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Delete(&models.Customer{}, id).Error
	})
	return mapError(err)
}
