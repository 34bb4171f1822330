// Package billing keeps a payment-provider customer alongside each FreshCart
// customer. Payment methods themselves live with the provider.
package billing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
)

type Provider interface {
	// CreateCustomer returns the provider's customer id.
	CreateCustomer(ctx context.Context, customerID uint, email, name string) (string, error)
	DeleteCustomer(ctx context.Context, providerID string) error
}

// NewProvider returns a Stripe provider, or a no-op one when no key is set.
func NewProvider(secretKey string, logger *zap.Logger) Provider {
	if secretKey == "" {
		logger.Info("stripe key not set, billing customers disabled")
		return NoopProvider{}
	}
	return NewStripeProvider(client.New(secretKey, nil))
}

type stripeProvider struct {
	api *client.API
}

func NewStripeProvider(api *client.API) Provider {
	return &stripeProvider{api: api}
}

func (p *stripeProvider) CreateCustomer(ctx context.Context, customerID uint, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("freshcart_customer_id", strconv.FormatUint(uint64(customerID), 10))

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (p *stripeProvider) DeleteCustomer(ctx context.Context, providerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := p.api.Customers.Del(providerID, params); err != nil {
		return fmt.Errorf("stripe delete customer: %w", err)
	}
	return nil
}

// NoopProvider is used when billing is not configured.
type NoopProvider struct{}

func (NoopProvider) CreateCustomer(context.Context, uint, string, string) (string, error) {
	return "", nil
}

func (NoopProvider) DeleteCustomer(context.Context, string) error { return nil }
