package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:           stripe.String(srv.URL),
		LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeProvider(client.New("sk_test_123", &stripe.Backends{API: backend}))
}

func TestStripeProvider_CreateCustomer(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/customers", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "a@b.com", r.PostForm.Get("email"))
		assert.Equal(t, "7", r.PostForm.Get("metadata[freshcart_customer_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cus_123","object":"customer"}`))
	})

	id, err := p.CreateCustomer(context.Background(), 7, "a@b.com", "Ann Perera")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestStripeProvider_DeleteCustomerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/customers/cus_404", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such customer"}}`))
	})

	err := p.DeleteCustomer(context.Background(), "cus_404")
	assert.Error(t, err)
}

func TestNewProvider_NoKey(t *testing.T) {
	p := NewProvider("", zap.NewNop())
	id, err := p.CreateCustomer(context.Background(), 1, "a@b.com", "")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, p.DeleteCustomer(context.Background(), "cus_1"))
}
