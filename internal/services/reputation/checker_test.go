package reputation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"freshcart/internal/config"
	"freshcart/internal/repositories/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCache(t *testing.T) *cache.CacheService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewCacheService(client)
}

func TestIsSafe_LocalRules(t *testing.T) {
	c := NewChecker(config.SecurityConfig{AllowPrivateIPs: false}, newCache(t), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		ip   string
		safe bool
	}{
		{"8.8.8.8", true},
		{"10.0.0.5", false},
		{"127.0.0.1", false},
		{"100.64.1.1", false},
		{"203.0.113.9", false},
		{"0.0.0.0", false},
		{"::ffff:192.0.2.4", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			safe, err := c.IsSafe(ctx, tt.ip)
			require.NoError(t, err)
			assert.Equal(t, tt.safe, safe)
		})
	}
}

func TestIsSafe_PrivateAllowedOutsideProduction(t *testing.T) {
	c := NewChecker(config.SecurityConfig{AllowPrivateIPs: true}, newCache(t), zap.NewNop())
	safe, err := c.IsSafe(context.Background(), "192.168.1.10")
	require.NoError(t, err)
	assert.True(t, safe)
}

func TestIsSafe_InvalidAddress(t *testing.T) {
	c := NewChecker(config.SecurityConfig{}, newCache(t), zap.NewNop())
	safe, err := c.IsSafe(context.Background(), "not-an-ip")
	assert.Error(t, err)
	assert.False(t, safe)
}

func TestIsSafe_LookupAndCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("ip") == "1.1.1.1" {
			_, _ = w.Write([]byte(`{"bogon":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"bogon":false}`))
	}))
	defer srv.Close()

	c := NewChecker(config.SecurityConfig{
		IPCheckURL:     srv.URL,
		IPCheckToken:   "secret",
		IPCheckTimeout: time.Second,
		IPVerdictTTL:   time.Minute,
	}, newCache(t), zap.NewNop())
	ctx := context.Background()

	safe, err := c.IsSafe(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.True(t, safe)

	safe, err = c.IsSafe(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.True(t, safe)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	safe, err = c.IsSafe(ctx, "1.1.1.1")
	require.NoError(t, err)
	assert.False(t, safe)
}

func TestIsSafe_FailsClosed(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"bogon":false}`))
	}))
	defer slow.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	for name, url := range map[string]string{"timeout": slow.URL, "status": broken.URL} {
		t.Run(name, func(t *testing.T) {
			c := NewChecker(config.SecurityConfig{
				IPCheckURL:     url,
				IPCheckTimeout: 50 * time.Millisecond,
				IPVerdictTTL:   time.Minute,
			}, newCache(t), zap.NewNop())

			safe, err := c.IsSafe(context.Background(), "8.8.4.4")
			assert.Error(t, err)
			assert.False(t, safe)
		})
	}
}
