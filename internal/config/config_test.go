package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.Security.DeviceMaxFailures)
	assert.Equal(t, 30*time.Minute, cfg.Security.DeviceLockDuration)
	assert.Equal(t, 2, cfg.Security.DeviceMaxLocks)
	assert.Equal(t, 5, cfg.Security.CustomerMaxFailures)
	assert.Equal(t, 5*time.Minute, cfg.Security.OTPTTL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 10*time.Minute, cfg.JWT.BlockTTL)
	assert.False(t, cfg.Security.AllowPrivateIPs)
	assert.NotEqual(t, cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("JWT_BLOCK_SECRET", "c")
	t.Setenv("JWT_VERIFY_SECRET", "d")
	t.Setenv("OTP_TTL", "2m")
	t.Setenv("LOCATION_TOLERANCE_METERS", "250.5")
	t.Setenv("PUBLIC_URL", "https://api.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Security.AllowPrivateIPs)
	assert.Equal(t, 2*time.Minute, cfg.Security.OTPTTL)
	assert.Equal(t, 250.5, cfg.Security.LocationToleranceMeters)
	assert.Equal(t, "https://api.example.com", cfg.App.PublicURL)
}

func TestLoad_PrivateIPsAreOptIn(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("ALLOW_PRIVATE_IPS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Security.AllowPrivateIPs)
}
