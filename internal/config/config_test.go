package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.ExtractorTimeout)
	assert.Equal(t, 72*time.Hour, cfg.ScanTTL)
	assert.Equal(t, "@every 1h", cfg.ScanSweepSchedule)
	assert.Equal(t, 20, cfg.ScanRateLimit)
	assert.True(t, cfg.DBAutoMigrate)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("SCAN_TTL", "24h")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALERT_EMAIL_TO", "barn@example.com,vet@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 24*time.Hour, cfg.ScanTTL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "barn@example.com,vet@example.com", cfg.AlertEmailTo)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	ok := Config{DatabaseURL: "postgres://x", StoreTimeout: time.Second}
	assert.NoError(t, ok.Validate())

	noDB := ok
	noDB.DatabaseURL = ""
	assert.Error(t, noDB.Validate())

	noTimeout := ok
	noTimeout.StoreTimeout = 0
	assert.Error(t, noTimeout.Validate())
}
