package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "JWT_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "LOGIN_RATE_PER_MINUTE", "SEED_DEMO_USER", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGIN", "TOKEN_PRUNE_SCHEDULE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.LoginRatePerMinute)
	assert.Equal(t, "healthpal-demo.sqlite", cfg.Database.URL)
	assert.Len(t, cfg.Auth.JWTSecret, 64)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.True(t, cfg.Auth.SeedDemoUser)
	assert.Equal(t, "*/15 * * * *", cfg.Auth.PruneSchedule)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "fixed")
	t.Setenv("ACCESS_TOKEN_TTL", "2m")
	t.Setenv("SEED_DEMO_USER", "false")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "fixed", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.False(t, cfg.Auth.SeedDemoUser)
	assert.Equal(t, 3, cfg.Server.LoginRatePerMinute)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "0")
	_, err = Load()
	assert.Error(t, err)
}
