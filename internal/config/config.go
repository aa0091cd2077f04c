package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/healthpal-ng/healthpal/internal/auth"
)

// Config holds all configuration for the demo backend
type Config struct {
	// Server Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Auth Configuration
	Auth AuthConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Port         string
	AllowOrigins []string
	// LoginRatePerMinute bounds login attempts per client IP
	LoginRatePerMinute int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token issuance configuration
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// SeedDemoUser creates the shared demo account on startup
	SeedDemoUser bool
	// PruneSchedule is the cron expression of the refresh token cleanup
	PruneSchedule string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	accessTTL, err := durationEnv("ACCESS_TOKEN_TTL", auth.DefaultAccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := durationEnv("REFRESH_TOKEN_TTL", auth.DefaultRefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	loginRate := 10
	if v := os.Getenv("LOGIN_RATE_PER_MINUTE"); v != "" {
		if loginRate, err = strconv.Atoi(v); err != nil || loginRate <= 0 {
			return nil, fmt.Errorf("invalid LOGIN_RATE_PER_MINUTE %q", v)
		}
	}

	// A random secret invalidates issued tokens on restart, which is fine for a demo
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if secret, err = randomSecret(); err != nil {
			return nil, err
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:               envOr("PORT", "8080"),
			AllowOrigins:       []string{envOr("CORS_ORIGIN", "http://localhost:3000")},
			LoginRatePerMinute: loginRate,
		},
		Database: DatabaseConfig{
			URL: envOr("DATABASE_URL", "healthpal-demo.sqlite"),
		},
		Auth: AuthConfig{
			JWTSecret:       secret,
			AccessTokenTTL:  accessTTL,
			RefreshTokenTTL: refreshTTL,
			SeedDemoUser:    os.Getenv("SEED_DEMO_USER") != "false",
			PruneSchedule:   envOr("TOKEN_PRUNE_SCHEDULE", "*/15 * * * *"),
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
