package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/healthpal-ng/healthpal/internal/session"
)

const (
	configDirName  = "healthpal"
	ConfigFileName = "config.yaml"

	// DefaultAPIBaseURL is used when neither the config file nor the environment set one
	DefaultAPIBaseURL = "http://localhost:8080/api/v1"

	EnvAPIBaseURL     = "HEALTHPAL_API_BASE_URL"
	EnvEnableDemoMode = "HEALTHPAL_ENABLE_DEMO_MODE"
)

// SessionConfig holds the inactivity timeout settings
type SessionConfig struct {
	WarningMinutes       int `yaml:"warning_minutes"`
	TimeoutMinutes       int `yaml:"timeout_minutes"`
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`
}

// Config represents the CLI configuration file
type Config struct {
	APIBaseURL     string        `yaml:"api_base_url"`
	EnableDemoMode bool          `yaml:"enable_demo_mode"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	Session        SessionConfig `yaml:"session"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     DefaultAPIBaseURL,
		EnableDemoMode: true,
		LogLevel:       "warn",
		LogFormat:      "console",
		Session: SessionConfig{
			WarningMinutes:       5,
			TimeoutMinutes:       30,
			CheckIntervalSeconds: 60,
		},
	}
}

// GetConfigDir returns ~/.config/healthpal
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load reads the configuration file at path on top of the defaults, then
// applies .env files and environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env files never override variables already set in the environment
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDefault loads the config from the default location
func LoadDefault() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		c.APIBaseURL = v
	}

	if v := os.Getenv(EnvEnableDemoMode); v != "" {
		// Any value other than "false" keeps demo mode available
		c.EnableDemoMode = strings.ToLower(strings.TrimSpace(v)) != "false"
	}

	if v := os.Getenv("HEALTHPAL_SESSION_TIMEOUT_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HEALTHPAL_SESSION_TIMEOUT_MINUTES: %w", err)
		}
		c.Session.TimeoutMinutes = n
	}

	return nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must start with http:// or https://, got %q", c.APIBaseURL)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	return nil
}

// Policy converts the session settings to the tracker policy
func (c *Config) Policy() session.Policy {
	return session.Policy{
		WarningLead:  time.Duration(c.Session.WarningMinutes) * time.Minute,
		HardTimeout:  time.Duration(c.Session.TimeoutMinutes) * time.Minute,
		PollInterval: time.Duration(c.Session.CheckIntervalSeconds) * time.Second,
	}
}

// Host returns the host part of the API base URL, used to namespace stored tokens
func (c *Config) Host() string {
	host := strings.TrimPrefix(strings.TrimPrefix(c.APIBaseURL, "https://"), "http://")
	if i := strings.Index(host, "/"); i >= 0 {
		host = host[:i]
	}
	return host
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
