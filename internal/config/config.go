// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Auth
	JWTSecret        string
	JWTRefreshSecret string
	TokenTTLHours    int64 // access token lifetime
	RefreshTTLHours  int64 // refresh token lifetime

	// Monitoring defaults
	DefaultDailyLimitMin int64 // default per-child daily screen time limit
	RiskWindowDays       int64 // trailing window for risk scoring

	// Security
	RateLimitRPM   int
	AllowedOrigins string // comma-separated, "*" for all

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint, tracing disabled if empty
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultTokenTTLHours   = 24 * 7
	DefaultRefreshTTLHours = 24 * 30
	DefaultDailyLimit      = 120
	DefaultRiskWindow      = 7
	DefaultRateLimit       = 60
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		Env:                  getEnv("ENV", DefaultEnv),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:          os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		JWTSecret:            os.Getenv("JWT_SECRET"),   // Required, no default
		JWTRefreshSecret:     os.Getenv("JWT_REFRESH_SECRET"),
		TokenTTLHours:        getEnvInt64("TOKEN_TTL_HOURS", DefaultTokenTTLHours),
		RefreshTTLHours:      getEnvInt64("REFRESH_TTL_HOURS", DefaultRefreshTTLHours),
		DefaultDailyLimitMin: getEnvInt64("DEFAULT_DAILY_LIMIT_MIN", DefaultDailyLimit),
		RiskWindowDays:       getEnvInt64("RISK_WINDOW_DAYS", DefaultRiskWindow),
		RateLimitRPM:         int(getEnvInt64("RATE_LIMIT_RPM", int64(DefaultRateLimit))),
		AllowedOrigins:       getEnv("ALLOWED_ORIGINS", "*"),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	// Refresh secret falls back to a derived default in development only
	if c.JWTRefreshSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_REFRESH_SECRET is required in production")
		}
		c.JWTRefreshSecret = c.JWTSecret + "-refresh"
	}

	if c.RiskWindowDays < 1 {
		return fmt.Errorf("RISK_WINDOW_DAYS must be at least 1")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
