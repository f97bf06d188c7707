package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setEnv(t, "JWT_SECRET", "0123456789abcdef0123456789abcdef")
	setEnv(t, "PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, int64(DefaultDailyLimit), cfg.DefaultDailyLimitMin)
	assert.Equal(t, int64(DefaultRiskWindow), cfg.RiskWindowDays)
	assert.Equal(t, int64(DefaultTokenTTLHours), cfg.TokenTTLHours)
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	setEnv(t, "JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid config",
			config: Config{
				JWTSecret:      "0123456789abcdef0123456789abcdef",
				RiskWindowDays: 7,
			},
			wantErr: "",
		},
		{
			name:    "missing secret",
			config:  Config{RiskWindowDays: 7},
			wantErr: "JWT_SECRET is required",
		},
		{
			name: "secret too short",
			config: Config{
				JWTSecret:      "short",
				RiskWindowDays: 7,
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "refresh secret required in production",
			config: Config{
				JWTSecret:      "0123456789abcdef0123456789abcdef",
				Env:            "production",
				RiskWindowDays: 7,
			},
			wantErr: "JWT_REFRESH_SECRET is required",
		},
		{
			name: "zero risk window",
			config: Config{
				JWTSecret: "0123456789abcdef0123456789abcdef",
			},
			wantErr: "RISK_WINDOW_DAYS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_RefreshSecretFallback(t *testing.T) {
	cfg := Config{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		Env:            "development",
		RiskWindowDays: 7,
	}
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.JWTRefreshSecret)
	assert.NotEqual(t, cfg.JWTSecret, cfg.JWTRefreshSecret)
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}
