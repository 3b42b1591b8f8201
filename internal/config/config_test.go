package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "development", cfg.Env)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.Equal(t, "auctions.db", cfg.DB.DSN)
	require.Equal(t, 10, cfg.DB.MaxOpenConns)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.False(t, cfg.Auth.SecureCookie)
	require.NotEmpty(t, cfg.Auth.JWTSecret)
	require.False(t, cfg.Production())
}

func TestLoadWith(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		env         map[string]string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "overrides",
			env: map[string]string{
				"PORT": "9090", "DB_DRIVER": "postgres", "DB_DSN": "postgres://localhost/auctions",
				"TOKEN_TTL": "90m", "SECURE_COOKIE": "true", "JWT_SECRET": "s3cret",
			},
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, "9090", cfg.Port)
				require.Equal(t, "postgres", cfg.DB.Driver)
				require.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
				require.True(t, cfg.Auth.SecureCookie)
				require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
			},
		},
		{
			name:        "production_requires_secret",
			env:         map[string]string{"ENV": "production"},
			expectError: true,
		},
		{
			name: "production_with_secret",
			env:  map[string]string{"ENV": "production", "JWT_SECRET": "x"},
			check: func(t *testing.T, cfg *Config) {
				require.True(t, cfg.Production())
			},
		},
		{
			name:        "unknown_driver",
			env:         map[string]string{"DB_DRIVER": "oracle"},
			expectError: true,
		},
		{
			name:        "bad_duration",
			env:         map[string]string{"TOKEN_TTL": "forever"},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(tc.env))
			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
