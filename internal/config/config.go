package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"auctions/internal/repository"
	"auctions/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const envProduction = "production"

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	DB   DBConfig
	Auth AuthConfig
}

type DBConfig struct {
	Driver       string `env:"DB_DRIVER,         default=sqlite"`
	DSN          string `env:"DB_DSN,            default=auctions.db"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS, default=10"`
}

type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,     default=24h"`
	SecureCookie bool          `env:"SECURE_COOKIE, default=false"`
}

// Production reports whether the service runs with production settings
func (c *Config) Production() bool {
	return c.Env == envProduction
}

// Load reads a .env file when present, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env: %w", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given lookuper and validates it
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}

	switch cfg.DB.Driver {
	case repository.DriverSQLite, repository.DriverPostgres, repository.DriverMySQL, repository.DriverMemory:
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.Production() {
			return nil, errors.New("config: JWT_SECRET is required in production")
		}
		cfg.Auth.JWTSecret = uuid.NewString() + uuid.NewString()
		utils.Warn("JWT_SECRET not set; using a random per-process secret", map[string]any{"env": cfg.Env})
	}
	return &cfg, nil
}
