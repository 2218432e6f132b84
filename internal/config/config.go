// Package config loads server settings from the environment.
package config

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port         string `env:"PORT, default=8080"`
	DatabasePath string `env:"DATABASE_PATH, default=tempo.db"`
	JWTSecret    string `env:"JWT_SECRET, required"`
	// Secure cookies are the default; disable only for local development.
	CookieSecure bool   `env:"COOKIE_SECURE, default=true"`
	BcryptCost   int    `env:"BCRYPT_COST, default=12"`
	BaseURL      string `env:"BASE_URL, default=http://localhost:8080"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	MailFrom     string `env:"MAIL_FROM, default=noreply@tempo.local"`

	// CSRFKey defaults to a key derived from JWTSecret.
	CSRFKey       string        `env:"CSRF_KEY"`
	AutosaveDelay time.Duration `env:"AUTOSAVE_DELAY, default=1s"`

	LogLevel string `env:"LOG_LEVEL, default=info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads settings from l and validates them.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost))
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		errs = append(errs, errors.New("CSRF_KEY must be exactly 32 bytes"))
	}
	if c.AutosaveDelay <= 0 {
		errs = append(errs, errors.New("AUTOSAVE_DELAY must be positive"))
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, errors.New("BASE_URL must start with http:// or https://"))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level, info if it does not parse.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// CSRFAuthKey returns the 32-byte key for CSRF tokens.
func (c *Config) CSRFAuthKey() []byte {
	if c.CSRFKey != "" {
		return []byte(c.CSRFKey)
	}
	sum := sha256.Sum256([]byte("csrf:" + c.JWTSecret))
	return sum[:]
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
