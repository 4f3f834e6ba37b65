// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the site configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains example secrets that must never reach a deployment.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"APP_DB_PATH" envDefault:"./data/automatepro.db"`
	SessionSecret string `env:"APP_SESSION_SECRET,required"`
	ServerHost    string `env:"APP_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"APP_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"APP_ENV" envDefault:"development"`
	LogLevel      string `env:"APP_LOG_LEVEL" envDefault:"info"`
	SiteURL       string `env:"APP_SITE_URL" envDefault:"http://localhost:8080"`
	SiteName      string `env:"APP_SITE_NAME" envDefault:"AutomatePro"`

	// Cache configuration
	RedisURL     string `env:"APP_REDIS_URL"`                              // Optional Redis URL for shared caching
	CachePrefix  string `env:"APP_CACHE_PREFIX" envDefault:"automatepro:"` // Redis key prefix
	CacheTTL     int    `env:"APP_CACHE_TTL" envDefault:"300"`             // Default cache TTL in seconds
	CacheMaxSize int    `env:"APP_CACHE_MAX_SIZE" envDefault:"1000"`       // Max memory cache entries

	// Auth backend
	AccessTokenTTL     time.Duration `env:"APP_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL    time.Duration `env:"APP_REFRESH_TOKEN_TTL" envDefault:"720h"`
	RefreshReuseWindow time.Duration `env:"APP_REFRESH_TOKEN_REUSE_WINDOW" envDefault:"10s"`
	ConfirmationTTL    time.Duration `env:"APP_CONFIRMATION_TTL" envDefault:"48h"`
	RoleCheckRetries   int           `env:"APP_ROLE_CHECK_RETRIES" envDefault:"2"`
	RoleCheckBackoff   time.Duration `env:"APP_ROLE_CHECK_BACKOFF" envDefault:"100ms"`
	RequireEmailCheck  bool          `env:"APP_REQUIRE_EMAIL_CONFIRMATION" envDefault:"true"`

	// Mail
	ResendAPIKey string `env:"APP_RESEND_API_KEY"`
	MailFrom     string `env:"APP_MAIL_FROM" envDefault:"AutomatePro <no-reply@automatepro.local>"`
	AdminEmail   string `env:"APP_ADMIN_NOTIFY_EMAIL"` // receives new contact messages

	// GeoLite2-Country database for audit events (optional)
	GeoIPDBPath string `env:"APP_GEOIP_DB_PATH"`

	// Seeding configuration
	DoSeed        bool   `env:"APP_DO_SEED" envDefault:"false"`
	AdminLogin    string `env:"APP_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"APP_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// MailEnabled returns true if outgoing mail goes through Resend.
func (c Config) MailEnabled() bool {
	return c.ResendAPIKey != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("APP_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("APP_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return fmt.Errorf("APP_SESSION_SECRET is a known default value and must not be used")
		}
	}

	switch c.Env {
	case "development", "production":
	default:
		return fmt.Errorf("APP_ENV must be development or production, got %q", c.Env)
	}

	if c.RoleCheckRetries < 0 {
		return fmt.Errorf("APP_ROLE_CHECK_RETRIES must not be negative")
	}

	if c.AdminEmail != "" {
		if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
			return fmt.Errorf("APP_ADMIN_NOTIFY_EMAIL: %w", err)
		}
	}

	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes.
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
