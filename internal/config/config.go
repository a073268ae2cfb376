// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the service configuration from FOLIO_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDialect     string `env:"FOLIO_DB_DIALECT" envDefault:"sqlite"`
	DBDSN         string `env:"FOLIO_DB_DSN" envDefault:"./data/folio.db"`
	SessionSecret string `env:"FOLIO_SESSION_SECRET,required"`
	ServerHost    string `env:"FOLIO_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"FOLIO_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"FOLIO_ENV" envDefault:"development"`
	LogLevel      string `env:"FOLIO_LOG_LEVEL" envDefault:"info"`

	// Object storage
	StorageDir     string `env:"FOLIO_STORAGE_DIR" envDefault:"./data/storage"`
	StorageBaseURL string `env:"FOLIO_STORAGE_BASE_URL" envDefault:"/storage"`

	// Cache configuration
	RedisURL     string        `env:"FOLIO_REDIS_URL"`                          // Optional Redis URL for distributed caching
	CachePrefix  string        `env:"FOLIO_CACHE_PREFIX" envDefault:"folio:"`   // Redis key prefix
	CacheTTL     time.Duration `env:"FOLIO_CACHE_TTL" envDefault:"10m"`         // Public content TTL
	CacheMaxSize int           `env:"FOLIO_CACHE_MAX_SIZE" envDefault:"1000"`   // Max memory cache entries

	// Admin account created on first start
	AdminEmail    string `env:"FOLIO_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"FOLIO_ADMIN_PASSWORD"`

	// Seeding configuration
	SeedDemo bool `env:"FOLIO_SEED_DEMO" envDefault:"false"` // Fill empty collections with demo content

	// Maintenance
	WorkspaceIdleTimeout time.Duration `env:"FOLIO_WORKSPACE_IDLE_TIMEOUT" envDefault:"2h"`
	EventRetention       time.Duration `env:"FOLIO_EVENT_RETENTION" envDefault:"720h"`
	OrphanMinAge         time.Duration `env:"FOLIO_ORPHAN_MIN_AGE" envDefault:"24h"`

	// Change notifications, e.g. a static site rebuild hook
	WebhookURL          string `env:"FOLIO_WEBHOOK_URL"`
	WebhookSecret       string `env:"FOLIO_WEBHOOK_SECRET"`
	WebhookAllowPrivate bool   `env:"FOLIO_WEBHOOK_ALLOW_PRIVATE" envDefault:"false"`

	// TrustedOrigins are extra origins accepted by CSRF protection, e.g.
	// "admin.example.com" behind a proxy.
	TrustedOrigins []string `env:"FOLIO_TRUSTED_ORIGINS" envSeparator:","`
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

// UseWebhook returns true if change notifications are configured.
func (c Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
// The CSRF key is derived from its first 32 bytes.
const MinSessionSecretLength = 32

// MinAdminPasswordLength applies to FOLIO_ADMIN_PASSWORD.
const MinAdminPasswordLength = 12

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("FOLIO_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("FOLIO_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return fmt.Errorf("FOLIO_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	switch c.DBDialect {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("FOLIO_DB_DIALECT must be sqlite or postgres, got %q", c.DBDialect)
	}

	c.AdminEmail = strings.ToLower(strings.TrimSpace(c.AdminEmail))
	if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
		return fmt.Errorf("FOLIO_ADMIN_EMAIL is not a valid address: %w", err)
	}
	if c.AdminPassword != "" && len(c.AdminPassword) < MinAdminPasswordLength {
		return fmt.Errorf("FOLIO_ADMIN_PASSWORD must be at least %d characters", MinAdminPasswordLength)
	}

	if !strings.HasPrefix(c.StorageBaseURL, "/") && !strings.HasPrefix(c.StorageBaseURL, "http") {
		return fmt.Errorf("FOLIO_STORAGE_BASE_URL must be a path or an absolute URL, got %q", c.StorageBaseURL)
	}
	c.StorageBaseURL = strings.TrimSuffix(c.StorageBaseURL, "/")

	if c.WebhookURL != "" && !strings.HasPrefix(c.WebhookURL, "http://") && !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("FOLIO_WEBHOOK_URL must be an http or https URL, got %q", c.WebhookURL)
	}

	if c.WorkspaceIdleTimeout <= 0 {
		return fmt.Errorf("FOLIO_WORKSPACE_IDLE_TIMEOUT must be positive")
	}
	return nil
}

// StoragePath returns the URL path under which objects are served, or ""
// when StorageBaseURL points at another host.
func (c Config) StoragePath() string {
	if strings.HasPrefix(c.StorageBaseURL, "/") {
		return c.StorageBaseURL
	}
	return ""
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
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
