// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// AI providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env           string `env:"BSR_ENV" envDefault:"development"`
	LogLevel      string `env:"BSR_LOG_LEVEL" envDefault:"info"`
	ServerHost    string `env:"BSR_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"BSR_SERVER_PORT" envDefault:"8080"`
	SessionSecret string `env:"BSR_SESSION_SECRET,required"`

	// MasterAdminEmail is the only address granted the admin role.
	MasterAdminEmail string `env:"BSR_MASTER_ADMIN_EMAIL"`

	// Storage configuration
	StorageType     string `env:"BSR_STORAGE" envDefault:"sqlite"`        // memory, sqlite or redis
	DBPath          string `env:"BSR_DB_PATH" envDefault:"./data/bsr.db"` // SQLite file
	RedisURL        string `env:"BSR_REDIS_URL"`                          // Required for the redis backend
	StoragePrefix   string `env:"BSR_STORAGE_PREFIX" envDefault:"bsr:"`   // Redis key prefix
	StorageQuota    int64  `env:"BSR_STORAGE_QUOTA" envDefault:"5242880"` // Bytes, 0 = unlimited
	StorageFallback bool   `env:"BSR_STORAGE_FALLBACK" envDefault:"true"` // Use memory if the backend is down

	// AI configuration
	AIProvider          string        `env:"BSR_AI_PROVIDER" envDefault:"gemini"`
	AIAPIKey            string        `env:"BSR_AI_API_KEY"`
	AIBaseURL           string        `env:"BSR_AI_BASE_URL"`
	AITextModel         string        `env:"BSR_AI_TEXT_MODEL"`
	AIImageModel        string        `env:"BSR_AI_IMAGE_MODEL"`
	AIChatModel         string        `env:"BSR_AI_CHAT_MODEL"`
	AITimeout           time.Duration `env:"BSR_AI_TIMEOUT" envDefault:"60s"`
	AIMaxRetries        int           `env:"BSR_AI_MAX_RETRIES" envDefault:"2"`
	AIRequestsPerSecond float64       `env:"BSR_AI_RPS" envDefault:"2"`
	AIBurst             int           `env:"BSR_AI_BURST" envDefault:"4"`

	// Chat sessions
	ChatIdleTimeout  time.Duration `env:"BSR_CHAT_IDLE_TIMEOUT" envDefault:"30m"`
	ChatReapSchedule string        `env:"BSR_CHAT_REAP_SCHEDULE" envDefault:"@every 5m"`
	ChatMaxSessions  int           `env:"BSR_CHAT_MAX_SESSIONS" envDefault:"500"`

	// HTTP hardening
	CSRFTrustedOrigins []string      `env:"BSR_CSRF_TRUSTED_ORIGINS" envSeparator:","`
	CSRFSkipPaths      []string      `env:"BSR_CSRF_SKIP_PATHS" envSeparator:","` // Full paths, e.g. /api/contact
	RequestTimeout     time.Duration `env:"BSR_REQUEST_TIMEOUT" envDefault:"30s"`
	RateLimitRPS       float64       `env:"BSR_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst     int           `env:"BSR_RATE_LIMIT_BURST" envDefault:"30"`
	AuthRateLimitRPS   float64       `env:"BSR_AUTH_RATE_LIMIT_RPS" envDefault:"0.5"`
	AuthRateLimitBurst int           `env:"BSR_AUTH_RATE_LIMIT_BURST" envDefault:"5"`

	// Images stored as data URIs
	ImageMaxWidth int `env:"BSR_IMAGE_MAX_WIDTH" envDefault:"1200"`
	ImageQuality  int `env:"BSR_IMAGE_QUALITY" envDefault:"82"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinSessionSecretLength is the minimum required length for the session secret.
// The CSRF middleware also uses it as a 32-byte key.
const MinSessionSecretLength = 32

// providerKeyVars are provider-specific variables consulted when
// BSR_AI_API_KEY is unset.
var providerKeyVars = map[string][]string{
	ProviderGemini: {"GEMINI_API_KEY", "API_KEY"},
	ProviderOpenAI: {"OPENAI_API_KEY"},
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.AIAPIKey == "" {
		for _, name := range providerKeyVars[cfg.AIProvider] {
			if v := os.Getenv(name); v != "" {
				cfg.AIAPIKey = v
				break
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("BSR_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	if cfg.MasterAdminEmail == "" {
		slog.Warn("BSR_MASTER_ADMIN_EMAIL is not set; no account will have admin access")
	}

	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("BSR_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret)))
	}
	if slices.Contains(knownWeakSecrets, c.SessionSecret) {
		errs = append(errs, errors.New("BSR_SESSION_SECRET is a known default value and must not be used; "+
			"generate a secure secret with: openssl rand -base64 32"))
	}

	if c.Env != "development" && c.Env != "production" {
		errs = append(errs, fmt.Errorf("BSR_ENV must be development or production, got %q", c.Env))
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("BSR_SERVER_PORT out of range: %d", c.ServerPort))
	}

	switch c.StorageType {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("BSR_REDIS_URL is required when BSR_STORAGE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("BSR_STORAGE must be memory, sqlite or redis, got %q", c.StorageType))
	}
	if c.StorageQuota < 0 {
		errs = append(errs, errors.New("BSR_STORAGE_QUOTA must not be negative"))
	}

	if c.AIProvider != ProviderGemini && c.AIProvider != ProviderOpenAI {
		errs = append(errs, fmt.Errorf("BSR_AI_PROVIDER must be gemini or openai, got %q", c.AIProvider))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("BSR_AI_TIMEOUT must be positive"))
	}
	if c.AIMaxRetries < 0 {
		errs = append(errs, errors.New("BSR_AI_MAX_RETRIES must not be negative"))
	}
	if c.ChatMaxSessions < 1 {
		errs = append(errs, errors.New("BSR_CHAT_MAX_SESSIONS must be at least 1"))
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		errs = append(errs, fmt.Errorf("BSR_IMAGE_QUALITY must be between 1 and 100, got %d", c.ImageQuality))
	}

	return errors.Join(errs...)
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
