package kv

import (
	"fmt"
	"log/slog"
	"strings"
)

// Backend types.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds configuration for storage creation.
type Config struct {
	// Type is the backend type: "memory", "sqlite" or "redis"
	Type string

	// Path is the SQLite database file (only for sqlite type)
	Path string

	// RedisURL is the Redis connection URL (only for redis type)
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix for Redis (only for redis type)
	Prefix string

	// Quota is the maximum stored bytes for memory and sqlite (0 = unlimited)
	Quota int64

	// FallbackToMemory opens a memory storage when the configured backend fails
	FallbackToMemory bool
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() Config {
	return Config{
		Type:  BackendMemory,
		Quota: DefaultMemoryQuota,
	}
}

// OpenResult describes the storage that was actually opened.
type OpenResult struct {
	Storage    Storage
	Backend    string
	IsFallback bool
}

// Open creates a storage backend from cfg.
// When the configured backend cannot be opened and FallbackToMemory is set,
// a memory storage is returned instead and a warning is logged.
func Open(cfg Config, logger *slog.Logger) (OpenResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		storage Storage
		err     error
	)

	switch cfg.Type {
	case "", BackendMemory:
		return OpenResult{
			Storage: NewMemoryStorage(MemoryOptions{Quota: cfg.Quota}),
			Backend: BackendMemory,
		}, nil
	case BackendSQLite:
		storage, err = NewSQLiteStorage(SQLiteOptions{Path: cfg.Path, Quota: cfg.Quota})
	case BackendRedis:
		storage, err = NewRedisStorageFromURL(cfg.RedisURL, cfg.Prefix)
	default:
		return OpenResult{}, fmt.Errorf("unknown storage type %q", cfg.Type)
	}

	if err == nil {
		logger.Info("storage opened", "backend", cfg.Type, "target", describeTarget(cfg))
		return OpenResult{Storage: storage, Backend: cfg.Type}, nil
	}

	if !cfg.FallbackToMemory {
		return OpenResult{}, fmt.Errorf("opening %s storage: %w", cfg.Type, err)
	}

	logger.Warn("storage backend unavailable, falling back to memory",
		"backend", cfg.Type, "target", describeTarget(cfg), "error", err)

	return OpenResult{
		Storage:    NewMemoryStorage(MemoryOptions{Quota: cfg.Quota}),
		Backend:    BackendMemory,
		IsFallback: true,
	}, nil
}

func describeTarget(cfg Config) string {
	if cfg.Type == BackendRedis {
		return MaskRedisURL(cfg.RedisURL)
	}
	return cfg.Path
}

// MaskRedisURL hides the credentials in a Redis URL for logging.
func MaskRedisURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return raw
	}
	return scheme + "://***@" + rest[at+1:]
}
