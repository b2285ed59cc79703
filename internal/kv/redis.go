package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// RedisStorage is a Redis-based storage implementation.
// Entries never expire; the server's maxmemory setting acts as the quota.
type RedisStorage struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

// RedisOptions configures the Redis storage.
type RedisOptions struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Prefix is prepended to all keys (e.g., "bsr:")
	Prefix string

	// PoolSize is the maximum number of connections (0 = use default)
	PoolSize int

	// ConnectTimeout is the timeout for establishing a connection
	ConnectTimeout time.Duration

	// ReadTimeout is the timeout for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for write operations
	WriteTimeout time.Duration
}

// DefaultRedisOptions returns sensible defaults.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:         "bsr:",
		PoolSize:       10,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
	}
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(opts RedisOptions) (*RedisStorage, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	if opts.PoolSize > 0 {
		redisOpts.PoolSize = opts.PoolSize
	}
	if opts.ConnectTimeout > 0 {
		redisOpts.DialTimeout = opts.ConnectTimeout
	}
	if opts.ReadTimeout > 0 {
		redisOpts.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		redisOpts.WriteTimeout = opts.WriteTimeout
	}

	client := redis.NewClient(redisOpts)

	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStorage{
		client: client,
		prefix: opts.Prefix,
	}, nil
}

// NewRedisStorageFromURL creates a Redis storage from a URL with default options.
func NewRedisStorageFromURL(url, prefix string) (*RedisStorage, error) {
	opts := DefaultRedisOptions()
	opts.URL = url
	if prefix != "" {
		opts.Prefix = prefix
	}
	return NewRedisStorage(opts)
}

// Client exposes the Redis client so the session store can share it.
func (s *RedisStorage) Client() *redis.Client {
	return s.client
}

// Prefix returns the key prefix of this storage.
func (s *RedisStorage) Prefix() string {
	return s.prefix
}

// prefixKey adds the storage prefix to a key.
func (s *RedisStorage) prefixKey(key string) string {
	return s.prefix + key
}

// Get retrieves a value.
func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	val, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores a value without expiration.
func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return mapRedisError(s.client.Set(ctx, s.prefixKey(key), value, 0).Err())
}

// Delete removes a key.
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.client.Del(ctx, s.prefixKey(key)).Err()
}

// Modify applies fn under WATCH and commits with MULTI/EXEC. When another
// client changes the key in between, the transaction is retried with the
// fresh value after a jittered backoff.
func (s *RedisStorage) Modify(ctx context.Context, key string, fn ModifyFunc) error {
	if s.closed.Load() {
		return ErrClosed
	}

	fullKey := s.prefixKey(key)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, fullKey).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			found = false
		} else if err != nil {
			return err
		}

		next, err := fn(current, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, fullKey)
			} else {
				pipe.Set(ctx, fullKey, next, 0)
			}
			return nil
		})
		return err
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Millisecond
	retry.MaxInterval = 50 * time.Millisecond

	err := backoff.Retry(func() error {
		err := s.client.Watch(ctx, txf, fullKey)
		switch {
		case err == nil, errors.Is(err, ErrNoChange):
			return nil
		case errors.Is(err, redis.TxFailedErr):
			return err
		default:
			return backoff.Permanent(mapRedisError(err))
		}
	}, backoff.WithContext(backoff.WithMaxRetries(retry, maxModifyAttempts), ctx))
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("modifying %s: %w", key, ErrConflict)
	}
	return err
}

// Clear removes all keys with the storage prefix.
// Uses SCAN + DEL which is safer than KEYS for production use.
func (s *RedisStorage) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	var cursor uint64
	pattern := s.prefix + "*"

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Ping checks if the Redis connection is healthy.
func (s *RedisStorage) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStorage) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		return s.client.Close()
	}
	return nil
}

// mapRedisError turns OOM replies into ErrQuotaExceeded.
func mapRedisError(err error) error {
	if err != nil && strings.HasPrefix(err.Error(), "OOM") {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

// Ensure RedisStorage implements Storage and Pinger.
var (
	_ Storage = (*RedisStorage)(nil)
	_ Pinger  = (*RedisStorage)(nil)
)
