package kv

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultMemoryQuota mirrors the per-origin quota browsers apply to local storage.
const DefaultMemoryQuota = 5 << 20

// MemoryStorage is a thread-safe in-memory storage implementation.
type MemoryStorage struct {
	mu     sync.RWMutex
	data   map[string][]byte
	used   int64
	quota  int64 // Maximum total bytes across keys and values (0 = unlimited)
	closed atomic.Bool
}

// MemoryOptions configures the memory storage.
type MemoryOptions struct {
	Quota int64 // Maximum total bytes (0 = unlimited)
}

// NewMemoryStorage creates a new memory storage with the given options.
func NewMemoryStorage(opts MemoryOptions) *MemoryStorage {
	return &MemoryStorage{
		data:  make(map[string][]byte),
		quota: opts.Quota,
	}
}

// Get retrieves a value.
func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent mutation
	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

// Set stores a value, enforcing the quota on the total stored size.
func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, value)
}

// Delete removes a key.
func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)
	return nil
}

// Modify runs fn and the resulting write under the write lock.
func (s *MemoryStorage) Modify(_ context.Context, key string, fn ModifyFunc) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.data[key]
	if found {
		current = append([]byte(nil), current...)
	}

	next, err := fn(current, found)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	if next == nil {
		s.deleteLocked(key)
		return nil
	}
	return s.setLocked(key, next)
}

func (s *MemoryStorage) setLocked(key string, value []byte) error {
	used := s.used + entrySize(key, value)
	if old, ok := s.data[key]; ok {
		used -= entrySize(key, old)
	}
	if s.quota > 0 && used > s.quota {
		return ErrQuotaExceeded
	}

	// Make a copy of the value to prevent external mutation
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.data[key] = valueCopy
	s.used = used
	return nil
}

func (s *MemoryStorage) deleteLocked(key string) {
	if old, ok := s.data[key]; ok {
		s.used -= entrySize(key, old)
		delete(s.data, key)
	}
}

// Close marks the storage closed. Further calls return ErrClosed.
func (s *MemoryStorage) Close() error {
	s.closed.Store(true)
	return nil
}

// Ping reports ErrClosed once the storage is closed.
func (s *MemoryStorage) Ping(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Used returns the number of bytes currently counted against the quota.
func (s *MemoryStorage) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// Keys returns all stored keys.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// entrySize counts both key and value, as browsers do for local storage.
func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

// Ensure MemoryStorage implements Storage and Pinger.
var (
	_ Storage = (*MemoryStorage)(nil)
	_ Pinger  = (*MemoryStorage)(nil)
)
