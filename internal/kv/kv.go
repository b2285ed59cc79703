// Package kv provides the key-value storage medium behind the local store.
// Values are opaque byte strings; the store layer owns serialization.
package kv

import (
	"context"
)

// Storage defines the interface for storage backends.
// All implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the value stored under key.
	// Returns nil and ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	// Returns ErrQuotaExceeded if the write would exceed the backend quota.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Modify applies fn to the current value of key and stores the result
	// atomically, even against other processes sharing the backend.
	// Backends may call fn more than once when a concurrent writer wins,
	// so fn must not have side effects beyond its return values.
	Modify(ctx context.Context, key string, fn ModifyFunc) error

	// Close releases any resources held by the storage.
	Close() error
}

// ModifyFunc computes the next value of a key. found is false when the key
// is absent. Returning a nil value deletes the key; returning ErrNoChange
// leaves it untouched and makes Modify return nil.
type ModifyFunc func(current []byte, found bool) ([]byte, error)

// Pinger is implemented by backends that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Error represents an error type for storage operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNotFound indicates the key has never been written or was deleted.
	ErrNotFound Error = "key not found"

	// ErrClosed indicates the storage has been closed.
	ErrClosed Error = "storage closed"

	// ErrQuotaExceeded indicates the backend refused a write for lack of space.
	ErrQuotaExceeded Error = "storage quota exceeded"

	// ErrNoChange is returned by a ModifyFunc to skip the write.
	ErrNoChange Error = "no change"

	// ErrConflict means Modify kept losing to concurrent writers.
	ErrConflict Error = "too many concurrent modifications"
)

// maxModifyAttempts bounds optimistic retries in Modify.
const maxModifyAttempts = 16
