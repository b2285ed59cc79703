// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/olegiv/bsr-go/internal/kv"
)

// Repository is the per-collection contract of the local store.
type Repository[T any] interface {
	// All returns the whole collection, seeding it first when it is empty
	// and the collection has seed data.
	All(ctx context.Context) ([]T, error)
	// Save inserts item unless an element with the same identity exists.
	Save(ctx context.Context, item T) error
	// Update replaces the element with the same id. Missing ids are ignored.
	Update(ctx context.Context, item T) error
	// Delete removes the element with the given id. Missing ids are ignored.
	Delete(ctx context.Context, id string) error
}

// CollectionOptions describes how a collection is stored.
type CollectionOptions[T any] struct {
	// Key is the fixed storage key holding the JSON array.
	Key string
	// ID returns the element id used by Update and Delete.
	ID func(T) string
	// Identity returns the dedup key used by Save. Defaults to ID.
	Identity func(T) string
	// Seed returns the records written when the collection is first read empty.
	Seed func() []T
	// Append adds new elements at the end instead of the front.
	Append bool
	// Validate, when set, rejects elements passed to Save and Update.
	Validate func(T) error
}

// Collection is a JSON array of T stored under a single key.
// Every read-modify-write cycle runs through Storage.Modify, so writers
// in other processes sharing the medium are serialized too. The mutex
// only spares the medium from contention within this process.
type Collection[T any] struct {
	storage kv.Storage
	opts    CollectionOptions[T]
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewCollection creates a collection over storage.
func NewCollection[T any](storage kv.Storage, opts CollectionOptions[T], logger *slog.Logger) *Collection[T] {
	if opts.Identity == nil {
		opts.Identity = opts.ID
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{
		storage: storage,
		opts:    opts,
		logger:  logger.With("key", opts.Key),
	}
}

// Key returns the storage key of the collection.
func (c *Collection[T]) Key() string {
	return c.opts.Key
}

// All returns the collection. An empty seeded collection is seeded and the
// seed returned. Corrupt data is reset and the fallback returned together
// with a *CorruptStoreError.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.storage.Get(ctx, c.opts.Key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return []T{}, fmt.Errorf("reading %s: %w", c.opts.Key, err)
	}
	items, decodeErr := decode[T](data)
	if decodeErr == nil && (len(items) > 0 || c.opts.Seed == nil) {
		return items, nil
	}

	// Seeding or resetting writes, so it goes through Modify like any
	// other mutation. Another process may have seeded in the meantime.
	seeded := false
	items, err = c.mutate(ctx, func(items []T) ([]T, bool) {
		seeded = len(items) == 0 && c.opts.Seed != nil
		if !seeded {
			return items, false
		}
		return c.opts.Seed(), true
	})
	if err == nil && seeded {
		c.logger.Info("seeded collection", "count", len(items))
	}
	return items, err
}

// Find returns the element with the given id.
func (c *Collection[T]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T

	items, err := c.All(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, item := range items {
		if c.opts.ID(item) == id {
			return item, true, nil
		}
	}
	return zero, false, nil
}

// Save inserts item unless its identity is already present.
func (c *Collection[T]) Save(ctx context.Context, item T) error {
	_, err := c.Insert(ctx, item)
	return err
}

// Insert is Save that also reports whether item was stored. It returns
// false without error when an element with the same identity exists.
func (c *Collection[T]) Insert(ctx context.Context, item T) (bool, error) {
	if err := c.validate(item); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	identity := c.opts.Identity(item)
	inserted := false
	_, err := c.mutate(ctx, func(items []T) ([]T, bool) {
		inserted = false
		for _, existing := range items {
			if c.opts.Identity(existing) == identity {
				return items, false
			}
		}

		inserted = true
		if c.opts.Append {
			return append(items, item), true
		}
		return append([]T{item}, items...), true
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Update replaces the element whose id matches item.
func (c *Collection[T]) Update(ctx context.Context, item T) error {
	if err := c.validate(item); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.opts.ID(item)
	_, err := c.mutate(ctx, func(items []T) ([]T, bool) {
		for i := range items {
			if c.opts.ID(items[i]) == id {
				items[i] = item
				return items, true
			}
		}
		return items, false
	})
	return err
}

// Delete removes the element with the given id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.mutate(ctx, func(items []T) ([]T, bool) {
		kept := make([]T, 0, len(items))
		for _, item := range items {
			if c.opts.ID(item) != id {
				kept = append(kept, item)
			}
		}
		return kept, len(kept) != len(items)
	})
	return err
}

func (c *Collection[T]) validate(item T) error {
	if c.opts.Validate == nil {
		return nil
	}
	if err := c.opts.Validate(item); err != nil {
		return &ValidationError{Key: c.opts.Key, Err: err}
	}
	return nil
}

// mutate decodes the stored array, applies change and writes the result
// in one Storage.Modify. change reports whether it altered the items and
// may run more than once. Corrupt data is replaced by the seed (or
// removed) without calling change, and the fallback is returned with a
// *CorruptStoreError. Must be called with mu held.
func (c *Collection[T]) mutate(ctx context.Context, change func([]T) ([]T, bool)) ([]T, error) {
	var (
		result  []T
		corrupt *CorruptStoreError
	)

	err := c.storage.Modify(ctx, c.opts.Key, func(current []byte, _ bool) ([]byte, error) {
		corrupt = nil

		items, err := decode[T](current)
		if err != nil {
			corrupt = &CorruptStoreError{Key: c.opts.Key, Err: err}
			if c.opts.Seed == nil {
				result = []T{}
				return nil, nil
			}
			result = c.opts.Seed()
			return c.encode(result)
		}

		next, changed := change(items)
		result = next
		if !changed {
			return nil, kv.ErrNoChange
		}
		return c.encode(next)
	})

	if corrupt != nil {
		c.logger.Warn("corrupt collection data, resetting", "error", corrupt.Err)
		if err != nil {
			c.logger.Error("failed to reset corrupt collection", "error", err)
		}
		return result, corrupt
	}
	if result == nil {
		result = []T{}
	}
	if err != nil {
		return result, c.writeError(err)
	}
	return result, nil
}

// decode parses a stored array. Missing, blank and null values are empty.
func decode[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) encode(items []T) ([]byte, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, &SerializationError{Key: c.opts.Key, Err: err}
	}
	return data, nil
}

// writeError classifies a failed Modify.
func (c *Collection[T]) writeError(err error) error {
	var serialization *SerializationError
	switch {
	case errors.As(err, &serialization):
		return err
	case errors.Is(err, kv.ErrQuotaExceeded):
		return &StorageFullError{Key: c.opts.Key, Err: err}
	default:
		return fmt.Errorf("writing %s: %w", c.opts.Key, err)
	}
}

// Ensure Collection implements Repository.
var _ Repository[struct{}] = (*Collection[struct{}])(nil)
