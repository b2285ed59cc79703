// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "fmt"

// StorageFullError reports that the medium refused a write for lack of space.
// The stored collection is left as it was before the call.
type StorageFullError struct {
	Key string
	Err error
}

func (e *StorageFullError) Error() string {
	return fmt.Sprintf("storage full writing %s: %v", e.Key, e.Err)
}

func (e *StorageFullError) Unwrap() error { return e.Err }

// CorruptStoreError reports that the bytes under a key are not a JSON array
// of the collection's entity. By the time it is returned the key has been
// reset to its seed (or removed), so a retry succeeds.
type CorruptStoreError struct {
	Key string
	Err error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("corrupt data under %s: %v", e.Key, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// SerializationError reports that a collection could not be encoded.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("encoding %s: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// ValidationError reports an element rejected by the collection's
// validator. Nothing is written.
type ValidationError struct {
	Key string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid element for %s: %v", e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
