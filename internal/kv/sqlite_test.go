// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T, quota int64) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(SQLiteOptions{
		Path:  filepath.Join(t.TempDir(), "test.db"),
		Quota: quota,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorage_BasicOperations(t *testing.T) {
	s := newTestSQLite(t, 0)
	ctx := context.Background()

	if _, err := s.Get(ctx, "bsr_users"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fresh key, got %v", err)
	}

	if err := s.Set(ctx, "bsr_users", []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "bsr_users", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	val, err := s.Get(ctx, "bsr_users")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != `[{"id":"1"}]` {
		t.Errorf("Get returned %s", val)
	}

	if err := s.Delete(ctx, "bsr_users"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "bsr_users"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSQLiteStorage_Quota(t *testing.T) {
	s := newTestSQLite(t, 20)
	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("0123456789")); err != nil {
		t.Fatalf("Set within quota failed: %v", err)
	}
	if err := s.Set(ctx, "b", []byte("0123456789")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// Overwriting the same key is measured without its old value
	if err := s.Set(ctx, "a", []byte("0123456789abcdefg")); err != nil {
		t.Fatalf("overwrite within quota failed: %v", err)
	}
}

func TestSQLiteStorage_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(SQLiteOptions{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_ = s.Close()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close: %v", err)
	}

	reopened, err := NewSQLiteStorage(SQLiteOptions{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	val, err := reopened.Get(ctx, "k")
	if err != nil || string(val) != "v" {
		t.Errorf("Get after reopen = %q, %v", val, err)
	}
}
