// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package kv

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStorage persists entries in a single SQLite table.
type SQLiteStorage struct {
	db     *sql.DB
	quota  int64 // Maximum total value bytes (0 = unlimited)
	closed atomic.Bool
}

// SQLiteOptions configures the SQLite storage.
type SQLiteOptions struct {
	// Path is the database file path. ":memory:" is accepted for tests.
	Path string
	// Quota is the maximum total size of stored keys and values in bytes (0 = unlimited).
	Quota int64
}

// NewSQLiteStorage opens the database, applies pragmas and runs migrations.
func NewSQLiteStorage(opts SQLiteOptions) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging
		"PRAGMA busy_timeout=5000",  // Wait 5s when database is locked
		"PRAGMA synchronous=NORMAL", // Good balance of safety and speed
		"PRAGMA temp_store=MEMORY",  // Store temp tables in memory
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db, quota: opts.Quota}, nil
}

// Migrate runs all pending schema migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// DB exposes the underlying database so the session store can share it.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Get retrieves a value.
func (s *SQLiteStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a value inside a transaction that also enforces the quota.
func (s *SQLiteStorage) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.put(ctx, tx, key, value); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapSQLiteError(fmt.Errorf("committing %s: %w", key, err))
	}
	return nil
}

// Delete removes a key.
func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Modify reads and writes key inside one BEGIN IMMEDIATE transaction.
// The write lock is taken before the read, so other connections and
// processes opening the same file wait (up to busy_timeout) instead of
// overwriting each other.
func (s *SQLiteStorage) Modify(ctx context.Context, key string, fn ModifyFunc) error {
	if s.closed.Load() {
		return ErrClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var current []byte
	found := true
	err = conn.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}

	next, err := fn(current, found)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	if next == nil {
		if _, err := conn.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	} else if err := s.put(ctx, conn, key, next); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return mapSQLiteError(fmt.Errorf("committing %s: %w", key, err))
	}
	committed = true
	return nil
}

// querier is satisfied by *sql.Tx and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// put checks the quota and upserts value. Must run inside a transaction.
func (s *SQLiteStorage) put(ctx context.Context, q querier, key string, value []byte) error {
	if s.quota > 0 {
		var others int64
		err := q.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(length(key) + length(value)), 0) FROM kv_entries WHERE key <> ?`, key,
		).Scan(&others)
		if err != nil {
			return fmt.Errorf("measuring usage: %w", err)
		}
		if others+entrySize(key, value) > s.quota {
			return ErrQuotaExceeded
		}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return mapSQLiteError(fmt.Errorf("writing %s: %w", key, err))
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		return s.db.Close()
	}
	return nil
}

// mapSQLiteError turns SQLITE_FULL into ErrQuotaExceeded.
func mapSQLiteError(err error) error {
	if err != nil && strings.Contains(err.Error(), "database or disk is full") {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

// Ensure SQLiteStorage implements Storage and Pinger.
var (
	_ Storage = (*SQLiteStorage)(nil)
	_ Pinger  = (*SQLiteStorage)(nil)
)
