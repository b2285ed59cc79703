// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session manager.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"
)

// Cookie names. Production uses the __Host- prefix, which browsers only
// accept on secure cookies scoped to "/".
const (
	CookieNameDev  = "bsr_session"
	CookieNameProd = "__Host-bsr_session"
)

// Lifetime is the absolute session lifetime.
const Lifetime = 24 * time.Hour

// New creates a session manager. Sessions are kept in the sessions table
// of db when it is non-nil, and in process memory otherwise.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	if db == nil {
		return configure(memstore.New(), isDev)
	}
	return configure(sqlite3store.New(db), isDev)
}

// NewRedis creates a session manager that keeps sessions in Redis under
// prefix + "session:".
func NewRedis(client *redis.Client, prefix string, isDev bool) *scs.SessionManager {
	return configure(goredisstore.NewWithPrefix(client, prefix+"session:"), isDev)
}

func configure(store scs.Store, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = store

	sm.Lifetime = Lifetime
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only
	sm.Cookie.Name = CookieNameDev
	if !isDev {
		sm.Cookie.Name = CookieNameProd
	}

	return sm
}
