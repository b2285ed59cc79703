// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/bsr-go/internal/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser     ContextKey = "user"
	ContextKeyLanguage ContextKey = "language"
)

// Session keys for the signed-in account.
const (
	SessionKeyUserID = "user_id"
	SessionKeyEmail  = "email"
	SessionKeyName   = "name"
	SessionKeyRole   = "role"
)

// SessionUser is the account attached to a session.
type SessionUser struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// IsAdmin reports whether the session carries the admin role.
func (u SessionUser) IsAdmin() bool {
	return u.Role.IsAdmin()
}

// SignIn renews the session token and stores the account in it.
func SignIn(ctx context.Context, sm *scs.SessionManager, u SessionUser) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, SessionKeyUserID, u.ID)
	sm.Put(ctx, SessionKeyEmail, u.Email)
	sm.Put(ctx, SessionKeyName, u.Name)
	sm.Put(ctx, SessionKeyRole, string(u.Role))
	return nil
}

// SignOut destroys the session.
func SignOut(ctx context.Context, sm *scs.SessionManager) error {
	return sm.Destroy(ctx)
}

// LoadUser creates middleware that loads the session account into the
// request context. Anonymous requests pass through untouched.
func LoadUser(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := sm.GetString(ctx, SessionKeyUserID)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			user := SessionUser{
				ID:    userID,
				Email: sm.GetString(ctx, SessionKeyEmail),
				Name:  sm.GetString(ctx, SessionKeyName),
				Role:  model.Role(sm.GetString(ctx, SessionKeyRole)),
			}
			ctx = context.WithValue(ctx, ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests without a signed-in account.
// This should be used after LoadUser middleware.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Please log in to continue.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose account is not an admin.
// This should be used after LoadUser middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r)
		if user == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Please log in to continue.", nil)
			return
		}
		if !user.IsAdmin() {
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Admin access required.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser retrieves the current account from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *SessionUser {
	user, ok := r.Context().Value(ContextKeyUser).(SessionUser)
	if !ok {
		return nil
	}
	return &user
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u SessionUser) context.Context {
	return context.WithValue(ctx, ContextKeyUser, u)
}
