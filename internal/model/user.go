// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the entities kept in the local store:
// posts, users, contact messages and gallery images.
package model

import (
	"errors"
	"strings"
)

// Role is the access role of a user account.
type Role string

// User roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// IsAdmin returns true for the admin role.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is a registered community or admin account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// IsAdmin returns true if the stored role is admin.
func (u User) IsAdmin() bool {
	return u.Role.IsAdmin()
}

// NormalizedEmail is the case-folded email used as the user identity.
func (u User) NormalizedEmail() string {
	return NormalizeEmail(u.Email)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks required fields.
func (u User) Validate() error {
	var errs []error
	if u.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if !strings.Contains(u.Email, "@") {
		errs = append(errs, errors.New("a valid email is required"))
	}
	if strings.TrimSpace(u.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !u.Role.Valid() {
		errs = append(errs, errors.New("role must be admin or user"))
	}
	return errors.Join(errs...)
}
