// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth decides account roles.
package auth

import (
	"log/slog"

	"github.com/olegiv/bsr-go/internal/model"
)

// RolePolicy derives the role of an account from its email address.
// Exactly one address, the master admin, maps to the admin role.
type RolePolicy struct {
	masterEmail string
	logger      *slog.Logger
}

// NewRolePolicy creates a policy for the given master admin email.
// An empty master email means no account is ever an admin.
func NewRolePolicy(masterEmail string, logger *slog.Logger) *RolePolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RolePolicy{
		masterEmail: model.NormalizeEmail(masterEmail),
		logger:      logger,
	}
}

// MasterEmail returns the normalized master admin email.
func (p *RolePolicy) MasterEmail() string {
	return p.masterEmail
}

// IsMaster reports whether email is the master admin address.
func (p *RolePolicy) IsMaster(email string) bool {
	return p.masterEmail != "" && model.NormalizeEmail(email) == p.masterEmail
}

// Resolve returns the effective role for email. The stored role is
// advisory only: a mismatch is logged and the derived role wins.
func (p *RolePolicy) Resolve(email string, stored model.Role) model.Role {
	role := model.RoleUser
	if p.IsMaster(email) {
		role = model.RoleAdmin
	}

	if stored != "" && stored != role {
		p.logger.Warn("stored role differs from derived role",
			"email", email,
			"stored", stored,
			"derived", role,
		)
	}

	return role
}
