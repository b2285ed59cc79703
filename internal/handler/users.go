// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/olegiv/bsr-go/internal/auth"
	"github.com/olegiv/bsr-go/internal/model"
	"github.com/olegiv/bsr-go/internal/store"
)

const msgEmailRegistered = "This email is already registered."

// UsersHandler lets admins list and register accounts.
type UsersHandler struct {
	store  *store.Store
	roles  *auth.RolePolicy
	text   *TextPolicy
	logger *slog.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(st *store.Store, roles *auth.RolePolicy, text *TextPolicy, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{
		store:  st,
		roles:  roles,
		text:   text,
		logger: logger.With("component", "users"),
	}
}

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// List handles GET /api/admin/users. Roles are reported as derived from
// the email, not as stored.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.GetUsers(r.Context())
	if err = tolerateCorrupt(h.logger, "list users", err); err != nil {
		writeStoreError(w, h.logger, "list users", err)
		return
	}
	for i := range users {
		users[i].Role = model.RoleUser
		if h.roles.IsMaster(users[i].Email) {
			users[i].Role = model.RoleAdmin
		}
	}
	writeJSONSuccess(w, map[string]any{"users": users})
}

// Register handles POST /api/admin/users.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	_, exists, err := h.store.FindUserByEmail(r.Context(), email)
	if err = tolerateCorrupt(h.logger, "register user", err); err != nil {
		writeStoreError(w, h.logger, "register user", err)
		return
	}
	if exists {
		writeJSONError(w, http.StatusConflict, msgEmailRegistered)
		return
	}

	user := model.User{
		ID:    uuid.NewString(),
		Name:  h.text.Plain(req.Name),
		Email: email,
		Phone: h.text.Plain(req.Phone),
		Role:  h.roles.Resolve(email, ""),
	}
	if err := user.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	inserted, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		writeStoreError(w, h.logger, "register user", err)
		return
	}
	if !inserted {
		writeJSONError(w, http.StatusConflict, msgEmailRegistered)
		return
	}

	h.logger.Info("user registered by admin", "user_id", user.ID, "role", user.Role)
	writeJSONCreated(w, map[string]any{"user": user})
}
