// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/olegiv/bsr-go/internal/auth"
	"github.com/olegiv/bsr-go/internal/middleware"
	"github.com/olegiv/bsr-go/internal/model"
	"github.com/olegiv/bsr-go/internal/store"
)

// Messages shown by the auth routes.
const (
	msgEmailTaken         = "An account with this email already exists. If this is you, please log in."
	msgInvalidCredentials = "Invalid email or password. Please check your credentials."
)

// Landing pages after sign-in.
const (
	redirectAdmin = "/admin"
	redirectHome  = "/"
)

// AuthHandler handles signup, login and logout.
// Passwords are accepted for form compatibility but never checked.
type AuthHandler struct {
	store          *store.Store
	sessionManager *scs.SessionManager
	roles          *auth.RolePolicy
	text           *TextPolicy
	logger         *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(st *store.Store, sm *scs.SessionManager, roles *auth.RolePolicy, text *TextPolicy, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:          st,
		sessionManager: sm,
		roles:          roles,
		text:           text,
		logger:         logger.With("component", "auth"),
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	_, exists, err := h.store.FindUserByEmail(r.Context(), email)
	if err = tolerateCorrupt(h.logger, "signup", err); err != nil {
		writeStoreError(w, h.logger, "signup", err)
		return
	}
	if exists {
		writeJSONError(w, http.StatusConflict, msgEmailTaken)
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
		writeStoreError(w, h.logger, "signup", err)
		return
	}
	if !inserted {
		writeJSONError(w, http.StatusConflict, msgEmailTaken)
		return
	}

	h.signIn(w, r, user, user.Role, http.StatusCreated)
	h.logger.Info("account created", "user_id", user.ID, "role", user.Role)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, found, err := h.store.FindUserByEmail(r.Context(), req.Email)
	if err = tolerateCorrupt(h.logger, "login", err); err != nil {
		writeStoreError(w, h.logger, "login", err)
		return
	}
	if !found {
		h.logger.Info("login rejected: unknown email")
		writeJSONError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	h.signIn(w, r, user, h.roles.Resolve(user.Email, user.Role), http.StatusOK)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := middleware.SignOut(r.Context(), h.sessionManager); err != nil {
		h.logger.Error("failed to destroy session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSONSuccess(w, nil)
}

// Me handles GET /api/auth/me. Anonymous callers get a null user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSONSuccess(w, map[string]any{"user": middleware.GetUser(r)})
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, user model.User, role model.Role, status int) {
	su := middleware.SessionUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  role,
	}
	if err := middleware.SignIn(r.Context(), h.sessionManager, su); err != nil {
		h.logger.Error("failed to start session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	redirect := redirectHome
	if role.IsAdmin() {
		redirect = redirectAdmin
	}
	writeJSONStatus(w, status, map[string]any{
		"user":     su,
		"redirect": redirect,
	})
}
