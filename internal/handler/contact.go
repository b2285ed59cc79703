// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/olegiv/bsr-go/internal/auth"
	"github.com/olegiv/bsr-go/internal/model"
	"github.com/olegiv/bsr-go/internal/store"
)

// defaultContactSubject is used when the sender leaves the subject empty.
const defaultContactSubject = "Website enquiry"

// ContactHandler stores contact messages and lets admins review them.
type ContactHandler struct {
	store  *store.Store
	roles  *auth.RolePolicy
	text   *TextPolicy
	logger *slog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(st *store.Store, roles *auth.RolePolicy, text *TextPolicy, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		store:  st,
		roles:  roles,
		text:   text,
		logger: logger.With("component", "contact"),
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Submit handles POST /api/contact. The message is stored and a mailto
// link addressed to the ministry is returned so the sender can also
// forward it from their own mail client.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg := model.ContactMessage{
		ID:        uuid.NewString(),
		Name:      h.text.Plain(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Subject:   h.text.Plain(req.Subject),
		Message:   h.text.Plain(req.Message),
		CreatedAt: time.Now().UTC(),
	}
	if msg.Subject == "" {
		msg.Subject = defaultContactSubject
	}
	if err := msg.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.store.SaveMessage(r.Context(), msg); err != nil {
		writeStoreError(w, h.logger, "save message", err)
		return
	}

	h.logger.Info("contact message received", "message_id", msg.ID)
	writeJSONCreated(w, map[string]any{
		"message": msg,
		"mailto":  h.mailto(msg),
	})
}

// List handles GET /api/admin/messages.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.GetMessages(r.Context())
	if err = tolerateCorrupt(h.logger, "list messages", err); err != nil {
		writeStoreError(w, h.logger, "list messages", err)
		return
	}
	writeJSONSuccess(w, map[string]any{"messages": messages})
}

// Delete handles DELETE /api/admin/messages/{id}.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteMessage(r.Context(), id); err != nil {
		writeStoreError(w, h.logger, "delete message", err)
		return
	}
	writeJSONSuccess(w, nil)
}

// mailto builds the link; empty when no master address is configured.
func (h *ContactHandler) mailto(msg model.ContactMessage) string {
	to := h.roles.MasterEmail()
	if to == "" {
		return ""
	}
	q := url.Values{}
	q.Set("subject", msg.Subject)
	q.Set("body", fmt.Sprintf("Message from: %s (%s)\n\n%s", msg.Name, msg.Email, msg.Message))
	// mail clients expect %20, not +
	return "mailto:" + to + "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
}
