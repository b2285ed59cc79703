// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mileusna/useragent"

	"github.com/olegiv/bsr-go/internal/ai"
	"github.com/olegiv/bsr-go/internal/middleware"
	"github.com/olegiv/bsr-go/internal/model"
)

// Chat stream event names.
const (
	EventMessage = "message"
	EventDone    = "done"
	EventError   = "error"
)

const (
	msgChatApology      = "I apologize, I encountered an error. Please try again later."
	msgChatNotFound     = "Chat session not found"
	msgChatBusy         = "Please wait for the current answer to finish."
	msgChatFull         = "The assistant is busy. Please try again in a few minutes."
	msgChatEmptyMessage = "Please enter a message."
)

var chatGreetings = map[model.Language]string{
	model.LanguageKinyarwanda: "Muraho! Nejejwe no kubafasha mu rugendo rwanyu rwa gikristo. Mbafashe iki uyu munsi?",
	model.LanguageFrench:      "Bonjour! Je suis ravi de vous accompagner dans votre cheminement spirituel. Comment puis-je vous aider aujourd'hui?",
	model.LanguageEnglish:     "Welcome! I am here to assist you in your spiritual journey. How can I help you today?",
}

var chatSuggestions = map[model.Language][]string{
	model.LanguageKinyarwanda: {"Nsomera isengesho rya mu gitondo", "Nsobanurira urukundo rwa Yesu", "Inyigisho ku kwihangana"},
	model.LanguageFrench:      {"Prière du matin", "Expliquez-moi la grâce", "Versets sur la paix"},
	model.LanguageEnglish:     {"Morning prayer", "Explain the concept of Grace", "Verses for inner peace"},
}

// ChatGreeting returns the opening line of the assistant in lang.
func ChatGreeting(lang model.Language) string {
	if g, ok := chatGreetings[lang]; ok {
		return g
	}
	return chatGreetings[model.DefaultLanguage]
}

// ChatSuggestions returns the starter prompts offered in lang.
func ChatSuggestions(lang model.Language) []string {
	if s, ok := chatSuggestions[lang]; ok {
		return s
	}
	return chatSuggestions[model.DefaultLanguage]
}

// ChatHandler serves the streaming assistant.
type ChatHandler struct {
	registry *ChatRegistry
	text     *TextPolicy
	logger   *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(registry *ChatRegistry, text *TextPolicy, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		registry: registry,
		text:     text,
		logger:   logger.With("component", "chat"),
	}
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

// Create handles POST /api/chat/sessions.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLanguage(r)

	id, _, err := h.registry.Open(lang)
	if errors.Is(err, ErrTooManyChats) {
		h.logger.Warn("chat session limit reached", "open", h.registry.Len())
		writeJSONError(w, http.StatusServiceUnavailable, msgChatFull)
		return
	}
	if err != nil {
		h.logger.Error("failed to open chat session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ua := useragent.Parse(r.UserAgent())
	h.logger.Info("chat session opened",
		"chat_id", id,
		"language", lang,
		"browser", ua.Name,
		"os", ua.OS,
		"mobile", ua.Mobile,
		"bot", ua.Bot,
	)

	writeJSONCreated(w, map[string]any{
		"id":          id,
		"assistant":   ai.AssistantName,
		"language":    lang,
		"greeting":    ChatGreeting(lang),
		"suggestions": ChatSuggestions(lang),
	})
}

// Send handles POST /api/chat/sessions/{id}/messages. The reply is
// streamed as server-sent events: one "message" event per fragment, then
// either "done" with the full text or "error" with an apology.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, ok := h.registry.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, msgChatNotFound)
		return
	}

	var req chatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	message := h.text.Plain(req.Message)
	if message == "" {
		writeJSONError(w, http.StatusBadRequest, msgChatEmptyMessage)
		return
	}

	rc := http.NewResponseController(w)

	stream, err := session.Send(r.Context(), message)
	switch {
	case errors.Is(err, ai.ErrSessionBusy):
		writeJSONError(w, http.StatusConflict, msgChatBusy)
		return
	case errors.Is(err, ai.ErrSessionClosed):
		writeJSONError(w, http.StatusNotFound, msgChatNotFound)
		return
	case err != nil:
		h.logger.Error("failed to start chat turn", "chat_id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	defer func() { _ = stream.Close() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("response does not support flushing", "error", err)
		return
	}

	for stream.Next() {
		if err := writeEvent(w, EventMessage, map[string]string{"text": stream.Fragment()}); err != nil {
			h.logger.Debug("chat client went away", "chat_id", id, "error", err)
			return
		}
		_ = rc.Flush()
	}

	if err := stream.Err(); err != nil {
		h.logger.Warn("chat turn failed", "chat_id", id, "reason", ai.Reason(err), "error", err)
		_ = writeEvent(w, EventError, map[string]string{
			"message": msgChatApology,
			"reason":  ai.Reason(err),
		})
		_ = rc.Flush()
		return
	}

	_ = writeEvent(w, EventDone, map[string]string{"text": stream.Text()})
	_ = rc.Flush()
}

// Close handles DELETE /api/chat/sessions/{id}.
func (h *ChatHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.registry.Remove(id) {
		writeJSONError(w, http.StatusNotFound, msgChatNotFound)
		return
	}
	h.logger.Info("chat session closed", "chat_id", id)
	writeJSONSuccess(w, nil)
}

// writeEvent writes one server-sent event with a JSON payload.
func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	// JSON output never contains raw newlines, so one data line suffices.
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, strings.TrimSpace(string(data)))
	return err
}
