// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/bsr-go/internal/ai"
	"github.com/olegiv/bsr-go/internal/model"
)

type sseEvent struct {
	Name string
	Data map[string]string
}

// parseEvents splits a recorded event stream.
func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		cur    sseEvent
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cur.Data))
		case line == "":
			if cur.Name != "" {
				events = append(events, cur)
			}
			cur = sseEvent{}
		}
	}
	return events
}

func newTestChatHandler(provider ai.Provider, maxSessions int) *ChatHandler {
	return NewChatHandler(NewChatRegistry(testFacade(provider), maxSessions), NewTextPolicy(), testLogger())
}

func openChat(t *testing.T, h *ChatHandler, lang model.Language) string {
	t.Helper()
	req := requestWithLanguage(httptest.NewRequest(http.MethodPost, "/api/chat/sessions", nil), lang)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	w := httptest.NewRecorder()
	h.Create(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["id"].(string)
}

func sendChat(t *testing.T, h *ChatHandler, id, message string) *httptest.ResponseRecorder {
	t.Helper()
	req := requestWithURLParams(jsonRequest(t, http.MethodPost, "/", map[string]string{"message": message}), map[string]string{"id": id})
	w := httptest.NewRecorder()
	h.Send(w, req)
	return w
}

func TestChatHandler_CreateGreets(t *testing.T) {
	tests := []struct {
		lang           model.Language
		wantGreeting   string
		wantSuggestion string
	}{
		{model.LanguageKinyarwanda, "Muraho! Nejejwe no kubafasha mu rugendo rwanyu rwa gikristo. Mbafashe iki uyu munsi?", "Nsomera isengesho rya mu gitondo"},
		{model.LanguageFrench, "Bonjour! Je suis ravi de vous accompagner dans votre cheminement spirituel. Comment puis-je vous aider aujourd'hui?", "Prière du matin"},
		{model.LanguageEnglish, "Welcome! I am here to assist you in your spiritual journey. How can I help you today?", "Morning prayer"},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			h := newTestChatHandler(&stubProvider{}, 0)

			req := requestWithLanguage(httptest.NewRequest(http.MethodPost, "/", nil), tt.lang)
			w := httptest.NewRecorder()
			h.Create(w, req)

			assertStatus(t, w.Code, http.StatusCreated)
			resp := decodeBody(t, w)
			assert.Equal(t, tt.wantGreeting, resp["greeting"])
			assert.Equal(t, ai.AssistantName, resp["assistant"])
			suggestions := resp["suggestions"].([]any)
			require.Len(t, suggestions, 3)
			assert.Equal(t, tt.wantSuggestion, suggestions[0])
			assert.NotEmpty(t, resp["id"])
		})
	}
}

func TestChatHandler_CreateAtCapacity(t *testing.T) {
	h := newTestChatHandler(&stubProvider{}, 1)
	openChat(t, h, model.LanguageEnglish)

	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assertStatus(t, w.Code, http.StatusServiceUnavailable)
}

func TestChatHandler_SendStreamsFragments(t *testing.T) {
	h := newTestChatHandler(&stubProvider{fragments: []string{"Grace is ", "", "unearned ", "favor."}}, 0)
	id := openChat(t, h, model.LanguageEnglish)

	w := sendChat(t, h, id, "Explain the concept of Grace")

	assertStatus(t, w.Code, http.StatusOK)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseEvents(t, w.Body.String())
	require.Len(t, events, 4)
	assert.Equal(t, EventMessage, events[0].Name)
	assert.Equal(t, "Grace is ", events[0].Data["text"])
	assert.Equal(t, "unearned ", events[1].Data["text"])
	assert.Equal(t, "favor.", events[2].Data["text"])
	assert.Equal(t, EventDone, events[3].Name)
	assert.Equal(t, "Grace is unearned favor.", events[3].Data["text"])

	session, ok := h.registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, ai.StateIdle, session.State())
}

func TestChatHandler_SendFailureApologizes(t *testing.T) {
	h := newTestChatHandler(&stubProvider{
		fragments: []string{"Partial"},
		streamErr: &ai.RemoteUnavailableError{Op: "chat", Err: errors.New("connection reset")},
	}, 0)
	id := openChat(t, h, model.LanguageEnglish)

	w := sendChat(t, h, id, "Hello")

	events := parseEvents(t, w.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, EventMessage, events[0].Name)
	assert.Equal(t, EventError, events[1].Name)
	assert.Equal(t, msgChatApology, events[1].Data["message"])
	assert.Equal(t, "unavailable", events[1].Data["reason"])
}

func TestChatHandler_SendWithoutCredential(t *testing.T) {
	h := newTestChatHandler(nil, 0)
	id := openChat(t, h, model.LanguageFrench)

	events := parseEvents(t, sendChat(t, h, id, "Bonjour").Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Name)
	assert.Equal(t, "no_credential", events[0].Data["reason"])
}

func TestChatHandler_SendBusy(t *testing.T) {
	block := make(chan struct{})
	h := newTestChatHandler(&stubProvider{fragments: []string{"slow"}, block: block}, 0)
	id := openChat(t, h, model.LanguageEnglish)

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- sendChat(t, h, id, "first") }()

	session, _ := h.registry.Get(id)
	require.Eventually(t, func() bool { return session.State() == ai.StateStreaming }, time.Second, 5*time.Millisecond)

	w := sendChat(t, h, id, "second")
	assertStatus(t, w.Code, http.StatusConflict)

	close(block)
	first := <-done
	events := parseEvents(t, first.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, EventDone, events[len(events)-1].Name)
}

func TestChatHandler_SendErrors(t *testing.T) {
	h := newTestChatHandler(&stubProvider{}, 0)

	t.Run("unknown session", func(t *testing.T) {
		assertStatus(t, sendChat(t, h, "missing", "hi").Code, http.StatusNotFound)
	})

	t.Run("empty message", func(t *testing.T) {
		id := openChat(t, h, model.LanguageEnglish)
		w := sendChat(t, h, id, "  ")
		assertStatus(t, w.Code, http.StatusBadRequest)
		assert.Equal(t, msgChatEmptyMessage, decodeBody(t, w)["error"])
	})
}

func TestChatHandler_Close(t *testing.T) {
	h := newTestChatHandler(&stubProvider{}, 0)
	id := openChat(t, h, model.LanguageEnglish)
	session, _ := h.registry.Get(id)

	w := httptest.NewRecorder()
	h.Close(w, requestWithURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": id}))
	assertStatus(t, w.Code, http.StatusOK)
	assert.Equal(t, ai.StateClosed, session.State())

	w = httptest.NewRecorder()
	h.Close(w, requestWithURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": id}))
	assertStatus(t, w.Code, http.StatusNotFound)
}

func TestChatRegistry_ReapIdle(t *testing.T) {
	r := NewChatRegistry(testFacade(&stubProvider{}), 0)

	_, old, err := r.Open(model.LanguageEnglish)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, fresh, err := r.Open(model.LanguageEnglish)
	require.NoError(t, err)

	assert.Equal(t, 1, r.ReapIdle(10*time.Millisecond))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, ai.StateClosed, old.State())
	assert.NotEqual(t, ai.StateClosed, fresh.State())

	r.Close()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, ai.StateClosed, fresh.State())
}

func TestChatGreetingFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, ChatGreeting(model.LanguageEnglish), ChatGreeting(model.Language("Swahili")))
	assert.Equal(t, ChatSuggestions(model.LanguageEnglish), ChatSuggestions(""))
}
