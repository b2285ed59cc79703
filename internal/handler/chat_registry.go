// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/bsr-go/internal/ai"
	"github.com/olegiv/bsr-go/internal/model"
)

// ErrTooManyChats is returned when the registry is at capacity.
var ErrTooManyChats = errors.New("too many open chat sessions")

// ChatRegistry tracks open chat sessions by id.
type ChatRegistry struct {
	facade      *ai.Facade
	maxSessions int

	mu       sync.Mutex
	sessions map[string]*ai.ChatSession
}

// NewChatRegistry creates a registry holding at most maxSessions sessions
// (0 means unlimited).
func NewChatRegistry(facade *ai.Facade, maxSessions int) *ChatRegistry {
	return &ChatRegistry{
		facade:      facade,
		maxSessions: maxSessions,
		sessions:    make(map[string]*ai.ChatSession),
	}
}

// Open creates a session answering in lang and returns its id.
func (r *ChatRegistry) Open(lang model.Language) (string, *ai.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return "", nil, ErrTooManyChats
	}

	id := uuid.NewString()
	s := r.facade.CreateChatSession(lang)
	r.sessions[id] = s
	return id, s, nil
}

// Get returns the session with the given id.
func (r *ChatRegistry) Get(id string) (*ai.ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove closes and forgets a session. It reports whether it existed.
func (r *ChatRegistry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		_ = s.Close()
	}
	return ok
}

// Len returns the number of open sessions.
func (r *ChatRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ReapIdle closes sessions that have not finished a turn within maxIdle.
// Sessions with an open stream are left alone. Returns the number closed.
func (r *ChatRegistry) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*ai.ChatSession
	for id, s := range r.sessions {
		if s.State() == ai.StateStreaming || s.LastActive().After(cutoff) {
			continue
		}
		stale = append(stale, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range stale {
		_ = s.Close()
	}
	return len(stale)
}

// Close closes every session.
func (r *ChatRegistry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*ai.ChatSession)
	r.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
