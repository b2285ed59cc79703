// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/olegiv/bsr-go/internal/model"
)

// State is the lifecycle state of a chat session.
type State int

// Chat session states.
const (
	StateCreated State = iota
	StateStreaming
	StateIdle
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStreaming:
		return "streaming"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ChatSession is a multi-turn conversation pinned to a persona and a
// response language. It admits one open stream at a time.
type ChatSession struct {
	facade   *Facade
	language model.Language
	system   string

	mu         sync.Mutex
	state      State
	history    []Turn
	cancel     context.CancelFunc // cancels the open stream, if any
	lastActive time.Time
}

// CreateChatSession opens a session answering in lang.
func (f *Facade) CreateChatSession(lang model.Language) *ChatSession {
	chatSessionsOpen.Inc()
	return &ChatSession{
		facade:     f,
		language:   lang,
		system:     buildChatInstruction(lang),
		state:      StateCreated,
		lastActive: time.Now(),
	}
}

// Language returns the response language of the session.
func (s *ChatSession) Language() model.Language {
	return s.language
}

// State returns the current state.
func (s *ChatSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive returns when the session was created or last finished a turn.
func (s *ChatSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Send submits message as the next turn. The reply is pulled from the
// returned stream; nothing is sent until the first call to Next.
func (s *ChatSession) Send(ctx context.Context, message string) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return nil, ErrSessionClosed
	case StateStreaming:
		return nil, ErrSessionBusy
	}

	streamCtx, cancel := context.WithTimeout(ctx, s.facade.cfg.Timeout)
	s.state = StateStreaming
	s.cancel = cancel

	history := make([]Turn, len(s.history))
	copy(history, s.history)

	return &Stream{
		session: s,
		ctx:     streamCtx,
		cancel:  cancel,
		start:   time.Now(),
		request: ChatRequest{
			Model:   s.facade.cfg.ChatModel,
			System:  s.system,
			History: history,
			Message: message,
		},
	}, nil
}

// Close releases the session and cancels an open stream. Idempotent.
func (s *ChatSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateClosed
	s.history = nil
	chatSessionsOpen.Dec()
	return nil
}

// endTurn commits a completed turn to the history, or drops it.
func (s *ChatSession) endTurn(message, reply string, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel = nil
	s.lastActive = time.Now()
	if s.state == StateClosed {
		return
	}
	if completed {
		s.history = append(s.history,
			Turn{Speaker: SpeakerUser, Text: message},
			Turn{Speaker: SpeakerModel, Text: reply},
		)
	}
	s.state = StateIdle
}

// Stream is the pull-based reply to one chat turn. Fragments arrive in
// order; concatenating them gives the full reply. Not safe for
// concurrent use.
type Stream struct {
	session *ChatSession
	ctx     context.Context
	cancel  context.CancelFunc
	request ChatRequest
	start   time.Time

	reader   FragmentReader
	fragment string
	text     strings.Builder
	err      error
	done     bool
}

// Next advances to the next fragment. It returns false when the reply is
// complete, has failed, or the stream was closed.
func (st *Stream) Next() bool {
	if st.done {
		return false
	}

	if st.reader == nil {
		if err := st.open(); err != nil {
			st.finish(err)
			return false
		}
	}

	for {
		frag, err := st.reader.Recv()
		if errors.Is(err, io.EOF) {
			st.finish(nil)
			return false
		}
		if err != nil {
			if ctxErr := st.ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			st.finish(classifyTransport(opChat, err))
			return false
		}
		if frag == "" {
			continue
		}

		st.fragment = frag
		st.text.WriteString(frag)
		streamFragmentsTotal.Inc()
		return true
	}
}

func (st *Stream) open() error {
	f := st.session.facade
	if f.provider == nil {
		return ErrNoCredential
	}
	if err := f.limiter.Wait(st.ctx); err != nil {
		return &RemoteUnavailableError{Op: opChat, Err: err}
	}

	reader, err := f.provider.StreamChat(st.ctx, st.request)
	if err != nil {
		return classifyTransport(opChat, err)
	}
	st.reader = reader
	return nil
}

// Fragment returns the fragment produced by the last successful Next.
func (st *Stream) Fragment() string {
	return st.fragment
}

// Text returns the concatenation of all fragments received so far.
func (st *Stream) Text() string {
	return st.text.String()
}

// Err returns the error that ended the stream, if any. A stream closed
// before completion reports context.Canceled.
func (st *Stream) Err() error {
	return st.err
}

// Close abandons the stream. The turn is rolled back unless it had
// already completed. Safe to call more than once.
func (st *Stream) Close() error {
	if !st.done {
		st.finish(context.Canceled)
	}
	return nil
}

// finish ends the turn exactly once.
func (st *Stream) finish(err error) {
	st.done = true
	st.err = err
	st.fragment = ""

	if st.reader != nil {
		_ = st.reader.Close()
	}
	st.cancel()

	f := st.session.facade
	requestDuration.WithLabelValues(opChat).Observe(time.Since(st.start).Seconds())
	if !errors.Is(err, context.Canceled) {
		f.record(opChat, err)
	}

	st.session.endTurn(st.request.Message, st.text.String(), err == nil)
}

// Collect drains the stream and returns the full reply.
func Collect(st *Stream) (string, error) {
	for st.Next() {
	}
	_ = st.Close()
	return st.Text(), st.Err()
}
