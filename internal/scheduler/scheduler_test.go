// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RegisterAndTrigger(t *testing.T) {
	s := New(testLogger(), time.Second)

	var calls atomic.Int32
	require.NoError(t, s.Register("reap", "@every 1h", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		calls.Add(1)
		return nil
	}))

	require.NoError(t, s.Trigger("reap"))
	assert.Equal(t, int32(1), calls.Load())

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "reap", jobs[0].Name)
	assert.Equal(t, 1, jobs[0].Runs)
	assert.False(t, jobs[0].LastRun.IsZero())
	assert.NoError(t, jobs[0].LastErr)
}

func TestScheduler_RecordsErrors(t *testing.T) {
	s := New(testLogger(), 0)
	boom := errors.New("boom")

	require.NoError(t, s.Register("fail", "@every 1h", func(context.Context) error { return boom }))

	assert.ErrorIs(t, s.Trigger("fail"), boom)
	assert.ErrorIs(t, s.Jobs()[0].LastErr, boom)
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := New(testLogger(), 0)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register("a", "*/5 * * * *", noop))
	assert.Error(t, s.Register("a", "@every 1m", noop), "duplicate name")
	assert.Error(t, s.Register("b", "not a schedule", noop))
	assert.Error(t, s.Trigger("missing"))
}

func TestScheduler_StartRunsJobs(t *testing.T) {
	s := New(testLogger(), time.Second)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.Register("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	assert.False(t, s.Jobs()[0].NextRun.IsZero())
}
