// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error is a sentinel error of the AI façade.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNoCredential means no API key was configured.
	ErrNoCredential Error = "no AI credential configured"

	// ErrNoImage means the model answered without an inline image.
	ErrNoImage Error = "no image in model response"

	// ErrSessionBusy means a previous turn's stream is still open.
	ErrSessionBusy Error = "chat session is streaming"

	// ErrSessionClosed means the session was closed.
	ErrSessionClosed Error = "chat session closed"
)

// RemoteUnavailableError covers network failures, timeouts and non-2xx
// replies other than 429.
type RemoteUnavailableError struct {
	Op         string
	StatusCode int // 0 for network errors
	Err        error
}

func (e *RemoteUnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: remote unavailable (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: remote unavailable: %v", e.Op, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// RateLimitedError is returned for HTTP 429.
type RateLimitedError struct {
	Op         string
	RetryAfter time.Duration // 0 when the server gave no hint
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s: %v", e.Op, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("%s: rate limited: %v", e.Op, e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// MalformedResponseError means the reply could not be decoded or lacked
// the expected content.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// classifyStatus maps a non-2xx HTTP reply to a classified error.
func classifyStatus(op string, status int, header http.Header, body string) error {
	if len(body) > 512 {
		body = body[:512]
	}
	cause := fmt.Errorf("HTTP %d: %s", status, body)

	if status == http.StatusTooManyRequests {
		return &RateLimitedError{Op: op, RetryAfter: parseRetryAfter(header.Get("Retry-After")), Err: cause}
	}
	return &RemoteUnavailableError{Op: op, StatusCode: status, Err: cause}
}

// classifyTransport wraps a transport-level failure.
func classifyTransport(op string, err error) error {
	var (
		unavailable *RemoteUnavailableError
		limited     *RateLimitedError
		malformed   *MalformedResponseError
		sentinel    Error
	)
	if errors.As(err, &unavailable) || errors.As(err, &limited) || errors.As(err, &malformed) || errors.As(err, &sentinel) {
		return err
	}
	return &RemoteUnavailableError{Op: op, Err: err}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// isRecoverable reports whether a unary call may be retried.
// Client errors other than 408 and 429 are final.
func isRecoverable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var limited *RateLimitedError
	if errors.As(err, &limited) {
		return true
	}

	var unavailable *RemoteUnavailableError
	if errors.As(err, &unavailable) {
		code := unavailable.StatusCode
		return code == 0 || code == http.StatusRequestTimeout || code >= 500
	}
	return false
}

// outcome is the metrics label for a result.
func outcome(err error) string {
	var (
		unavailable *RemoteUnavailableError
		limited     *RateLimitedError
		malformed   *MalformedResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoCredential):
		return "no_credential"
	case errors.Is(err, ErrNoImage):
		return "no_image"
	case errors.As(err, &limited):
		return "rate_limited"
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &unavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// Reason is a stable machine-readable label for a failure, suitable for
// API responses. It returns "ok" for nil.
func Reason(err error) string {
	return outcome(err)
}
