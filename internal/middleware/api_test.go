// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteAPIError(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteAPIError(rr, http.StatusBadRequest, "validation_failed", "Invalid input", map[string]string{"title": "required"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp APIError
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "validation_failed" || resp.Error.Message != "Invalid input" {
		t.Errorf("unexpected error body: %+v", resp.Error)
	}
	if resp.Error.Details["title"] != "required" {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestLimiterCache(t *testing.T) {
	lc := newLimiterCache[string](1, 1)

	a := lc.get("a")
	if lc.get("a") != a {
		t.Error("expected the same limiter for the same key")
	}
	lc.get("b")
	if lc.size() != 2 {
		t.Errorf("size = %d, want 2", lc.size())
	}

	if lc.clearIfExceeds(5) {
		t.Error("cache should not be cleared below the limit")
	}
	if !lc.clearIfExceeds(1) {
		t.Error("cache should be cleared above the limit")
	}
	if lc.size() != 0 {
		t.Errorf("size after clear = %d, want 0", lc.size())
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter("test", 0.001, 2)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after burst", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote addr without port", nil, "192.0.2.1", "192.0.2.1"},
		{"x-real-ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "10.0.0.1:1", "203.0.113.9"},
		{"x-forwarded-for first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "10.0.0.1:1", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
