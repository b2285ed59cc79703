// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/bsr-go/internal/ai"
	"github.com/olegiv/bsr-go/internal/auth"
	"github.com/olegiv/bsr-go/internal/imaging"
	"github.com/olegiv/bsr-go/internal/kv"
	"github.com/olegiv/bsr-go/internal/middleware"
	"github.com/olegiv/bsr-go/internal/model"
	"github.com/olegiv/bsr-go/internal/store"
)

const testMasterEmail = "admin@biblesociety.rw"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testStore creates a store over an in-memory medium.
func testStore(t *testing.T) (*store.Store, *kv.MemoryStorage) {
	t.Helper()
	mem := kv.NewMemoryStorage(kv.MemoryOptions{})
	t.Cleanup(func() { _ = mem.Close() })
	return store.New(mem, testLogger()), mem
}

func testRoles() *auth.RolePolicy {
	return auth.NewRolePolicy(testMasterEmail, testLogger())
}

// testSessionManager creates a session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// stubProvider is a scripted ai.Provider.
type stubProvider struct {
	mu sync.Mutex

	text    string
	textErr error
	image   *ai.Image
	imgErr  error

	fragments []string
	streamErr error
	block     chan struct{} // when set, Recv waits for it to close
}

func (p *stubProvider) ID() string { return "stub" }

func (p *stubProvider) GenerateText(_ context.Context, _ ai.TextRequest) (string, error) {
	return p.text, p.textErr
}

func (p *stubProvider) GenerateImage(_ context.Context, _ ai.ImageRequest) (*ai.Image, error) {
	return p.image, p.imgErr
}

func (p *stubProvider) StreamChat(ctx context.Context, _ ai.ChatRequest) (ai.FragmentReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	frags := make([]string, len(p.fragments))
	copy(frags, p.fragments)
	return &stubReader{ctx: ctx, fragments: frags, err: p.streamErr, block: p.block}, nil
}

type stubReader struct {
	ctx       context.Context
	fragments []string
	err       error
	block     chan struct{}
}

func (r *stubReader) Recv() (string, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-r.ctx.Done():
			return "", r.ctx.Err()
		}
	}
	if len(r.fragments) == 0 {
		if r.err != nil {
			return "", r.err
		}
		return "", io.EOF
	}
	f := r.fragments[0]
	r.fragments = r.fragments[1:]
	return f, nil
}

func (r *stubReader) Close() error { return nil }

// testFacade wraps provider without retries or throttling. A nil
// provider behaves as a missing credential.
func testFacade(provider ai.Provider) *ai.Facade {
	return ai.NewWithProvider(ai.Config{
		Timeout:    5 * time.Second,
		MaxRetries: 0,
	}, provider, testLogger())
}

// testPNG returns an encoded PNG of the given size.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// testOversizedPNG returns a tiny PNG whose header claims 12000x12000.
func testOversizedPNG(t *testing.T) []byte {
	t.Helper()
	data := testPNG(t, 1, 1)
	binary.BigEndian.PutUint32(data[16:20], 12000)
	binary.BigEndian.PutUint32(data[20:24], 12000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func testProcessor() *imaging.Processor {
	return imaging.NewProcessor(64, 80)
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithLanguage sets the resolved language on a request.
func requestWithLanguage(r *http.Request, lang model.Language) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyLanguage, lang))
}

// requestAsAdmin marks the request as coming from the master admin.
func requestAsAdmin(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), middleware.SessionUser{
		ID:    "admin-1",
		Email: testMasterEmail,
		Name:  "Admin",
		Role:  model.RoleAdmin,
	}))
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// decodeBody decodes a JSON response body.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return resp
}
