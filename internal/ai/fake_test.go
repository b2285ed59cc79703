package ai

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeProvider is a scripted Provider for façade tests.
type fakeProvider struct {
	mu sync.Mutex

	texts    []string // successive GenerateText results
	textErrs []error  // successive GenerateText errors (nil entries succeed)
	textReqs []TextRequest

	image    *Image
	imageErr error

	fragments []string
	streamErr error // returned after the fragments instead of io.EOF
	openErr   error
	block     bool // block in Recv until the context ends
	chatReqs  []ChatRequest
}

func (p *fakeProvider) ID() string { return "fake" }

func (p *fakeProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	p.mu.Lock()
	n := len(p.textReqs)
	p.textReqs = append(p.textReqs, req)
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n < len(p.textErrs) && p.textErrs[n] != nil {
		return "", p.textErrs[n]
	}
	if n < len(p.texts) {
		return p.texts[n], nil
	}
	if len(p.texts) > 0 {
		return p.texts[len(p.texts)-1], nil
	}
	return "", nil
}

func (p *fakeProvider) GenerateImage(_ context.Context, _ ImageRequest) (*Image, error) {
	return p.image, p.imageErr
}

func (p *fakeProvider) StreamChat(ctx context.Context, req ChatRequest) (FragmentReader, error) {
	p.mu.Lock()
	p.chatReqs = append(p.chatReqs, req)
	p.mu.Unlock()

	if p.openErr != nil {
		return nil, p.openErr
	}
	frags := make([]string, len(p.fragments))
	copy(frags, p.fragments)
	return &sliceReader{ctx: ctx, fragments: frags, err: p.streamErr, block: p.block}, nil
}

func (p *fakeProvider) textCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.textReqs)
}

type sliceReader struct {
	ctx       context.Context
	fragments []string
	err       error
	block     bool
	closed    bool
}

func (r *sliceReader) Recv() (string, error) {
	if len(r.fragments) > 0 {
		f := r.fragments[0]
		r.fragments = r.fragments[1:]
		return f, nil
	}
	if r.block {
		<-r.ctx.Done()
		return "", r.ctx.Err()
	}
	if r.err != nil {
		return "", r.err
	}
	return "", io.EOF
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

// testFacade builds a façade with fast retries and no throttling.
func testFacade(p Provider) *Facade {
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RequestsPerSecond = 0
	return NewWithProvider(cfg, p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
