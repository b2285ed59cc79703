// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ai is the façade over the remote generative model: reflections,
// images, passage lookup and streamed chat. Every operation returns a
// Result carrying safe fallback content when the remote call fails.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/olegiv/bsr-go/internal/model"
)

// Operation names used in errors, logs and metrics.
const (
	opReflection = "reflection"
	opImage      = "image"
	opPassage    = "passage"
	opChat       = "chat"
)

// Result is the tagged outcome of a façade operation.
// When OK is false, Value holds fallback content and Err the reason.
type Result[T any] struct {
	Value T
	OK    bool
	Err   error
}

func success[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

func failure[T any](fallback T, err error) Result[T] {
	return Result[T]{Value: fallback, Err: err}
}

// Config configures the façade.
type Config struct {
	Provider   string // "gemini" or "openai"
	APIKey     string
	BaseURL    string // empty = provider default
	TextModel  string
	ImageModel string
	ChatModel  string

	// Timeout bounds each remote attempt, and each chat turn as a whole.
	Timeout time.Duration
	// MaxRetries is the number of retries for recoverable unary failures.
	MaxRetries int
	// RetryInitialInterval is the first backoff delay.
	RetryInitialInterval time.Duration
	// RequestsPerSecond and Burst throttle outbound calls (0 = unlimited).
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Provider:             ProviderGemini,
		Timeout:              60 * time.Second,
		MaxRetries:           2,
		RetryInitialInterval: 500 * time.Millisecond,
		RequestsPerSecond:    2,
		Burst:                4,
	}
}

// Facade is the entry point for all AI operations. Safe for concurrent use.
type Facade struct {
	cfg      Config
	provider Provider // nil without a credential
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a façade with the provider named in cfg. A missing API key
// is not an error: every operation then takes its failure path.
func New(cfg Config, logger *slog.Logger) (*Facade, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}

	var provider Provider
	if cfg.APIKey == "" {
		logger.Warn("no AI API key configured, AI features will return fallbacks", "provider", cfg.Provider)
	} else {
		switch cfg.Provider {
		case ProviderGemini:
			provider = newGeminiProvider(cfg.BaseURL, cfg.APIKey)
		case ProviderOpenAI:
			provider = newOpenAIProvider(cfg.BaseURL, cfg.APIKey)
		default:
			return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
		}
	}

	return NewWithProvider(cfg, provider, logger), nil
}

// NewWithProvider creates a façade over an explicit provider.
// A nil provider behaves as a missing credential.
func NewWithProvider(cfg Config, provider Provider, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = defaults.RetryInitialInterval
	}

	providerID := cfg.Provider
	if provider != nil {
		providerID = provider.ID()
	}
	cfg.TextModel, cfg.ImageModel, cfg.ChatModel = defaultModels(providerID, cfg.TextModel, cfg.ImageModel, cfg.ChatModel)

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	return &Facade{
		cfg:      cfg,
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With("component", "ai", "provider", providerID),
	}
}

// defaultModels fills empty model names with the provider's defaults.
func defaultModels(provider, text, image, chat string) (string, string, string) {
	var dt, di, dc string
	switch provider {
	case ProviderOpenAI:
		dt, di, dc = "gpt-4o-mini", "dall-e-3", "gpt-4o"
	default:
		dt, di, dc = "gemini-3-flash-preview", "gemini-2.5-flash-image", "gemini-3-pro-preview"
	}
	if text == "" {
		text = dt
	}
	if image == "" {
		image = di
	}
	if chat == "" {
		chat = dc
	}
	return text, image, chat
}

// Available reports whether a provider is configured.
func (f *Facade) Available() bool {
	return f.provider != nil
}

// GenerateReflection writes a short pastoral reflection on verse in lang.
// On failure Value is a human-readable fallback that must not be stored
// as content.
func (f *Facade) GenerateReflection(ctx context.Context, verse string, lang model.Language) Result[string] {
	text, err := unary(ctx, f, opReflection, func(ctx context.Context) (string, error) {
		return f.provider.GenerateText(ctx, TextRequest{
			Model:           f.cfg.TextModel,
			Prompt:          buildReflectionPrompt(verse, lang),
			Temperature:     reflectionTemperature,
			MaxOutputTokens: reflectionMaxOutputTokens,
		})
	})
	if err != nil {
		return failure(ReflectionErrorFallback(lang), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		err := &MalformedResponseError{Op: opReflection, Err: errors.New("empty text")}
		f.record(opReflection, err)
		return failure(ReflectionEmptyFallback, err)
	}
	f.record(opReflection, nil)
	return success(text)
}

// GenerateImage produces one image for prompt wrapped in the ministry
// photography style. Only the first inline image of the reply is used.
func (f *Facade) GenerateImage(ctx context.Context, prompt string) Result[Image] {
	img, err := unary(ctx, f, opImage, func(ctx context.Context) (*Image, error) {
		return f.provider.GenerateImage(ctx, ImageRequest{
			Model:  f.cfg.ImageModel,
			Prompt: buildImagePrompt(prompt),
		})
	})
	if err != nil {
		return failure(Image{}, err)
	}
	if img == nil || len(img.Data) == 0 {
		f.record(opImage, ErrNoImage)
		return failure(Image{}, ErrNoImage)
	}
	f.record(opImage, nil)
	return success(*img)
}

// FetchPassage looks up the text of a Bible reference in lang together
// with a one or two sentence context note.
func (f *Facade) FetchPassage(ctx context.Context, reference string, lang model.Language) Result[Passage] {
	text, err := unary(ctx, f, opPassage, func(ctx context.Context) (string, error) {
		return f.provider.GenerateText(ctx, TextRequest{
			Model:  f.cfg.TextModel,
			Prompt: buildPassagePrompt(reference, lang),
			JSON:   true,
		})
	})
	if err != nil {
		return failure(Passage{Verse: PassageUnavailable}, err)
	}

	passage, err := parsePassage(text)
	if err != nil {
		f.record(opPassage, err)
		return failure(passage, err)
	}
	f.record(opPassage, nil)
	return success(passage)
}

// unary runs one remote call under the throttle, a per-attempt timeout
// and exponential backoff for recoverable failures. Failures are recorded
// here; callers record success once they have validated the reply.
func unary[T any](ctx context.Context, f *Facade, op string, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	defer func() { requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	if f.provider == nil {
		f.record(op, ErrNoCredential)
		return zero, ErrNoCredential
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.cfg.RetryInitialInterval
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.cfg.MaxRetries)), ctx)

	var result T
	attempt := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(&RemoteUnavailableError{Op: op, Err: err})
		}

		attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()

		v, err := call(attemptCtx)
		if err != nil {
			err = classifyTransport(op, err)
			if !isRecoverable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}

	notify := func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(op).Inc()
		f.logger.Debug("retrying AI request", "operation", op, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		err = classifyTransport(op, err)
		f.record(op, err)
		return zero, err
	}

	return result, nil
}

// record counts the outcome and logs failures.
func (f *Facade) record(op string, err error) {
	requestsTotal.WithLabelValues(op, outcome(err)).Inc()
	if err != nil && !errors.Is(err, ErrNoCredential) {
		f.logger.Warn("AI request failed", "operation", op, "error", err)
	}
}
