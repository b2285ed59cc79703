// Package logging provides a slog handler that counts warnings and errors
// in Prometheus, so operators can alert on them without scraping logs.
package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event categories used as metric labels.
const (
	CategoryAuth    = "auth"
	CategoryStore   = "store"
	CategoryAI      = "ai"
	CategoryHTTP    = "http"
	CategorySystem  = "system"
	categoryAttrKey = "category"
)

// EventsTotal counts log records at or above the handler threshold.
var EventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bsr",
		Subsystem: "log",
		Name:      "events_total",
		Help:      "Log records at WARN level and above, by level and category.",
	},
	[]string{"level", "category"},
)

// EventCountHandler is a slog.Handler that wraps another handler and
// counts WARN and ERROR records by category.
type EventCountHandler struct {
	inner   slog.Handler
	counter *prometheus.CounterVec
	level   slog.Level // Minimum level to count (default: WARN)
	attrs   []slog.Attr
}

// NewEventCountHandler creates a handler counting into EventsTotal.
func NewEventCountHandler(inner slog.Handler) *EventCountHandler {
	return NewEventCountHandlerWithCounter(inner, EventsTotal, slog.LevelWarn)
}

// NewEventCountHandlerWithCounter creates a handler with a custom counter
// and minimum level.
func NewEventCountHandlerWithCounter(inner slog.Handler, counter *prometheus.CounterVec, level slog.Level) *EventCountHandler {
	return &EventCountHandler{
		inner:   inner,
		counter: counter,
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventCountHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventCountHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		h.counter.WithLabelValues(levelLabel(r.Level), h.extractCategory(r)).Inc()
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *EventCountHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventCountHandler{
		inner:   h.inner.WithAttrs(attrs),
		counter: h.counter,
		level:   h.level,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *EventCountHandler) WithGroup(name string) slog.Handler {
	return &EventCountHandler{
		inner:   h.inner.WithGroup(name),
		counter: h.counter,
		level:   h.level,
		attrs:   h.attrs,
	}
}

func levelLabel(level slog.Level) string {
	if level >= slog.LevelError {
		return "error"
	}
	return "warn"
}

// extractCategory looks for a "category" attribute on the record or the
// handler, and otherwise infers one from the message.
func (h *EventCountHandler) extractCategory(r slog.Record) string {
	var category string

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == categoryAttrKey {
			category = a.Value.String()
			return false
		}
		return true
	})
	if category != "" {
		return category
	}

	for _, a := range h.attrs {
		if a.Key == categoryAttrKey {
			return a.Value.String()
		}
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "signup") ||
		strings.Contains(msg, "role") || strings.Contains(msg, "csrf"):
		return CategoryAuth
	case strings.Contains(msg, "collection") || strings.Contains(msg, "storage") ||
		strings.Contains(msg, "corrupt"):
		return CategoryStore
	case strings.Contains(msg, "ai ") || strings.HasPrefix(msg, "ai") ||
		strings.Contains(msg, "chat") || strings.Contains(msg, "provider"):
		return CategoryAI
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "request"):
		return CategoryHTTP
	default:
		return CategorySystem
	}
}
