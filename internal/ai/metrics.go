package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bsr",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "AI façade operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bsr",
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Latency of AI façade operations including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bsr",
			Subsystem: "ai",
			Name:      "retries_total",
			Help:      "Retried remote calls.",
		},
		[]string{"operation"},
	)

	chatSessionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bsr",
			Subsystem: "ai",
			Name:      "chat_sessions_open",
			Help:      "Chat sessions created and not yet closed.",
		},
	)

	streamFragmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bsr",
			Subsystem: "ai",
			Name:      "stream_fragments_total",
			Help:      "Chat reply fragments delivered to callers.",
		},
	)
)
