package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 上下文请求结果标签
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultError    = "error"
	ResultDegraded = "degraded"
)

var (
	// RequestsTotal counts total requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDuration measures request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"service", "method", "path"},
	)

	// ContextRequestsTotal counts conversation context lookups by result.
	ContextRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_context_requests_total",
			Help: "Conversation context lookups by cache result",
		},
		[]string{"result"},
	)

	// ContextBuildDuration measures retrieve+format time on cache miss.
	ContextBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conversation_context_build_duration_seconds",
			Help:    "Time spent recomputing conversation context on cache miss",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		},
	)

	// ContextTokens records the token size of rendered context.
	ContextTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conversation_context_tokens",
			Help:    "Token count of rendered conversation context",
			Buckets: []float64{0, 25, 50, 100, 200, 300, 400, 500, 750, 1000},
		},
	)

	// ContextTruncationsTotal counts renders that had to drop conversations.
	ContextTruncationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_context_truncations_total",
			Help: "Conversation context renders that dropped older conversations",
		},
		[]string{"tier"}, // drop_oldest, fallback_sentence, empty
	)

	// ContextInvalidationsTotal counts cache invalidations.
	ContextInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_context_invalidations_total",
			Help: "Conversation context cache invalidations by status",
		},
		[]string{"status"},
	)

	// TokenizerFallbacksTotal counts token counts served by the estimator.
	TokenizerFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenizer_fallbacks_total",
			Help: "Token counts that fell back to the character estimator",
		},
		[]string{"model"},
	)
)
