package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdoc_llm_requests_total",
			Help: "Total number of requests to text generation providers.",
		},
		[]string{"provider", "status"},
	)
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderdoc_llm_request_duration_seconds",
			Help:    "Histogram of provider request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	llmCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderdoc_llm_cache_lookups_total",
			Help: "Response cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)
	llmEstimatedTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderdoc_llm_estimated_tokens",
			Help:    "Estimated token counts of prompts and completions.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10), // 64 .. 32768
		},
		[]string{"provider", "direction"},
	)
	llmFailoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderdoc_llm_failovers_total",
			Help: "Number of calls answered by a non-primary provider.",
		},
	)
)
