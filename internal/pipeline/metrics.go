package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderdoc_pipeline_stage_duration_seconds",
			Help:    "Duration of documentation pipeline stages.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"stage", "status"},
	)
	verifierCompleteness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orderdoc_pipeline_verifier_completeness",
			Help:    "Completeness scores reported by the verifier stage.",
			Buckets: []float64{0.2, 0.4, 0.6, 0.8, 0.9, 1},
		},
	)
)
