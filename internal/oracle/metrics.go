// Package oracle provides Prometheus metrics for inference operations.
package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal tracks total oracle predictions
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_predictions_total",
			Help: "Total number of oracle predictions made",
		},
		[]string{"source", "cache_hit"},
	)

	// PredictionLatency tracks oracle prediction latency
	PredictionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_prediction_latency_seconds",
			Help:    "Oracle prediction latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CacheHitRatio tracks prediction cache hit ratio
	CacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_cache_hit_ratio",
			Help: "Oracle prediction cache hit ratio",
		},
	)

	// ErrorsTotal tracks inference errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_errors_total",
			Help: "Total number of oracle inference errors",
		},
		[]string{"error_type"},
	)
)
