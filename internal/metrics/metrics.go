// Package metrics provides the centralized Prometheus metrics registry.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_optimizer",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest jobs run",
	}, []string{"status"})
	OptimizerIterationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_optimizer",
		Name:      "optimizer_iterations_total",
		Help:      "Total number of optimizer candidate evaluations",
	}, []string{"strategy", "valid"})
	SweepCellsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_optimizer",
		Name:      "sweep_cells_total",
		Help:      "Total number of sweep symbol/timeframe cells processed",
	}, []string{"status"})
	SinkWriteFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fx_optimizer",
		Name:      "sink_write_failures_total",
		Help:      "Total number of failed result sink writes",
	}, []string{"write"})
)

// Gauge metrics
var (
	OptimizerBestScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fx_optimizer",
		Name:      "optimizer_best_score",
		Help:      "Best objective score observed by the current optimization",
	}, []string{"metric"})
	OptimizerActiveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fx_optimizer",
		Name:      "optimizer_active_workers",
		Help:      "Number of optimizer workers currently evaluating a candidate",
	})
)

// Histogram metrics
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fx_optimizer",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest jobs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fx_optimizer",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of full sweeps in seconds",
		Buckets:   []float64{10, 60, 300, 600, 1800, 3600, 7200},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(OptimizerIterationsTotal)
		registry.MustRegister(SweepCellsTotal)
		registry.MustRegister(SinkWriteFailuresTotal)

		registry.MustRegister(OptimizerBestScore)
		registry.MustRegister(OptimizerActiveWorkers)

		registry.MustRegister(BacktestDuration)
		registry.MustRegister(SweepDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler. Oracle client metrics live on
// the default registry, so both gatherers are served.
func Handler() http.Handler {
	gatherers := prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// RecordBacktestRun records one completed backtest job.
func RecordBacktestRun(status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// RecordOptimizerIteration records one candidate evaluation.
func RecordOptimizerIteration(strategy string, valid bool) {
	validLabel := "false"
	if valid {
		validLabel = "true"
	}
	OptimizerIterationsTotal.WithLabelValues(strategy, validLabel).Inc()
}
