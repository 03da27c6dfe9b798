package metrics

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)

	// repeated initialization returns the same registry
	assert.Same(t, registry, InitRegistry())
}

func TestRecordBacktestRun(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordBacktestRun("success", 0.5)
		RecordBacktestRun("error", 0.1)
		RecordBacktestRun("fetch_error", 0.1)
	})
}

func TestRecordOptimizerIteration(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordOptimizerIteration("grid", true)
		RecordOptimizerIteration("random", false)
	})
}

func TestGaugesAndHistograms(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		OptimizerBestScore.WithLabelValues("sharpe_ratio").Set(1.8)
		OptimizerActiveWorkers.Inc()
		OptimizerActiveWorkers.Dec()
		SweepDuration.Observe(42)
		SweepCellsTotal.WithLabelValues("success").Inc()
		SinkWriteFailuresTotal.WithLabelValues("summary").Inc()
	})
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()

	handler := Handler()
	assert.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)
}
