// Package sink persists completed backtest results. Writes are
// fire-and-forget from the job runner's perspective: each of the three
// writes fails in isolation and never invalidates the in-memory result.
package sink

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/fx-optimizer/internal/models"
)

// ResultSink receives the three independent writes of a completed job
type ResultSink interface {
	SaveSummary(ctx context.Context, record *models.BacktestRecord) error
	SaveEquityCurve(ctx context.Context, resultID uuid.UUID, points []models.EquityPoint) error
	SaveTrades(ctx context.Context, resultID uuid.UUID, trades []models.Trade) error
}

// NoopSink discards all writes. Used for ad-hoc runs and optimizer
// candidates that should not be persisted.
type NoopSink struct{}

// NewNoopSink creates a sink that discards everything
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

// SaveSummary discards the record
func (s *NoopSink) SaveSummary(ctx context.Context, record *models.BacktestRecord) error {
	return nil
}

// SaveEquityCurve discards the points
func (s *NoopSink) SaveEquityCurve(ctx context.Context, resultID uuid.UUID, points []models.EquityPoint) error {
	return nil
}

// SaveTrades discards the trades
func (s *NoopSink) SaveTrades(ctx context.Context, resultID uuid.UUID, trades []models.Trade) error {
	return nil
}
