package sink

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/metrics"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/repository"
)

const (
	maxEquityPoints = 1000
	maxTrades       = 100
)

// PostgresSink persists results through the repository layer
type PostgresSink struct {
	repos  *repository.Repositories
	logger *logrus.Logger
}

// NewPostgresSink creates a repository-backed result sink
func NewPostgresSink(repos *repository.Repositories, logger *logrus.Logger) (*PostgresSink, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PostgresSink{repos: repos, logger: logger}, nil
}

// SaveSummary persists the backtest summary record
func (s *PostgresSink) SaveSummary(ctx context.Context, record *models.BacktestRecord) error {
	if err := s.repos.BacktestResult.Create(ctx, record); err != nil {
		metrics.SinkWriteFailuresTotal.WithLabelValues("summary").Inc()
		s.logger.WithFields(logrus.Fields{
			"result_id": record.ID,
			"error":     err,
		}).Error("Failed to persist backtest summary")
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// SaveEquityCurve persists the equity curve, subsampled to at most 1000
// points to bound row counts per run
func (s *PostgresSink) SaveEquityCurve(ctx context.Context, resultID uuid.UUID, points []models.EquityPoint) error {
	subsampled := SubsampleEquity(points, maxEquityPoints)
	if err := s.repos.EquityCurve.InsertBatch(ctx, resultID, subsampled); err != nil {
		metrics.SinkWriteFailuresTotal.WithLabelValues("equity_curve").Inc()
		s.logger.WithFields(logrus.Fields{
			"result_id": resultID,
			"points":    len(subsampled),
			"error":     err,
		}).Error("Failed to persist equity curve")
		return fmt.Errorf("failed to save equity curve: %w", err)
	}
	return nil
}

// SaveTrades persists up to the first 100 trades
func (s *PostgresSink) SaveTrades(ctx context.Context, resultID uuid.UUID, trades []models.Trade) error {
	if len(trades) > maxTrades {
		trades = trades[:maxTrades]
	}
	if err := s.repos.Trade.InsertBatch(ctx, resultID, trades); err != nil {
		metrics.SinkWriteFailuresTotal.WithLabelValues("trades").Inc()
		s.logger.WithFields(logrus.Fields{
			"result_id": resultID,
			"trades":    len(trades),
			"error":     err,
		}).Error("Failed to persist trades")
		return fmt.Errorf("failed to save trades: %w", err)
	}
	return nil
}

// SubsampleEquity uniformly strides the curve down to at most max points,
// always keeping the final point
func SubsampleEquity(points []models.EquityPoint, max int) []models.EquityPoint {
	if len(points) <= max || max <= 0 {
		return points
	}

	out := make([]models.EquityPoint, 0, max)
	stride := float64(len(points)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, points[int(float64(i)*stride)])
	}
	out[len(out)-1] = points[len(points)-1]
	return out
}
