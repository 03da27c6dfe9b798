package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/repository"
)

// PostgresProvider serves historical bars from the local price_bars table
type PostgresProvider struct {
	bars   repository.BarRepository
	logger *logrus.Logger
}

// NewPostgresProvider creates a provider backed by the bar repository
func NewPostgresProvider(bars repository.BarRepository, logger *logrus.Logger) *PostgresProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &PostgresProvider{bars: bars, logger: logger}
}

// Name returns the provider name
func (p *PostgresProvider) Name() string {
	return "postgres"
}

// FetchBars loads bars for [start, end) ordered by time ascending
func (p *PostgresProvider) FetchBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	if !timeframe.IsValid() {
		return nil, NewProviderError(p.Name(), ErrCodeInvalidData, fmt.Sprintf("unsupported timeframe %q", timeframe), nil)
	}

	bars, err := p.bars.GetRange(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, NewProviderError(p.Name(), ErrCodeServerError, "bar range query failed", err)
	}

	p.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"timeframe": timeframe,
		"bars":      len(bars),
	}).Debug("Fetched historical bars")

	return bars, nil
}
