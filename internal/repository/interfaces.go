// Package repository provides PostgreSQL data access for bars and backtest results.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// BarRepository defines the interface for historical bar data access
type BarRepository interface {
	InsertBatch(ctx context.Context, symbol string, timeframe models.Timeframe, bars []models.Bar) error
	GetRange(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error)
	CountRange(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) (int, error)
}

// BacktestResultRepository defines backtest summary persistence
type BacktestResultRepository interface {
	Create(ctx context.Context, record *models.BacktestRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRecord, error)
	GetBySymbol(ctx context.Context, symbol string, limit int) ([]*models.BacktestRecord, error)
	GetTopPerforming(ctx context.Context, metric string, limit int) ([]*models.BacktestRecord, error)
}

// EquityCurveRepository defines equity curve time-series persistence
type EquityCurveRepository interface {
	InsertBatch(ctx context.Context, resultID uuid.UUID, points []models.EquityPoint) error
	GetByResultID(ctx context.Context, resultID uuid.UUID) ([]models.EquityPoint, error)
}

// TradeRepository defines closed trade persistence
type TradeRepository interface {
	InsertBatch(ctx context.Context, resultID uuid.UUID, trades []models.Trade) error
	GetByResultID(ctx context.Context, resultID uuid.UUID) ([]models.Trade, error)
}
