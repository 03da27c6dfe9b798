package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// Metrics columns permitted for ORDER BY in GetTopPerforming. Interpolating an
// unchecked caller value into SQL is not an option.
var rankableMetrics = map[string]string{
	"sharpe_ratio":  "sharpe_ratio",
	"profit_factor": "profit_factor",
	"net_profit":    "net_profit",
	"win_rate":      "win_rate",
}

// PostgresBacktestResultRepository implements BacktestResultRepository for PostgreSQL
type PostgresBacktestResultRepository struct {
	db *database.DB
}

// NewPostgresBacktestResultRepository creates a new backtest result repository
func NewPostgresBacktestResultRepository(db *database.DB) BacktestResultRepository {
	return &PostgresBacktestResultRepository{db: db}
}

// Create inserts a backtest summary record
func (r *PostgresBacktestResultRepository) Create(ctx context.Context, record *models.BacktestRecord) error {
	query := `
		INSERT INTO backtest_results (
			id, symbol, timeframe, start_date, end_date, initial_balance, final_balance,
			total_trades, win_rate, net_profit, profit_factor, max_drawdown_percent,
			sharpe_ratio, parameters, run_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		record.ID, record.Symbol, string(record.Timeframe), record.StartDate, record.EndDate,
		record.InitialBalance, record.FinalBalance, record.TotalTrades, record.WinRate,
		record.NetProfit, record.ProfitFactor, record.MaxDrawdownPercent, record.SharpeRatio,
		record.Parameters, record.RunDate,
	)
	if err != nil {
		return fmt.Errorf("failed to create backtest result: %w", err)
	}
	return nil
}

// GetByID retrieves a backtest summary by ID
func (r *PostgresBacktestResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRecord, error) {
	query := selectColumns + ` WHERE id = $1`

	record := &models.BacktestRecord{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(scanTargets(record)...)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest result: %w", err)
	}
	return record, nil
}

// GetBySymbol retrieves recent backtest summaries for a symbol
func (r *PostgresBacktestResultRepository) GetBySymbol(ctx context.Context, symbol string, limit int) ([]*models.BacktestRecord, error) {
	query := selectColumns + ` WHERE symbol = $1 ORDER BY run_date DESC LIMIT $2`
	return r.queryRecords(ctx, query, symbol, limit)
}

// GetTopPerforming retrieves the best summaries ranked by a metric column
func (r *PostgresBacktestResultRepository) GetTopPerforming(ctx context.Context, metric string, limit int) ([]*models.BacktestRecord, error) {
	column, ok := rankableMetrics[metric]
	if !ok {
		return nil, fmt.Errorf("metric %q is not rankable", metric)
	}
	query := selectColumns + fmt.Sprintf(" ORDER BY %s DESC LIMIT $1", column)
	return r.queryRecords(ctx, query, limit)
}

const selectColumns = `
	SELECT id, symbol, timeframe, start_date, end_date, initial_balance, final_balance,
		total_trades, win_rate, net_profit, profit_factor, max_drawdown_percent,
		sharpe_ratio, parameters, run_date, created_at
	FROM backtest_results
`

func scanTargets(record *models.BacktestRecord) []interface{} {
	return []interface{}{
		&record.ID, &record.Symbol, &record.Timeframe, &record.StartDate, &record.EndDate,
		&record.InitialBalance, &record.FinalBalance, &record.TotalTrades, &record.WinRate,
		&record.NetProfit, &record.ProfitFactor, &record.MaxDrawdownPercent,
		&record.SharpeRatio, &record.Parameters, &record.RunDate, &record.CreatedAt,
	}
}

func (r *PostgresBacktestResultRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*models.BacktestRecord, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()

	var records []*models.BacktestRecord
	for rows.Next() {
		record := &models.BacktestRecord{}
		if err := rows.Scan(scanTargets(record)...); err != nil {
			return nil, fmt.Errorf("failed to scan backtest result: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
