package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// PostgresTradeRepository implements TradeRepository for PostgreSQL
type PostgresTradeRepository struct {
	db *database.DB
}

// NewPostgresTradeRepository creates a new trade repository
func NewPostgresTradeRepository(db *database.DB) TradeRepository {
	return &PostgresTradeRepository{db: db}
}

// InsertBatch inserts closed trades for a backtest result in one batch
func (r *PostgresTradeRepository) InsertBatch(ctx context.Context, resultID uuid.UUID, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO backtest_trades (
			result_id, entry_time, exit_time, side, entry_price, exit_price,
			lot_size, profit_loss, duration_hours, exit_reason, nanpin_count, commission
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, t := range trades {
		batch.Queue(query, resultID, t.EntryTime, t.ExitTime, string(t.Side), t.EntryPrice,
			t.ExitPrice, t.LotSize, t.ProfitLoss, t.DurationHours, string(t.ExitReason),
			t.NanpinCount, t.Commission)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range trades {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert trade batch: %w", err)
		}
	}
	return nil
}

// GetByResultID returns stored trades ordered by entry time ascending
func (r *PostgresTradeRepository) GetByResultID(ctx context.Context, resultID uuid.UUID) ([]models.Trade, error) {
	query := `
		SELECT entry_time, exit_time, side, entry_price, exit_price, lot_size,
			profit_loss, duration_hours, exit_reason, nanpin_count, commission
		FROM backtest_trades
		WHERE result_id = $1
		ORDER BY entry_time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var side, reason string
		if err := rows.Scan(&t.EntryTime, &t.ExitTime, &side, &t.EntryPrice, &t.ExitPrice,
			&t.LotSize, &t.ProfitLoss, &t.DurationHours, &reason, &t.NanpinCount, &t.Commission); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Side = models.PositionSide(side)
		t.ExitReason = models.ExitReason(reason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
