package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// PostgresBarRepository implements BarRepository for PostgreSQL
type PostgresBarRepository struct {
	db *database.DB
}

// NewPostgresBarRepository creates a new bar repository
func NewPostgresBarRepository(db *database.DB) BarRepository {
	return &PostgresBarRepository{db: db}
}

// InsertBatch inserts bars in a single batch, ignoring duplicate timestamps
func (r *PostgresBarRepository) InsertBatch(ctx context.Context, symbol string, timeframe models.Timeframe, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO price_bars (symbol, timeframe, bar_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, bar_time) DO NOTHING
	`
	for _, bar := range bars {
		batch.Queue(query, symbol, string(timeframe), bar.Time, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert bar batch: %w", err)
		}
	}
	return nil
}

// GetRange returns bars in [start, end) ordered by time ascending
func (r *PostgresBarRepository) GetRange(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	query := `
		SELECT bar_time, open, high, low, close, volume
		FROM price_bars
		WHERE symbol = $1 AND timeframe = $2 AND bar_time >= $3 AND bar_time < $4
		ORDER BY bar_time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, symbol, string(timeframe), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var bar models.Bar
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, bar)
	}

	return bars, rows.Err()
}

// CountRange returns the number of stored bars in [start, end)
func (r *PostgresBarRepository) CountRange(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM price_bars
		WHERE symbol = $1 AND timeframe = $2 AND bar_time >= $3 AND bar_time < $4
	`

	var count int
	err := r.db.GetPool().QueryRow(ctx, query, symbol, string(timeframe), start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return count, nil
}
