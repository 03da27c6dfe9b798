package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// PostgresEquityCurveRepository implements EquityCurveRepository for PostgreSQL
type PostgresEquityCurveRepository struct {
	db *database.DB
}

// NewPostgresEquityCurveRepository creates a new equity curve repository
func NewPostgresEquityCurveRepository(db *database.DB) EquityCurveRepository {
	return &PostgresEquityCurveRepository{db: db}
}

// InsertBatch inserts equity points for a backtest result in one batch
func (r *PostgresEquityCurveRepository) InsertBatch(ctx context.Context, resultID uuid.UUID, points []models.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO equity_curves (result_id, point_time, equity, balance, unrealized_pnl, position_side, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, p := range points {
		var side *string
		if p.PositionSide != nil {
			s := string(*p.PositionSide)
			side = &s
		}
		batch.Queue(query, resultID, p.Time, p.Equity, p.Balance, p.UnrealizedPnL, side, p.Price)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range points {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert equity point batch: %w", err)
		}
	}
	return nil
}

// GetByResultID returns the stored equity curve ordered by time ascending
func (r *PostgresEquityCurveRepository) GetByResultID(ctx context.Context, resultID uuid.UUID) ([]models.EquityPoint, error) {
	query := `
		SELECT point_time, equity, balance, unrealized_pnl, position_side, price
		FROM equity_curves
		WHERE result_id = $1
		ORDER BY point_time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity curve: %w", err)
	}
	defer rows.Close()

	var points []models.EquityPoint
	for rows.Next() {
		var p models.EquityPoint
		var side *string
		if err := rows.Scan(&p.Time, &p.Equity, &p.Balance, &p.UnrealizedPnL, &side, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		if side != nil {
			s := models.PositionSide(*side)
			p.PositionSide = &s
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
