package repository

import (
	"fmt"

	"github.com/yourusername/fx-optimizer/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Bar            BarRepository
	BacktestResult BacktestResultRepository
	EquityCurve    EquityCurveRepository
	Trade          TradeRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Bar:            NewPostgresBarRepository(db),
		BacktestResult: NewPostgresBacktestResultRepository(db),
		EquityCurve:    NewPostgresEquityCurveRepository(db),
		Trade:          NewPostgresTradeRepository(db),
	}, nil
}
