package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BacktestRecord represents a persisted backtest summary row.
// Parameters holds the serialized strategy parameter map; the typed struct
// lives in the backtest package and is only marshalled at this boundary.
type BacktestRecord struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	Symbol             string          `db:"symbol" json:"symbol"`
	Timeframe          Timeframe       `db:"timeframe" json:"timeframe"`
	StartDate          time.Time       `db:"start_date" json:"start_date"`
	EndDate            time.Time       `db:"end_date" json:"end_date"`
	InitialBalance     float64         `db:"initial_balance" json:"initial_balance"`
	FinalBalance       float64         `db:"final_balance" json:"final_balance"`
	TotalTrades        int             `db:"total_trades" json:"total_trades"`
	WinRate            float64         `db:"win_rate" json:"win_rate"`
	NetProfit          float64         `db:"net_profit" json:"net_profit"`
	ProfitFactor       float64         `db:"profit_factor" json:"profit_factor"`
	MaxDrawdownPercent float64         `db:"max_drawdown_percent" json:"max_drawdown_percent"`
	SharpeRatio        float64         `db:"sharpe_ratio" json:"sharpe_ratio"`
	Parameters         json.RawMessage `db:"parameters" json:"parameters"`
	RunDate            time.Time       `db:"run_date" json:"run_date"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}
