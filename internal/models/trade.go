package models

import "time"

// ExitReason explains why a position was closed
type ExitReason string

// Exit reasons
const (
	ExitStopLoss       ExitReason = "STOP_LOSS"
	ExitTakeProfit     ExitReason = "TAKE_PROFIT"
	ExitSignalReversal ExitReason = "SIGNAL_REVERSAL"
	ExitEndOfTest      ExitReason = "END_OF_TEST"
)

// Trade is a closed round trip. Created exactly once per position close and
// never mutated afterwards.
type Trade struct {
	EntryTime     time.Time    `db:"entry_time" json:"entry_time"`
	ExitTime      time.Time    `db:"exit_time" json:"exit_time"`
	Side          PositionSide `db:"side" json:"side"`
	EntryPrice    float64      `db:"entry_price" json:"entry_price"`
	ExitPrice     float64      `db:"exit_price" json:"exit_price"`
	LotSize       float64      `db:"lot_size" json:"lot_size"`
	ProfitLoss    float64      `db:"profit_loss" json:"profit_loss"`
	DurationHours float64      `db:"duration_hours" json:"duration_hours"`
	ExitReason    ExitReason   `db:"exit_reason" json:"exit_reason"`
	NanpinCount   int          `db:"nanpin_count" json:"nanpin_count"`
	Commission    float64      `db:"commission" json:"commission"`
}

// EquityPoint is one sample of the equity curve, recorded every replayed bar
type EquityPoint struct {
	Time          time.Time     `db:"point_time" json:"time"`
	Equity        float64       `db:"equity" json:"equity"`
	Balance       float64       `db:"balance" json:"balance"`
	UnrealizedPnL float64       `db:"unrealized_pnl" json:"unrealized_pnl"`
	PositionSide  *PositionSide `db:"position_side" json:"position_side,omitempty"`
	Price         float64       `db:"price" json:"price"`
}
