package models

import "time"

// Timeframe identifies the bar aggregation interval
type Timeframe string

// Supported timeframes
const (
	TimeframeM15 Timeframe = "M15"
	TimeframeM30 Timeframe = "M30"
	TimeframeH1  Timeframe = "H1"
	TimeframeH4  Timeframe = "H4"
)

// Duration returns the wall-clock length of one bar
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeM15:
		return 15 * time.Minute
	case TimeframeM30:
		return 30 * time.Minute
	case TimeframeH1:
		return time.Hour
	case TimeframeH4:
		return 4 * time.Hour
	default:
		return 0
	}
}

// IsValid reports whether the timeframe is one of the supported intervals
func (t Timeframe) IsValid() bool {
	return t.Duration() > 0
}

// Bar represents one OHLCV price bar
type Bar struct {
	Time   time.Time `db:"bar_time" json:"time"`
	Open   float64   `db:"open" json:"open"`
	High   float64   `db:"high" json:"high"`
	Low    float64   `db:"low" json:"low"`
	Close  float64   `db:"close" json:"close"`
	Volume float64   `db:"volume" json:"volume"`
}

// Signal is the discrete output of the strategy oracle
type Signal string

// Oracle signals
const (
	SignalHold Signal = "HOLD"
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)
