package backtest

import "errors"

var (
	// ErrInsufficientData indicates too few bars to run a meaningful replay.
	// Fatal to the affected job only.
	ErrInsufficientData = errors.New("insufficient historical data")

	// ErrOracleUnusable indicates the oracle failed for the whole run
	ErrOracleUnusable = errors.New("oracle unusable for this run")
)
