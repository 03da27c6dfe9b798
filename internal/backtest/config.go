// Package backtest implements the trade simulator, statistics engine and
// backtest job runner.
package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/fx-optimizer/internal/config"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// Pip and lot conventions for JPY-quoted pairs. Other quote currencies would
// need per-instrument metadata that the platform does not carry yet.
const (
	PipSize        = 0.01
	PipValuePerLot = 1000.0
)

const (
	warmupBars     = 100
	minUsableBars  = 200
	recentCloseLen = 20
)

// StrategyParams are the tunable strategy inputs for one backtest run.
// Named fields replace the free-form parameter maps that cross the API
// boundary; conversion happens only at that boundary.
type StrategyParams struct {
	RiskPerTrade       float64            `json:"risk_per_trade"`
	StopLossPips       float64            `json:"stop_loss_pips"`
	TakeProfitPips     float64            `json:"take_profit_pips"`
	MinConfidence      float64            `json:"min_confidence"`
	UseNanpin          bool               `json:"use_nanpin"`
	NanpinMaxCount     int                `json:"nanpin_max_count"`
	NanpinIntervalPips float64            `json:"nanpin_interval_pips"`
	CommissionPerLot   float64            `json:"commission_per_lot"`
	SpreadPips         float64            `json:"spread_pips"`
	ModelParams        map[string]float64 `json:"model_params,omitempty"`
}

// WithValues returns a copy of the parameters with the named numeric values
// applied. Unknown keys are treated as model hyperparameters.
func (p StrategyParams) WithValues(values map[string]float64) StrategyParams {
	out := p
	if p.ModelParams != nil {
		out.ModelParams = make(map[string]float64, len(p.ModelParams))
		for k, v := range p.ModelParams {
			out.ModelParams[k] = v
		}
	}

	for key, value := range values {
		switch key {
		case "risk_per_trade":
			out.RiskPerTrade = value
		case "stop_loss_pips":
			out.StopLossPips = value
		case "take_profit_pips":
			out.TakeProfitPips = value
		case "min_confidence":
			out.MinConfidence = value
		case "use_nanpin":
			out.UseNanpin = value != 0
		case "nanpin_max_count":
			out.NanpinMaxCount = int(value)
		case "nanpin_interval_pips":
			out.NanpinIntervalPips = value
		case "commission_per_lot":
			out.CommissionPerLot = value
		case "spread_pips":
			out.SpreadPips = value
		default:
			if out.ModelParams == nil {
				out.ModelParams = make(map[string]float64)
			}
			out.ModelParams[key] = value
		}
	}
	return out
}

// ToMap flattens the parameters into a numeric map for sensitivity analysis
// and serialized reporting
func (p StrategyParams) ToMap() map[string]float64 {
	m := map[string]float64{
		"risk_per_trade":       p.RiskPerTrade,
		"stop_loss_pips":       p.StopLossPips,
		"take_profit_pips":     p.TakeProfitPips,
		"min_confidence":       p.MinConfidence,
		"nanpin_max_count":     float64(p.NanpinMaxCount),
		"nanpin_interval_pips": p.NanpinIntervalPips,
		"commission_per_lot":   p.CommissionPerLot,
		"spread_pips":          p.SpreadPips,
	}
	if p.UseNanpin {
		m["use_nanpin"] = 1
	} else {
		m["use_nanpin"] = 0
	}
	for k, v := range p.ModelParams {
		m[k] = v
	}
	return m
}

// Config describes one backtest job. Immutable once a run starts.
type Config struct {
	Symbol         string
	Timeframe      models.Timeframe
	StartDate      time.Time
	EndDate        time.Time
	InitialBalance float64
	ModelVersion   string
	Params         StrategyParams
}

// FromConfig converts app config defaults to a runtime backtest config
func FromConfig(cfg *config.BacktestConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("backtest config is required")
	}
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return Config{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.EndDate)
	if err != nil {
		return Config{}, fmt.Errorf("invalid end date: %w", err)
	}

	bt := Config{
		Symbol:         cfg.Symbol,
		Timeframe:      models.Timeframe(cfg.Timeframe),
		StartDate:      start,
		EndDate:        end,
		InitialBalance: cfg.InitialBalance,
		Params: StrategyParams{
			RiskPerTrade:       cfg.RiskPerTrade,
			StopLossPips:       cfg.StopLossPips,
			TakeProfitPips:     cfg.TakeProfitPips,
			MinConfidence:      cfg.MinConfidence,
			UseNanpin:          cfg.UseNanpin,
			NanpinMaxCount:     cfg.NanpinMaxCount,
			NanpinIntervalPips: cfg.NanpinIntervalPips,
			CommissionPerLot:   cfg.CommissionPerLot,
			SpreadPips:         cfg.SpreadPips,
		},
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !c.Timeframe.IsValid() {
		return fmt.Errorf("unsupported timeframe %q", c.Timeframe)
	}
	if !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("start date must be before end date")
	}
	if c.InitialBalance <= 0 {
		return fmt.Errorf("initial balance must be positive")
	}
	if c.Params.RiskPerTrade <= 0 || c.Params.RiskPerTrade > 0.1 {
		return fmt.Errorf("risk per trade must be between 0 and 0.1")
	}
	if c.Params.StopLossPips <= 0 {
		return fmt.Errorf("stop loss pips must be positive")
	}
	if c.Params.TakeProfitPips <= 0 {
		return fmt.Errorf("take profit pips must be positive")
	}
	if c.Params.MinConfidence < 0 || c.Params.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1")
	}
	if c.Params.UseNanpin {
		if c.Params.NanpinMaxCount <= 0 {
			return fmt.Errorf("nanpin max count must be positive when nanpin is enabled")
		}
		if c.Params.NanpinIntervalPips <= 0 {
			return fmt.Errorf("nanpin interval pips must be positive when nanpin is enabled")
		}
	}
	return nil
}
