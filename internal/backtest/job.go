package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/datasource"
	"github.com/yourusername/fx-optimizer/internal/metrics"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/oracle"
	"github.com/yourusername/fx-optimizer/internal/sink"
)

// Result is the in-memory outcome of one backtest job. It is complete and
// valid regardless of whether persistence succeeded.
type Result struct {
	ID          uuid.UUID
	Config      Config
	Trades      []models.Trade
	EquityCurve []models.EquityPoint
	Stats       Statistics
	StartedAt   time.Time
	CompletedAt time.Time
}

// ToRecord converts the result to its persisted summary form
func (r *Result) ToRecord() (*models.BacktestRecord, error) {
	params, err := json.Marshal(r.Config.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	return &models.BacktestRecord{
		ID:                 r.ID,
		Symbol:             r.Config.Symbol,
		Timeframe:          r.Config.Timeframe,
		StartDate:          r.Config.StartDate,
		EndDate:            r.Config.EndDate,
		InitialBalance:     r.Config.InitialBalance,
		FinalBalance:       r.Stats.FinalBalance,
		TotalTrades:        r.Stats.TotalTrades,
		WinRate:            r.Stats.WinRate,
		NetProfit:          r.Stats.NetProfit,
		ProfitFactor:       r.Stats.ProfitFactor,
		MaxDrawdownPercent: r.Stats.MaxDrawdownPercent,
		SharpeRatio:        r.Stats.SharpeRatio,
		Parameters:         params,
		RunDate:            r.CompletedAt,
	}, nil
}

// Runner composes the data provider, simulator, statistics engine and
// result sink into one backtest job evaluation
type Runner struct {
	provider  datasource.Provider
	oracle    oracle.Oracle
	sink      sink.ResultSink
	simulator *Simulator
	logger    *logrus.Logger
}

// NewRunner creates a backtest job runner
func NewRunner(provider datasource.Provider, orc oracle.Oracle, resultSink sink.ResultSink, logger *logrus.Logger) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("data provider is required")
	}
	if orc == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if resultSink == nil {
		resultSink = sink.NewNoopSink()
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Runner{
		provider:  provider,
		oracle:    orc,
		sink:      resultSink,
		simulator: NewSimulator(logger),
		logger:    logger,
	}, nil
}

// Run fetches bars, replays them through the oracle, reduces statistics and
// hands the result to the sink. Sink failures are logged and never affect
// the returned result.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	started := time.Now()

	bars, err := r.provider.FetchBars(ctx, cfg.Symbol, cfg.Timeframe, cfg.StartDate, cfg.EndDate)
	if err != nil {
		metrics.RecordBacktestRun("fetch_error", time.Since(started).Seconds())
		return nil, fmt.Errorf("failed to fetch bars: %w", err)
	}

	trades, equityCurve, err := r.simulator.Simulate(ctx, cfg, bars, r.oracle)
	if err != nil {
		metrics.RecordBacktestRun("error", time.Since(started).Seconds())
		return nil, err
	}

	result := &Result{
		ID:          uuid.New(),
		Config:      cfg,
		Trades:      trades,
		EquityCurve: equityCurve,
		Stats:       ComputeStatistics(trades, equityCurve, cfg.InitialBalance),
		StartedAt:   started,
		CompletedAt: time.Now(),
	}

	r.persist(ctx, result)
	metrics.RecordBacktestRun("success", time.Since(started).Seconds())

	r.logger.WithFields(logrus.Fields{
		"job_id":        result.ID,
		"symbol":        cfg.Symbol,
		"timeframe":     cfg.Timeframe,
		"trades":        result.Stats.TotalTrades,
		"net_profit":    result.Stats.NetProfit,
		"final_balance": result.Stats.FinalBalance,
	}).Info("Backtest job complete")

	return result, nil
}

// persist issues the three sink writes. Each failure is already logged by
// the sink; errors are swallowed here so the result survives.
func (r *Runner) persist(ctx context.Context, result *Result) {
	record, err := result.ToRecord()
	if err != nil {
		r.logger.WithField("job_id", result.ID).WithError(err).Error("Failed to build summary record")
		return
	}

	_ = r.sink.SaveSummary(ctx, record)
	_ = r.sink.SaveEquityCurve(ctx, result.ID, result.EquityCurve)
	_ = r.sink.SaveTrades(ctx, result.ID, result.Trades)
}
