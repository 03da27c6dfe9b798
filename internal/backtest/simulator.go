package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/oracle"
)

// Simulator replays bars through a strategy oracle, managing at most one
// open position. A run is single-threaded and deterministic given a
// deterministic oracle.
type Simulator struct {
	logger *logrus.Logger
}

// NewSimulator creates a new trade simulator
func NewSimulator(logger *logrus.Logger) *Simulator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{logger: logger}
}

// replayState is the mutable state of one simulator run, owned exclusively
// by that run
type replayState struct {
	balance  float64
	position *models.Position
	entryLot float64
	trades   []models.Trade
	equity   []models.EquityPoint
}

// Simulate replays the bar sequence and returns the closed trades and the
// per-bar equity curve. The first warm-up bars are recorded flat and skipped
// for decisioning. A single bar's oracle failure degrades to HOLD with a
// warning; only an oracle that fails on every bar aborts the replay.
func (s *Simulator) Simulate(ctx context.Context, cfg Config, bars []models.Bar, orc oracle.Oracle) ([]models.Trade, []models.EquityPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if len(bars) < minUsableBars {
		return nil, nil, fmt.Errorf("%w: got %d bars, need at least %d", ErrInsufficientData, len(bars), minUsableBars)
	}

	state := &replayState{
		balance: cfg.InitialBalance,
		trades:  make([]models.Trade, 0),
		equity:  make([]models.EquityPoint, 0, len(bars)),
	}
	halfSpread := cfg.Params.SpreadPips * PipSize / 2

	var inferences, failures int
	for i, bar := range bars {
		if i < warmupBars {
			state.recordEquity(bar)
			continue
		}

		signal, failed := s.querySignal(ctx, cfg, bars, i, orc)
		inferences++
		if failed {
			failures++
		}

		if state.position != nil {
			s.managePosition(state, cfg, bar, signal, halfSpread)
		} else if signal != models.SignalHold {
			s.openPosition(state, cfg, bar, signal, halfSpread)
		}

		state.recordEquity(bar)
	}

	if inferences > 0 && failures == inferences {
		return nil, nil, fmt.Errorf("%w: all %d inferences failed", ErrOracleUnusable, failures)
	}

	if state.position != nil {
		last := bars[len(bars)-1]
		state.closePosition(last.Close, last.Time, models.ExitEndOfTest)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol":        cfg.Symbol,
		"timeframe":     cfg.Timeframe,
		"bars":          len(bars),
		"trades":        len(state.trades),
		"final_balance": state.balance,
	}).Debug("Replay complete")

	return state.trades, state.equity, nil
}

// querySignal asks the oracle for the current bar's signal, downgrading to
// HOLD on failure or on confidence below the configured threshold. The
// second return reports whether the inference itself failed.
func (s *Simulator) querySignal(ctx context.Context, cfg Config, bars []models.Bar, i int, orc oracle.Oracle) (models.Signal, bool) {
	bar := bars[i]

	windowStart := i - recentCloseLen + 1
	if windowStart < 0 {
		windowStart = 0
	}
	closes := make([]float64, 0, recentCloseLen)
	for _, b := range bars[windowStart : i+1] {
		closes = append(closes, b.Close)
	}

	pred, err := orc.Infer(ctx, oracle.Features{
		Symbol:       cfg.Symbol,
		Timeframe:    cfg.Timeframe,
		BarTime:      bar.Time,
		Bar:          bar,
		RecentCloses: closes,
		ModelParams:  cfg.Params.ModelParams,
		ModelVersion: cfg.ModelVersion,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"symbol":   cfg.Symbol,
			"bar_time": bar.Time,
			"error":    err,
		}).Warn("Oracle inference failed, holding")
		return models.SignalHold, true
	}

	if pred.Confidence < cfg.Params.MinConfidence {
		return models.SignalHold, false
	}
	return pred.Signal, false
}

// openPosition opens a new position sized by risk fraction over stop
// distance. The fill is spread-adjusted while stop loss and take profit are
// anchored to the raw bar close.
func (s *Simulator) openPosition(state *replayState, cfg Config, bar models.Bar, signal models.Signal, halfSpread float64) {
	lot := cfg.Params.RiskPerTrade * state.balance / (cfg.Params.StopLossPips * PipValuePerLot)
	if lot <= 0 {
		return
	}

	slDistance := cfg.Params.StopLossPips * PipSize
	tpDistance := cfg.Params.TakeProfitPips * PipSize

	var side models.PositionSide
	var fill, stopLoss, takeProfit float64
	switch signal {
	case models.SignalBuy:
		side = models.SideLong
		fill = bar.Close + halfSpread
		stopLoss = bar.Close - slDistance
		takeProfit = bar.Close + tpDistance
	case models.SignalSell:
		side = models.SideShort
		fill = bar.Close - halfSpread
		stopLoss = bar.Close + slDistance
		takeProfit = bar.Close - tpDistance
	default:
		return
	}

	state.position = &models.Position{
		Side:        side,
		AvgEntry:    fill,
		TotalVolume: lot,
		StopLoss:    stopLoss,
		TakeProfit:  takeProfit,
		Commission:  cfg.Params.CommissionPerLot * lot,
		OpenTime:    bar.Time,
	}
	state.entryLot = lot
}

// managePosition evaluates exits in priority order (stop loss, take profit,
// signal reversal) and otherwise considers a nanpin add
func (s *Simulator) managePosition(state *replayState, cfg Config, bar models.Bar, signal models.Signal, halfSpread float64) {
	pos := state.position

	if stopHit(pos, bar) {
		state.closePosition(pos.StopLoss, bar.Time, models.ExitStopLoss)
		return
	}
	if takeProfitHit(pos, bar) {
		state.closePosition(pos.TakeProfit, bar.Time, models.ExitTakeProfit)
		return
	}
	if pos.Side.Opposes(signal) {
		state.closePosition(bar.Close, bar.Time, models.ExitSignalReversal)
		return
	}

	if !cfg.Params.UseNanpin || pos.NanpinCount >= cfg.Params.NanpinMaxCount {
		return
	}
	if adversePips(pos, bar.Close) < cfg.Params.NanpinIntervalPips {
		return
	}

	fill := bar.Close + halfSpread
	if pos.Side == models.SideShort {
		fill = bar.Close - halfSpread
	}
	pos.AddLot(fill, state.entryLot, cfg.Params.CommissionPerLot*state.entryLot)
}

func stopHit(pos *models.Position, bar models.Bar) bool {
	if pos.Side == models.SideLong {
		return bar.Low <= pos.StopLoss
	}
	return bar.High >= pos.StopLoss
}

func takeProfitHit(pos *models.Position, bar models.Bar) bool {
	if pos.Side == models.SideLong {
		return bar.High >= pos.TakeProfit
	}
	return bar.Low <= pos.TakeProfit
}

// adversePips measures how far price has moved against the volume-weighted
// average entry, in pips
func adversePips(pos *models.Position, price float64) float64 {
	if pos.Side == models.SideLong {
		return (pos.AvgEntry - price) / PipSize
	}
	return (price - pos.AvgEntry) / PipSize
}

// unrealizedPnL values the open position at the given price, before
// commission
func unrealizedPnL(pos *models.Position, price float64) float64 {
	diff := price - pos.AvgEntry
	if pos.Side == models.SideShort {
		diff = pos.AvgEntry - price
	}
	return diff / PipSize * PipValuePerLot * pos.TotalVolume
}

// closePosition realizes the position at the exit price, appends the trade
// and settles the balance
func (st *replayState) closePosition(exitPrice float64, exitTime time.Time, reason models.ExitReason) {
	pos := st.position
	pnl := unrealizedPnL(pos, exitPrice) - pos.Commission

	st.trades = append(st.trades, models.Trade{
		EntryTime:     pos.OpenTime,
		ExitTime:      exitTime,
		Side:          pos.Side,
		EntryPrice:    pos.AvgEntry,
		ExitPrice:     exitPrice,
		LotSize:       pos.TotalVolume,
		ProfitLoss:    pnl,
		DurationHours: exitTime.Sub(pos.OpenTime).Hours(),
		ExitReason:    reason,
		NanpinCount:   pos.NanpinCount,
		Commission:    pos.Commission,
	})

	st.balance += pnl
	st.position = nil
	st.entryLot = 0
}

// recordEquity appends one equity sample for the current bar
func (st *replayState) recordEquity(bar models.Bar) {
	point := models.EquityPoint{
		Time:    bar.Time,
		Balance: st.balance,
		Equity:  st.balance,
		Price:   bar.Close,
	}
	if st.position != nil {
		side := st.position.Side
		point.PositionSide = &side
		point.UnrealizedPnL = unrealizedPnL(st.position, bar.Close)
		point.Equity = st.balance + point.UnrealizedPnL
	}
	st.equity = append(st.equity, point)
}
