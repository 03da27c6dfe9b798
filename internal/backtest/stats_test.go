package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fx-optimizer/internal/models"
)

func tradeWithPnL(pnl float64) models.Trade {
	entry := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.Trade{
		EntryTime:     entry,
		ExitTime:      entry.Add(4 * time.Hour),
		Side:          models.SideLong,
		ProfitLoss:    pnl,
		DurationHours: 4,
	}
}

func equityCurveFrom(values []float64) []models.EquityPoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]models.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = models.EquityPoint{
			Time:    base.Add(time.Duration(i) * 24 * time.Hour),
			Equity:  v,
			Balance: v,
		}
	}
	return curve
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil, nil, 10000)

	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, 0.0, stats.NetProfit)
	assert.Equal(t, 0.0, stats.ProfitFactor)
	assert.Equal(t, 0.0, stats.SharpeRatio)
	assert.Equal(t, 10000.0, stats.InitialBalance)
	assert.Equal(t, 10000.0, stats.FinalBalance)
}

func TestComputeStatisticsProfitFactor(t *testing.T) {
	trades := []models.Trade{
		tradeWithPnL(100),
		tradeWithPnL(50),
		tradeWithPnL(-30),
		tradeWithPnL(-20),
	}

	stats := ComputeStatistics(trades, nil, 10000)

	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 2, stats.LosingTrades)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 150.0, stats.GrossProfit, 1e-9)
	assert.InDelta(t, 50.0, stats.GrossLoss, 1e-9)
	assert.InDelta(t, 100.0, stats.NetProfit, 1e-9)
	assert.InDelta(t, 3.0, stats.ProfitFactor, 1e-9)
	assert.InDelta(t, 10100.0, stats.FinalBalance, 1e-9)
	assert.InDelta(t, 75.0, stats.AverageWin, 1e-9)
	assert.InDelta(t, -25.0, stats.AverageLoss, 1e-9)
}

func TestComputeStatisticsProfitFactorSentinel(t *testing.T) {
	trades := []models.Trade{tradeWithPnL(100), tradeWithPnL(40)}

	stats := ComputeStatistics(trades, nil, 10000)
	assert.True(t, math.IsInf(stats.ProfitFactor, 1))

	// all-losing runs stay at zero rather than dividing
	losers := []models.Trade{tradeWithPnL(-100)}
	stats = ComputeStatistics(losers, nil, 10000)
	assert.Equal(t, 0.0, stats.ProfitFactor)
}

func TestComputeStatisticsStreaks(t *testing.T) {
	trades := []models.Trade{
		tradeWithPnL(10),
		tradeWithPnL(10),
		tradeWithPnL(10),
		tradeWithPnL(-5),
		tradeWithPnL(-5),
		tradeWithPnL(10),
	}

	stats := ComputeStatistics(trades, nil, 10000)
	assert.Equal(t, 3, stats.LongestWinStreak)
	assert.Equal(t, 2, stats.LongestLossStreak)
}

func TestMaxDrawdownBounds(t *testing.T) {
	curve := equityCurveFrom([]float64{10000, 10500, 9800, 10200, 9500, 11000})

	abs, pct := maxDrawdown(curve)
	assert.InDelta(t, 1000.0, abs, 1e-9)
	assert.InDelta(t, 1000.0/10500.0*100, pct, 1e-9)
	assert.GreaterOrEqual(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 100.0)
}

func TestMaxDrawdownZeroForMonotonicCurve(t *testing.T) {
	curve := equityCurveFrom([]float64{10000, 10100, 10100, 10400})

	abs, pct := maxDrawdown(curve)
	assert.Equal(t, 0.0, abs)
	assert.Equal(t, 0.0, pct)
}

func TestSortinoSentinelWithoutDownside(t *testing.T) {
	curve := equityCurveFrom([]float64{10000, 10100, 10200, 10300})
	returns := equityReturns(curve)

	require.NotEmpty(t, returns)
	assert.True(t, math.IsInf(sortinoRatio(returns), 1))
}

func TestSortinoFiniteWithSingleLosingBar(t *testing.T) {
	// one drawdown bar in an otherwise rising curve: the downside deviation
	// is the RMS of negative returns, so the ratio stays finite and positive
	curve := equityCurveFrom([]float64{10000, 10200, 10100, 10300, 10500})
	returns := equityReturns(curve)

	ratio := sortinoRatio(returns)
	require.False(t, math.IsInf(ratio, 1))
	assert.Greater(t, ratio, 0.0)
}

func TestSharpeRatioSign(t *testing.T) {
	up := equityReturns(equityCurveFrom([]float64{10000, 10100, 10050, 10200, 10300}))
	down := equityReturns(equityCurveFrom([]float64{10000, 9900, 9950, 9800, 9700}))

	assert.Greater(t, sharpeRatio(up), 0.0)
	assert.Less(t, sharpeRatio(down), 0.0)
}

func TestCalmarRatioZeroWithoutDrawdown(t *testing.T) {
	curve := equityCurveFrom([]float64{10000, 10500})
	assert.Equal(t, 0.0, calmarRatio(curve, 10000, 0))
}

func TestStatisticsMetricLookup(t *testing.T) {
	stats := Statistics{SharpeRatio: 1.5, NetProfit: 320, TotalTrades: 12}

	v, ok := stats.Metric("sharpe_ratio")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	v, ok = stats.Metric("total_trades")
	require.True(t, ok)
	assert.Equal(t, 12.0, v)

	_, ok = stats.Metric("unknown_metric")
	assert.False(t, ok)
}
