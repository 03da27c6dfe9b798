package optimizer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fx-optimizer/internal/backtest"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/oracle"
)

// stubProvider serves a fixed bar series for any symbol and timeframe
type stubProvider struct {
	bars  []models.Bar
	delay time.Duration
}

func (p *stubProvider) FetchBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return p.bars, nil
}

func (p *stubProvider) Name() string { return "stub" }

// oscillatingBars alternates between a low and a high price block so a
// level-based oracle produces steady reversal trades
func oscillatingBars(n int) []models.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		price := 100.00
		if (i/30)%2 == 1 {
			price = 100.30
		}
		bars[i] = models.Bar{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

// levelOracle buys the low block and sells the high block
func levelOracle() oracle.Oracle {
	return oracle.Func(func(ctx context.Context, f oracle.Features) (oracle.Prediction, error) {
		if f.Bar.Close <= 100.00 {
			return oracle.Prediction{Signal: models.SignalBuy, Confidence: 0.9}, nil
		}
		return oracle.Prediction{Signal: models.SignalSell, Confidence: 0.9}, nil
	})
}

func testBacktestConfig() backtest.Config {
	return backtest.Config{
		Symbol:         "USDJPY",
		Timeframe:      models.TimeframeH1,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		InitialBalance: 10000,
		Params: backtest.StrategyParams{
			RiskPerTrade:   0.01,
			StopLossPips:   50,
			TakeProfitPips: 100,
			MinConfidence:  0.5,
		},
	}
}

func newTestOptimizer(t *testing.T, provider *stubProvider, orc oracle.Oracle) *Optimizer {
	t.Helper()
	runner, err := backtest.NewRunner(provider, orc, nil, nil)
	require.NoError(t, err)
	opt, err := NewOptimizer(runner, nil)
	require.NoError(t, err)
	return opt
}

func TestOptimizeGridFindsBestStopDistance(t *testing.T) {
	provider := &stubProvider{bars: oscillatingBars(800)}
	opt := newTestOptimizer(t, provider, levelOracle())

	req := Request{
		Config: testBacktestConfig(),
		Ranges: map[string]ParameterRange{
			"stop_loss_pips": {Values: []float64{40, 50, 60}},
		},
		Strategy:      StrategyGrid,
		Metric:        "net_profit",
		MaxIterations: 10,
		Seed:          1,
	}

	resp, err := opt.Optimize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalEvaluated)
	assert.Equal(t, 3, resp.ValidCount)
	assert.Zero(t, resp.FailedCount)
	require.NotNil(t, resp.BestResult)

	// every reversal wins 30 pips, so the tightest stop sizes the largest
	// lot and the largest net profit
	assert.Equal(t, 40.0, resp.BestParams["stop_loss_pips"])
	assert.Greater(t, resp.BestScore, 0.0)
	assert.GreaterOrEqual(t, resp.BestResult.Stats.TotalTrades, minValidTrades)
}

func TestOptimizeAllInvalidYieldsNoBest(t *testing.T) {
	// flat market, the oracle never fires, zero trades fail the filter
	provider := &stubProvider{bars: oscillatingBars(300)}
	hold := oracle.Func(func(ctx context.Context, f oracle.Features) (oracle.Prediction, error) {
		return oracle.Prediction{Signal: models.SignalHold, Confidence: 1}, nil
	})
	opt := newTestOptimizer(t, provider, hold)

	req := Request{
		Config: testBacktestConfig(),
		Ranges: map[string]ParameterRange{
			"stop_loss_pips": {Values: []float64{40, 50}},
		},
		Strategy:      StrategyGrid,
		Metric:        "net_profit",
		MaxIterations: 10,
		Seed:          1,
	}

	resp, err := opt.Optimize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalEvaluated)
	assert.Equal(t, 2, resp.InvalidCount)
	assert.Zero(t, resp.ValidCount)
	assert.Nil(t, resp.BestResult)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0.0, resp.BestScore)
}

func TestOptimizeRandomReproducibleWithSeed(t *testing.T) {
	provider := &stubProvider{bars: oscillatingBars(600)}

	req := Request{
		Config: testBacktestConfig(),
		Ranges: map[string]ParameterRange{
			"stop_loss_pips": {Min: 30, Max: 80},
			"min_confidence": {Min: 0.5, Max: 0.8},
		},
		Strategy:      StrategyRandom,
		Metric:        "net_profit",
		MaxIterations: 6,
		Seed:          12345,
	}

	first, err := newTestOptimizer(t, provider, levelOracle()).Optimize(context.Background(), req)
	require.NoError(t, err)
	second, err := newTestOptimizer(t, provider, levelOracle()).Optimize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.BestParams, second.BestParams)
	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Params, second.Results[i].Params)
		assert.InDelta(t, first.Results[i].Score, second.Results[i].Score, 1e-9)
	}
}

func TestOptimizeLocalSearchEvaluatesFullBudget(t *testing.T) {
	provider := &stubProvider{bars: oscillatingBars(600)}
	opt := newTestOptimizer(t, provider, levelOracle())

	req := Request{
		Config: testBacktestConfig(),
		Ranges: map[string]ParameterRange{
			"stop_loss_pips": {Min: 30, Max: 80},
		},
		Strategy:      StrategyBayesian,
		Metric:        "net_profit",
		MaxIterations: 8,
		Seed:          7,
	}

	resp, err := opt.Optimize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 8, resp.TotalEvaluated)
	require.NotNil(t, resp.BestResult)
	assert.Greater(t, resp.BestScore, 0.0)
}

func TestOptimizeCancellation(t *testing.T) {
	provider := &stubProvider{bars: oscillatingBars(600), delay: 5 * time.Millisecond}
	opt := newTestOptimizer(t, provider, levelOracle())

	req := Request{
		Config: testBacktestConfig(),
		Ranges: map[string]ParameterRange{
			"stop_loss_pips": {Min: 30, Max: 80},
		},
		Strategy:      StrategyRandom,
		Metric:        "net_profit",
		MaxIterations: 500,
		Concurrency:   1,
		Seed:          7,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := opt.Optimize(ctx, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestOptimizeRejectsBadRequests(t *testing.T) {
	opt := newTestOptimizer(t, &stubProvider{bars: oscillatingBars(300)}, levelOracle())
	valid := Request{
		Config:        testBacktestConfig(),
		Ranges:        map[string]ParameterRange{"stop_loss_pips": {Min: 30, Max: 80}},
		Strategy:      StrategyRandom,
		Metric:        "net_profit",
		MaxIterations: 1,
	}

	bad := valid
	bad.Strategy = "simulated_annealing"
	_, err := opt.Optimize(context.Background(), bad)
	assert.Error(t, err)

	bad = valid
	bad.Metric = "alpha_decay"
	_, err = opt.Optimize(context.Background(), bad)
	assert.Error(t, err)

	bad = valid
	bad.MaxIterations = 0
	_, err = opt.Optimize(context.Background(), bad)
	assert.Error(t, err)

	bad = valid
	bad.Ranges = nil
	_, err = opt.Optimize(context.Background(), bad)
	assert.Error(t, err)

	bad = valid
	bad.Ranges = map[string]ParameterRange{"stop_loss_pips": {Min: 80, Max: 30}}
	_, err = opt.Optimize(context.Background(), bad)
	assert.Error(t, err)
}

func TestIsValidFilter(t *testing.T) {
	good := backtest.Statistics{TotalTrades: 20, ProfitFactor: 1.5, MaxDrawdownPercent: 10}
	assert.True(t, isValid(good))

	few := good
	few.TotalTrades = 9
	assert.False(t, isValid(few))

	losing := good
	losing.ProfitFactor = 0
	assert.False(t, isValid(losing))

	blown := good
	blown.MaxDrawdownPercent = 50
	assert.False(t, isValid(blown))

	// the profit factor sentinel passes the filter
	perfect := good
	perfect.ProfitFactor = math.Inf(1)
	assert.True(t, isValid(perfect))
}

func TestBuildResponseExcludesInvalidHighScores(t *testing.T) {
	req := Request{Strategy: StrategyGrid, Metric: "net_profit"}
	outcomes := []outcome{
		{
			candidate: Candidate{Index: 0},
			result:    &Result{Iteration: 0, Score: 9999, Stats: backtest.Statistics{TotalTrades: 3}},
			valid:     false,
		},
		{
			candidate: Candidate{Index: 1},
			result:    &Result{Iteration: 1, Score: 120, Stats: backtest.Statistics{TotalTrades: 40}},
			valid:     true,
		},
		{
			candidate: Candidate{Index: 2},
			failed:    true,
		},
	}

	resp := buildResponse(req, outcomes)

	assert.Equal(t, 3, resp.TotalEvaluated)
	assert.Equal(t, 1, resp.ValidCount)
	assert.Equal(t, 1, resp.InvalidCount)
	assert.Equal(t, 1, resp.FailedCount)
	require.NotNil(t, resp.BestResult)
	assert.Equal(t, 120.0, resp.BestScore)
	assert.Equal(t, 1, resp.BestResult.Iteration)
}

func TestBuildResponseInfinityOutranksFinite(t *testing.T) {
	req := Request{Strategy: StrategyGrid, Metric: "profit_factor"}
	outcomes := []outcome{
		{candidate: Candidate{Index: 0}, result: &Result{Iteration: 0, Score: 3.5}, valid: true},
		{candidate: Candidate{Index: 1}, result: &Result{Iteration: 1, Score: math.Inf(1)}, valid: true},
	}

	resp := buildResponse(req, outcomes)
	require.NotNil(t, resp.BestResult)
	assert.Equal(t, 1, resp.BestResult.Iteration)
	assert.True(t, math.IsInf(resp.BestScore, 1))
}

func TestGreaterRanking(t *testing.T) {
	assert.True(t, greater(2, 1))
	assert.True(t, greater(math.Inf(1), 1e12))
	assert.False(t, greater(math.NaN(), math.Inf(-1)))
	assert.False(t, greater(1, 1))
}
