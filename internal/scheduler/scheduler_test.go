package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fx-optimizer/internal/backtest"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/optimizer"
	"github.com/yourusername/fx-optimizer/internal/oracle"
)

type emptyProvider struct{}

func (p emptyProvider) FetchBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	return nil, nil
}

func (p emptyProvider) Name() string { return "empty" }

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	hold := oracle.Func(func(ctx context.Context, f oracle.Features) (oracle.Prediction, error) {
		return oracle.Prediction{Signal: models.SignalHold, Confidence: 1}, nil
	})
	runner, err := backtest.NewRunner(emptyProvider{}, hold, nil, nil)
	require.NoError(t, err)
	opt, err := optimizer.NewOptimizer(runner, nil)
	require.NoError(t, err)
	sweeper, err := optimizer.NewSweepOptimizer(opt, nil)
	require.NoError(t, err)

	return NewScheduler(sweeper, nil)
}

func testRequest() optimizer.SweepRequest {
	return optimizer.SweepRequest{
		Symbols:    []string{"USDJPY"},
		Timeframes: []models.Timeframe{models.TimeframeH1},
		Metric:     "sharpe_ratio",
	}
}

func TestScheduleSweepRejectsInvalidCron(t *testing.T) {
	sched := newTestScheduler(t)
	err := sched.ScheduleSweep("not a cron expression", testRequest(), nil)
	assert.Error(t, err)
}

func TestStartRequiresJobs(t *testing.T) {
	sched := newTestScheduler(t)
	err := sched.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jobs")
}

func TestSchedulerLifecycle(t *testing.T) {
	sched := newTestScheduler(t)
	require.NoError(t, sched.ScheduleSweep("0 2 * * *", testRequest(), nil))

	assert.False(t, sched.IsRunning())
	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	// a daily job always has an upcoming run
	next := sched.NextRun()
	assert.False(t, next.IsZero())
	assert.True(t, next.After(time.Now()))

	// double start fails, stop is idempotent
	assert.Error(t, sched.Start())
	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())
	assert.NoError(t, sched.Stop())
}

func TestCannotScheduleWhileRunning(t *testing.T) {
	sched := newTestScheduler(t)
	require.NoError(t, sched.ScheduleSweep("0 2 * * *", testRequest(), nil))
	require.NoError(t, sched.Start())
	defer sched.Stop()

	err := sched.ScheduleSweep("0 3 * * *", testRequest(), nil)
	assert.Error(t, err)
}

func TestNextRunZeroWhenStopped(t *testing.T) {
	sched := newTestScheduler(t)
	assert.True(t, sched.NextRun().IsZero())
}
