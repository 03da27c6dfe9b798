//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fx-optimizer/internal/config"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/repository"
	"github.com/yourusername/fx-optimizer/internal/sink"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupTestDB connects to the test database and applies the schema. The
// connection parameters come from TEST_DB_* variables with local defaults.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	port, err := strconv.Atoi(envOr("TEST_DB_PORT", "5432"))
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:               envOr("TEST_DB_HOST", "localhost"),
		Port:               port,
		Name:               envOr("TEST_DB_NAME", "fx_optimizer_test"),
		User:               envOr("TEST_DB_USER", "test"),
		Password:           envOr("TEST_DB_PASSWORD", "test"),
		SSLMode:            "disable",
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewDB(ctx, cfg)
	require.NoError(t, err, "failed to connect to test database")

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = db.GetPool().Exec(ctx, string(schema))
	require.NoError(t, err, "failed to apply schema")

	return db
}

func teardownTestDB(t *testing.T, db *database.DB) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"equity_curves", "backtest_trades", "backtest_results", "price_bars"} {
		_, err := db.GetPool().Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err)
	}
	db.Close()
}

func seedRecord(symbol string, sharpe float64) *models.BacktestRecord {
	return &models.BacktestRecord{
		ID:             uuid.New(),
		Symbol:         symbol,
		Timeframe:      models.TimeframeH1,
		StartDate:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		InitialBalance: 10000,
		FinalBalance:   11200,
		TotalTrades:    42,
		WinRate:        57.1,
		NetProfit:      1200,
		ProfitFactor:   1.8,
		SharpeRatio:    sharpe,
		Parameters:     json.RawMessage(`{"stop_loss_pips":50,"take_profit_pips":100}`),
		RunDate:        time.Now().UTC().Truncate(time.Second),
	}
}

func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := setupTestDB(t)
	defer teardownTestDB(t, db)

	repos, err := repository.NewRepositories(db)
	require.NoError(t, err)

	t.Run("BarRepository", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		bars := make([]models.Bar, 5)
		for i := range bars {
			bars[i] = models.Bar{
				Time:   start.Add(time.Duration(i) * time.Hour),
				Open:   100, High: 100.5, Low: 99.5, Close: 100.1,
				Volume: 1000,
			}
		}

		require.NoError(t, repos.Bar.InsertBatch(ctx, "USDJPY", models.TimeframeH1, bars))
		// duplicate timestamps are ignored, not an error
		require.NoError(t, repos.Bar.InsertBatch(ctx, "USDJPY", models.TimeframeH1, bars))

		got, err := repos.Bar.GetRange(ctx, "USDJPY", models.TimeframeH1, start, start.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].Time.After(got[i-1].Time))
		}

		count, err := repos.Bar.CountRange(ctx, "USDJPY", models.TimeframeH1, start, start.Add(3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("BacktestResultRepository", func(t *testing.T) {
		record := seedRecord("USDJPY", 1.4)
		require.NoError(t, repos.BacktestResult.Create(ctx, record))

		got, err := repos.BacktestResult.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.Symbol, got.Symbol)
		assert.Equal(t, record.TotalTrades, got.TotalTrades)
		assert.InDelta(t, record.SharpeRatio, got.SharpeRatio, 1e-9)
		assert.JSONEq(t, string(record.Parameters), string(got.Parameters))

		_, err = repos.BacktestResult.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, models.ErrNotFound)

		better := seedRecord("EURJPY", 2.2)
		require.NoError(t, repos.BacktestResult.Create(ctx, better))

		top, err := repos.BacktestResult.GetTopPerforming(ctx, "sharpe_ratio", 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, better.ID, top[0].ID)

		_, err = repos.BacktestResult.GetTopPerforming(ctx, "favorite_color", 2)
		assert.Error(t, err)
	})

	t.Run("TradeAndEquityCurveRepositories", func(t *testing.T) {
		record := seedRecord("GBPJPY", 0.9)
		require.NoError(t, repos.BacktestResult.Create(ctx, record))

		entry := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
		trades := []models.Trade{
			{
				EntryTime: entry, ExitTime: entry.Add(4 * time.Hour),
				Side: models.SideLong, EntryPrice: 150.00, ExitPrice: 150.50,
				LotSize: 0.02, ProfitLoss: 100, DurationHours: 4,
				ExitReason: models.ExitTakeProfit, NanpinCount: 1, Commission: 10,
			},
			{
				EntryTime: entry.Add(8 * time.Hour), ExitTime: entry.Add(9 * time.Hour),
				Side: models.SideShort, EntryPrice: 150.40, ExitPrice: 150.90,
				LotSize: 0.01, ProfitLoss: -50, DurationHours: 1,
				ExitReason: models.ExitStopLoss,
			},
		}
		require.NoError(t, repos.Trade.InsertBatch(ctx, record.ID, trades))

		gotTrades, err := repos.Trade.GetByResultID(ctx, record.ID)
		require.NoError(t, err)
		require.Len(t, gotTrades, 2)
		assert.Equal(t, models.SideLong, gotTrades[0].Side)
		assert.Equal(t, models.ExitStopLoss, gotTrades[1].ExitReason)
		assert.Equal(t, 1, gotTrades[0].NanpinCount)

		long := models.SideLong
		points := []models.EquityPoint{
			{Time: entry, Balance: 10000, Equity: 10000, Price: 150.00},
			{Time: entry.Add(time.Hour), Balance: 10000, Equity: 10040, UnrealizedPnL: 40, PositionSide: &long, Price: 150.20},
		}
		require.NoError(t, repos.EquityCurve.InsertBatch(ctx, record.ID, points))

		gotPoints, err := repos.EquityCurve.GetByResultID(ctx, record.ID)
		require.NoError(t, err)
		require.Len(t, gotPoints, 2)
		assert.Nil(t, gotPoints[0].PositionSide)
		require.NotNil(t, gotPoints[1].PositionSide)
		assert.Equal(t, models.SideLong, *gotPoints[1].PositionSide)
	})

	t.Run("PostgresSink", func(t *testing.T) {
		resultSink, err := sink.NewPostgresSink(repos, nil)
		require.NoError(t, err)

		record := seedRecord("AUDJPY", 1.1)
		record.ProfitFactor = math.Inf(1)
		require.NoError(t, resultSink.SaveSummary(ctx, record))

		stored, err := repos.BacktestResult.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, math.IsInf(stored.ProfitFactor, 1))

		curve := make([]models.EquityPoint, 3000)
		base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range curve {
			curve[i] = models.EquityPoint{Time: base.Add(time.Duration(i) * time.Hour), Balance: 10000, Equity: 10000, Price: 100}
		}
		require.NoError(t, resultSink.SaveEquityCurve(ctx, record.ID, curve))

		gotCurve, err := repos.EquityCurve.GetByResultID(ctx, record.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(gotCurve), 1000)
		assert.Equal(t, curve[len(curve)-1].Time.UTC(), gotCurve[len(gotCurve)-1].Time.UTC())
	})
}
