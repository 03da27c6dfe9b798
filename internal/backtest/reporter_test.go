package backtest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportResult() *Result {
	return &Result{
		ID:     uuid.New(),
		Config: testSimConfig(),
		Stats: Statistics{
			TotalTrades:        12,
			WinningTrades:      8,
			LosingTrades:       4,
			WinRate:            66.67,
			NetProfit:          420,
			ProfitFactor:       math.Inf(1),
			SortinoRatio:       1.9,
			InitialBalance:     10000,
			FinalBalance:       10420,
			MaxDrawdownPercent: 4.2,
		},
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
	}
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "inf", FormatRatio(math.Inf(1)))
	assert.Equal(t, "-inf", FormatRatio(math.Inf(-1)))
	assert.Equal(t, "n/a", FormatRatio(math.NaN()))
	assert.Equal(t, "1.25", FormatRatio(1.254))
}

func TestGenerateConsoleReport(t *testing.T) {
	report := GenerateConsoleReport(reportResult())

	assert.Contains(t, report, "USDJPY")
	assert.Contains(t, report, "Total Trades: 12 (W:8 L:4)")
	assert.Contains(t, report, "Profit Factor: inf")
	assert.Contains(t, report, "Net Profit: 420")
}

func TestGenerateCSVExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.csv")
	require.NoError(t, GenerateCSVExport(reportResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	csv := string(data)
	assert.Contains(t, csv, "metric,value")
	assert.Contains(t, csv, "symbol,USDJPY")
	assert.Contains(t, csv, "profit_factor,inf")
}
