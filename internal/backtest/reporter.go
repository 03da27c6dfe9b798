package backtest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats a result for terminal output
func GenerateConsoleReport(result *Result) string {
	stats := result.Stats

	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Symbol: %s  Timeframe: %s\n", result.Config.Symbol, result.Config.Timeframe))
	builder.WriteString(fmt.Sprintf("Period: %s to %s\n",
		result.Config.StartDate.Format("2006-01-02"), result.Config.EndDate.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Initial Balance: %.0f\n", stats.InitialBalance))
	builder.WriteString(fmt.Sprintf("Final Balance: %.0f\n", stats.FinalBalance))
	builder.WriteString(fmt.Sprintf("Net Profit: %.0f\n", stats.NetProfit))
	builder.WriteString(fmt.Sprintf("Total Trades: %d (W:%d L:%d)\n", stats.TotalTrades, stats.WinningTrades, stats.LosingTrades))
	builder.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", stats.WinRate))
	builder.WriteString(fmt.Sprintf("Profit Factor: %s\n", FormatRatio(stats.ProfitFactor)))
	builder.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", stats.MaxDrawdownPercent))
	builder.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f\n", stats.SharpeRatio))
	builder.WriteString(fmt.Sprintf("Sortino Ratio: %s\n", FormatRatio(stats.SortinoRatio)))
	builder.WriteString(fmt.Sprintf("Calmar Ratio: %.2f\n", stats.CalmarRatio))
	builder.WriteString(fmt.Sprintf("Avg Trade Duration: %.1fh\n", stats.AvgDurationHours))
	builder.WriteString(fmt.Sprintf("Total Commission: %.0f\n", stats.TotalCommission))
	return builder.String()
}

// GenerateCSVExport exports the statistics for spreadsheets
func GenerateCSVExport(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	stats := result.Stats
	csv := "metric,value\n" +
		fmt.Sprintf("symbol,%s\n", result.Config.Symbol) +
		fmt.Sprintf("timeframe,%s\n", result.Config.Timeframe) +
		fmt.Sprintf("initial_balance,%.2f\n", stats.InitialBalance) +
		fmt.Sprintf("final_balance,%.2f\n", stats.FinalBalance) +
		fmt.Sprintf("net_profit,%.2f\n", stats.NetProfit) +
		fmt.Sprintf("total_trades,%d\n", stats.TotalTrades) +
		fmt.Sprintf("win_rate,%.4f\n", stats.WinRate) +
		fmt.Sprintf("profit_factor,%s\n", FormatRatio(stats.ProfitFactor)) +
		fmt.Sprintf("max_drawdown_percent,%.4f\n", stats.MaxDrawdownPercent) +
		fmt.Sprintf("sharpe_ratio,%.4f\n", stats.SharpeRatio) +
		fmt.Sprintf("sortino_ratio,%s\n", FormatRatio(stats.SortinoRatio)) +
		fmt.Sprintf("calmar_ratio,%.4f\n", stats.CalmarRatio)
	return os.WriteFile(outputPath, []byte(csv), 0o644)
}

// FormatRatio renders a possibly non-finite ratio for display
func FormatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
