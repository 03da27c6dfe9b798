package backtest

import (
	"math"

	"github.com/yourusername/fx-optimizer/internal/models"
)

// Statistics is the reduced performance record of one backtest run.
// ProfitFactor and SortinoRatio use +Inf as a sentinel when their
// denominators vanish; ranking code treats +Inf as greater than any finite
// value and distribution statistics exclude non-finite scores.
type Statistics struct {
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	WinRate            float64 `json:"win_rate"`
	GrossProfit        float64 `json:"gross_profit"`
	GrossLoss          float64 `json:"gross_loss"`
	NetProfit          float64 `json:"net_profit"`
	ProfitFactor       float64 `json:"profit_factor"`
	AverageWin         float64 `json:"average_win"`
	AverageLoss        float64 `json:"average_loss"`
	LargestWin         float64 `json:"largest_win"`
	LargestLoss        float64 `json:"largest_loss"`
	LongestWinStreak   int     `json:"longest_win_streak"`
	LongestLossStreak  int     `json:"longest_loss_streak"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	SortinoRatio       float64 `json:"sortino_ratio"`
	CalmarRatio        float64 `json:"calmar_ratio"`
	AvgDurationHours   float64 `json:"avg_duration_hours"`
	TotalCommission    float64 `json:"total_commission"`
	InitialBalance     float64 `json:"initial_balance"`
	FinalBalance       float64 `json:"final_balance"`
}

// Metric returns the named objective metric value. The second return is
// false for unknown metric names.
func (s Statistics) Metric(name string) (float64, bool) {
	switch name {
	case "sharpe_ratio":
		return s.SharpeRatio, true
	case "sortino_ratio":
		return s.SortinoRatio, true
	case "calmar_ratio":
		return s.CalmarRatio, true
	case "profit_factor":
		return s.ProfitFactor, true
	case "net_profit":
		return s.NetProfit, true
	case "win_rate":
		return s.WinRate, true
	case "max_drawdown_percent":
		return s.MaxDrawdownPercent, true
	case "total_trades":
		return float64(s.TotalTrades), true
	}
	return 0, false
}

// ComputeStatistics reduces trades and the equity curve to a Statistics
// record. Empty inputs yield a defined all-zero record, not an error.
func ComputeStatistics(trades []models.Trade, equityCurve []models.EquityPoint, initialBalance float64) Statistics {
	stats := Statistics{
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
	}

	if len(trades) > 0 {
		reduceTrades(&stats, trades)
	}
	if len(equityCurve) > 0 {
		stats.MaxDrawdown, stats.MaxDrawdownPercent = maxDrawdown(equityCurve)

		returns := equityReturns(equityCurve)
		stats.SharpeRatio = sharpeRatio(returns)
		stats.SortinoRatio = sortinoRatio(returns)
		stats.CalmarRatio = calmarRatio(equityCurve, initialBalance, stats.MaxDrawdownPercent)
	}

	return stats
}

func reduceTrades(stats *Statistics, trades []models.Trade) {
	stats.TotalTrades = len(trades)

	winStreak, lossStreak := 0, 0
	durationSum := 0.0
	for _, trade := range trades {
		pl := trade.ProfitLoss
		stats.NetProfit += pl
		stats.TotalCommission += trade.Commission
		durationSum += trade.DurationHours

		switch {
		case pl > 0:
			stats.WinningTrades++
			stats.GrossProfit += pl
			if pl > stats.LargestWin {
				stats.LargestWin = pl
			}
			winStreak++
			lossStreak = 0
			if winStreak > stats.LongestWinStreak {
				stats.LongestWinStreak = winStreak
			}
		case pl < 0:
			stats.LosingTrades++
			stats.GrossLoss += math.Abs(pl)
			if pl < stats.LargestLoss {
				stats.LargestLoss = pl
			}
			lossStreak++
			winStreak = 0
			if lossStreak > stats.LongestLossStreak {
				stats.LongestLossStreak = lossStreak
			}
		default:
			winStreak = 0
			lossStreak = 0
		}
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	stats.AvgDurationHours = durationSum / float64(stats.TotalTrades)
	stats.FinalBalance = stats.InitialBalance + stats.NetProfit

	if stats.WinningTrades > 0 {
		stats.AverageWin = stats.GrossProfit / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = -stats.GrossLoss / float64(stats.LosingTrades)
	}

	if stats.GrossLoss == 0 {
		if stats.GrossProfit > 0 {
			stats.ProfitFactor = math.Inf(1)
		}
	} else {
		stats.ProfitFactor = stats.GrossProfit / stats.GrossLoss
	}
}

// maxDrawdown returns the largest peak-to-trough decline of the equity
// series, absolute and as a percentage of the peak
func maxDrawdown(curve []models.EquityPoint) (float64, float64) {
	maxAbs, maxPct := 0.0, 0.0
	peak := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := peak - point.Equity
		if dd > maxAbs {
			maxAbs = dd
		}
		pct := dd / peak * 100
		if pct > maxPct {
			maxPct = pct
		}
	}
	return maxAbs, maxPct
}

// equityReturns computes bar-to-bar percentage changes of equity
func equityReturns(curve []models.EquityPoint) []float64 {
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}

func sharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := average(returns)
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

// sortinoRatio penalizes only downside volatility. Downside deviation is
// the root mean square of negative returns over all samples, so a single
// losing bar still yields a finite ratio. With positive mean return and no
// negative returns at all the ratio is +Inf.
func sortinoRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := average(returns)

	var sumSq float64
	negatives := 0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			negatives++
		}
	}
	if negatives == 0 {
		if mean > 0 {
			return math.Inf(1)
		}
		return 0
	}

	downside := math.Sqrt(sumSq / float64(len(returns)))
	return mean / downside * math.Sqrt(252)
}

func calmarRatio(curve []models.EquityPoint, initialBalance, maxDDPct float64) float64 {
	if maxDDPct == 0 || initialBalance <= 0 {
		return 0
	}

	first, last := curve[0], curve[len(curve)-1]
	days := last.Time.Sub(first.Time).Hours() / 24
	totalReturn := (last.Equity - initialBalance) / initialBalance

	annualized := totalReturn * 100
	if days > 0 {
		years := days / 365.0
		ratio := last.Equity / initialBalance
		if ratio > 0 && years > 0 {
			annualized = (math.Pow(ratio, 1.0/years) - 1.0) * 100
		}
	}

	return annualized / maxDDPct
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
