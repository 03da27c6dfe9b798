package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/backtest"
	"github.com/yourusername/fx-optimizer/internal/metrics"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// sweepIterations caps the per-cell random search
const sweepIterations = 50

// SweepRequest drives an optimization across a symbol × timeframe grid
type SweepRequest struct {
	Symbols     []string
	Timeframes  []models.Timeframe
	Config      backtest.Config
	Ranges      map[string]ParameterRange
	Metric      string
	Concurrency int
	Seed        int64
}

// CellResult is the outcome of one (symbol, timeframe) cell. A failing cell
// carries Error and a nil Response; it never aborts the sweep.
type CellResult struct {
	Symbol    string           `json:"symbol"`
	Timeframe models.Timeframe `json:"timeframe"`
	Response  *Response        `json:"response,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Combination is one ranked (symbol, timeframe, parameters) entry
type Combination struct {
	Symbol    string             `json:"symbol"`
	Timeframe models.Timeframe   `json:"timeframe"`
	Params    map[string]float64 `json:"parameters"`
	Score     float64            `json:"score"`
}

// AggregateRanking ranks one dimension (symbol or timeframe) by the average
// and maximum best scores of its cells. Averages exclude non-finite scores.
type AggregateRanking struct {
	Key      string  `json:"key"`
	AvgScore float64 `json:"avg_score"`
	MaxScore float64 `json:"max_score"`
	Cells    int     `json:"cells"`
}

// SweepResponse aggregates all cells of a sweep
type SweepResponse struct {
	Cells             []CellResult       `json:"cells"`
	Best              *Combination       `json:"best,omitempty"`
	SymbolRankings    []AggregateRanking `json:"symbol_rankings"`
	TimeframeRankings []AggregateRanking `json:"timeframe_rankings"`
	TopCombinations   []Combination      `json:"top_combinations"`
	Elapsed           time.Duration      `json:"elapsed"`
}

// SweepOptimizer runs the parameter optimizer across a symbol/timeframe
// cartesian product
type SweepOptimizer struct {
	optimizer *Optimizer
	logger    *logrus.Logger
}

// NewSweepOptimizer creates a sweep optimizer
func NewSweepOptimizer(opt *Optimizer, logger *logrus.Logger) (*SweepOptimizer, error) {
	if opt == nil {
		return nil, fmt.Errorf("optimizer is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SweepOptimizer{optimizer: opt, logger: logger}, nil
}

// Sweep runs a random search per (symbol, timeframe) cell and aggregates
// cross-cell rankings. Cancellation is checked between cells.
func (s *SweepOptimizer) Sweep(ctx context.Context, req SweepRequest) (*SweepResponse, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	if len(req.Timeframes) == 0 {
		return nil, fmt.Errorf("at least one timeframe is required")
	}

	started := time.Now()
	resp := &SweepResponse{
		Cells: make([]CellResult, 0, len(req.Symbols)*len(req.Timeframes)),
	}

	cellIndex := 0
	for _, symbol := range req.Symbols {
		for _, timeframe := range req.Timeframes {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("sweep cancelled: %w", ctx.Err())
			default:
			}

			resp.Cells = append(resp.Cells, s.runCell(ctx, req, symbol, timeframe, cellIndex))
			cellIndex++
		}
	}

	aggregate(resp, req.Metric)
	resp.Elapsed = time.Since(started)
	metrics.SweepDuration.Observe(resp.Elapsed.Seconds())

	s.logger.WithFields(logrus.Fields{
		"cells":   len(resp.Cells),
		"elapsed": resp.Elapsed,
	}).Info("Sweep complete")

	return resp, nil
}

func (s *SweepOptimizer) runCell(ctx context.Context, req SweepRequest, symbol string, timeframe models.Timeframe, cellIndex int) CellResult {
	cell := CellResult{Symbol: symbol, Timeframe: timeframe}

	cfg := req.Config
	cfg.Symbol = symbol
	cfg.Timeframe = timeframe

	optReq := Request{
		Config:        cfg,
		Ranges:        req.Ranges,
		Strategy:      StrategyRandom,
		Metric:        req.Metric,
		MaxIterations: sweepIterations,
		Concurrency:   req.Concurrency,
		Seed:          req.Seed + int64(cellIndex),
	}

	response, err := s.optimizer.Optimize(ctx, optReq)
	if err != nil {
		cell.Error = err.Error()
		metrics.SweepCellsTotal.WithLabelValues("error").Inc()
		s.logger.WithFields(logrus.Fields{
			"symbol":    symbol,
			"timeframe": timeframe,
			"error":     err,
		}).Error("Sweep cell failed")
		return cell
	}

	cell.Response = response
	metrics.SweepCellsTotal.WithLabelValues("success").Inc()
	return cell
}

// aggregate fills best combination, per-dimension rankings and the overall
// top combinations from the completed cells
func aggregate(resp *SweepResponse, metric string) {
	combos := make([]Combination, 0, len(resp.Cells))
	bySymbol := make(map[string][]float64)
	byTimeframe := make(map[string][]float64)

	for _, cell := range resp.Cells {
		if cell.Response == nil || cell.Response.BestResult == nil {
			continue
		}
		combo := Combination{
			Symbol:    cell.Symbol,
			Timeframe: cell.Timeframe,
			Params:    cell.Response.BestParams,
			Score:     cell.Response.BestScore,
		}
		combos = append(combos, combo)
		bySymbol[cell.Symbol] = append(bySymbol[cell.Symbol], combo.Score)
		byTimeframe[string(cell.Timeframe)] = append(byTimeframe[string(cell.Timeframe)], combo.Score)
	}

	sort.SliceStable(combos, func(i, j int) bool {
		return greater(combos[i].Score, combos[j].Score)
	})

	if len(combos) > 0 {
		best := combos[0]
		resp.Best = &best
	}
	top := combos
	if len(top) > topResultCount {
		top = top[:topResultCount]
	}
	resp.TopCombinations = top

	resp.SymbolRankings = rankDimension(bySymbol)
	resp.TimeframeRankings = rankDimension(byTimeframe)
}

func rankDimension(scores map[string][]float64) []AggregateRanking {
	rankings := make([]AggregateRanking, 0, len(scores))
	for key, values := range scores {
		ranking := AggregateRanking{Key: key, Cells: len(values), MaxScore: math.Inf(-1)}

		finite := make([]float64, 0, len(values))
		for _, v := range values {
			if greater(v, ranking.MaxScore) {
				ranking.MaxScore = v
			}
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				finite = append(finite, v)
			}
		}
		ranking.AvgScore = mean(finite)
		rankings = append(rankings, ranking)
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].AvgScore == rankings[j].AvgScore {
			return rankings[i].Key < rankings[j].Key
		}
		return rankings[i].AvgScore > rankings[j].AvgScore
	})
	return rankings
}
