package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/backtest"
	"github.com/yourusername/fx-optimizer/internal/metrics"
)

// Search strategies
const (
	StrategyGrid     = "grid"
	StrategyRandom   = "random"
	StrategyBayesian = "bayesian"
)

const defaultConcurrency = 4

// Validity thresholds. Candidates below them are excluded from ranking,
// never reported as errors.
const (
	minValidTrades     = 10
	maxValidDrawdown   = 50.0
	minValidProfitFact = 0.0
)

// Request describes one optimization run
type Request struct {
	Config        backtest.Config
	Ranges        map[string]ParameterRange
	Strategy      string
	Metric        string
	MaxIterations int
	Concurrency   int
	Seed          int64
}

// Result is one valid candidate evaluation
type Result struct {
	Iteration int                 `json:"iteration"`
	Params    map[string]float64  `json:"parameters"`
	Score     float64             `json:"score"`
	Stats     backtest.Statistics `json:"statistics"`
	JobID     uuid.UUID           `json:"job_id"`
}

// Response is the outcome of an optimization run. Results holds only valid
// candidates, ordered by iteration index.
type Response struct {
	Strategy       string             `json:"strategy"`
	Metric         string             `json:"metric"`
	BestParams     map[string]float64 `json:"best_parameters"`
	BestScore      float64            `json:"best_score"`
	BestResult     *Result            `json:"best_result,omitempty"`
	Results        []Result           `json:"results"`
	TotalEvaluated int                `json:"total_evaluated"`
	ValidCount     int                `json:"valid_count"`
	InvalidCount   int                `json:"invalid_count"`
	FailedCount    int                `json:"failed_count"`
	Analysis       *Analysis          `json:"analysis,omitempty"`
	Elapsed        time.Duration      `json:"elapsed"`
}

// Optimizer runs parameter searches over backtest jobs
type Optimizer struct {
	runner *backtest.Runner
	logger *logrus.Logger
}

// NewOptimizer creates a parameter optimizer
func NewOptimizer(runner *backtest.Runner, logger *logrus.Logger) (*Optimizer, error) {
	if runner == nil {
		return nil, fmt.Errorf("backtest runner is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Optimizer{runner: runner, logger: logger}, nil
}

// Optimize generates candidates per the requested strategy, evaluates them
// under bounded concurrency and ranks the valid results
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	started := time.Now()
	rng := rand.New(rand.NewSource(req.Seed))

	o.logger.WithFields(logrus.Fields{
		"strategy":       req.Strategy,
		"metric":         req.Metric,
		"max_iterations": req.MaxIterations,
		"concurrency":    req.Concurrency,
		"seed":           req.Seed,
	}).Info("Starting parameter optimization")

	var outcomes []outcome
	var err error
	switch req.Strategy {
	case StrategyGrid:
		outcomes, err = o.evaluateBatch(ctx, req, expandGrid(req.Ranges, req.MaxIterations))
	case StrategyRandom:
		outcomes, err = o.evaluateBatch(ctx, req, sampleRandom(req.Ranges, req.MaxIterations, rng))
	case StrategyBayesian:
		outcomes, err = o.localSearch(ctx, req, rng)
	}
	if err != nil {
		return nil, err
	}

	resp := buildResponse(req, outcomes)
	resp.Elapsed = time.Since(started)
	resp.Analysis = Analyze(resp.Results, req.Metric)

	if resp.BestResult != nil && !math.IsInf(resp.BestScore, 0) {
		metrics.OptimizerBestScore.WithLabelValues(req.Metric).Set(resp.BestScore)
	}

	o.logger.WithFields(logrus.Fields{
		"evaluated": resp.TotalEvaluated,
		"valid":     resp.ValidCount,
		"invalid":   resp.InvalidCount,
		"failed":    resp.FailedCount,
		"best":      backtest.FormatRatio(resp.BestScore),
		"elapsed":   resp.Elapsed,
	}).Info("Optimization complete")

	return resp, nil
}

func validateRequest(req *Request) error {
	switch req.Strategy {
	case StrategyGrid, StrategyRandom, StrategyBayesian:
	default:
		return fmt.Errorf("unknown search strategy %q", req.Strategy)
	}
	if _, ok := (backtest.Statistics{}).Metric(req.Metric); !ok {
		return fmt.Errorf("unknown objective metric %q", req.Metric)
	}
	if req.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive")
	}
	if len(req.Ranges) == 0 {
		return fmt.Errorf("at least one parameter range is required")
	}
	for name, r := range req.Ranges {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid range for %q: %w", name, err)
		}
	}
	if req.Concurrency <= 0 {
		req.Concurrency = defaultConcurrency
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	return nil
}

// outcome is the evaluation of one candidate
type outcome struct {
	candidate Candidate
	result    *Result
	valid     bool
	failed    bool
}

// evaluateBatch runs candidates through a fixed-size worker pool. Results
// are attributed by candidate index, so completion order never matters.
// Cancellation is checked between dispatches.
func (o *Optimizer) evaluateBatch(ctx context.Context, req Request, candidates []Candidate) ([]outcome, error) {
	outcomes := make([]outcome, len(candidates))

	workers := req.Concurrency
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers == 0 {
		return outcomes, nil
	}

	tasks := make(chan Candidate, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range tasks {
				metrics.OptimizerActiveWorkers.Inc()
				outcomes[candidate.Index] = o.evaluate(ctx, req, candidate)
				metrics.OptimizerActiveWorkers.Dec()
			}
		}()
	}

	var dispatchErr error
	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
		case tasks <- candidate:
			continue
		}
		break
	}
	close(tasks)
	wg.Wait()

	if dispatchErr != nil {
		return nil, fmt.Errorf("optimization cancelled: %w", dispatchErr)
	}
	return outcomes, nil
}

// evaluate runs one backtest job for the candidate and applies the validity
// filter
func (o *Optimizer) evaluate(ctx context.Context, req Request, candidate Candidate) outcome {
	cfg := req.Config
	cfg.Params = req.Config.Params.WithValues(candidate.Values)

	out := outcome{candidate: candidate}

	jobResult, err := o.runner.Run(ctx, cfg)
	if err != nil {
		out.failed = true
		metrics.RecordOptimizerIteration(req.Strategy, false)
		o.logger.WithFields(logrus.Fields{
			"iteration": candidate.Index,
			"error":     err,
		}).Warn("Candidate evaluation failed, skipping")
		return out
	}

	score, _ := jobResult.Stats.Metric(req.Metric)
	out.result = &Result{
		Iteration: candidate.Index,
		Params:    candidate.Values,
		Score:     score,
		Stats:     jobResult.Stats,
		JobID:     jobResult.ID,
	}
	out.valid = isValid(jobResult.Stats)
	metrics.RecordOptimizerIteration(req.Strategy, out.valid)
	return out
}

// isValid applies the ranking validity filter
func isValid(stats backtest.Statistics) bool {
	if stats.TotalTrades < minValidTrades {
		return false
	}
	if stats.ProfitFactor <= minValidProfitFact {
		return false
	}
	if stats.MaxDrawdownPercent >= maxValidDrawdown {
		return false
	}
	return true
}

// localSearch is hill climbing seeded with random samples: not a
// surrogate-model Bayesian method, despite the strategy name kept for
// API compatibility
func (o *Optimizer) localSearch(ctx context.Context, req Request, rng *rand.Rand) ([]outcome, error) {
	seedCount := req.MaxIterations / 4
	if seedCount > 10 {
		seedCount = 10
	}
	if seedCount < 1 {
		seedCount = 1
	}

	outcomes, err := o.evaluateBatch(ctx, req, sampleRandom(req.Ranges, seedCount, rng))
	if err != nil {
		return nil, err
	}

	bestParams, bestScore := bestOf(outcomes, nil, math.Inf(-1))
	if bestParams == nil {
		// No valid seed yet; perturb around a fresh random draw
		bestParams = sampleRandom(req.Ranges, 1, rng)[0].Values
	}

	for i := seedCount; i < req.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("optimization cancelled: %w", ctx.Err())
		default:
		}

		candidate := perturbCandidate(req.Ranges, bestParams, i, rng)
		out := o.evaluate(ctx, req, candidate)
		outcomes = append(outcomes, out)

		if out.valid && greater(out.result.Score, bestScore) {
			bestScore = out.result.Score
			bestParams = out.result.Params
		}
	}

	return outcomes, nil
}

// bestOf scans outcomes for the best valid score, starting from the given
// running best. The reduction is associative, so scan order is irrelevant.
func bestOf(outcomes []outcome, params map[string]float64, score float64) (map[string]float64, float64) {
	for _, out := range outcomes {
		if out.valid && greater(out.result.Score, score) {
			score = out.result.Score
			params = out.result.Params
		}
	}
	return params, score
}

// greater ranks scores treating +Inf as larger than any finite value and
// ignoring NaN
func greater(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	return a > b
}

func buildResponse(req Request, outcomes []outcome) *Response {
	resp := &Response{
		Strategy:       req.Strategy,
		Metric:         req.Metric,
		TotalEvaluated: len(outcomes),
		BestScore:      math.Inf(-1),
		Results:        make([]Result, 0, len(outcomes)),
	}

	for _, out := range outcomes {
		switch {
		case out.failed:
			resp.FailedCount++
		case out.valid:
			resp.ValidCount++
			resp.Results = append(resp.Results, *out.result)
		default:
			resp.InvalidCount++
		}
	}

	for i := range resp.Results {
		result := &resp.Results[i]
		if greater(result.Score, resp.BestScore) {
			resp.BestScore = result.Score
			resp.BestParams = result.Params
			resp.BestResult = result
		}
	}
	if resp.BestResult == nil {
		resp.BestScore = 0
	}

	return resp
}
