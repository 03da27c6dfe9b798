package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsWithScores(scores []float64) []Result {
	results := make([]Result, len(scores))
	for i, s := range scores {
		results[i] = Result{Iteration: i, Score: s}
	}
	return results
}

func TestAnalyzeDistributionExcludesNonFinite(t *testing.T) {
	results := resultsWithScores([]float64{1, 2, 3, math.Inf(1), 4})

	analysis := Analyze(results, "profit_factor")

	assert.Equal(t, 4, analysis.Distribution.Count)
	assert.InDelta(t, 2.5, analysis.Distribution.Mean, 1e-9)
	assert.Equal(t, 1.0, analysis.Distribution.Min)
	assert.Equal(t, 4.0, analysis.Distribution.Max)
}

func TestAnalyzeEmptyResults(t *testing.T) {
	analysis := Analyze(nil, "sharpe_ratio")

	assert.Equal(t, 0, analysis.Distribution.Count)
	assert.Equal(t, ConvergenceInsufficient, analysis.Convergence)
	assert.Empty(t, analysis.Sensitivity)
	assert.Empty(t, analysis.TopResults)
}

func TestComputeDistributionQuartiles(t *testing.T) {
	dist := computeDistribution([]float64{1, 2, 3, 4, 5})

	assert.Equal(t, 5, dist.Count)
	assert.Equal(t, 3.0, dist.Median)
	assert.Equal(t, 2.0, dist.Q1)
	assert.Equal(t, 4.0, dist.Q3)
}

func TestConvergenceStatusInsufficient(t *testing.T) {
	assert.Equal(t, ConvergenceInsufficient, convergenceStatus([]float64{1, 2, 3}))
	// non-finite scores do not count toward the sample minimum
	scores := []float64{1, 2, 3, 4, 5, 6, math.Inf(1), math.NaN()}
	assert.Equal(t, ConvergenceInsufficient, convergenceStatus(scores))
}

func TestConvergenceStatusImproving(t *testing.T) {
	scores := []float64{1, 1, 1, 1, 1, 1, 5, 5}
	assert.Equal(t, ConvergenceImproving, convergenceStatus(scores))
}

func TestConvergenceStatusConverged(t *testing.T) {
	scores := []float64{2, 2, 2, 2, 2, 2, 2, 2}
	assert.Equal(t, ConvergenceConverged, convergenceStatus(scores))
}

func TestSensitivityRankingOrdersByCorrelation(t *testing.T) {
	// score tracks stop_loss_pips exactly and ignores min_confidence
	results := []Result{
		{Score: 10, Params: map[string]float64{"stop_loss_pips": 10, "min_confidence": 0.5}},
		{Score: 20, Params: map[string]float64{"stop_loss_pips": 20, "min_confidence": 0.9}},
		{Score: 30, Params: map[string]float64{"stop_loss_pips": 30, "min_confidence": 0.5}},
		{Score: 40, Params: map[string]float64{"stop_loss_pips": 40, "min_confidence": 0.9}},
	}

	ranking := sensitivityRanking(results)
	require.Len(t, ranking, 2)
	assert.Equal(t, "stop_loss_pips", ranking[0].Name)
	assert.InDelta(t, 1.0, ranking[0].Correlation, 1e-9)
	assert.Less(t, math.Abs(ranking[1].Correlation), 1.0)
}

func TestSensitivityRankingSkipsConstantParams(t *testing.T) {
	results := []Result{
		{Score: 10, Params: map[string]float64{"spread_pips": 2}},
		{Score: 20, Params: map[string]float64{"spread_pips": 2}},
	}

	assert.Empty(t, sensitivityRanking(results))
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	corr, ok := pearson([]float64{1, 2, 3}, []float64{2, 4, 6})
	require.True(t, ok)
	assert.InDelta(t, 1.0, corr, 1e-9)

	corr, ok = pearson([]float64{1, 2, 3}, []float64{6, 4, 2})
	require.True(t, ok)
	assert.InDelta(t, -1.0, corr, 1e-9)

	_, ok = pearson([]float64{1, 1, 1}, []float64{2, 4, 6})
	assert.False(t, ok)
}

func TestTopResultsRanksInfinityFirst(t *testing.T) {
	results := resultsWithScores([]float64{3, math.Inf(1), 7, 1})

	top := topResults(results, 3)
	require.Len(t, top, 3)
	assert.True(t, math.IsInf(top[0].Score, 1))
	assert.Equal(t, 7.0, top[1].Score)
	assert.Equal(t, 3.0, top[2].Score)
}

func TestTopResultsTruncates(t *testing.T) {
	scores := make([]float64, 25)
	for i := range scores {
		scores[i] = float64(i)
	}

	top := topResults(resultsWithScores(scores), topResultCount)
	require.Len(t, top, topResultCount)
	assert.Equal(t, 24.0, top[0].Score)
}
