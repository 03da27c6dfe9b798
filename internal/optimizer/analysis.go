package optimizer

import (
	"math"
	"sort"
)

// Convergence statuses
const (
	ConvergenceConverged    = "converged"
	ConvergenceImproving    = "improving"
	ConvergenceInsufficient = "insufficient_data"
)

const (
	minConvergenceSamples = 8
	topResultCount        = 10
)

// Distribution summarizes the objective scores of the valid results.
// Non-finite scores are excluded.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// ParameterSensitivity is the Pearson correlation between one parameter's
// sampled values and the objective score
type ParameterSensitivity struct {
	Name        string  `json:"name"`
	Correlation float64 `json:"correlation"`
}

// Analysis is the post-search summary of an optimization run
type Analysis struct {
	Distribution Distribution           `json:"distribution"`
	Convergence  string                 `json:"convergence"`
	Sensitivity  []ParameterSensitivity `json:"sensitivity"`
	TopResults   []Result               `json:"top_results"`
}

// Analyze summarizes the valid results of a search: score distribution,
// a naive convergence check and per-parameter sensitivity ranking
func Analyze(results []Result, metric string) *Analysis {
	analysis := &Analysis{
		Convergence: ConvergenceInsufficient,
		Sensitivity: make([]ParameterSensitivity, 0),
	}

	finite := make([]float64, 0, len(results))
	ordered := make([]float64, 0, len(results))
	for _, r := range results {
		ordered = append(ordered, r.Score)
		if !math.IsInf(r.Score, 0) && !math.IsNaN(r.Score) {
			finite = append(finite, r.Score)
		}
	}

	analysis.Distribution = computeDistribution(finite)
	analysis.Convergence = convergenceStatus(ordered)
	analysis.Sensitivity = sensitivityRanking(results)
	analysis.TopResults = topResults(results, topResultCount)

	return analysis
}

func computeDistribution(scores []float64) Distribution {
	dist := Distribution{Count: len(scores)}
	if len(scores) == 0 {
		return dist
	}

	dist.Mean = mean(scores)
	dist.StdDev = stddev(scores)
	dist.Min = quantile(scores, 0)
	dist.Max = quantile(scores, 1)
	dist.Median = quantile(scores, 0.5)
	dist.Q1 = quantile(scores, 0.25)
	dist.Q3 = quantile(scores, 0.75)
	return dist
}

// convergenceStatus compares a trailing moving average over the last
// quarter of iterations against the mean of everything before it
func convergenceStatus(scores []float64) string {
	finite := make([]float64, 0, len(scores))
	for _, s := range scores {
		if !math.IsInf(s, 0) && !math.IsNaN(s) {
			finite = append(finite, s)
		}
	}
	if len(finite) < minConvergenceSamples {
		return ConvergenceInsufficient
	}

	quarter := len(finite) / 4
	if quarter < 1 {
		quarter = 1
	}
	trailing := mean(finite[len(finite)-quarter:])
	rest := mean(finite[:len(finite)-quarter])

	threshold := math.Abs(rest) * 0.05
	if threshold < 1e-9 {
		threshold = 1e-9
	}
	if trailing-rest > threshold {
		return ConvergenceImproving
	}
	return ConvergenceConverged
}

// sensitivityRanking correlates each parameter's sampled values with the
// objective score, ranked by absolute correlation
func sensitivityRanking(results []Result) []ParameterSensitivity {
	if len(results) < 2 {
		return []ParameterSensitivity{}
	}

	byParam := make(map[string][][2]float64)
	for _, r := range results {
		if math.IsInf(r.Score, 0) || math.IsNaN(r.Score) {
			continue
		}
		for name, value := range r.Params {
			byParam[name] = append(byParam[name], [2]float64{value, r.Score})
		}
	}

	ranking := make([]ParameterSensitivity, 0, len(byParam))
	for name, pairs := range byParam {
		if len(pairs) < 2 {
			continue
		}
		xs := make([]float64, len(pairs))
		ys := make([]float64, len(pairs))
		for i, pair := range pairs {
			xs[i] = pair[0]
			ys[i] = pair[1]
		}
		corr, ok := pearson(xs, ys)
		if !ok {
			continue
		}
		ranking = append(ranking, ParameterSensitivity{Name: name, Correlation: corr})
	}

	sort.Slice(ranking, func(i, j int) bool {
		ai, aj := math.Abs(ranking[i].Correlation), math.Abs(ranking[j].Correlation)
		if ai == aj {
			return ranking[i].Name < ranking[j].Name
		}
		return ai > aj
	})
	return ranking
}

// pearson computes the Pearson correlation coefficient. The second return
// is false when either series has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	meanX := mean(xs)
	meanY := mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

// topResults returns the n best results by score, +Inf ranking first
func topResults(results []Result, n int) []Result {
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return greater(sorted[i].Score, sorted[j].Score)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func mean(values []float64) float64 {
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
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// quantile returns the q-quantile by linear interpolation
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
