// Package optimizer searches a strategy's hyperparameter space by running
// backtest jobs under bounded concurrency.
package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ParameterRange describes the search space of one tunable parameter.
// An explicit Values list takes precedence over the numeric range.
type ParameterRange struct {
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Step    float64   `json:"step,omitempty"`
	Values  []float64 `json:"values,omitempty"`
	Integer bool      `json:"integer,omitempty"`
}

// Validate checks the range definition
func (r ParameterRange) Validate() error {
	if len(r.Values) > 0 {
		return nil
	}
	if r.Max < r.Min {
		return fmt.Errorf("max %v is below min %v", r.Max, r.Min)
	}
	return nil
}

// Expand materializes the range into its discrete value set. Numeric ranges
// walk min to max inclusive by step.
func (r ParameterRange) Expand() []float64 {
	if len(r.Values) > 0 {
		out := make([]float64, len(r.Values))
		copy(out, r.Values)
		return out
	}
	if r.Step <= 0 || r.Max == r.Min {
		return []float64{r.Min}
	}

	values := make([]float64, 0)
	// Small tolerance so max is included despite float accumulation
	for v := r.Min; v <= r.Max+r.Step*1e-9; v += r.Step {
		values = append(values, r.round(v))
	}
	return values
}

// Sample draws one uniform value from the range
func (r ParameterRange) Sample(rng *rand.Rand) float64 {
	if len(r.Values) > 0 {
		return r.Values[rng.Intn(len(r.Values))]
	}
	if r.Max == r.Min {
		return r.Min
	}
	if r.Integer {
		span := int64(r.Max-r.Min) + 1
		return math.Trunc(r.Min) + float64(rng.Int63n(span))
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Perturb shifts a value by up to ±10% of the range span. Explicit value
// lists move one adjacent index instead.
func (r ParameterRange) Perturb(current float64, rng *rand.Rand) float64 {
	if len(r.Values) > 0 {
		idx := 0
		for i, v := range r.Values {
			if v == current {
				idx = i
				break
			}
		}
		if rng.Intn(2) == 0 {
			idx--
		} else {
			idx++
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(r.Values) {
			idx = len(r.Values) - 1
		}
		return r.Values[idx]
	}

	span := r.Max - r.Min
	if span == 0 {
		return r.Min
	}
	value := current + (rng.Float64()*2-1)*0.1*span
	return r.clamp(r.round(value))
}

func (r ParameterRange) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func (r ParameterRange) round(v float64) float64 {
	if r.Integer {
		return math.Round(v)
	}
	return v
}

// Candidate is one parameter set to evaluate, attributed by its iteration
// index
type Candidate struct {
	Index  int
	Values map[string]float64
}

// sortedNames returns the parameter names in stable order so candidate
// generation is deterministic
func sortedNames(ranges map[string]ParameterRange) []string {
	names := make([]string, 0, len(ranges))
	for name := range ranges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// expandGrid builds the full cartesian product of all parameter value sets,
// then uniformly stride-subsamples it down to at most maxIterations
// combinations
func expandGrid(ranges map[string]ParameterRange, maxIterations int) []Candidate {
	names := sortedNames(ranges)
	sets := make([][]float64, len(names))
	for i, name := range names {
		sets[i] = ranges[name].Expand()
	}

	combos := cartesianProduct(names, sets)
	combos = strideSubsample(combos, maxIterations)

	candidates := make([]Candidate, len(combos))
	for i, combo := range combos {
		candidates[i] = Candidate{Index: i, Values: combo}
	}
	return candidates
}

func cartesianProduct(names []string, sets [][]float64) []map[string]float64 {
	total := 1
	for _, set := range sets {
		total *= len(set)
	}
	if total == 0 {
		return nil
	}

	combos := make([]map[string]float64, 0, total)
	indices := make([]int, len(sets))
	for {
		combo := make(map[string]float64, len(names))
		for i, name := range names {
			combo[name] = sets[i][indices[i]]
		}
		combos = append(combos, combo)

		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(sets[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return combos
}

// strideSubsample uniformly thins combos down to exactly max entries
func strideSubsample(combos []map[string]float64, max int) []map[string]float64 {
	if max <= 0 || len(combos) <= max {
		return combos
	}
	out := make([]map[string]float64, 0, max)
	stride := float64(len(combos)) / float64(max)
	for i := 0; i < max; i++ {
		out = append(out, combos[int(float64(i)*stride)])
	}
	return out
}

// sampleRandom draws count independent uniform candidates
func sampleRandom(ranges map[string]ParameterRange, count int, rng *rand.Rand) []Candidate {
	names := sortedNames(ranges)
	candidates := make([]Candidate, count)
	for i := 0; i < count; i++ {
		values := make(map[string]float64, len(names))
		for _, name := range names {
			values[name] = ranges[name].Sample(rng)
		}
		candidates[i] = Candidate{Index: i, Values: values}
	}
	return candidates
}

// perturbCandidate perturbs every parameter of the given best values
func perturbCandidate(ranges map[string]ParameterRange, best map[string]float64, index int, rng *rand.Rand) Candidate {
	names := sortedNames(ranges)
	values := make(map[string]float64, len(names))
	for _, name := range names {
		values[name] = ranges[name].Perturb(best[name], rng)
	}
	return Candidate{Index: index, Values: values}
}
