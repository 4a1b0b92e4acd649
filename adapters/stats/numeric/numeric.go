// Package numeric holds the small numerical kernels shared by the statistics
// adapters: sorting, index quartiles, moments and p-value lookups.
package numeric

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	domainstats "insightforge/domain/stats"
)

// Sorted returns an ascending copy of values
func Sorted(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// IndexQuantile returns sorted[floor(p*n)] without interpolation. The caller
// passes an ascending slice; an empty slice yields NaN.
func IndexQuantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := int(math.Floor(p * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Mean is the arithmetic mean, NaN for empty input
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Sum(values) / float64(len(values))
}

// Constant reports whether every value is identical. Rounding in a sum of
// squared deviations can leave a tiny positive residue for constants like
// 0.1, so zero-variance checks compare the values themselves.
func Constant(values []float64) bool {
	return len(values) > 0 && floats.Min(values) == floats.Max(values)
}

// Variance returns the variance around mean using the requested denominator.
// It is NaN when the denominator would be zero and exactly 0 for a constant
// input.
func Variance(values []float64, mean float64, dispersion domainstats.Dispersion) float64 {
	n := len(values)
	denom := float64(n)
	if dispersion == domainstats.Sample {
		denom = float64(n - 1)
	}
	if denom <= 0 {
		return math.NaN()
	}
	if Constant(values) {
		return 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / denom
}

// StdDev is the square root of Variance, exactly 0 for a constant input
func StdDev(values []float64, dispersion domainstats.Dispersion) float64 {
	if len(values) == 0 || (dispersion == domainstats.Sample && len(values) < 2) {
		return math.NaN()
	}
	if Constant(values) {
		return 0
	}
	if dispersion == domainstats.Sample {
		sd, err := stats.StandardDeviationSample(values)
		if err != nil || len(values) < 2 {
			return math.NaN()
		}
		return sd
	}
	sd, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return math.NaN()
	}
	return sd
}

// Moments returns the standardized third and fourth moments Σz³/n and Σz⁴/n.
// Both are NaN when std is zero or undefined, or the values are constant.
func Moments(values []float64, mean, std float64) (skew, kurtosis float64) {
	n := len(values)
	if n == 0 || std == 0 || math.IsNaN(std) || Constant(values) {
		return math.NaN(), math.NaN()
	}
	var m3, m4 float64
	for _, v := range values {
		z := (v - mean) / std
		z2 := z * z
		m3 += z2 * z
		m4 += z2 * z2
	}
	return m3 / float64(n), m4 / float64(n)
}

// Ranks assigns 1-based ranks, averaging ties
func Ranks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}
