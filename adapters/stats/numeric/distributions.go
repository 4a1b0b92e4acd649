package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TTestPValue is the two-tailed p-value of a t statistic with (possibly
// fractional) degrees of freedom
func TTestPValue(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) || math.IsNaN(df) {
		return math.NaN()
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(math.Abs(t)))
}

// CorrelationPValue tests r against zero through the t transform, df = n-2
func CorrelationPValue(r float64, n int) float64 {
	if n < 3 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	return TTestPValue(t, df)
}

// FTestPValue is the upper tail of the F distribution
func FTestPValue(f, df1, df2 float64) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(f) {
		return math.NaN()
	}
	dist := distuv.F{D1: df1, D2: df2}
	return 1 - dist.CDF(f)
}

// ChiSquarePValue is the upper tail of the chi-square distribution
func ChiSquarePValue(x, df float64) float64 {
	if df <= 0 || math.IsNaN(x) {
		return math.NaN()
	}
	dist := distuv.ChiSquared{K: df}
	return 1 - dist.CDF(x)
}
