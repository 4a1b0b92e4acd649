package correlation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"insightforge/adapters/stats/numeric"
	domainstats "insightforge/domain/stats"
)

// Pearson returns the linear correlation of paired vectors. It is 0 when
// fewer than two pairs exist or either side has zero variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0
	}
	if numeric.Constant(x) || numeric.Constant(y) {
		return 0
	}
	return clamp(stat.Correlation(x, y, nil))
}

// Spearman is Pearson over average ranks
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	return Pearson(numeric.Ranks(x), numeric.Ranks(y))
}

// Kendall computes tau-b, which corrects for ties on either side. Runs in
// O(n²) over the pairs.
func Kendall(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0
	}
	var concordant, discordant, tiesX, tiesY float64
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]
			switch {
			case dx == 0 && dy == 0:
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case (dx > 0) == (dy > 0):
				concordant++
			default:
				discordant++
			}
		}
	}
	denom := math.Sqrt((concordant + discordant + tiesX) * (concordant + discordant + tiesY))
	if denom == 0 {
		return 0
	}
	return clamp((concordant - discordant) / denom)
}

// Coefficient dispatches on the method; unknown methods fall back to Pearson
func Coefficient(method domainstats.CorrelationMethod, x, y []float64) float64 {
	switch method {
	case domainstats.Spearman:
		return Spearman(x, y)
	case domainstats.Kendall:
		return Kendall(x, y)
	default:
		return Pearson(x, y)
	}
}

func clamp(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}
