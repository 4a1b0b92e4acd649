package correlation

import "math"

// StrengthPolicy maps |r| onto a label. Two policies exist and callers pick
// one; they are intentionally not unified.
type StrengthPolicy struct {
	Name       string
	Thresholds []float64 // descending, compared with >
	Labels     []string  // len(Thresholds)+1, last is the fallback
}

var (
	// RankingPolicy labels correlation rankings and heatmaps
	RankingPolicy = StrengthPolicy{
		Name:       "ranking",
		Thresholds: []float64{0.8, 0.5, 0.3},
		Labels:     []string{"Strong", "Moderate", "Weak", "Very Weak"},
	}
	// InsightPolicy labels generated insights
	InsightPolicy = StrengthPolicy{
		Name:       "insight",
		Thresholds: []float64{0.7, 0.5},
		Labels:     []string{"strong", "moderate", "weak"},
	}
)

// Label classifies a coefficient
func (p StrengthPolicy) Label(r float64) string {
	abs := math.Abs(r)
	for i, t := range p.Thresholds {
		if abs > t {
			return p.Labels[i]
		}
	}
	return p.Labels[len(p.Labels)-1]
}

// Direction is "positive", "negative" or "none"
func Direction(r float64) string {
	switch {
	case r > 0:
		return "positive"
	case r < 0:
		return "negative"
	default:
		return "none"
	}
}
