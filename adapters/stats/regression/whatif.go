package regression

import (
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// Projection is a what-if outcome derived from a fitted model. Computing one
// never changes the model it came from.
type Projection struct {
	Inputs    map[string]float64 `json:"inputs"`
	Predicted float64            `json:"predicted"`
	Baseline  float64            `json:"baseline"`
	Delta     float64            `json:"delta"`
}

// Predict evaluates a simple fit at x
func Predict(fit domainstats.RegressionResult, x float64) (float64, error) {
	if fit.Failed() {
		return 0, errors.InvalidInput("cannot predict from a failed fit: " + fit.Error)
	}
	return fit.Slope*x + fit.Intercept, nil
}

// Scenario compares a multiple-regression prediction at baseline inputs with
// one where the given adjustments are applied. Features missing from either
// map count as zero.
func Scenario(fit domainstats.MultipleRegressionResult, baseline, adjust map[string]float64) (Projection, error) {
	if fit.Failed() {
		return Projection{}, errors.InvalidInput("cannot project from a failed fit: " + fit.Error)
	}
	for name := range adjust {
		if _, ok := fit.Coefficients[name]; !ok || name == InterceptKey {
			return Projection{}, errors.InvalidInput("unknown feature " + name)
		}
	}

	inputs := make(map[string]float64, len(fit.Features))
	for _, f := range fit.Features {
		inputs[f] = baseline[f]
		if v, ok := adjust[f]; ok {
			inputs[f] = v
		}
	}
	base := evaluate(fit, baseline)
	predicted := evaluate(fit, inputs)
	return Projection{Inputs: inputs, Predicted: predicted, Baseline: base, Delta: predicted - base}, nil
}

func evaluate(fit domainstats.MultipleRegressionResult, inputs map[string]float64) float64 {
	y := fit.Intercept
	for _, f := range fit.Features {
		y += fit.Coefficients[f] * inputs[f]
	}
	return y
}
