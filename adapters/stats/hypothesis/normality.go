package hypothesis

import (
	"fmt"

	"insightforge/adapters/stats/numeric"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// MinNormalitySize is the smallest sample the Jarque-Bera test accepts
const MinNormalitySize = 3

// JarqueBera tests normality from sample skewness S and kurtosis K (both
// standardized by the population std): JB = n/6·(S² + (K-3)²/4), compared
// with a chi-square distribution on 2 degrees of freedom.
func JarqueBera(values []float64, name string) domainstats.TestOutput {
	out := domainstats.TestOutput{Test: domainstats.TestNormality, PValue: domainstats.NaN()}
	n := len(values)
	if n < MinNormalitySize {
		return failed(out, errors.InsufficientData("normality test", MinNormalitySize, n))
	}

	mean := numeric.Mean(values)
	std := numeric.StdDev(values, domainstats.Population)
	if std == 0 || numeric.Constant(values) {
		return failed(out, errors.DegenerateInput(fmt.Sprintf("%s has zero variance, skewness is undefined", name)))
	}
	skew, kurtosis := numeric.Moments(values, mean, std)

	jb := float64(n) / 6 * (skew*skew + (kurtosis-3)*(kurtosis-3)/4)
	p := numeric.ChiSquarePValue(jb, 2)
	df := 2.0

	out.Stat = jb
	out.PValue = domainstats.Float(p)
	out.DF = &df
	out.Significant = p < domainstats.SignificanceLevel
	if out.Significant {
		out.Conclusion = fmt.Sprintf("%s does not appear normally distributed.", name)
	} else {
		out.Conclusion = fmt.Sprintf("%s is consistent with a normal distribution.", name)
	}
	out.Details = map[string]interface{}{
		"column":   name,
		"n":        n,
		"skewness": skew,
		"kurtosis": kurtosis,
	}
	return out
}
