// Package hypothesis runs the classical tests: Welch's t, Jarque-Bera and
// one-way ANOVA. Every test returns a TestOutput, failures included.
package hypothesis

import (
	"fmt"
	"math"

	"insightforge/adapters/stats/numeric"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// MinGroupSize is the smallest group a t-test accepts
const MinGroupSize = 3

// WelchTTest compares the means of two independent samples without assuming
// equal variances. Variances use the n-1 denominator and the p-value comes
// from Student's t with Welch-Satterthwaite degrees of freedom.
func WelchTTest(a, b []float64, nameA, nameB string) domainstats.TestOutput {
	out := domainstats.TestOutput{Test: domainstats.TestTTest, PValue: domainstats.NaN()}
	if len(a) < MinGroupSize || len(b) < MinGroupSize {
		return failed(out, errors.Newf(errors.CodeInsufficientData,
			"insufficient data for t-test: need at least %d values per group, got %d and %d",
			MinGroupSize, len(a), len(b)))
	}

	n1, n2 := float64(len(a)), float64(len(b))
	m1, m2 := numeric.Mean(a), numeric.Mean(b)
	v1 := numeric.Variance(a, m1, domainstats.Sample)
	v2 := numeric.Variance(b, m2, domainstats.Sample)

	se1, se2 := v1/n1, v2/n2
	se := math.Sqrt(se1 + se2)
	if se == 0 {
		return failed(out, errors.DegenerateInput("both groups have zero variance, t is undefined"))
	}

	t := (m1 - m2) / se
	df := (se1 + se2) * (se1 + se2) / (se1*se1/(n1-1) + se2*se2/(n2-1))
	p := numeric.TTestPValue(t, df)

	pooled := math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2))
	cohenD := 0.0
	if pooled > 0 {
		cohenD = (m1 - m2) / pooled
	}

	out.Stat = t
	out.PValue = domainstats.Float(p)
	out.DF = &df
	out.Significant = p < domainstats.SignificanceLevel
	if out.Significant {
		out.Conclusion = fmt.Sprintf("The difference between %s and %s is statistically significant.", nameA, nameB)
	} else {
		out.Conclusion = fmt.Sprintf("No significant difference found between %s and %s.", nameA, nameB)
	}
	out.Details = map[string]interface{}{
		"group_a":    nameA,
		"group_b":    nameB,
		"n_a":        len(a),
		"n_b":        len(b),
		"mean_a":     m1,
		"mean_b":     m2,
		"variance_a": v1,
		"variance_b": v2,
		"cohens_d":   cohenD,
		"summary":    fmt.Sprintf("t=%.3f, df=%.1f, p=%.4f", t, df, p),
	}
	return out
}

func failed(out domainstats.TestOutput, err error) domainstats.TestOutput {
	out.Failure = domainstats.FailureFrom(err)
	out.Conclusion = "Test could not be computed: " + err.Error()
	return out
}
