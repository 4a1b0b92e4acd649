package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"insightforge/adapters/stats/numeric"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// InterceptKey names the intercept in coefficient maps
const InterceptKey = "(Intercept)"

// MaxPredictionPoints bounds ActualVsPredicted
const MaxPredictionPoints = 50

// Multiple fits target on features by solving the normal equations
// (XᵀX)β = Xᵀy over complete rows. At least max(5, p+2) rows are required.
func Multiple(ds *dataset.Dataset, target string, features []string) domainstats.MultipleRegressionResult {
	result := domainstats.MultipleRegressionResult{
		Target:            target,
		Features:          append([]string(nil), features...),
		Coefficients:      map[string]float64{},
		R2:                domainstats.NaN(),
		ActualVsPredicted: []domainstats.PredictionPoint{},
	}
	if len(features) == 0 {
		result.Failure = domainstats.FailureFrom(errors.InvalidInput("at least one feature is required"))
		return result
	}
	columns := append([]string{target}, features...)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !ds.HasColumn(c) {
			result.Failure = domainstats.FailureFrom(errors.ColumnNotFound(c))
			return result
		}
		if seen[c] {
			result.Failure = domainstats.FailureFrom(errors.InvalidInput(fmt.Sprintf("column %q listed twice", c)))
			return result
		}
		seen[c] = true
	}

	rows := ds.CompleteRows(columns)
	n, p := len(rows), len(features)
	result.N = n
	need := p + 2
	if need < 5 {
		need = 5
	}
	if n < need {
		result.Failure = domainstats.FailureFrom(errors.InsufficientData("multiple regression", need, n))
		return result
	}

	X := mat.NewDense(n, p+1, nil)
	y := mat.NewVecDense(n, nil)
	for i, row := range rows {
		y.SetVec(i, row[0])
		X.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			X.Set(i, j+1, row[j+1])
		}
	}
	for j, f := range features {
		if numeric.Constant(mat.Col(nil, j+1, X)) {
			result.Failure = domainstats.FailureFrom(errors.DegenerateInput(
				fmt.Sprintf("feature %q is constant", f)))
			return result
		}
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		result.Failure = domainstats.FailureFrom(errors.DegenerateInput(
			fmt.Sprintf("features are collinear or constant: %v", err)))
		return result
	}

	result.Intercept = beta.AtVec(0)
	result.Coefficients[InterceptKey] = result.Intercept
	for j, f := range features {
		result.Coefficients[f] = beta.AtVec(j + 1)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)

	var ssRes, ssTot, meanY float64
	for i := 0; i < n; i++ {
		meanY += y.AtVec(i)
	}
	meanY /= float64(n)
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		d := y.AtVec(i) - meanY
		ssRes += r * r
		ssTot += d * d
		if i < MaxPredictionPoints {
			result.ActualVsPredicted = append(result.ActualVsPredicted, domainstats.PredictionPoint{
				Index:     i,
				Actual:    y.AtVec(i),
				Predicted: fitted.AtVec(i),
			})
		}
	}
	result.MSE = ssRes / float64(n)
	if ssTot == 0 || numeric.Constant(y.RawVector().Data) {
		result.R2 = domainstats.Float(math.NaN())
	} else {
		result.R2 = domainstats.Float(1 - ssRes/ssTot)
	}
	return result
}
