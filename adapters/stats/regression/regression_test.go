package regression

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightforge/domain/dataset"
	"insightforge/internal/errors"
)

func xy(xs, ys []any) *dataset.Dataset {
	rows := make([]dataset.RowRecord, len(xs))
	for i := range xs {
		rows[i] = dataset.RowRecord{"x": xs[i], "y": ys[i]}
	}
	return dataset.New(rows, []string{"x", "y"})
}

func TestSimplePerfectLine(t *testing.T) {
	res := Simple(xy([]any{1, 2, 3, 4}, []any{3, 5, 7, 9}), "x", "y")

	require.False(t, res.Failed(), res.Error)
	assert.InDelta(t, 2.0, res.Slope, 1e-12)
	assert.InDelta(t, 1.0, res.Intercept, 1e-12)
	assert.InDelta(t, 1.0, float64(res.R2), 1e-12)
	assert.Equal(t, 4, res.N)
	assert.Len(t, res.Points, 4)
	require.Len(t, res.LinePoints, 2)
	assert.Equal(t, 1.0, res.LinePoints[0].X)
	assert.InDelta(t, 3.0, res.LinePoints[0].Y, 1e-12)
	assert.Equal(t, 4.0, res.LinePoints[1].X)
	assert.InDelta(t, 9.0, res.LinePoints[1].Y, 1e-12)
}

func TestSimpleUsesPairedRows(t *testing.T) {
	res := Simple(xy(
		[]any{1, 2, nil, 3, "bad", 4},
		[]any{3, 5, 100, 7, 200, 9},
	), "x", "y")
	require.False(t, res.Failed())
	assert.Equal(t, 4, res.N)
	assert.InDelta(t, 2.0, res.Slope, 1e-12)
}

func TestSimpleInsufficientData(t *testing.T) {
	res := Simple(xy([]any{1}, []any{2}), "x", "y")
	assert.True(t, res.Failed())
	assert.Equal(t, errors.CodeInsufficientData, res.ErrorCode)
	assert.Nil(t, res.LinePoints)
}

func TestSimpleConstantXIsDegenerate(t *testing.T) {
	res := Simple(xy([]any{2, 2, 2}, []any{1, 2, 3}), "x", "y")
	assert.True(t, res.Failed())
	assert.Equal(t, errors.CodeDegenerateInput, res.ErrorCode)
}

func TestSimpleConstantYHasUndefinedR2(t *testing.T) {
	res := Simple(xy([]any{1, 2, 3}, []any{5, 5, 5}), "x", "y")
	require.False(t, res.Failed())
	assert.InDelta(t, 0.0, res.Slope, 1e-12)
	assert.True(t, math.IsNaN(float64(res.R2)))

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"r2":null`)
}

func TestSimpleUnknownColumn(t *testing.T) {
	res := Simple(xy([]any{1, 2}, []any{1, 2}), "x", "nope")
	assert.Equal(t, errors.CodeColumnNotFound, res.ErrorCode)
}

func TestMultipleRecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	rows := make([]dataset.RowRecord, 60)
	for i := range rows {
		a := rng.Float64() * 10
		b := rng.Float64() * 5
		rows[i] = dataset.RowRecord{"a": a, "b": b, "y": 4 + 1.5*a - 2*b}
	}
	rows[10]["b"] = nil
	ds := dataset.New(rows, []string{"a", "b", "y"})

	res := Multiple(ds, "y", []string{"a", "b"})
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, 59, res.N)
	assert.InDelta(t, 4.0, res.Coefficients[InterceptKey], 1e-8)
	assert.InDelta(t, 1.5, res.Coefficients["a"], 1e-8)
	assert.InDelta(t, -2.0, res.Coefficients["b"], 1e-8)
	assert.InDelta(t, 1.0, float64(res.R2), 1e-10)
	assert.InDelta(t, 0.0, res.MSE, 1e-10)
	assert.Len(t, res.ActualVsPredicted, MaxPredictionPoints)
}

func TestMultipleFailures(t *testing.T) {
	small := dataset.New([]dataset.RowRecord{
		{"a": 1, "y": 2}, {"a": 2, "y": 4}, {"a": 3, "y": 6},
	}, nil)
	assert.Equal(t, errors.CodeInsufficientData, Multiple(small, "y", []string{"a"}).ErrorCode)
	assert.Equal(t, errors.CodeInvalidInput, Multiple(small, "y", nil).ErrorCode)
	assert.Equal(t, errors.CodeColumnNotFound, Multiple(small, "y", []string{"zz"}).ErrorCode)

	rows := make([]dataset.RowRecord, 8)
	for i := range rows {
		rows[i] = dataset.RowRecord{"a": i, "twice": 2 * i, "y": i * 3}
	}
	collinear := Multiple(dataset.New(rows, nil), "y", []string{"a", "twice"})
	assert.Equal(t, errors.CodeDegenerateInput, collinear.ErrorCode)
}

func TestWhatIfDoesNotMutateFit(t *testing.T) {
	rows := make([]dataset.RowRecord, 10)
	for i := range rows {
		rows[i] = dataset.RowRecord{"price": float64(i), "ads": float64(i % 3), "sales": 10 + 2*float64(i) + 5*float64(i%3)}
	}
	fit := Multiple(dataset.New(rows, nil), "sales", []string{"price", "ads"})
	require.False(t, fit.Failed(), fit.Error)
	before := fit.Coefficients["ads"]

	proj, err := Scenario(fit, map[string]float64{"price": 4, "ads": 1}, map[string]float64{"ads": 2})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, proj.Delta, 1e-8)
	assert.Equal(t, 2.0, proj.Inputs["ads"])
	assert.Equal(t, before, fit.Coefficients["ads"])

	_, err = Scenario(fit, nil, map[string]float64{"unknown": 1})
	assert.Error(t, err)

	simple := Simple(xy([]any{1, 2, 3, 4}, []any{3, 5, 7, 9}), "x", "y")
	y, err := Predict(simple, 10)
	require.NoError(t, err)
	assert.InDelta(t, 21.0, y, 1e-9)
}

func repeatedAny(v float64, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sequence(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestSimpleNonIntegerConstants(t *testing.T) {
	for _, v := range []float64{0.1, 2.7} {
		for n := 3; n <= 10; n++ {
			flatY := Simple(xy(sequence(n), repeatedAny(v, n)), "x", "y")
			require.False(t, flatY.Failed(), flatY.Error)
			assert.True(t, math.IsNaN(float64(flatY.R2)), "y=%v x %d", v, n)

			flatX := Simple(xy(repeatedAny(v, n), sequence(n)), "x", "y")
			assert.Equal(t, errors.CodeDegenerateInput, flatX.ErrorCode, "x=%v x %d", v, n)
			assert.Nil(t, flatX.LinePoints)
		}
	}
}

func TestMultipleConstantFeatureIsDegenerate(t *testing.T) {
	rows := make([]dataset.RowRecord, 8)
	for i := range rows {
		rows[i] = dataset.RowRecord{"y": float64(i) * 1.5, "a": float64(i), "b": 2.7}
	}
	res := Multiple(dataset.New(rows, []string{"y", "a", "b"}), "y", []string{"a", "b"})
	assert.Equal(t, errors.CodeDegenerateInput, res.ErrorCode)
	assert.Contains(t, res.Error, `"b"`)
}
