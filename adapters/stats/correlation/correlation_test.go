package correlation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
)

func TestPearsonKnownValues(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3, 4}, []float64{3, 5, 7, 9}), 1e-12)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.InDelta(t, 0.8, Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5}), 1e-12)
}

func TestPearsonZeroDenominatorIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Pearson([]float64{1, 2, 3}, []float64{4, 4, 4}))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{2}))
	assert.Equal(t, 0.0, Pearson(nil, nil))
}

func TestRankCoefficients(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 4, 9, 16, 100}
	assert.InDelta(t, 1.0, Spearman(x, y), 1e-12, "monotonic data has rho = 1")
	assert.InDelta(t, 1.0, Kendall(x, y), 1e-12)
	assert.Less(t, Pearson(x, y), 1.0)

	// one swapped pair out of ten
	assert.InDelta(t, 0.8, Kendall([]float64{1, 2, 3, 4, 5}, []float64{2, 1, 3, 4, 5}), 1e-12)
}

func randomDataset(rng *rand.Rand, rows int) *dataset.Dataset {
	data := make([]dataset.RowRecord, rows)
	for i := range data {
		base := rng.NormFloat64()
		row := dataset.RowRecord{
			"a":     base,
			"b":     2*base + 0.3*rng.NormFloat64(),
			"c":     -base + rng.NormFloat64(),
			"d":     rng.NormFloat64(),
			"label": []string{"x", "y", "z"}[i%3],
		}
		if i%7 == 0 {
			row["b"] = nil
		}
		if i%11 == 0 {
			row["c"] = "n/a"
		}
		data[i] = row
	}
	return dataset.New(data, []string{"a", "b", "c", "d", "label"})
}

func TestCalculateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ds := randomDataset(rng, 300)

	opts := DefaultOptions()
	opts.Threshold = 0
	for _, method := range []domainstats.CorrelationMethod{domainstats.Pearson, domainstats.Spearman, domainstats.Kendall} {
		opts.Method = method
		result := Calculate(ds, opts)

		seen := make(map[[2]string]bool)
		for i, c := range result {
			assert.NotEqual(t, c.Col1, c.Col2, "self pairs are excluded")
			assert.GreaterOrEqual(t, c.Correlation, -1.0)
			assert.LessOrEqual(t, c.Correlation, 1.0)
			key := [2]string{c.Col1, c.Col2}
			rev := [2]string{c.Col2, c.Col1}
			assert.False(t, seen[key] || seen[rev], "each unordered pair appears once")
			seen[key] = true
			assert.NotEqual(t, "label", c.Col1)
			assert.NotEqual(t, "label", c.Col2)
			if i > 0 {
				assert.GreaterOrEqual(t, math.Abs(result[i-1].Correlation), math.Abs(c.Correlation))
			}

			xs, ys := ds.Paired(c.Col1, c.Col2)
			yx, xy := ds.Paired(c.Col2, c.Col1)
			assert.Equal(t, Coefficient(method, xs, ys), Coefficient(method, yx, xy), "symmetry for %s", method)
		}
	}
}

func TestCalculateDefaultThresholdAndOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ds := randomDataset(rng, 400)

	result := CalculateCorrelations(ds, nil)
	require.NotEmpty(t, result)
	assert.Equal(t, "a", result[0].Col1)
	assert.Equal(t, "b", result[0].Col2)
	assert.Greater(t, result[0].Correlation, 0.95)
	for _, c := range result {
		assert.Greater(t, math.Abs(c.Correlation), DefaultThreshold)
		assert.True(t, c.PValue.Defined())
	}
}

func TestPairedFilteringDiffersFromIndependentFiltering(t *testing.T) {
	ds := dataset.New([]dataset.RowRecord{
		{"x": 1, "y": 1},
		{"x": nil, "y": 100},
		{"x": 2, "y": 2},
		{"x": 3, "y": nil},
		{"x": 4, "y": 4},
		{"x": 5, "y": 5},
	}, []string{"x", "y"})

	result := CalculateCorrelations(ds, nil)
	require.Len(t, result, 1)
	assert.InDelta(t, 1.0, result[0].Correlation, 1e-12)
	assert.Equal(t, 4, result[0].N)

	// dropping invalid values per column and pairing by position gives a different answer
	independent := Pearson(ds.NumericColumn("x")[:4], ds.NumericColumn("y")[:4])
	assert.Less(t, independent, 0.9)
}

func TestUndefinedPairsAreNotReported(t *testing.T) {
	ds := dataset.New([]dataset.RowRecord{
		{"x": 1, "flat": 3}, {"x": 2, "flat": 3}, {"x": 3, "flat": 3},
	}, nil)
	opts := DefaultOptions()
	opts.Threshold = 0
	assert.Empty(t, Calculate(ds, opts))

	m := Matrix(ds, opts)
	require.Equal(t, []string{"flat", "x"}, m.Columns)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, m.Values)
}

func TestStrengthPolicies(t *testing.T) {
	cases := []struct {
		r       float64
		ranking string
		insight string
	}{
		{0.85, "Strong", "strong"},
		{-0.75, "Moderate", "strong"},
		{0.6, "Moderate", "moderate"},
		{0.4, "Weak", "weak"},
		{0.1, "Very Weak", "weak"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ranking, RankingPolicy.Label(tc.r), "ranking %v", tc.r)
		assert.Equal(t, tc.insight, InsightPolicy.Label(tc.r), "insight %v", tc.r)
	}
	assert.Equal(t, "negative", Direction(-0.2))
}
