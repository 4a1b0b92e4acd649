// Package correlation computes pairwise correlations between numeric columns.
package correlation

import (
	"math"
	"sort"

	"insightforge/adapters/stats/numeric"
	"insightforge/adapters/stats/profile"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
)

// DefaultThreshold is the minimum |r| kept by the primary analysis path
const DefaultThreshold = 0.1

// Options configures Calculate
type Options struct {
	Method    domainstats.CorrelationMethod `json:"method"`
	Threshold float64                       `json:"threshold"`
	// Columns restricts the candidates; empty means every column
	Columns []string `json:"columns,omitempty"`
	// Types short-circuits inference when the caller already profiled the dataset
	Types map[string]dataset.ColumnType `json:"-"`
}

// DefaultOptions is Pearson with |r| > 0.1
func DefaultOptions() Options {
	return Options{Method: domainstats.Pearson, Threshold: DefaultThreshold}
}

// CalculateCorrelations is the primary-path entry: Pearson, |r| > 0.1,
// strongest first.
func CalculateCorrelations(ds *dataset.Dataset, columns []string) []domainstats.CorrelationData {
	opts := DefaultOptions()
	opts.Columns = columns
	return Calculate(ds, opts)
}

// Calculate correlates every unordered pair of numeric columns using rows
// where both values parse. Pairs with |r| <= Threshold are dropped, so an
// undefined coefficient (reported as 0) never appears. Results are sorted by
// |r| descending; equal strengths keep column order.
func Calculate(ds *dataset.Dataset, opts Options) []domainstats.CorrelationData {
	if opts.Method == "" {
		opts.Method = domainstats.Pearson
	}
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	cols := numericColumns(ds, opts)

	var out []domainstats.CorrelationData
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			xs, ys := ds.Paired(cols[i], cols[j])
			r := Coefficient(opts.Method, xs, ys)
			if math.Abs(r) <= opts.Threshold {
				continue
			}
			out = append(out, domainstats.CorrelationData{
				Col1:        cols[i],
				Col2:        cols[j],
				Correlation: r,
				Method:      opts.Method,
				N:           len(xs),
				PValue:      domainstats.Float(numeric.CorrelationPValue(r, len(xs))),
			})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return math.Abs(out[a].Correlation) > math.Abs(out[b].Correlation)
	})
	return out
}

// Matrix returns the full symmetric matrix with ones on the diagonal and 0
// for undefined pairs.
func Matrix(ds *dataset.Dataset, opts Options) domainstats.CorrelationMatrix {
	if opts.Method == "" {
		opts.Method = domainstats.Pearson
	}
	cols := numericColumns(ds, opts)
	values := make([][]float64, len(cols))
	for i := range values {
		values[i] = make([]float64, len(cols))
		values[i][i] = 1
	}
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			xs, ys := ds.Paired(cols[i], cols[j])
			r := Coefficient(opts.Method, xs, ys)
			values[i][j] = r
			values[j][i] = r
		}
	}
	return domainstats.CorrelationMatrix{Columns: cols, Method: opts.Method, Values: values}
}

func numericColumns(ds *dataset.Dataset, opts Options) []string {
	candidates := opts.Columns
	if len(candidates) == 0 {
		candidates = ds.Columns
	}
	var cols []string
	for _, c := range candidates {
		t, ok := opts.Types[c]
		if !ok {
			t = profile.InferColumnType(ds, c, profile.DefaultInferOptions())
		}
		if t == dataset.TypeNumeric {
			cols = append(cols, c)
		}
	}
	return cols
}
