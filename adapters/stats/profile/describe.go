package profile

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"insightforge/adapters/stats/numeric"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
)

// DescribeOptions controls column profiling
type DescribeOptions struct {
	Infer      InferOptions           `json:"infer"`
	Dispersion domainstats.Dispersion `json:"dispersion"`
}

// DefaultDescribeOptions uses majority-vote inference and population variance
func DefaultDescribeOptions() DescribeOptions {
	return DescribeOptions{Infer: DefaultInferOptions(), Dispersion: domainstats.Population}
}

// DescribeAll profiles every column, preserving column order
func DescribeAll(ds *dataset.Dataset, opts DescribeOptions) []domainstats.ColumnStats {
	out := make([]domainstats.ColumnStats, len(ds.Columns))
	for i, c := range ds.Columns {
		out[i] = Describe(ds, c, opts)
	}
	return out
}

// Describe profiles one column. Counts are always filled; numeric fields
// only for numeric columns with at least one parseable value.
func Describe(ds *dataset.Dataset, column string, opts DescribeOptions) domainstats.ColumnStats {
	if opts.Dispersion == "" {
		opts.Dispersion = domainstats.Population
	}

	cs := domainstats.ColumnStats{
		Name:  column,
		Type:  InferColumnType(ds, column, opts.Infer),
		Count: ds.Len(),
	}

	unique := make(map[string]struct{})
	for _, row := range ds.Rows {
		v := row[column]
		if dataset.IsMissing(v) {
			cs.Missing++
			continue
		}
		unique[fmt.Sprintf("%T:%v", v, v)] = struct{}{}
	}
	cs.Unique = len(unique)
	if cs.Count > 0 {
		cs.MissingPercent = float64(cs.Missing) / float64(cs.Count) * 100
	}

	if cs.IsNumeric() {
		fillNumeric(&cs, ds.NumericColumn(column), opts.Dispersion)
	}
	return cs
}

func fillNumeric(cs *domainstats.ColumnStats, values []float64, dispersion domainstats.Dispersion) {
	cs.NumericCount = len(values)
	if len(values) == 0 {
		return
	}
	cs.Dispersion = dispersion

	mean := numeric.Mean(values)
	median, _ := stats.Median(values)
	sorted := numeric.Sorted(values)
	q1 := numeric.IndexQuantile(sorted, 0.25)
	q3 := numeric.IndexQuantile(sorted, 0.75)
	std := numeric.StdDev(values, dispersion)

	cs.Mean = domainstats.Ptr(mean)
	cs.Median = domainstats.Ptr(median)
	cs.Min = domainstats.Ptr(sorted[0])
	cs.Max = domainstats.Ptr(sorted[len(sorted)-1])
	cs.Std = domainstats.Ptr(std)
	cs.Q1 = domainstats.Ptr(q1)
	cs.Q3 = domainstats.Ptr(q3)
	cs.IQR = domainstats.Ptr(q3 - q1)

	skew, kurtosis := numeric.Moments(values, mean, std)
	cs.Skew = domainstats.Ptr(skew)
	cs.Kurtosis = domainstats.Ptr(kurtosis)
}

// MissingSummary lists the columns that have at least one missing value
func MissingSummary(ds *dataset.Dataset) []domainstats.MissingSummary {
	var out []domainstats.MissingSummary
	n := ds.Len()
	if n == 0 {
		return out
	}
	for _, c := range ds.Columns {
		missing := 0
		for _, row := range ds.Rows {
			if dataset.IsMissing(row[c]) {
				missing++
			}
		}
		if missing > 0 {
			out = append(out, domainstats.MissingSummary{
				Column:  c,
				Missing: missing,
				Percent: float64(missing) / float64(n) * 100,
			})
		}
	}
	return out
}

// Find returns the stats of a named column
func Find(all []domainstats.ColumnStats, name string) (domainstats.ColumnStats, bool) {
	for _, cs := range all {
		if cs.Name == name {
			return cs, true
		}
	}
	return domainstats.ColumnStats{}, false
}

// NumericColumns returns the names of numeric columns in order
func NumericColumns(all []domainstats.ColumnStats) []string {
	var names []string
	for _, cs := range all {
		if cs.IsNumeric() {
			names = append(names, cs.Name)
		}
	}
	return names
}
