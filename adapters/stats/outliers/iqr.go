// Package outliers flags values outside Tukey fences built from index
// quartiles.
package outliers

import (
	"insightforge/adapters/stats/numeric"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// FenceMultiplier scales the IQR into the outlier bounds
const FenceMultiplier = 1.5

// Detect finds outliers in values. Q1 and Q3 are sorted[floor(0.25n)] and
// sorted[floor(0.75n)]; outliers are reported in input order.
func Detect(column string, values []float64) domainstats.OutlierInfo {
	info := domainstats.OutlierInfo{Column: column, N: len(values), Outliers: []float64{}}
	if len(values) == 0 {
		info.Severity = domainstats.SeverityLow
		info.Failure = domainstats.FailureFrom(errors.InsufficientData("outlier detection", 1, 0))
		return info
	}

	sorted := numeric.Sorted(values)
	info.Q1 = numeric.IndexQuantile(sorted, 0.25)
	info.Q3 = numeric.IndexQuantile(sorted, 0.75)
	info.IQR = info.Q3 - info.Q1
	info.LowerBound = info.Q1 - FenceMultiplier*info.IQR
	info.UpperBound = info.Q3 + FenceMultiplier*info.IQR

	for _, v := range values {
		if v < info.LowerBound || v > info.UpperBound {
			info.Outliers = append(info.Outliers, v)
		}
	}
	info.Count = len(info.Outliers)
	info.Percentage = float64(info.Count) / float64(len(values)) * 100
	info.Severity = Severity(info.Percentage)
	return info
}

// Severity labels an outlier percentage: >5 High, >1 Medium, else Low
func Severity(percentage float64) domainstats.Severity {
	switch {
	case percentage > 5:
		return domainstats.SeverityHigh
	case percentage > 1:
		return domainstats.SeverityMedium
	default:
		return domainstats.SeverityLow
	}
}

// DetectAll runs Detect over every numeric column described in columnStats
func DetectAll(ds *dataset.Dataset, columnStats []domainstats.ColumnStats) []domainstats.OutlierInfo {
	out := make([]domainstats.OutlierInfo, 0, len(columnStats))
	for _, cs := range columnStats {
		if !cs.IsNumeric() {
			continue
		}
		out = append(out, Detect(cs.Name, ds.NumericColumn(cs.Name)))
	}
	return out
}

// BoxPlot summarizes values with the same index quartiles; the median here is
// sorted[floor(n/2)] to stay consistent with the fences.
func BoxPlot(values []float64) (domainstats.BoxPlot, bool) {
	if len(values) == 0 {
		return domainstats.BoxPlot{}, false
	}
	sorted := numeric.Sorted(values)
	return domainstats.BoxPlot{
		Min:    sorted[0],
		Q1:     numeric.IndexQuantile(sorted, 0.25),
		Median: numeric.IndexQuantile(sorted, 0.5),
		Q3:     numeric.IndexQuantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
		Mean:   numeric.Mean(values),
	}, true
}
