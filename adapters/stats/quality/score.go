// Package quality scores a dataset as a whole: missingness, volatility,
// duplicates and mixed types become one 0-100 score, and single values far
// from their column mean become anomalies.
package quality

import (
	"fmt"
	"math"

	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
)

// Penalty thresholds and caps
const (
	HighMissingPercent    = 20.0
	HighMissingPoints     = 5.0
	HighMissingCap        = 20.0
	VolatileCV            = 3.0
	VolatilePoints        = 3.0
	VolatileCap           = 15.0
	DuplicatePointsPerPct = 2.0
	DuplicateCap          = 20.0
	MixedTypeLow          = 0.8
	MixedTypePoints       = 5.0
	MixedTypeCap          = 15.0
)

// Score rates the dataset. The base is 100 minus the average missing
// percentage across columns; structural issues then deduct capped penalties.
func Score(ds *dataset.Dataset, columnStats []domainstats.ColumnStats) domainstats.QualityReport {
	report := domainstats.QualityReport{Penalties: []domainstats.Penalty{}}

	if len(columnStats) > 0 {
		total := 0.0
		for _, cs := range columnStats {
			total += cs.MissingPercent
		}
		report.AvgMissingPercent = total / float64(len(columnStats))
	}
	if report.AvgMissingPercent > 0 {
		report.Penalties = append(report.Penalties, domainstats.Penalty{
			Reason: fmt.Sprintf("Missing values: %.1f%% of cells missing on average", report.AvgMissingPercent),
			Points: report.AvgMissingPercent,
		})
	}

	highMissing, volatile := 0, 0
	for _, cs := range columnStats {
		if cs.MissingPercent > HighMissingPercent {
			highMissing++
		}
		if cv, ok := CoefficientOfVariation(cs); ok && cv > VolatileCV {
			volatile++
		}
	}
	if highMissing > 0 {
		report.Penalties = append(report.Penalties, domainstats.Penalty{
			Reason: fmt.Sprintf("High missingness: %d column(s) missing more than %.0f%%", highMissing, HighMissingPercent),
			Points: math.Min(HighMissingCap, HighMissingPoints*float64(highMissing)),
		})
	}
	if volatile > 0 {
		report.Penalties = append(report.Penalties, domainstats.Penalty{
			Reason: fmt.Sprintf("High variance: %d numeric column(s) with CV above %.0f", volatile, VolatileCV),
			Points: math.Min(VolatileCap, VolatilePoints*float64(volatile)),
		})
	}

	report.DuplicateRows = DuplicateRows(ds)
	if report.DuplicateRows > 0 && ds.Len() > 0 {
		pct := float64(report.DuplicateRows) / float64(ds.Len()) * 100
		report.Penalties = append(report.Penalties, domainstats.Penalty{
			Reason: fmt.Sprintf("Duplicate rows: %d duplicates found", report.DuplicateRows),
			Points: math.Min(DuplicateCap, pct*DuplicatePointsPerPct),
		})
	}

	if mixed := MixedTypeColumns(ds); len(mixed) > 0 {
		report.Penalties = append(report.Penalties, domainstats.Penalty{
			Reason: fmt.Sprintf("Mixed data types: %v mostly numeric with stray values", mixed),
			Points: math.Min(MixedTypeCap, MixedTypePoints*float64(len(mixed))),
		})
	}

	score := 100.0
	for _, p := range report.Penalties {
		score -= p.Points
	}
	report.Score = math.Max(0, math.Min(100, score))
	report.Grade = GradeFor(report.Score)
	report.Letter = LetterFor(report.Score)
	return report
}

// GradeFor maps a score to good (>80), fair (>50) or poor
func GradeFor(score float64) domainstats.Grade {
	switch {
	case score > 80:
		return domainstats.GradeGood
	case score > 50:
		return domainstats.GradeFair
	default:
		return domainstats.GradePoor
	}
}

// LetterFor maps a score to a school letter
func LetterFor(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 60:
		return "C"
	default:
		return "D"
	}
}

// CoefficientOfVariation is std/|mean| for a profiled numeric column. A zero
// mean divides by 1 instead.
func CoefficientOfVariation(cs domainstats.ColumnStats) (float64, bool) {
	if !cs.IsNumeric() || cs.Mean == nil || cs.Std == nil {
		return 0, false
	}
	mean := math.Abs(*cs.Mean)
	if mean == 0 {
		mean = 1
	}
	return *cs.Std / mean, true
}

// DuplicateRows counts rows identical to an earlier row
func DuplicateRows(ds *dataset.Dataset) int {
	seen := make(map[string]struct{}, ds.Len())
	dups := 0
	for i := range ds.Rows {
		key := ds.RowKey(i)
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// MixedTypeColumns lists columns whose non-missing values are mostly, but
// not entirely, numeric.
func MixedTypeColumns(ds *dataset.Dataset) []string {
	var mixed []string
	for _, c := range ds.Columns {
		present, numeric := 0, 0
		for _, row := range ds.Rows {
			v := row[c]
			if dataset.IsMissing(v) {
				continue
			}
			present++
			if _, ok := dataset.ParseNumber(v); ok {
				numeric++
			}
		}
		if present == 0 {
			continue
		}
		share := float64(numeric) / float64(present)
		if share > MixedTypeLow && share < 1 {
			mixed = append(mixed, c)
		}
	}
	return mixed
}
