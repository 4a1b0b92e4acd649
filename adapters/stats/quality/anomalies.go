package quality

import (
	"fmt"
	"math"
	"sort"

	"insightforge/adapters/stats/numeric"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
)

const (
	// AnomalyZ flags a value; SevereZ marks it high severity
	AnomalyZ = 4.0
	SevereZ  = 6.0
	// MinAnomalyValues is the smallest column scanned for anomalies
	MinAnomalyValues = 5
	// DefaultAnomalyLimit is what callers typically display
	DefaultAnomalyLimit = 10
)

// Anomalies flags values whose z-score against the population mean and std
// of their column exceeds AnomalyZ. Results are sorted by |z| descending and
// truncated to limit; limit <= 0 keeps all.
func Anomalies(ds *dataset.Dataset, columnStats []domainstats.ColumnStats, limit int) []domainstats.Anomaly {
	anomalies := []domainstats.Anomaly{}
	for _, cs := range columnStats {
		if !cs.IsNumeric() {
			continue
		}

		var rows []int
		var values []float64
		for i, row := range ds.Rows {
			if v, ok := dataset.ParseNumber(row[cs.Name]); ok {
				rows = append(rows, i)
				values = append(values, v)
			}
		}
		if len(values) < MinAnomalyValues {
			continue
		}
		mean := numeric.Mean(values)
		std := numeric.StdDev(values, domainstats.Population)
		if std == 0 || math.IsNaN(std) {
			continue
		}

		for i, v := range values {
			z := (v - mean) / std
			if math.Abs(z) <= AnomalyZ {
				continue
			}
			severity := "medium"
			if math.Abs(z) > SevereZ {
				severity = "high"
			}
			anomalies = append(anomalies, domainstats.Anomaly{
				Column:   cs.Name,
				Row:      rows[i],
				Value:    v,
				ZScore:   z,
				Severity: severity,
			})
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return math.Abs(anomalies[i].ZScore) > math.Abs(anomalies[j].ZScore)
	})
	if limit > 0 && len(anomalies) > limit {
		anomalies = anomalies[:limit]
	}
	return anomalies
}

// NoFindings is reported when no structural issue was detected
const NoFindings = "No critical structural anomalies detected."

// Findings describes structural problems of individual columns in plain text
func Findings(columnStats []domainstats.ColumnStats) []string {
	var findings []string
	for _, cs := range columnStats {
		if cs.MissingPercent > HighMissingPercent {
			findings = append(findings, fmt.Sprintf(
				"Critical Data Loss: Column %q is missing %.1f%% of values.", cs.Name, cs.MissingPercent))
		}
		if cv, ok := CoefficientOfVariation(cs); ok && cv > VolatileCV {
			findings = append(findings, fmt.Sprintf(
				"Extreme Volatility: %q varies wildly (CV: %.1f). Potential outliers present.", cs.Name, cv))
		}
		if cs.IsNumeric() && cs.Std != nil && *cs.Std == 0 {
			findings = append(findings, fmt.Sprintf(
				"Stagnant Signal: %q has zero variance. Consider removing it.", cs.Name))
		}
	}
	if len(findings) == 0 {
		findings = append(findings, NoFindings)
	}
	return findings
}
