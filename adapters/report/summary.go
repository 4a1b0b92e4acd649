// Package report renders an analysis as a markdown executive summary and
// converts it to HTML.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"insightforge/adapters/stats/correlation"
	"insightforge/adapters/stats/quality"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
)

// GapPercent is the missing share above which a column is called out
const GapPercent = 5.0

// ExecutiveSummary writes a markdown report with an overview, the notable
// discoveries, the time outlook and recommendations.
func ExecutiveSummary(ds *dataset.Dataset, analysis *domainstats.Analysis) string {
	var b strings.Builder
	writeOverview(&b, analysis)
	writeDiscoveries(&b, analysis)
	writeOutlook(&b, ds, analysis)

	recs := quality.Recommendations(ds, analysis.ColumnStats, analysis.Correlations)
	if len(recs) > 0 {
		b.WriteString("\n### Recommendations\n\n")
		for _, r := range recs {
			fmt.Fprintf(&b, "- **%s**: %s\n", r.Title, r.Description)
		}
	}
	return b.String()
}

func writeOverview(b *strings.Builder, a *domainstats.Analysis) {
	numeric := 0
	for _, cs := range a.ColumnStats {
		if cs.IsNumeric() {
			numeric++
		}
	}
	kind := "categorical"
	if numeric*2 > len(a.ColumnStats) {
		kind = "quantitative"
	}
	domain := a.Domain
	if domain == "" {
		domain = quality.GeneralDomain
	}

	b.WriteString("## Dataset Overview\n\n")
	fmt.Fprintf(b, "This dataset consists of **%d** records across **%d** dimensions of %s data. ",
		a.RowCount, a.ColumnCount, domain)
	if a.Quality != nil {
		fmt.Fprintf(b, "The overall quality score is **%.1f** (grade %s, %s). ",
			a.Quality.Score, a.Quality.Letter, a.Quality.Grade)
	}
	fmt.Fprintf(b, "Data distribution is primarily **%s**.\n", kind)
}

func writeDiscoveries(b *strings.Builder, a *domainstats.Analysis) {
	var items []string

	if len(a.Correlations) > 0 {
		top := a.Correlations[0]
		items = append(items, fmt.Sprintf("**Strongest Relationship**: `%s` and `%s` show a %s %s correlation (r = %.2f).",
			top.Col1, top.Col2, strings.ToLower(correlation.RankingPolicy.Label(top.Correlation)),
			correlation.Direction(top.Correlation), top.Correlation))
	}

	var drivers []domainstats.ColumnStats
	for _, cs := range a.ColumnStats {
		if cs.IsNumeric() && cs.Unique > 10 && cs.Std != nil {
			drivers = append(drivers, cs)
		}
	}
	sort.SliceStable(drivers, func(i, j int) bool { return *drivers[i].Std > *drivers[j].Std })
	if len(drivers) >= 2 {
		items = append(items, fmt.Sprintf("**Primary Drivers**: variation in `%s` and `%s` dominates the current snapshot.",
			drivers[0].Name, drivers[1].Name))
	}

	for _, cs := range a.ColumnStats {
		if cs.MissingPercent > GapPercent {
			items = append(items, fmt.Sprintf("**Operational Gaps**: `%s` is missing %.1f%% of its values.",
				cs.Name, cs.MissingPercent))
			break
		}
	}

	if n := len(a.Anomalies); n > 0 {
		items = append(items, fmt.Sprintf("**Anomalies**: %d extreme values, the largest in `%s` (z = %.1f).",
			n, a.Anomalies[0].Column, a.Anomalies[0].ZScore))
	}

	b.WriteString("\n### Significant Discoveries\n\n")
	if len(items) == 0 {
		b.WriteString("- No significant discoveries in this snapshot.\n")
		return
	}
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
}

func writeOutlook(b *strings.Builder, ds *dataset.Dataset, a *domainstats.Analysis) {
	b.WriteString("\n### Outlook\n\n")

	var dateCol, metric string
	for _, cs := range a.ColumnStats {
		if dateCol == "" && cs.Type == dataset.TypeDate {
			dateCol = cs.Name
		}
		if metric == "" && cs.IsNumeric() {
			metric = cs.Name
		}
	}
	if dateCol == "" || metric == "" {
		b.WriteString("No time dimension was detected; add a date column to unlock trend projections.\n")
		return
	}

	type obs struct {
		at    time.Time
		value float64
	}
	var series []obs
	for _, row := range ds.Rows {
		at, okDate := dataset.ParseDate(row[dateCol])
		v, okValue := dataset.ParseNumber(row[metric])
		if okDate && okValue {
			series = append(series, obs{at, v})
		}
	}
	if len(series) == 0 {
		b.WriteString("No time dimension was detected; add a date column to unlock trend projections.\n")
		return
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].at.Before(series[j].at) })

	first, last := series[0], series[len(series)-1]
	fmt.Fprintf(b, "The data covers the period from %s to %s. ",
		first.at.Format("2006-01-02"), last.at.Format("2006-01-02"))
	if first.value > 0 {
		change := (last.value - first.value) / first.value * 100
		direction := "increased"
		if change < 0 {
			direction = "decreased"
		}
		fmt.Fprintf(b, "`%s` has %s by %.1f%% over this period. ", metric, direction, math.Abs(change))
	}
	b.WriteString("A monthly forecast can project this trend forward.\n")
}
