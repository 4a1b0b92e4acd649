package main

import (
	"fmt"
	"strconv"
	"strings"

	"insightforge/adapters/stats/correlation"
	"insightforge/adapters/stats/quality"
	"insightforge/adapters/stats/regression"
	domainstats "insightforge/domain/stats"
)

func analysisSections(a *domainstats.Analysis) []section {
	columns := section{
		title:   fmt.Sprintf("%d rows x %d columns (%s data)", a.RowCount, a.ColumnCount, a.Domain),
		headers: []string{"column", "type", "missing %", "unique", "mean", "median", "std", "min", "max"},
	}
	for _, cs := range a.ColumnStats {
		columns.rows = append(columns.rows, []string{
			cs.Name, string(cs.Type), fmt.Sprintf("%.1f", cs.MissingPercent), strconv.Itoa(cs.Unique),
			optNum(cs.Mean), optNum(cs.Median), optNum(cs.Std), optNum(cs.Min), optNum(cs.Max),
		})
	}

	outliers := section{title: "Outliers (IQR)", headers: []string{"column", "count", "%", "bounds", "severity"}}
	for _, o := range a.Outliers {
		if o.Failed() || o.Count == 0 {
			continue
		}
		outliers.rows = append(outliers.rows, []string{
			o.Column, strconv.Itoa(o.Count), fmt.Sprintf("%.1f", o.Percentage),
			fmt.Sprintf("[%s, %s]", num(o.LowerBound), num(o.UpperBound)), string(o.Severity),
		})
	}

	sections := []section{columns, correlationSection(a.Correlations), outliers}
	if a.Quality != nil {
		sections = append(sections, qualityScoreSection(a.Quality))
	}
	return sections
}

func correlationSection(pairs []domainstats.CorrelationData) section {
	s := section{title: "Correlations", headers: []string{"column 1", "column 2", "r", "strength", "n", "p"}}
	for _, p := range pairs {
		s.rows = append(s.rows, []string{
			p.Col1, p.Col2, fmt.Sprintf("%.3f", p.Correlation),
			correlation.RankingPolicy.Label(p.Correlation), strconv.Itoa(p.N), floatOrDash(p.PValue),
		})
	}
	return s
}

func matrixSection(m domainstats.CorrelationMatrix) section {
	s := section{title: fmt.Sprintf("Correlation matrix (%s)", m.Method), headers: append([]string{""}, m.Columns...)}
	for i, name := range m.Columns {
		row := []string{name}
		for _, v := range m.Values[i] {
			row = append(row, fmt.Sprintf("%.2f", v))
		}
		s.rows = append(s.rows, row)
	}
	return s
}

func regressionSection(fit domainstats.RegressionResult) section {
	s := section{title: fmt.Sprintf("%s ~ %s", fit.YColumn, fit.XColumn), headers: []string{"slope", "intercept", "r2", "n"}}
	if fit.Failed() {
		s.note = fit.ErrorCode + ": " + fit.Error
		return s
	}
	s.rows = [][]string{{num(fit.Slope), num(fit.Intercept), floatOrDash(fit.R2), strconv.Itoa(fit.N)}}
	return s
}

func multipleRegressionSection(fit domainstats.MultipleRegressionResult) section {
	s := section{title: "Coefficients of " + fit.Target, headers: []string{"term", "coefficient"}}
	if fit.Failed() {
		s.note = fit.ErrorCode + ": " + fit.Error
		return s
	}
	for _, f := range fit.Features {
		s.rows = append(s.rows, []string{f, num(fit.Coefficients[f])})
	}
	s.rows = append(s.rows, []string{regression.InterceptKey, num(fit.Intercept)})
	s.note = fmt.Sprintf("r2 = %s, mse = %s, n = %d", floatOrDash(fit.R2), num(fit.MSE), fit.N)
	return s
}

func forecastSections(res domainstats.ForecastResult) []section {
	s := section{title: fmt.Sprintf("%s by month", res.ValueColumn), headers: []string{"month", "value", "type"}}
	if res.Failed() {
		s.note = res.ErrorCode + ": " + res.Error
		return []section{s}
	}
	for _, p := range res.Points {
		s.rows = append(s.rows, []string{p.Date, num(p.Value), string(p.Type)})
	}
	if res.Trend != nil {
		s.note = fmt.Sprintf("trend %s, slope %s per month, velocity %.1f%%, r2 %s",
			res.Trend.Direction, num(res.Trend.Slope), res.Trend.Velocity, floatOrDash(res.Trend.R2))
	}
	return []section{s}
}

func testSection(out domainstats.TestOutput) section {
	s := section{title: string(out.Test), headers: []string{"statistic", "p-value", "df", "significant"}}
	if out.Failed() {
		s.note = out.ErrorCode + ": " + out.Error
		return s
	}
	s.rows = [][]string{{num(out.Stat), floatOrDash(out.PValue), optNum(out.DF), strconv.FormatBool(out.Significant)}}
	s.note = out.Conclusion
	return s
}

func qualityScoreSection(q *domainstats.QualityReport) section {
	s := section{
		title:   fmt.Sprintf("Quality %.1f (%s, %s)", q.Score, q.Letter, q.Grade),
		headers: []string{"penalty", "points"},
	}
	for _, p := range q.Penalties {
		s.rows = append(s.rows, []string{p.Reason, fmt.Sprintf("%.1f", p.Points)})
	}
	return s
}

func qualitySections(v qualityView) []section {
	var sections []section
	if v.Quality != nil {
		sections = append(sections, qualityScoreSection(v.Quality))
	}

	anomalies := section{title: "Anomalies (|z| > 4)", headers: []string{"column", "row", "value", "z", "severity"}}
	for _, a := range v.Anomalies {
		anomalies.rows = append(anomalies.rows, []string{
			a.Column, strconv.Itoa(a.Row), num(a.Value), fmt.Sprintf("%.2f", a.ZScore), a.Severity,
		})
	}

	findings := section{title: "Findings", headers: []string{"finding"}}
	for _, f := range v.Findings {
		findings.rows = append(findings.rows, []string{f})
	}

	recs := section{title: "Recommendations", headers: []string{"title", "impact", "action"}}
	for _, r := range v.Recommendations {
		recs.rows = append(recs.rows, []string{r.Title, r.Impact, r.Action})
	}
	return append(sections, anomalies, findings, recs)
}

func compareSections(cmp quality.Comparison) []section {
	schema := section{title: "Schema", headers: []string{"change", "columns"}}
	for _, change := range []struct {
		name    string
		columns []string
	}{
		{"added", cmp.Schema.Added},
		{"removed", cmp.Schema.Removed},
		{"common", cmp.Schema.Common},
	} {
		schema.rows = append(schema.rows, []string{change.name, strings.Join(change.columns, ", ")})
	}
	schema.note = fmt.Sprintf("rows: %d -> %d (%+d)", cmp.Rows.CountA, cmp.Rows.CountB, cmp.Rows.Difference)

	values := section{title: "Numeric means", headers: []string{"column", cmp.Files[0], cmp.Files[1], "change %", "status"}}
	for _, v := range cmp.Values {
		values.rows = append(values.rows, []string{
			v.Column, num(v.MeanA), num(v.MeanB), fmt.Sprintf("%.1f", v.DiffPct), v.Status,
		})
	}
	return []section{schema, values}
}

func floatOrDash(f domainstats.Float) string {
	if !f.Defined() {
		return "-"
	}
	return num(float64(f))
}
