package hypothesis

import (
	"fmt"
	"sort"

	"insightforge/adapters/stats/numeric"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// Group is one labelled sample
type Group struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// MinANOVAGroupSize is the smallest group ANOVA accepts
const MinANOVAGroupSize = 2

// OneWayANOVA tests whether k group means are equal:
// F = (SSB/(k-1)) / (SSW/(N-k)).
func OneWayANOVA(groups []Group) domainstats.TestOutput {
	out := domainstats.TestOutput{Test: domainstats.TestANOVA, PValue: domainstats.NaN()}
	k := len(groups)
	if k < 2 {
		return failed(out, errors.InsufficientData("ANOVA groups", 2, k))
	}

	total := 0
	var grand float64
	for _, g := range groups {
		if len(g.Values) < MinANOVAGroupSize {
			return failed(out, errors.Newf(errors.CodeInsufficientData,
				"insufficient data for ANOVA: group %q has %d values, need at least %d",
				g.Name, len(g.Values), MinANOVAGroupSize))
		}
		total += len(g.Values)
		for _, v := range g.Values {
			grand += v
		}
	}
	if total <= k {
		return failed(out, errors.InsufficientData("ANOVA observations", k+1, total))
	}
	grand /= float64(total)

	var ssb, ssw float64
	means := make(map[string]float64, k)
	for _, g := range groups {
		m := numeric.Mean(g.Values)
		means[g.Name] = m
		d := m - grand
		ssb += float64(len(g.Values)) * d * d
		if numeric.Constant(g.Values) {
			continue
		}
		for _, v := range g.Values {
			e := v - m
			ssw += e * e
		}
	}

	dfB := float64(k - 1)
	dfW := float64(total - k)
	if ssw == 0 {
		return failed(out, errors.DegenerateInput("within-group variance is zero, F is undefined"))
	}
	msb := ssb / dfB
	msw := ssw / dfW
	f := msb / msw
	p := numeric.FTestPValue(f, dfB, dfW)

	out.Stat = f
	out.PValue = domainstats.Float(p)
	out.DF = &dfB
	out.DF2 = &dfW
	out.Significant = p < domainstats.SignificanceLevel
	if out.Significant {
		out.Conclusion = "At least one group mean differs significantly."
	} else {
		out.Conclusion = "No significant difference between group means."
	}
	out.Details = map[string]interface{}{
		"groups":      k,
		"n":           total,
		"group_means": means,
		"ss_between":  ssb,
		"ss_within":   ssw,
		"ms_between":  msb,
		"ms_within":   msw,
		"eta_squared": ssb / (ssb + ssw),
		"grand_mean":  grand,
		"summary":     fmt.Sprintf("F(%d, %d)=%.3f, p=%.4f", k-1, total-k, f, p),
	}
	return out
}

// GroupBy splits the numeric values of valueCol by the labels of groupCol.
// Rows with a missing label or a non-numeric value are skipped. Groups are
// returned sorted by label.
func GroupBy(ds *dataset.Dataset, valueCol, groupCol string) []Group {
	byLabel := make(map[string][]float64)
	for _, row := range ds.Rows {
		label := row[groupCol]
		if dataset.IsMissing(label) {
			continue
		}
		v, ok := dataset.ParseNumber(row[valueCol])
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v", label)
		byLabel[key] = append(byLabel[key], v)
	}

	groups := make([]Group, 0, len(byLabel))
	for name, values := range byLabel {
		groups = append(groups, Group{Name: name, Values: values})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// ColumnGroups treats each listed column as one group
func ColumnGroups(ds *dataset.Dataset, columns []string) []Group {
	groups := make([]Group, len(columns))
	for i, c := range columns {
		groups[i] = Group{Name: c, Values: ds.NumericColumn(c)}
	}
	return groups
}
