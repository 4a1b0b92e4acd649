package quality

import (
	"sort"

	"insightforge/adapters/stats/numeric"
	"insightforge/adapters/stats/profile"
	"insightforge/domain/dataset"
)

// SchemaDiff lists columns relative to the first dataset
type SchemaDiff struct {
	Added   []string `json:"added_columns"`
	Removed []string `json:"removed_columns"`
	Common  []string `json:"common_columns"`
}

// RowDiff compares row counts
type RowDiff struct {
	CountA     int `json:"count_v1"`
	CountB     int `json:"count_v2"`
	Difference int `json:"difference"`
}

// ValueChange is the shift of a common numeric column's mean
type ValueChange struct {
	Column  string  `json:"column"`
	MeanA   float64 `json:"mean_v1"`
	MeanB   float64 `json:"mean_v2"`
	DiffPct float64 `json:"diff_pct"`
	Status  string  `json:"status"`
}

// Comparison is the difference between two versions of a dataset
type Comparison struct {
	Files  []string      `json:"files"`
	Schema SchemaDiff    `json:"schema_diff"`
	Rows   RowDiff       `json:"row_diff"`
	Values []ValueChange `json:"value_comparison"`
}

// Compare diffs b against a. Columns are listed sorted; a numeric column is
// compared only when it is numeric in both datasets.
func Compare(a, b *dataset.Dataset, nameA, nameB string) Comparison {
	inA := make(map[string]bool, len(a.Columns))
	for _, c := range a.Columns {
		inA[c] = true
	}
	inB := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		inB[c] = true
	}

	cmp := Comparison{
		Files: []string{nameA, nameB},
		Schema: SchemaDiff{
			Added:   []string{},
			Removed: []string{},
			Common:  []string{},
		},
		Rows: RowDiff{
			CountA:     a.Len(),
			CountB:     b.Len(),
			Difference: b.Len() - a.Len(),
		},
		Values: []ValueChange{},
	}
	for _, c := range a.Columns {
		if inB[c] {
			cmp.Schema.Common = append(cmp.Schema.Common, c)
		} else {
			cmp.Schema.Removed = append(cmp.Schema.Removed, c)
		}
	}
	for _, c := range b.Columns {
		if !inA[c] {
			cmp.Schema.Added = append(cmp.Schema.Added, c)
		}
	}
	sort.Strings(cmp.Schema.Common)
	sort.Strings(cmp.Schema.Added)
	sort.Strings(cmp.Schema.Removed)

	infer := profile.DefaultInferOptions()
	for _, c := range cmp.Schema.Common {
		if profile.InferColumnType(a, c, infer) != dataset.TypeNumeric ||
			profile.InferColumnType(b, c, infer) != dataset.TypeNumeric {
			continue
		}
		valuesA, valuesB := a.NumericColumn(c), b.NumericColumn(c)
		if len(valuesA) == 0 || len(valuesB) == 0 {
			continue
		}
		change := ValueChange{
			Column: c,
			MeanA:  numeric.Mean(valuesA),
			MeanB:  numeric.Mean(valuesB),
		}
		diff := change.MeanB - change.MeanA
		if change.MeanA != 0 {
			change.DiffPct = diff / change.MeanA * 100
		}
		switch {
		case diff > 0:
			change.Status = "increased"
		case diff < 0:
			change.Status = "decreased"
		default:
			change.Status = "same"
		}
		cmp.Values = append(cmp.Values, change)
	}
	return cmp
}
