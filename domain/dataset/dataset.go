package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"insightforge/domain/core"
)

// RowRecord maps a column name to a scalar cell value.
// Supported values: nil, string, bool, float64, any Go integer or float kind,
// json.Number and time.Time.
type RowRecord map[string]any

// Dataset is an immutable snapshot of rows with a stable column order.
type Dataset struct {
	Columns []string    `json:"columns"`
	Rows    []RowRecord `json:"rows"`
}

// New builds a dataset. When columns is empty the column list is derived from
// the union of row keys in first-seen order (keys of a single row are sorted,
// since Go maps carry no order).
func New(rows []RowRecord, columns []string) *Dataset {
	if len(columns) == 0 {
		columns = DeriveColumns(rows)
	} else {
		columns = append([]string(nil), columns...)
	}
	return &Dataset{Columns: columns, Rows: rows}
}

// DeriveColumns collects column names across rows
func DeriveColumns(rows []RowRecord) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			columns = append(columns, k)
		}
	}
	return columns
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// HasColumn reports whether the column is part of the dataset
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the raw values of a column in row order; absent keys are nil
func (d *Dataset) Column(name string) []any {
	values := make([]any, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[name]
	}
	return values
}

// NumericColumn returns the values of a column that parse as numbers,
// dropping everything else.
func (d *Dataset) NumericColumn(name string) []float64 {
	values := make([]float64, 0, len(d.Rows))
	for _, row := range d.Rows {
		if v, ok := ParseNumber(row[name]); ok {
			values = append(values, v)
		}
	}
	return values
}

// Paired returns aligned x/y vectors built only from rows where both columns
// parse as numbers.
func (d *Dataset) Paired(xCol, yCol string) (xs, ys []float64) {
	xs = make([]float64, 0, len(d.Rows))
	ys = make([]float64, 0, len(d.Rows))
	for _, row := range d.Rows {
		x, okX := ParseNumber(row[xCol])
		y, okY := ParseNumber(row[yCol])
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// CompleteRows returns, for each row where every listed column is numeric,
// the values in column order.
func (d *Dataset) CompleteRows(columns []string) [][]float64 {
	out := make([][]float64, 0, len(d.Rows))
	for _, row := range d.Rows {
		vals := make([]float64, len(columns))
		ok := true
		for j, c := range columns {
			v, parsed := ParseNumber(row[c])
			if !parsed {
				ok = false
				break
			}
			vals[j] = v
		}
		if ok {
			out = append(out, vals)
		}
	}
	return out
}

// RowKey renders a row as a canonical string, used to find duplicate rows
func (d *Dataset) RowKey(i int) string {
	var b strings.Builder
	row := d.Rows[i]
	for _, c := range d.Columns {
		b.WriteString(c)
		b.WriteByte('=')
		v := row[c]
		if IsMissing(v) {
			b.WriteString("<nil>")
		} else {
			b.WriteString(fmt.Sprintf("%v", v))
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// Fingerprint hashes columns and rows so identical content maps to the same key
func (d *Dataset) Fingerprint() core.Hash {
	payload, err := json.Marshal(struct {
		Columns []string `json:"c"`
		Rows    []string `json:"r"`
	}{d.Columns, d.rowKeys()})
	if err != nil {
		return ""
	}
	return core.NewHash(payload)
}

func (d *Dataset) rowKeys() []string {
	keys := make([]string, len(d.Rows))
	for i := range d.Rows {
		keys[i] = d.RowKey(i)
	}
	return keys
}
