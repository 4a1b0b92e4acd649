package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ColumnType is the semantic type inferred for a column
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeDate        ColumnType = "date"
	TypeBoolean     ColumnType = "boolean"
)

// DateLayouts are tried in order when parsing date strings
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
	"2006-01",
}

// IsMissing reports whether a cell counts as missing: nil, empty or blank
// string, or a float NaN.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	}
	return false
}

// ParseNumber converts a cell to a finite float64. Strings must parse in full;
// booleans and dates are never numeric.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil, bool, time.Time:
		return 0, false
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		parsed, err := cast.ToFloat64E(val)
		if err != nil {
			return 0, false
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate converts a cell to a UTC time. Strings qualify only when they
// contain '-' or '/' and match one of DateLayouts.
func ParseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case string:
		s := strings.TrimSpace(val)
		if !strings.ContainsAny(s, "-/") {
			return time.Time{}, false
		}
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// ParseBool accepts Go booleans and the strings "true"/"false" in any case
func ParseBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Classify returns the semantic type of a single non-missing value.
// Precedence: boolean, numeric, date, categorical.
func Classify(v any) ColumnType {
	if _, ok := ParseBool(v); ok {
		return TypeBoolean
	}
	if _, ok := ParseNumber(v); ok {
		return TypeNumeric
	}
	if _, ok := ParseDate(v); ok {
		return TypeDate
	}
	return TypeCategorical
}
