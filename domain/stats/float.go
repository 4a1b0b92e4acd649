package stats

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Float is a float64 that can legitimately be undefined (NaN). It marshals
// NaN and infinities as JSON null and reads null back as NaN.
type Float float64

// NaN returns an undefined Float
func NaN() Float { return Float(math.NaN()) }

// Defined reports whether the value is a finite number
func (f Float) Defined() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(f), 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Ptr returns a pointer to v when it is finite, nil otherwise. Optional
// statistics use it so undefined values are omitted instead of leaking NaN.
func Ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
