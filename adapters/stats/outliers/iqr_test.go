package outliers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

func TestDetectIndexQuartiles(t *testing.T) {
	info := Detect("v", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100})

	assert.Equal(t, 3.0, info.Q1)
	assert.Equal(t, 8.0, info.Q3)
	assert.Equal(t, 5.0, info.IQR)
	assert.Equal(t, -4.5, info.LowerBound)
	assert.Equal(t, 15.5, info.UpperBound)
	assert.Equal(t, []float64{100}, info.Outliers)
	assert.Equal(t, 1, info.Count)
	assert.InDelta(t, 10.0, info.Percentage, 1e-12)
	assert.Equal(t, domainstats.SeverityHigh, info.Severity)
	assert.False(t, info.Failed())
}

func TestDetectKeepsInputOrder(t *testing.T) {
	info := Detect("v", []float64{-50, 10, 11, 12, 13, 14, 15, 16, 17, 90})
	assert.Equal(t, []float64{-50, 90}, info.Outliers)
}

func TestDetectEmpty(t *testing.T) {
	info := Detect("v", nil)
	assert.True(t, info.Failed())
	assert.Equal(t, errors.CodeInsufficientData, info.ErrorCode)
	assert.Equal(t, 0, info.Count)
}

func TestSeverityBands(t *testing.T) {
	assert.Equal(t, domainstats.SeverityHigh, Severity(5.01))
	assert.Equal(t, domainstats.SeverityMedium, Severity(5))
	assert.Equal(t, domainstats.SeverityMedium, Severity(1.5))
	assert.Equal(t, domainstats.SeverityLow, Severity(1))
	assert.Equal(t, domainstats.SeverityLow, Severity(0))
}

func TestDetectAllSkipsNonNumeric(t *testing.T) {
	ds := dataset.New([]dataset.RowRecord{
		{"n": 1, "s": "a"}, {"n": 2, "s": "b"}, {"n": "oops", "s": "c"}, {"n": 400, "s": "d"},
	}, []string{"n", "s"})
	stats := []domainstats.ColumnStats{
		{Name: "n", Type: dataset.TypeNumeric},
		{Name: "s", Type: dataset.TypeCategorical},
	}

	all := DetectAll(ds, stats)
	require.Len(t, all, 1)
	assert.Equal(t, "n", all[0].Column)
	assert.Equal(t, 3, all[0].N, "unparseable values are excluded")
}

func TestBoxPlot(t *testing.T) {
	box, ok := BoxPlot([]float64{9, 1, 5, 3, 7})
	require.True(t, ok)
	assert.Equal(t, domainstats.BoxPlot{Min: 1, Q1: 3, Median: 5, Q3: 7, Max: 9, Mean: 5}, box)

	_, ok = BoxPlot(nil)
	assert.False(t, ok)
}
