package forecast

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

func monthly(months int, value func(i int) float64) *dataset.Dataset {
	var rows []dataset.RowRecord
	for i := 0; i < months; i++ {
		day := time.Date(2023, time.Month(1+i), 10, 0, 0, 0, 0, time.UTC)
		// two observations per month averaging to value(i)
		rows = append(rows,
			dataset.RowRecord{"date": day.Format("2006-01-02"), "sales": value(i) - 1},
			dataset.RowRecord{"date": day.AddDate(0, 0, 5).Format("2006-01-02"), "sales": value(i) + 1},
		)
	}
	return dataset.New(rows, []string{"date", "sales"})
}

func TestForecastHorizon(t *testing.T) {
	ds := monthly(12, func(i int) float64 { return 100 + 10*float64(i) })

	res := Forecast(ds, "date", "sales", 6)
	require.False(t, res.Failed(), res.Error)
	require.Len(t, res.Points, 18)

	actual := res.Points[:12]
	projected := res.Points[12:]
	for _, p := range actual {
		assert.Equal(t, domainstats.PointActual, p.Type)
	}
	assert.Equal(t, "Jan 2023", actual[0].Date)
	assert.InDelta(t, 100.0, actual[0].Value, 1e-9)

	prev := time.UnixMilli(actual[11].Timestamp).UTC()
	for i, p := range projected {
		assert.Equal(t, domainstats.PointForecast, p.Type)
		ts := time.UnixMilli(p.Timestamp).UTC()
		assert.True(t, prev.AddDate(0, 1, 0).Equal(ts), "point %d is one month after the previous", i)
		assert.Equal(t, 1, ts.Day())
		assert.InDelta(t, 100+10*float64(12+i), p.Value, 1e-9)
		prev = ts
	}
	assert.Equal(t, "Jan 2024", projected[0].Date)
	assert.Equal(t, "Jun 2024", projected[5].Date)

	require.NotNil(t, res.Trend)
	assert.InDelta(t, 10.0, res.Trend.Slope, 1e-9)
	assert.InDelta(t, 100.0, res.Trend.Intercept, 1e-9)
	assert.InDelta(t, 1.0, float64(res.Trend.R2), 1e-12)
	assert.InDelta(t, 10.0*12/100*100, res.Trend.Velocity, 1e-9)
	assert.Equal(t, "up", res.Trend.Direction)
}

func TestForecastR2FromResiduals(t *testing.T) {
	values := []float64{10, 14, 9, 15, 11, 16}
	ds := monthly(len(values), func(i int) float64 { return values[i] })

	res := Forecast(ds, "date", "sales", 3)
	require.False(t, res.Failed())
	r2 := float64(res.Trend.R2)
	assert.Greater(t, r2, 0.0)
	assert.Less(t, r2, 0.9)
}

func TestForecastFlatSeriesHasUndefinedR2(t *testing.T) {
	ds := monthly(6, func(int) float64 { return 42 })
	res := Forecast(ds, "date", "sales", 3)
	require.False(t, res.Failed())
	assert.True(t, math.IsNaN(float64(res.Trend.R2)))
	assert.Equal(t, "flat", res.Trend.Direction)
}

func TestForecastSortsAndSkipsInvalidRows(t *testing.T) {
	ds := dataset.New([]dataset.RowRecord{
		{"date": "2024-03-02", "sales": 30},
		{"date": "2024-01-15", "sales": 10},
		{"date": "not a date", "sales": 99},
		{"date": "2024-02-01", "sales": "n/a"},
		{"date": "2024-02-20", "sales": 20},
		{"date": "2024-01-20", "sales": 12},
		{"date": "2024-03-25", "sales": 34},
	}, nil)

	res := Forecast(ds, "date", "sales", 3)
	require.False(t, res.Failed(), res.Error)
	require.Len(t, res.Points, 6)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024", "Mar 2024", "Apr 2024", "May 2024", "Jun 2024"},
		[]string{res.Points[0].Date, res.Points[1].Date, res.Points[2].Date, res.Points[3].Date, res.Points[4].Date, res.Points[5].Date})
	assert.InDelta(t, 11.0, res.Points[0].Value, 1e-9)
	assert.InDelta(t, 32.0, res.Points[2].Value, 1e-9)
}

func TestForecastFailures(t *testing.T) {
	few := dataset.New([]dataset.RowRecord{
		{"date": "2024-01-01", "sales": 1},
		{"date": "2024-02-01", "sales": 2},
		{"date": "2024-03-01", "sales": 3},
		{"date": "2024-04-01", "sales": 4},
	}, nil)
	assert.Equal(t, errors.CodeInsufficientData, Forecast(few, "date", "sales", 3).ErrorCode)

	var rows []dataset.RowRecord
	for d := 1; d <= 8; d++ {
		rows = append(rows, dataset.RowRecord{"date": fmt.Sprintf("2024-05-%02d", d), "sales": d})
	}
	oneMonth := dataset.New(rows, nil)
	assert.Equal(t, errors.CodeInsufficientData, Forecast(oneMonth, "date", "sales", 3).ErrorCode)

	ok := monthly(6, func(i int) float64 { return float64(i) })
	assert.Equal(t, errors.CodeInvalidInput, Forecast(ok, "date", "sales", 0).ErrorCode)
	assert.Equal(t, errors.CodeColumnNotFound, Forecast(ok, "when", "sales", 3).ErrorCode)
}

func TestForecastTypeMismatch(t *testing.T) {
	var rows []dataset.RowRecord
	for i := 0; i < 6; i++ {
		rows = append(rows, dataset.RowRecord{
			"date":   fmt.Sprintf("2024-%02d-01", i+1),
			"region": "north",
			"sales":  i + 1,
			"note":   "n/a",
		})
	}
	ds := dataset.New(rows, nil)

	res := Forecast(ds, "region", "sales", 3)
	assert.Equal(t, errors.CodeTypeMismatch, res.ErrorCode)
	assert.Contains(t, res.Error, `"region" is not a date`)

	res = Forecast(ds, "date", "note", 3)
	assert.Equal(t, errors.CodeTypeMismatch, res.ErrorCode)
	assert.Contains(t, res.Error, `"note" is not numeric`)
}

func TestVelocityGuardsZeroStart(t *testing.T) {
	ds := monthly(5, func(i int) float64 { return float64(i) * 2 })
	res := Forecast(ds, "date", "sales", 3)
	require.False(t, res.Failed())
	assert.InDelta(t, 2.0*5/1*100, res.Trend.Velocity, 1e-9)
}
