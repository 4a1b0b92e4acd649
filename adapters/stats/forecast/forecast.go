// Package forecast projects a monthly trend of a numeric column forward.
package forecast

import (
	"sort"
	"time"

	"insightforge/adapters/stats/regression"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

const (
	// MinRows is the smallest number of valid (date, value) rows accepted
	MinRows = 5
	// MinBuckets is the smallest number of months a trend can be fitted to
	MinBuckets = 2
	// MaxHorizon caps how far ahead a forecast may reach
	MaxHorizon = 120

	bucketLayout = "2006-01"
	labelLayout  = "Jan 2006"
)

type bucket struct {
	month time.Time
	sum   float64
	count int
}

func (b bucket) mean() float64 { return b.sum / float64(b.count) }

// Forecast groups rows by calendar month, averages valueCol per month, fits a
// line over the month index and extends it horizon months past the last
// observed month.
func Forecast(ds *dataset.Dataset, dateCol, valueCol string, horizon int) domainstats.ForecastResult {
	result := domainstats.ForecastResult{
		DateColumn:  dateCol,
		ValueColumn: valueCol,
		Horizon:     horizon,
		Points:      []domainstats.ForecastPoint{},
	}
	fail := func(err error) domainstats.ForecastResult {
		result.Failure = domainstats.FailureFrom(err)
		return result
	}

	if horizon <= 0 || horizon > MaxHorizon {
		return fail(errors.Newf(errors.CodeInvalidInput, "horizon must be between 1 and %d months, got %d", MaxHorizon, horizon))
	}
	for _, c := range []string{dateCol, valueCol} {
		if !ds.HasColumn(c) {
			return fail(errors.ColumnNotFound(c))
		}
	}
	if err := requireType(ds, dateCol, "a date", func(v any) bool { _, ok := dataset.ParseDate(v); return ok }); err != nil {
		return fail(err)
	}
	if err := requireType(ds, valueCol, "numeric", func(v any) bool { _, ok := dataset.ParseNumber(v); return ok }); err != nil {
		return fail(err)
	}

	buckets, valid := monthlyBuckets(ds, dateCol, valueCol)
	if valid < MinRows {
		return fail(errors.InsufficientData("forecast rows", MinRows, valid))
	}
	if len(buckets) < MinBuckets {
		return fail(errors.InsufficientData("forecast months", MinBuckets, len(buckets)))
	}

	xs := make([]float64, len(buckets))
	ys := make([]float64, len(buckets))
	for i, b := range buckets {
		xs[i] = float64(i)
		ys[i] = b.mean()
		result.Points = append(result.Points, point(b.month, ys[i], domainstats.PointActual))
	}

	line, err := regression.FitLine(xs, ys)
	if err != nil {
		return fail(err)
	}

	n := len(buckets)
	last := buckets[n-1].month
	for i := 1; i <= horizon; i++ {
		value := line.At(float64(n - 1 + i))
		result.Points = append(result.Points, point(last.AddDate(0, i, 0), value, domainstats.PointForecast))
	}

	first := ys[0]
	if first == 0 {
		first = 1
	}
	result.Trend = &domainstats.Trend{
		Slope:     line.Slope,
		Intercept: line.Intercept,
		R2:        domainstats.Float(line.R2),
		Velocity:  line.Slope * float64(n) / first * 100,
		Direction: direction(line.Slope),
	}
	return result
}

// requireType fails when column has values but none of them parse. An
// all-missing column is left to the row count checks.
func requireType(ds *dataset.Dataset, column, want string, parses func(any) bool) error {
	present := false
	for _, row := range ds.Rows {
		v := row[column]
		if dataset.IsMissing(v) {
			continue
		}
		if parses(v) {
			return nil
		}
		present = true
	}
	if present {
		return errors.TypeMismatch(column, want)
	}
	return nil
}

func monthlyBuckets(ds *dataset.Dataset, dateCol, valueCol string) ([]bucket, int) {
	byKey := make(map[string]*bucket)
	valid := 0
	for _, row := range ds.Rows {
		when, ok := dataset.ParseDate(row[dateCol])
		if !ok {
			continue
		}
		value, ok := dataset.ParseNumber(row[valueCol])
		if !ok {
			continue
		}
		valid++
		key := when.Format(bucketLayout)
		b, exists := byKey[key]
		if !exists {
			b = &bucket{month: time.Date(when.Year(), when.Month(), 1, 0, 0, 0, 0, time.UTC)}
			byKey[key] = b
		}
		b.sum += value
		b.count++
	}

	buckets := make([]bucket, 0, len(byKey))
	for _, b := range byKey {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].month.Before(buckets[j].month) })
	return buckets, valid
}

func point(month time.Time, value float64, kind domainstats.PointType) domainstats.ForecastPoint {
	return domainstats.ForecastPoint{
		Date:      month.Format(labelLayout),
		Timestamp: month.UnixMilli(),
		Value:     value,
		Type:      kind,
	}
}

func direction(slope float64) string {
	switch {
	case slope > 0:
		return "up"
	case slope < 0:
		return "down"
	default:
		return "flat"
	}
}
