// Package regression fits ordinary least squares models.
package regression

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"insightforge/adapters/stats/numeric"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// MinSimplePoints is the smallest sample a line can be fitted to
const MinSimplePoints = 2

// Line is a fitted y = Slope*x + Intercept
type Line struct {
	Slope     float64
	Intercept float64
	// R2 is 1 - SSres/SStot, NaN when every y is identical
	R2 float64
}

// At evaluates the line
func (l Line) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// FitLine fits OLS from Σx, Σy, Σxy and Σx². It fails on fewer than two
// points or when every x is identical.
func FitLine(xs, ys []float64) (Line, error) {
	n := len(xs)
	if n != len(ys) {
		return Line{}, errors.InvalidInput("x and y must have the same length")
	}
	if n < MinSimplePoints {
		return Line{}, errors.InsufficientData("regression", MinSimplePoints, n)
	}

	if numeric.Constant(xs) {
		return Line{}, errors.DegenerateInput("x has zero variance, slope is undefined")
	}

	nf := float64(n)
	sumX := floats.Sum(xs)
	sumY := floats.Sum(ys)
	sumXY := floats.Dot(xs, ys)
	sumXX := floats.Dot(xs, xs)

	denom := nf*sumXX - sumX*sumX
	if denom <= 0 {
		return Line{}, errors.DegenerateInput("x has zero variance, slope is undefined")
	}
	slope := (nf*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / nf

	line := Line{Slope: slope, Intercept: intercept}
	line.R2 = RSquared(xs, ys, line.At)
	return line, nil
}

// RSquared is 1 - SSres/SStot for predictions f(x); NaN when every y is
// identical
func RSquared(xs, ys []float64, f func(float64) float64) float64 {
	if len(ys) == 0 || numeric.Constant(ys) {
		return math.NaN()
	}
	meanY := floats.Sum(ys) / float64(len(ys))
	var ssRes, ssTot float64
	for i := range ys {
		r := ys[i] - f(xs[i])
		d := ys[i] - meanY
		ssRes += r * r
		ssTot += d * d
	}
	if ssTot == 0 {
		return math.NaN()
	}
	return 1 - ssRes/ssTot
}

// Simple regresses yCol on xCol over rows where both parse as numbers.
func Simple(ds *dataset.Dataset, xCol, yCol string) domainstats.RegressionResult {
	result := domainstats.RegressionResult{XColumn: xCol, YColumn: yCol, Points: []domainstats.Point{}}
	for _, c := range []string{xCol, yCol} {
		if !ds.HasColumn(c) {
			result.R2 = domainstats.NaN()
			result.Failure = domainstats.FailureFrom(errors.ColumnNotFound(c))
			return result
		}
	}

	xs, ys := ds.Paired(xCol, yCol)
	result.N = len(xs)
	result.Points = make([]domainstats.Point, len(xs))
	for i := range xs {
		result.Points[i] = domainstats.Point{X: xs[i], Y: ys[i]}
	}

	line, err := FitLine(xs, ys)
	if err != nil {
		result.R2 = domainstats.NaN()
		result.Failure = domainstats.FailureFrom(err)
		return result
	}
	result.Slope = line.Slope
	result.Intercept = line.Intercept
	result.R2 = domainstats.Float(line.R2)

	minX, maxX := floats.Min(xs), floats.Max(xs)
	result.LinePoints = []domainstats.Point{
		{X: minX, Y: line.At(minX)},
		{X: maxX, Y: line.At(maxX)},
	}
	return result
}
