package profile

import (
	"math"

	"insightforge/domain/dataset"
)

// InferStrategy selects how a column type is decided
type InferStrategy string

const (
	// FirstValue classifies the column from its first non-missing value.
	FirstValue InferStrategy = "first_value"
	// MajorityVote classifies a spread-out sample and keeps the most common
	// class; ties resolve to categorical.
	MajorityVote InferStrategy = "majority_vote"
)

// DefaultSampleSize bounds how many values MajorityVote inspects
const DefaultSampleSize = 500

// InferOptions configures type inference
type InferOptions struct {
	Strategy   InferStrategy `json:"strategy"`
	SampleSize int           `json:"sample_size"`
}

// DefaultInferOptions returns majority voting over up to 500 values
func DefaultInferOptions() InferOptions {
	return InferOptions{Strategy: MajorityVote, SampleSize: DefaultSampleSize}
}

// TypeDistribution counts how sampled values classify
type TypeDistribution struct {
	Sampled int                        `json:"sampled"`
	Counts  map[dataset.ColumnType]int `json:"counts"`
}

// Ratio is the share of sampled values of the given type
func (d TypeDistribution) Ratio(t dataset.ColumnType) float64 {
	if d.Sampled == 0 {
		return 0
	}
	return float64(d.Counts[t]) / float64(d.Sampled)
}

// InferColumnType classifies a column. It never fails: a column without any
// non-missing value is categorical.
func InferColumnType(ds *dataset.Dataset, column string, opts InferOptions) dataset.ColumnType {
	values := nonMissing(ds, column)
	if len(values) == 0 {
		return dataset.TypeCategorical
	}
	if opts.Strategy == FirstValue {
		return dataset.Classify(values[0])
	}
	return majority(Distribution(values, opts.SampleSize))
}

// InferColumnTypes classifies every column of the dataset
func InferColumnTypes(ds *dataset.Dataset, opts InferOptions) map[string]dataset.ColumnType {
	types := make(map[string]dataset.ColumnType, len(ds.Columns))
	for _, c := range ds.Columns {
		types[c] = InferColumnType(ds, c, opts)
	}
	return types
}

// Distribution classifies a stratified sample of at most sampleSize values
func Distribution(values []any, sampleSize int) TypeDistribution {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	dist := TypeDistribution{Counts: make(map[dataset.ColumnType]int)}
	for _, idx := range stratifiedSample(len(values), sampleSize) {
		dist.Counts[dataset.Classify(values[idx])]++
		dist.Sampled++
	}
	return dist
}

// ColumnDistribution is Distribution over the non-missing values of a column
func ColumnDistribution(ds *dataset.Dataset, column string, sampleSize int) TypeDistribution {
	return Distribution(nonMissing(ds, column), sampleSize)
}

var voteOrder = []dataset.ColumnType{
	dataset.TypeNumeric,
	dataset.TypeDate,
	dataset.TypeBoolean,
	dataset.TypeCategorical,
}

func majority(dist TypeDistribution) dataset.ColumnType {
	best := dataset.TypeCategorical
	bestCount := -1
	tied := false
	for _, t := range voteOrder {
		c := dist.Counts[t]
		switch {
		case c > bestCount:
			best, bestCount, tied = t, c, false
		case c == bestCount && c > 0:
			tied = true
		}
	}
	if tied {
		return dataset.TypeCategorical
	}
	return best
}

func nonMissing(ds *dataset.Dataset, column string) []any {
	values := make([]any, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if v := row[column]; !dataset.IsMissing(v) {
			values = append(values, v)
		}
	}
	return values
}

// stratifiedSample picks evenly spaced indices so a sample spans the whole
// column. It is deterministic: the same input yields the same indices.
func stratifiedSample(total, size int) []int {
	if size >= total {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	indices := make([]int, 0, size)
	step := float64(total) / float64(size)
	last := -1
	for i := 0; i < size; i++ {
		idx := int(math.Floor(float64(i) * step))
		if idx <= last {
			idx = last + 1
		}
		if idx >= total {
			break
		}
		indices = append(indices, idx)
		last = idx
	}
	return indices
}
