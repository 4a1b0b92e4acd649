// Package engine runs every analysis component over one dataset and bundles
// the artifacts into a single Analysis.
package engine

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"insightforge/adapters/stats/correlation"
	"insightforge/adapters/stats/forecast"
	"insightforge/adapters/stats/hypothesis"
	"insightforge/adapters/stats/outliers"
	"insightforge/adapters/stats/profile"
	"insightforge/adapters/stats/quality"
	"insightforge/adapters/stats/regression"
	"insightforge/domain/core"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal"
	"insightforge/internal/errors"
)

// DefaultHorizon is used when a forecast request leaves the horizon empty
const DefaultHorizon = 6

// RegressionRequest asks for a simple fit of Y on X
type RegressionRequest struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// MultipleRegressionRequest asks for a fit of Target on Features
type MultipleRegressionRequest struct {
	Target   string   `json:"target"`
	Features []string `json:"features"`
}

// ForecastRequest asks for a monthly projection
type ForecastRequest struct {
	DateColumn  string `json:"date_column"`
	ValueColumn string `json:"value_column"`
	Horizon     int    `json:"horizon,omitempty"`
}

// Options selects what Analyze computes beyond the always-on profile,
// correlations, outliers and quality.
type Options struct {
	Dispersion           domainstats.Dispersion        `json:"dispersion,omitempty"`
	InferStrategy        profile.InferStrategy         `json:"infer_strategy,omitempty"`
	TypeSampleSize       int                           `json:"type_sample_size,omitempty"`
	CorrelationMethod    domainstats.CorrelationMethod `json:"correlation_method,omitempty"`
	CorrelationThreshold *float64                      `json:"correlation_threshold,omitempty"`
	AnomalyLimit         int                           `json:"anomaly_limit,omitempty"`

	Regression         *RegressionRequest         `json:"regression,omitempty"`
	MultipleRegression *MultipleRegressionRequest `json:"multiple_regression,omitempty"`
	Forecast           *ForecastRequest           `json:"forecast,omitempty"`
	Tests              []hypothesis.TestRequest   `json:"tests,omitempty"`
}

// Hash identifies the options for cache keys
func (o Options) Hash() core.Hash {
	payload, err := json.Marshal(o)
	if err != nil {
		return ""
	}
	return core.NewHash(payload)
}

func (o Options) describe() profile.DescribeOptions {
	opts := profile.DefaultDescribeOptions()
	if o.Dispersion != "" {
		opts.Dispersion = o.Dispersion
	}
	if o.InferStrategy != "" {
		opts.Infer.Strategy = o.InferStrategy
	}
	if o.TypeSampleSize > 0 {
		opts.Infer.SampleSize = o.TypeSampleSize
	}
	return opts
}

func (o Options) correlation(types map[string]dataset.ColumnType) correlation.Options {
	opts := correlation.DefaultOptions()
	if o.CorrelationMethod != "" {
		opts.Method = o.CorrelationMethod
	}
	if o.CorrelationThreshold != nil {
		opts.Threshold = *o.CorrelationThreshold
	}
	opts.Types = types
	return opts
}

// Engine orchestrates the analysis components
type Engine struct {
	logger *internal.Logger
}

// New creates an engine; a nil logger falls back to the default one
func New(logger *internal.Logger) *Engine {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Engine{logger: logger.With("engine")}
}

// Analyze profiles the dataset, then runs correlations, outliers, quality and
// any requested optional analyses concurrently. Data problems are reported
// inside the artifacts; only a nil or column-less dataset or a cancelled
// context returns an error.
func (e *Engine) Analyze(ctx context.Context, ds *dataset.Dataset, opts Options) (*domainstats.Analysis, error) {
	if ds == nil {
		return nil, errors.InvalidInput("dataset is nil")
	}
	if len(ds.Columns) == 0 {
		return nil, errors.InvalidInput("dataset has no columns")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &domainstats.Analysis{
		ID:          core.NewAnalysisID(),
		Fingerprint: ds.Fingerprint(),
		RowCount:    ds.Len(),
		ColumnCount: len(ds.Columns),
		Domain:      quality.DetectDomain(ds.Columns),
	}
	e.logger.Debug("analyzing %s: %d rows x %d columns", result.Fingerprint.Short(), result.RowCount, result.ColumnCount)

	result.ColumnStats = profile.DescribeAll(ds, opts.describe())
	types := make(map[string]dataset.ColumnType, len(result.ColumnStats))
	for _, cs := range result.ColumnStats {
		types[cs.Name] = cs.Type
	}

	g, gctx := errgroup.WithContext(ctx)
	run := func(step func()) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			step()
			return nil
		})
	}

	run(func() {
		result.Correlations = correlation.Calculate(ds, opts.correlation(types))
	})
	run(func() {
		result.Outliers = outliers.DetectAll(ds, result.ColumnStats)
	})
	run(func() {
		report := quality.Score(ds, result.ColumnStats)
		result.Quality = &report
		result.Anomalies = quality.Anomalies(ds, result.ColumnStats, opts.AnomalyLimit)
		result.Findings = quality.Findings(result.ColumnStats)
	})
	if req := opts.Regression; req != nil {
		run(func() {
			fit := regression.Simple(ds, req.X, req.Y)
			result.Regression = &fit
		})
	}
	if req := opts.MultipleRegression; req != nil {
		run(func() {
			fit := regression.Multiple(ds, req.Target, req.Features)
			result.MultipleRegression = &fit
		})
	}
	if req := opts.Forecast; req != nil {
		run(func() {
			horizon := req.Horizon
			if horizon == 0 {
				horizon = DefaultHorizon
			}
			fc := forecast.Forecast(ds, req.DateColumn, req.ValueColumn, horizon)
			result.Forecast = &fc
		})
	}
	if len(opts.Tests) > 0 {
		run(func() {
			tests := make([]domainstats.TestOutput, len(opts.Tests))
			for i, req := range opts.Tests {
				tests[i] = hypothesis.Run(ds, req)
			}
			result.Tests = tests
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if result.Correlations == nil {
		result.Correlations = []domainstats.CorrelationData{}
	}
	if result.Outliers == nil {
		result.Outliers = []domainstats.OutlierInfo{}
	}

	result.ComputedAt = time.Now().UTC()
	result.DurationMS = time.Since(start).Milliseconds()
	e.logger.Debug("analysis %s done in %dms: %d correlations, %d outlier columns, quality %.1f",
		result.ID, result.DurationMS, len(result.Correlations), len(result.Outliers), result.Quality.Score)
	return result, nil
}

// CalculateCorrelations is the standalone correlation entry point: Pearson,
// |r| > 0.1 over every numeric column, strongest first.
func CalculateCorrelations(ds *dataset.Dataset) []domainstats.CorrelationData {
	if ds == nil {
		return []domainstats.CorrelationData{}
	}
	out := correlation.CalculateCorrelations(ds, nil)
	if out == nil {
		out = []domainstats.CorrelationData{}
	}
	return out
}
