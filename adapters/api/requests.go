package api

import (
	"insightforge/adapters/stats/engine"
	"insightforge/adapters/stats/hypothesis"
	"insightforge/domain/dataset"
	domainstats "insightforge/domain/stats"
	"insightforge/internal/errors"
)

// DatasetPayload is the inline dataset every analysis request carries
type DatasetPayload struct {
	Rows    []dataset.RowRecord `json:"rows"`
	Columns []string            `json:"columns,omitempty"`
}

// Dataset builds the dataset, rejecting payloads without any column
func (p DatasetPayload) Dataset() (*dataset.Dataset, error) {
	ds := dataset.New(p.Rows, p.Columns)
	if len(ds.Columns) == 0 {
		return nil, errors.InvalidInput("dataset has no columns")
	}
	return ds, nil
}

// AnalyzeRequest is the body of POST /analyze and POST /datasets/:key/jobs
type AnalyzeRequest struct {
	DatasetPayload
	Key     string         `json:"key,omitempty"`
	Options engine.Options `json:"options"`
}

// CorrelationRequest is the body of POST /correlations
type CorrelationRequest struct {
	DatasetPayload
	Method    domainstats.CorrelationMethod `json:"method,omitempty"`
	Threshold *float64                      `json:"threshold,omitempty"`
	Select    []string                      `json:"select,omitempty"`
	Matrix    bool                          `json:"matrix,omitempty"`
}

// CorrelationResponse lists significant pairs and optionally the full matrix
type CorrelationResponse struct {
	Correlations []domainstats.CorrelationData `json:"correlations"`
	Matrix       *domainstats.CorrelationMatrix `json:"matrix,omitempty"`
}

// RegressionRequest is the body of POST /regression
type RegressionRequest struct {
	DatasetPayload
	X         string    `json:"x" binding:"required"`
	Y         string    `json:"y" binding:"required"`
	PredictAt []float64 `json:"predict_at,omitempty"`
}

// Prediction is a fitted value at x
type Prediction struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegressionResponse carries the fit and any requested predictions
type RegressionResponse struct {
	Regression  domainstats.RegressionResult `json:"regression"`
	Predictions []Prediction                 `json:"predictions,omitempty"`
}

// MultipleRegressionRequest is the body of POST /regression/multiple. When
// Adjust is set the response includes a what-if projection from Baseline.
type MultipleRegressionRequest struct {
	DatasetPayload
	Target   string             `json:"target" binding:"required"`
	Features []string           `json:"features" binding:"required"`
	Baseline map[string]float64 `json:"baseline,omitempty"`
	Adjust   map[string]float64 `json:"adjust,omitempty"`
}

// ForecastRequest is the body of POST /forecast
type ForecastRequest struct {
	DatasetPayload
	DateColumn  string `json:"date_column" binding:"required"`
	ValueColumn string `json:"value_column" binding:"required"`
	Horizon     int    `json:"horizon,omitempty"`
}

// TestsRequest is the body of POST /tests
type TestsRequest struct {
	DatasetPayload
	Tests []hypothesis.TestRequest `json:"tests" binding:"required"`
}

// CompareRequest is the body of POST /compare
type CompareRequest struct {
	A     DatasetPayload `json:"a"`
	B     DatasetPayload `json:"b"`
	NameA string         `json:"name_a,omitempty"`
	NameB string         `json:"name_b,omitempty"`
}

// SummaryRequest is the body of POST /summary
type SummaryRequest struct {
	DatasetPayload
	Options engine.Options `json:"options"`
}

// SummaryResponse carries the report in both renderings
type SummaryResponse struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}
