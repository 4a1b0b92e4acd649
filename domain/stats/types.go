package stats

import (
	"time"

	"insightforge/domain/core"
	"insightforge/domain/dataset"
	"insightforge/internal/errors"
)

// SignificanceLevel is the fixed alpha used by every hypothesis test
const SignificanceLevel = 0.05

// Dispersion selects the variance denominator
type Dispersion string

const (
	Population Dispersion = "population" // divide by n
	Sample     Dispersion = "sample"     // divide by n-1
)

// Failure is embedded in every result that can be "not computable". A result
// with a non-empty Error carries no meaningful statistic.
type Failure struct {
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// FailureFrom converts an error into a Failure, keeping its AppError code
func FailureFrom(err error) Failure {
	if err == nil {
		return Failure{}
	}
	return Failure{Error: err.Error(), ErrorCode: errors.GetCode(err)}
}

// Failed reports whether the computation was not possible
func (f Failure) Failed() bool {
	return f.Error != ""
}

// ColumnStats profiles one column. Numeric fields are set only for numeric
// columns and only when defined.
type ColumnStats struct {
	Name           string             `json:"name"`
	Type           dataset.ColumnType `json:"type"`
	Count          int                `json:"count"`
	Missing        int                `json:"missing"`
	MissingPercent float64            `json:"missing_percent"`
	Unique         int                `json:"unique"`

	NumericCount int        `json:"numeric_count,omitempty"`
	Dispersion   Dispersion `json:"dispersion,omitempty"`
	Mean         *float64   `json:"mean,omitempty"`
	Median       *float64   `json:"median,omitempty"`
	Min          *float64   `json:"min,omitempty"`
	Max          *float64   `json:"max,omitempty"`
	Std          *float64   `json:"std,omitempty"`
	Skew         *float64   `json:"skew,omitempty"`
	Kurtosis     *float64   `json:"kurtosis,omitempty"`
	Q1           *float64   `json:"q1,omitempty"`
	Q3           *float64   `json:"q3,omitempty"`
	IQR          *float64   `json:"iqr,omitempty"`
}

// IsNumeric reports whether the column was classified numeric
func (c ColumnStats) IsNumeric() bool {
	return c.Type == dataset.TypeNumeric
}

// MissingSummary is one entry of the missing-values overview
type MissingSummary struct {
	Column  string  `json:"column"`
	Missing int     `json:"missing"`
	Percent float64 `json:"percent"`
}

// CorrelationMethod selects the correlation coefficient
type CorrelationMethod string

const (
	Pearson  CorrelationMethod = "pearson"
	Spearman CorrelationMethod = "spearman"
	Kendall  CorrelationMethod = "kendall"
)

// CorrelationData is the coefficient for one unordered pair of numeric columns
type CorrelationData struct {
	Col1        string            `json:"col1"`
	Col2        string            `json:"col2"`
	Correlation float64           `json:"correlation"`
	Method      CorrelationMethod `json:"method"`
	N           int               `json:"n"`
	PValue      Float             `json:"p_value"`
}

// CorrelationMatrix is a full symmetric matrix over numeric columns
type CorrelationMatrix struct {
	Columns []string          `json:"columns"`
	Method  CorrelationMethod `json:"method"`
	Values  [][]float64       `json:"values"`
}

// Severity labels the share of outliers in a column
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// OutlierInfo holds IQR outliers of one numeric column
type OutlierInfo struct {
	Column     string    `json:"column"`
	Outliers   []float64 `json:"outliers"`
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
	N          int       `json:"n"`
	Q1         float64   `json:"q1"`
	Q3         float64   `json:"q3"`
	IQR        float64   `json:"iqr"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
	Severity   Severity  `json:"severity"`
	Failure
}

// BoxPlot is the five number summary plus mean
type BoxPlot struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// Point is an (x, y) pair
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegressionResult is a simple OLS fit of Y on X
type RegressionResult struct {
	XColumn    string  `json:"x_column"`
	YColumn    string  `json:"y_column"`
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	R2         Float   `json:"r2"`
	N          int     `json:"n"`
	Points     []Point `json:"points"`
	LinePoints []Point `json:"line_points"`
	Failure
}

// PredictionPoint pairs an observed target with its fitted value
type PredictionPoint struct {
	Index     int     `json:"index"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// MultipleRegressionResult is an OLS fit of a target on several features
type MultipleRegressionResult struct {
	Target            string             `json:"target"`
	Features          []string           `json:"features"`
	Coefficients      map[string]float64 `json:"coefficients"`
	Intercept         float64            `json:"intercept"`
	R2                Float              `json:"r2"`
	MSE               float64            `json:"mse"`
	N                 int                `json:"n"`
	ActualVsPredicted []PredictionPoint  `json:"actual_vs_predicted"`
	Failure
}

// PointType distinguishes observed from projected forecast buckets
type PointType string

const (
	PointActual   PointType = "actual"
	PointForecast PointType = "forecast"
)

// ForecastPoint is one monthly bucket
type ForecastPoint struct {
	Date      string    `json:"date"`
	Timestamp int64     `json:"timestamp"`
	Value     float64   `json:"value"`
	Type      PointType `json:"type"`
}

// Trend describes the line fitted over bucket indices
type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        Float   `json:"r2"`
	Velocity  float64 `json:"velocity"`
	Direction string  `json:"direction"`
}

// ForecastResult holds historical buckets followed by projected ones
type ForecastResult struct {
	DateColumn  string          `json:"date_column"`
	ValueColumn string          `json:"value_column"`
	Horizon     int             `json:"horizon"`
	Points      []ForecastPoint `json:"points"`
	Trend       *Trend          `json:"trend,omitempty"`
	Failure
}

// TestKind names a hypothesis test
type TestKind string

const (
	TestTTest     TestKind = "ttest"
	TestNormality TestKind = "normality"
	TestANOVA     TestKind = "anova"
)

// TestOutput is the outcome of a hypothesis test
type TestOutput struct {
	Test        TestKind               `json:"test"`
	Stat        float64                `json:"stat"`
	PValue      Float                  `json:"p_value"`
	DF          *float64               `json:"df,omitempty"`
	DF2         *float64               `json:"df2,omitempty"`
	Significant bool                   `json:"significant"`
	Conclusion  string                 `json:"conclusion"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Failure
}

// Grade is the coarse quality bucket
type Grade string

const (
	GradeGood Grade = "good"
	GradeFair Grade = "fair"
	GradePoor Grade = "poor"
)

// Penalty is one deduction from the quality score
type Penalty struct {
	Reason string  `json:"reason"`
	Points float64 `json:"points"`
}

// QualityReport scores the dataset as a whole
type QualityReport struct {
	Score             float64   `json:"score"`
	Grade             Grade     `json:"grade"`
	Letter            string    `json:"letter"`
	AvgMissingPercent float64   `json:"avg_missing_percent"`
	DuplicateRows     int       `json:"duplicate_rows"`
	Penalties         []Penalty `json:"penalties"`
}

// Anomaly is a single value far from its column mean
type Anomaly struct {
	Column   string  `json:"column"`
	Row      int     `json:"row"`
	Value    float64 `json:"value"`
	ZScore   float64 `json:"z_score"`
	Severity string  `json:"severity"`
}

// Analysis bundles every artifact of one pass over a dataset
type Analysis struct {
	ID                 core.AnalysisID           `json:"id"`
	Fingerprint        core.Hash                 `json:"fingerprint"`
	RowCount           int                       `json:"row_count"`
	ColumnCount        int                       `json:"column_count"`
	ColumnStats        []ColumnStats             `json:"column_stats"`
	Correlations       []CorrelationData         `json:"correlations"`
	Outliers           []OutlierInfo             `json:"outliers"`
	Quality            *QualityReport            `json:"quality,omitempty"`
	Anomalies          []Anomaly                 `json:"anomalies,omitempty"`
	Findings           []string                  `json:"findings,omitempty"`
	Domain             string                    `json:"domain,omitempty"`
	Regression         *RegressionResult         `json:"regression,omitempty"`
	MultipleRegression *MultipleRegressionResult `json:"multiple_regression,omitempty"`
	Forecast           *ForecastResult           `json:"forecast,omitempty"`
	Tests              []TestOutput              `json:"tests,omitempty"`
	ComputedAt         time.Time                 `json:"computed_at"`
	DurationMS         int64                     `json:"duration_ms"`
}
