// Package api exposes the analysis engine as a JSON API on gin.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"insightforge/adapters/report"
	"insightforge/adapters/stats/correlation"
	"insightforge/adapters/stats/engine"
	"insightforge/adapters/stats/forecast"
	"insightforge/adapters/stats/hypothesis"
	"insightforge/adapters/stats/profile"
	"insightforge/adapters/stats/quality"
	"insightforge/adapters/stats/regression"
	"insightforge/app"
	"insightforge/domain/core"
	domainstats "insightforge/domain/stats"
	"insightforge/internal"
	"insightforge/internal/errors"
	"insightforge/internal/metrics"
	"insightforge/ports"
)

// DefaultMaxUpload caps multipart uploads when the caller sets no limit
const DefaultMaxUpload = 32 << 20

// Handler serves the analysis routes
type Handler struct {
	service   *app.AnalysisService
	reader    ports.DatasetReader
	defaults  engine.Options
	horizon   int
	maxUpload int64
	metrics   *metrics.Metrics
	logger    *internal.Logger
}

// HandlerConfig carries the request defaults
type HandlerConfig struct {
	Defaults        engine.Options
	ForecastHorizon int
	MaxUploadBytes  int64
}

// NewHandler creates the handler; metrics and logger may be nil
func NewHandler(
	service *app.AnalysisService,
	reader ports.DatasetReader,
	config HandlerConfig,
	m *metrics.Metrics,
	logger *internal.Logger,
) *Handler {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	if config.ForecastHorizon <= 0 {
		config.ForecastHorizon = engine.DefaultHorizon
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUpload
	}
	return &Handler{
		service:   service,
		reader:    reader,
		defaults:  config.Defaults,
		horizon:   config.ForecastHorizon,
		maxUpload: config.MaxUploadBytes,
		metrics:   m,
		logger:    logger.With("api"),
	}
}

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(h.countRequests())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	h.Register(router.Group("/api/v1"))
	return router
}

// Register mounts the analysis routes on r
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/analyze", h.Analyze)
	r.POST("/correlations", h.Correlations)
	r.POST("/regression", h.Regression)
	r.POST("/regression/multiple", h.MultipleRegression)
	r.POST("/forecast", h.Forecast)
	r.POST("/tests", h.Tests)
	r.POST("/quality", h.Quality)
	r.POST("/compare", h.Compare)
	r.POST("/summary", h.Summary)
	r.POST("/upload", h.Upload)

	r.POST("/datasets/:key/jobs", h.SubmitJob)
	r.GET("/datasets/:key/jobs/latest", h.LatestJob)
	r.GET("/datasets/:key/analyses", h.History)
	r.GET("/analyses/:id", h.GetAnalysis)
}

func (h *Handler) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if h.metrics == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Analyze runs the full pipeline. Large keyed datasets are handed to the
// background worker and answered with 202 and the pending job.
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}
	opts := app.MergeOptions(h.defaults, req.Options)

	var key core.DatasetKey
	if req.Key != "" {
		if key, err = datasetKey(req.Key); err != nil {
			h.fail(c, err)
			return
		}
	}
	if key != "" && h.service.ShouldOffload(ds) {
		c.JSON(http.StatusAccepted, h.service.Submit(key, ds, opts))
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), key, ds, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// Correlations returns the significant pairs and optionally the full matrix
func (h *Handler) Correlations(c *gin.Context) {
	var req CorrelationRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}

	opts := correlation.DefaultOptions()
	if h.defaults.CorrelationMethod != "" {
		opts.Method = h.defaults.CorrelationMethod
	}
	if h.defaults.CorrelationThreshold != nil {
		opts.Threshold = *h.defaults.CorrelationThreshold
	}
	if req.Method != "" {
		opts.Method = req.Method
	}
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	opts.Columns = req.Select

	resp := CorrelationResponse{Correlations: correlation.Calculate(ds, opts)}
	if resp.Correlations == nil {
		resp.Correlations = []domainstats.CorrelationData{}
	}
	if req.Matrix {
		m := correlation.Matrix(ds, opts)
		resp.Matrix = &m
	}
	c.JSON(http.StatusOK, resp)
}

// Regression fits y on x and evaluates any requested points
func (h *Handler) Regression(c *gin.Context) {
	var req RegressionRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := RegressionResponse{Regression: regression.Simple(ds, req.X, req.Y)}
	if !resp.Regression.Failed() {
		for _, x := range req.PredictAt {
			y, err := regression.Predict(resp.Regression, x)
			if err != nil {
				h.fail(c, err)
				return
			}
			resp.Predictions = append(resp.Predictions, Prediction{X: x, Y: y})
		}
	}
	c.JSON(http.StatusOK, resp)
}

// MultipleRegression fits target on features and optionally projects a
// what-if scenario
func (h *Handler) MultipleRegression(c *gin.Context) {
	var req MultipleRegressionRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}

	fit := regression.Multiple(ds, req.Target, req.Features)
	if len(req.Adjust) == 0 || fit.Failed() {
		c.JSON(http.StatusOK, gin.H{"regression": fit})
		return
	}
	projection, err := regression.Scenario(fit, req.Baseline, req.Adjust)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"regression": fit, "scenario": projection})
}

// Forecast projects a monthly series
func (h *Handler) Forecast(c *gin.Context) {
	var req ForecastRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}
	horizon := req.Horizon
	if horizon == 0 {
		horizon = h.horizon
	}
	c.JSON(http.StatusOK, forecast.Forecast(ds, req.DateColumn, req.ValueColumn, horizon))
}

// Tests runs each requested hypothesis test
func (h *Handler) Tests(c *gin.Context) {
	var req TestsRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}

	results := make([]domainstats.TestOutput, 0, len(req.Tests))
	for _, t := range req.Tests {
		results = append(results, hypothesis.Run(ds, t))
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Quality reports the score, anomalies, findings and recommendations
func (h *Handler) Quality(c *gin.Context) {
	var req AnalyzeRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}
	analysis, err := h.service.Analyze(c.Request.Context(), "", ds, app.MergeOptions(h.defaults, req.Options))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quality":         analysis.Quality,
		"anomalies":       analysis.Anomalies,
		"findings":        analysis.Findings,
		"missing":         profile.MissingSummary(ds),
		"recommendations": quality.Recommendations(ds, analysis.ColumnStats, analysis.Correlations),
		"domain":          analysis.Domain,
	})
}

// Compare diffs two datasets
func (h *Handler) Compare(c *gin.Context) {
	var req CompareRequest
	if !h.bind(c, &req) {
		return
	}
	a, err := req.A.Dataset()
	if err != nil {
		h.fail(c, errors.Wrap(err, "dataset a"))
		return
	}
	b, err := req.B.Dataset()
	if err != nil {
		h.fail(c, errors.Wrap(err, "dataset b"))
		return
	}
	nameA, nameB := req.NameA, req.NameB
	if nameA == "" {
		nameA = "a"
	}
	if nameB == "" {
		nameB = "b"
	}
	c.JSON(http.StatusOK, quality.Compare(a, b, nameA, nameB))
}

// Summary renders the executive summary as markdown and HTML
func (h *Handler) Summary(c *gin.Context) {
	var req SummaryRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}
	analysis, err := h.service.Analyze(c.Request.Context(), "", ds, app.MergeOptions(h.defaults, req.Options))
	if err != nil {
		h.fail(c, err)
		return
	}

	md := report.ExecutiveSummary(ds, analysis)
	c.JSON(http.StatusOK, SummaryResponse{Markdown: md, HTML: report.HTML(md)})
}

// Upload parses a CSV or XLSX file from the "file" form field and analyzes
// it. The optional "key" form field stores the result under that key.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, errors.Wrap(err, "failed to open upload"))
		return
	}
	defer f.Close()

	ds, err := h.reader.ReadFrom(f, fh.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("uploaded %s: %d rows x %d columns", fh.Filename, ds.Len(), len(ds.Columns))

	key := core.DatasetKey(c.PostForm("key"))
	analysis, err := h.service.Analyze(c.Request.Context(), key, ds, h.defaults)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file":     fh.Filename,
		"columns":  ds.Columns,
		"rows":     ds.Len(),
		"analysis": analysis,
	})
}

// SubmitJob queues a background analysis for the key
func (h *Handler) SubmitJob(c *gin.Context) {
	key, err := datasetKey(c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req AnalyzeRequest
	if !h.bind(c, &req) {
		return
	}
	ds, err := req.Dataset()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.service.Submit(key, ds, app.MergeOptions(h.defaults, req.Options)))
}

// LatestJob returns the newest submission for the key
func (h *Handler) LatestJob(c *gin.Context) {
	key, err := datasetKey(c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	job, ok := h.service.Latest(key)
	if !ok {
		h.fail(c, errors.NotFound("job for "+key.String()))
		return
	}
	c.JSON(http.StatusOK, job)
}

// History lists stored analyses of the key
func (h *Handler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		h.fail(c, errors.InvalidInput("limit must be a non-negative integer"))
		return
	}
	key, err := datasetKey(c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	items, err := h.service.History(c.Request.Context(), key, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": items})
}

// GetAnalysis loads a stored analysis by ID
func (h *Handler) GetAnalysis(c *gin.Context) {
	id, err := core.ParseAnalysisID(c.Param("id"))
	if err != nil {
		h.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	analysis, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.fail(c, errors.WithCode(errors.CodeValidationError, errors.Wrap(err, "invalid request body")))
		return false
	}
	return true
}

func datasetKey(raw string) (core.DatasetKey, error) {
	key, err := core.ParseDatasetKey(raw)
	if err != nil {
		return "", errors.ValidationError(err.Error())
	}
	return key, nil
}

// fail writes {"error", "code"} with a status derived from the error code
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": codeFor(err)})
}

func codeFor(err error) string {
	switch {
	case errors.IsAppError(err):
		return errors.GetCode(err)
	case isContextError(err):
		return "CANCELLED"
	default:
		return errors.CodeInternalError
	}
}

func statusFor(err error) int {
	if isContextError(err) {
		return http.StatusServiceUnavailable
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeValidationError, errors.CodeColumnNotFound,
		errors.CodeInsufficientData, errors.CodeDegenerateInput, errors.CodeTypeMismatch,
		errors.CodeUnsupportedTest:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isContextError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
