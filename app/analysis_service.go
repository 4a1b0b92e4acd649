package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"insightforge/adapters/cache"
	"insightforge/adapters/stats/engine"
	"insightforge/domain/core"
	"insightforge/domain/dataset"
	"insightforge/domain/stats"
	"insightforge/internal"
	"insightforge/internal/errors"
	"insightforge/internal/metrics"
	"insightforge/ports"
)

// Analyzer runs one analysis pass; *engine.Engine is the production one
type Analyzer interface {
	Analyze(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error)
}

// AnalyzerFunc adapts a function to Analyzer
type AnalyzerFunc func(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error)

// Analyze calls f
func (f AnalyzerFunc) Analyze(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
	return f(ctx, ds, opts)
}

// JobState tracks a background analysis
type JobState string

const (
	JobPending JobState = "pending"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job is the latest background analysis of a dataset key
type Job struct {
	Key         core.DatasetKey `json:"key"`
	Generation  uint64          `json:"generation"`
	State       JobState        `json:"state"`
	SubmittedAt time.Time       `json:"submitted_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Analysis    *stats.Analysis `json:"analysis,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorCode   string          `json:"error_code,omitempty"`
}

// ServiceConfig tunes the analysis service
type ServiceConfig struct {
	// OffloadRowThreshold is the row count above which callers should use Submit
	OffloadRowThreshold int
	// MaxConcurrent bounds background analyses running at once
	MaxConcurrent int64
	// JobTimeout caps one background analysis; 0 means no limit
	JobTimeout time.Duration
}

// DefaultServiceConfig returns the defaults used when config leaves them empty
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		OffloadRowThreshold: 5000,
		MaxConcurrent:       4,
		JobTimeout:          2 * time.Minute,
	}
}

type slot struct {
	generation uint64
	cancel     context.CancelFunc
	job        Job
}

// AnalysisService fronts the engine with caching, persistence and a
// last-writer-wins background path. Cache, repository and metrics are
// optional.
type AnalysisService struct {
	analyzer Analyzer
	cache    ports.ResultCache
	repo     ports.AnalysisRepository
	metrics  *metrics.Metrics
	logger   *internal.Logger
	config   ServiceConfig

	sem *semaphore.Weighted

	mu    sync.Mutex
	slots map[core.DatasetKey]*slot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAnalysisService wires the service
func NewAnalysisService(
	analyzer Analyzer,
	resultCache ports.ResultCache,
	repo ports.AnalysisRepository,
	m *metrics.Metrics,
	logger *internal.Logger,
	config ServiceConfig,
) *AnalysisService {
	defaults := DefaultServiceConfig()
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.OffloadRowThreshold <= 0 {
		config.OffloadRowThreshold = defaults.OffloadRowThreshold
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AnalysisService{
		analyzer: analyzer,
		cache:    resultCache,
		repo:     repo,
		metrics:  m,
		logger:   logger.With("analysis"),
		config:   config,
		sem:      semaphore.NewWeighted(config.MaxConcurrent),
		slots:    make(map[core.DatasetKey]*slot),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ShouldOffload reports whether a dataset is large enough for Submit
func (s *AnalysisService) ShouldOffload(ds *dataset.Dataset) bool {
	return ds.Len() > s.config.OffloadRowThreshold
}

// Analyze runs synchronously: cache lookup, engine, cache store, and a
// snapshot under key when key is set.
func (s *AnalysisService) Analyze(ctx context.Context, key core.DatasetKey, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
	analysis, err := s.compute(ctx, ds, opts)
	if err != nil {
		return nil, err
	}
	s.persist(ctx, key, analysis)
	return analysis, nil
}

// Submit starts a background analysis for key and cancels any earlier one.
// Only the newest submission may publish its result.
func (s *AnalysisService) Submit(key core.DatasetKey, ds *dataset.Dataset, opts engine.Options) Job {
	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{}
		s.slots[key] = sl
	}
	if sl.cancel != nil {
		sl.cancel()
	}
	sl.generation++
	gen := sl.generation

	var ctx context.Context
	var cancel context.CancelFunc
	if s.config.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.config.JobTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	sl.cancel = cancel
	sl.job = Job{Key: key, Generation: gen, State: JobPending, SubmittedAt: time.Now().UTC()}
	job := sl.job
	s.mu.Unlock()

	s.logger.Debug("submitted %s generation %d (%d rows)", key, gen, ds.Len())
	s.wg.Add(1)
	go s.work(ctx, cancel, key, gen, ds, opts)
	return job
}

func (s *AnalysisService) work(ctx context.Context, cancel context.CancelFunc, key core.DatasetKey, gen uint64, ds *dataset.Dataset, opts engine.Options) {
	defer s.wg.Done()
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.finish(key, gen, nil, err)
		return
	}
	defer s.sem.Release(1)

	if s.metrics != nil {
		s.metrics.JobsInFlight.Inc()
		defer s.metrics.JobsInFlight.Dec()
	}

	analysis, err := s.compute(ctx, ds, opts)
	if s.finish(key, gen, analysis, err) && err == nil {
		s.persist(s.ctx, key, analysis)
	}
}

// finish publishes a result if gen is still the current generation of key
func (s *AnalysisService) finish(key core.DatasetKey, gen uint64, analysis *stats.Analysis, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.slots[key]
	if sl == nil || sl.generation != gen {
		if s.metrics != nil {
			s.metrics.StaleResults.Inc()
		}
		s.logger.Debug("discarding stale result for %s generation %d", key, gen)
		return false
	}

	now := time.Now().UTC()
	sl.cancel = nil
	sl.job.FinishedAt = &now
	if err != nil {
		sl.job.State = JobFailed
		sl.job.Error = err.Error()
		sl.job.ErrorCode = errors.GetCode(err)
		s.logger.Warn("analysis of %s failed: %v", key, err)
		return true
	}
	sl.job.State = JobDone
	sl.job.Analysis = analysis
	return true
}

// Latest returns the state of the newest submission for key
func (s *AnalysisService) Latest(key core.DatasetKey) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok {
		return Job{}, false
	}
	return sl.job, true
}

// Get loads a stored analysis
func (s *AnalysisService) Get(ctx context.Context, id core.AnalysisID) (*stats.Analysis, error) {
	if s.repo == nil {
		return nil, errors.NotFound("analysis " + id.String())
	}
	return s.repo.Get(ctx, id)
}

// History lists stored analyses of a key, newest first
func (s *AnalysisService) History(ctx context.Context, key core.DatasetKey, limit int) ([]ports.AnalysisSummary, error) {
	if s.repo == nil {
		return []ports.AnalysisSummary{}, nil
	}
	return s.repo.ListByKey(ctx, key, limit)
}

// Close cancels outstanding jobs and waits for them to return
func (s *AnalysisService) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *AnalysisService) compute(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
	if ds == nil {
		return nil, errors.InvalidInput("dataset is nil")
	}

	key := cache.Key(ds.Fingerprint(), opts.Hash())
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.countCache("error")
			s.logger.Warn("cache lookup failed: %v", err)
		case ok:
			s.countCache("hit")
			s.countAnalysis("cached")
			return reissue(cached), nil
		default:
			s.countCache("miss")
		}
	}

	start := time.Now()
	analysis, err := s.analyzer.Analyze(ctx, ds, opts)
	if s.metrics != nil {
		s.metrics.AnalysisSeconds.Observe(time.Since(start).Seconds())
	}
	if err == nil && analysis == nil {
		err = errors.InternalError("analyzer returned no analysis")
	}
	if err != nil {
		s.countAnalysis("error")
		return nil, err
	}
	s.countAnalysis("ok")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, analysis); err != nil {
			s.logger.Warn("cache store failed: %v", err)
		}
	}
	return analysis, nil
}

// reissue copies a cached analysis under a fresh id so each snapshot row
// stays unique
func reissue(cached *stats.Analysis) *stats.Analysis {
	analysis := *cached
	analysis.ID = core.NewAnalysisID()
	analysis.ComputedAt = time.Now().UTC()
	return &analysis
}

func (s *AnalysisService) persist(ctx context.Context, key core.DatasetKey, analysis *stats.Analysis) {
	if s.repo == nil || key == "" {
		return
	}
	if err := s.repo.Save(ctx, key, analysis); err != nil {
		s.logger.Warn("failed to save analysis %s for %s: %v", analysis.ID, key, err)
	}
}

func (s *AnalysisService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (s *AnalysisService) countAnalysis(outcome string) {
	if s.metrics != nil {
		s.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	}
}
