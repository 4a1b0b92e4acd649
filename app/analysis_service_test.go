package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"insightforge/adapters/cache"
	"insightforge/adapters/postgres"
	"insightforge/adapters/stats/engine"
	"insightforge/domain/core"
	"insightforge/domain/dataset"
	"insightforge/domain/stats"
	"insightforge/internal/errors"
	"insightforge/internal/metrics"
	"insightforge/internal/migration"
	"insightforge/ports"
)

type MockAnalysisRepository struct {
	mock.Mock
}

func (m *MockAnalysisRepository) Save(ctx context.Context, key core.DatasetKey, analysis *stats.Analysis) error {
	args := m.Called(ctx, key, analysis)
	return args.Error(0)
}

func (m *MockAnalysisRepository) Get(ctx context.Context, id core.AnalysisID) (*stats.Analysis, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*stats.Analysis), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAnalysisRepository) LatestByKey(ctx context.Context, key core.DatasetKey) (*stats.Analysis, error) {
	args := m.Called(ctx, key)
	if a := args.Get(0); a != nil {
		return a.(*stats.Analysis), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAnalysisRepository) ListByKey(ctx context.Context, key core.DatasetKey, limit int) ([]ports.AnalysisSummary, error) {
	args := m.Called(ctx, key, limit)
	return args.Get(0).([]ports.AnalysisSummary), args.Error(1)
}

func smallDataset() *dataset.Dataset {
	return dataset.New([]dataset.RowRecord{
		{"x": 1, "y": 2.1},
		{"x": 2, "y": 3.9},
		{"x": 3, "y": 6.2},
		{"x": 4, "y": 7.8},
	}, []string{"x", "y"})
}

// countingAnalyzer numbers each call and names the result after it
func countingAnalyzer(calls *int32) AnalyzerFunc {
	return func(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
		n := atomic.AddInt32(calls, 1)
		return &stats.Analysis{ID: core.AnalysisID(fmt.Sprintf("run-%d", n)), RowCount: ds.Len()}, nil
	}
}

func TestAnalyzeUsesCache(t *testing.T) {
	var calls int32
	m := metrics.New()
	repo := new(MockAnalysisRepository)
	repo.On("Save", mock.Anything, core.DatasetKey("sales"), mock.Anything).Return(nil)

	svc := NewAnalysisService(countingAnalyzer(&calls), cache.NewMemory(0), repo, m, nil, ServiceConfig{})
	defer svc.Close()

	first, err := svc.Analyze(context.Background(), "sales", smallDataset(), engine.Options{})
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), "sales", smallDataset(), engine.Options{})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "a cache hit is stored as a new snapshot")
	assert.Equal(t, first.RowCount, second.RowCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("cached")))
	repo.AssertNumberOfCalls(t, "Save", 2)

	// different options miss the cache
	_, err = svc.Analyze(context.Background(), "sales", smallDataset(), engine.Options{CorrelationMethod: stats.Spearman})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCachedAnalysesAreStoredUnderEveryKey(t *testing.T) {
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(context.Background(), db))

	var calls int32
	svc := NewAnalysisService(countingAnalyzer(&calls), cache.NewMemory(0), postgres.NewAnalysisRepository(db), nil, nil, ServiceConfig{})
	defer svc.Close()

	ctx := context.Background()
	for _, key := range []core.DatasetKey{"sales-jan", "sales-copy", "sales-copy"} {
		_, err := svc.Analyze(ctx, key, smallDataset(), engine.Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	jan, err := svc.History(ctx, "sales-jan", 10)
	require.NoError(t, err)
	assert.Len(t, jan, 1)
	cp, err := svc.History(ctx, "sales-copy", 10)
	require.NoError(t, err)
	assert.Len(t, cp, 2)
}

func TestAnalyzeRejectsEmptyResult(t *testing.T) {
	empty := AnalyzerFunc(func(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
		return nil, nil
	})
	svc := NewAnalysisService(empty, cache.NewMemory(0), nil, nil, nil, ServiceConfig{})
	defer svc.Close()

	_, err := svc.Analyze(context.Background(), "", smallDataset(), engine.Options{})
	assert.True(t, errors.HasCode(err, errors.CodeInternalError))
}

func TestAnalyzeWithoutKeySkipsPersistence(t *testing.T) {
	var calls int32
	repo := new(MockAnalysisRepository)
	svc := NewAnalysisService(countingAnalyzer(&calls), nil, repo, nil, nil, ServiceConfig{})
	defer svc.Close()

	_, err := svc.Analyze(context.Background(), "", smallDataset(), engine.Options{})
	require.NoError(t, err)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeRealEngine(t *testing.T) {
	svc := NewAnalysisService(engine.New(nil), nil, nil, nil, nil, ServiceConfig{})
	defer svc.Close()

	analysis, err := svc.Analyze(context.Background(), "", smallDataset(), engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, analysis.RowCount)
	require.Len(t, analysis.Correlations, 1)
	assert.Greater(t, analysis.Correlations[0].Correlation, 0.99)

	_, err = svc.Analyze(context.Background(), "", nil, engine.Options{})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestSubmitLastWriterWins(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	analyzer := AnalyzerFunc(func(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
		n := atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		if n == 1 {
			// ignores cancellation so the first run finishes after the second
			<-release
		}
		return &stats.Analysis{ID: core.AnalysisID(fmt.Sprintf("run-%d", n))}, nil
	})

	m := metrics.New()
	repo := new(MockAnalysisRepository)
	repo.On("Save", mock.Anything, core.DatasetKey("sales"), mock.Anything).Return(nil)
	svc := NewAnalysisService(analyzer, nil, repo, m, nil, ServiceConfig{MaxConcurrent: 4})

	first := svc.Submit("sales", smallDataset(), engine.Options{})
	assert.Equal(t, uint64(1), first.Generation)
	assert.Equal(t, JobPending, first.State)
	<-started

	second := svc.Submit("sales", smallDataset(), engine.Options{})
	assert.Equal(t, uint64(2), second.Generation)
	<-started

	require.Eventually(t, func() bool {
		job, ok := svc.Latest("sales")
		return ok && job.State == JobDone
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	svc.Close()

	job, ok := svc.Latest("sales")
	require.True(t, ok)
	assert.Equal(t, uint64(2), job.Generation)
	assert.Equal(t, JobDone, job.State)
	require.NotNil(t, job.Analysis)
	assert.Equal(t, core.AnalysisID("run-2"), job.Analysis.ID)
	assert.NotNil(t, job.FinishedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResults))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.JobsInFlight))
	repo.AssertNumberOfCalls(t, "Save", 1)
	repo.AssertCalled(t, "Save", mock.Anything, core.DatasetKey("sales"),
		mock.MatchedBy(func(a *stats.Analysis) bool { return a.ID == "run-2" }))
}

func TestSubmitCancelsPreviousRun(t *testing.T) {
	var calls int32
	cancelled := make(chan struct{})
	analyzer := AnalyzerFunc(func(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		return &stats.Analysis{ID: "fresh"}, nil
	})

	svc := NewAnalysisService(analyzer, nil, nil, nil, nil, ServiceConfig{MaxConcurrent: 2})
	defer svc.Close()

	svc.Submit("k", smallDataset(), engine.Options{})
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	svc.Submit("k", smallDataset(), engine.Options{})

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("first run was not cancelled")
	}

	require.Eventually(t, func() bool {
		job, _ := svc.Latest("k")
		return job.State == JobDone
	}, 2*time.Second, 5*time.Millisecond)
	job, _ := svc.Latest("k")
	assert.Equal(t, core.AnalysisID("fresh"), job.Analysis.ID)
}

func TestSubmitFailure(t *testing.T) {
	analyzer := AnalyzerFunc(func(ctx context.Context, ds *dataset.Dataset, opts engine.Options) (*stats.Analysis, error) {
		return nil, errors.InvalidInput("dataset has no columns")
	})
	svc := NewAnalysisService(analyzer, nil, nil, nil, nil, ServiceConfig{})
	defer svc.Close()

	svc.Submit("k", smallDataset(), engine.Options{})
	require.Eventually(t, func() bool {
		job, _ := svc.Latest("k")
		return job.State == JobFailed
	}, 2*time.Second, 5*time.Millisecond)

	job, _ := svc.Latest("k")
	assert.Equal(t, errors.CodeInvalidInput, job.ErrorCode)
	assert.Contains(t, job.Error, "no columns")
	assert.Nil(t, job.Analysis)

	_, ok := svc.Latest("unknown")
	assert.False(t, ok)
}

func TestShouldOffload(t *testing.T) {
	svc := NewAnalysisService(engine.New(nil), nil, nil, nil, nil, ServiceConfig{OffloadRowThreshold: 3})
	defer svc.Close()
	assert.True(t, svc.ShouldOffload(smallDataset()))

	svc2 := NewAnalysisService(engine.New(nil), nil, nil, nil, nil, ServiceConfig{})
	defer svc2.Close()
	assert.False(t, svc2.ShouldOffload(smallDataset()))
}

func TestGetAndHistoryWithoutRepository(t *testing.T) {
	svc := NewAnalysisService(engine.New(nil), nil, nil, nil, nil, ServiceConfig{})
	defer svc.Close()

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	history, err := svc.History(context.Background(), "k", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
