package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"insightforge/domain/core"
	"insightforge/domain/stats"
	"insightforge/internal/errors"
	"insightforge/ports"

	"github.com/jmoiron/sqlx"
)

// DefaultListLimit bounds ListByKey when the caller passes no limit
const DefaultListLimit = 50

// analysisRepository implements ports.AnalysisRepository. Queries are written
// with ? placeholders and rebound for the driver in use.
type analysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) ports.AnalysisRepository {
	return &analysisRepository{db: db}
}

// Save stores the analysis as a snapshot of the dataset key
func (r *analysisRepository) Save(ctx context.Context, key core.DatasetKey, analysis *stats.Analysis) error {
	if analysis == nil {
		return errors.InvalidInput("analysis is nil")
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return errors.Wrap(err, "failed to marshal analysis")
	}

	score := 0.0
	if analysis.Quality != nil {
		score = analysis.Quality.Score
	}
	createdAt := analysis.ComputedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := r.db.Rebind(`INSERT INTO analysis_snapshots (
		id, dataset_key, fingerprint, row_count, column_count, quality_score, payload, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		analysis.ID.String(), key.String(), analysis.Fingerprint.String(),
		analysis.RowCount, analysis.ColumnCount, score, string(payload), createdAt.UTC(),
	)
	if err != nil {
		return errors.DatabaseError("failed to save analysis", err)
	}
	return nil
}

// Get loads one analysis by ID
func (r *analysisRepository) Get(ctx context.Context, id core.AnalysisID) (*stats.Analysis, error) {
	query := r.db.Rebind(`SELECT payload FROM analysis_snapshots WHERE id = ?`)
	return r.loadOne(ctx, "analysis "+id.String(), query, id.String())
}

// LatestByKey loads the most recent analysis stored for a dataset key
func (r *analysisRepository) LatestByKey(ctx context.Context, key core.DatasetKey) (*stats.Analysis, error) {
	query := r.db.Rebind(`SELECT payload FROM analysis_snapshots
		WHERE dataset_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`)
	return r.loadOne(ctx, "analysis for dataset "+key.String(), query, key.String())
}

// ListByKey returns summaries of the stored analyses of a dataset key, newest first
func (r *analysisRepository) ListByKey(ctx context.Context, key core.DatasetKey, limit int) ([]ports.AnalysisSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := r.db.Rebind(`SELECT id, dataset_key, fingerprint, row_count, column_count, quality_score, created_at
		FROM analysis_snapshots
		WHERE dataset_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	summaries := []ports.AnalysisSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, key.String(), limit); err != nil {
		return nil, errors.DatabaseError("failed to list analyses", err)
	}
	return summaries, nil
}

func (r *analysisRepository) loadOne(ctx context.Context, what, query string, arg interface{}) (*stats.Analysis, error) {
	var payload []byte
	err := r.db.QueryRowxContext(ctx, query, arg).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(what)
		}
		return nil, errors.DatabaseError("failed to load analysis", err)
	}

	var analysis stats.Analysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal analysis payload")
	}
	return &analysis, nil
}
