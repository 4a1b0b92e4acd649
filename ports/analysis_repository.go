package ports

import (
	"context"
	"time"

	"insightforge/domain/core"
	"insightforge/domain/stats"
)

// AnalysisSummary is the listing view of a stored analysis
type AnalysisSummary struct {
	ID           core.AnalysisID `json:"id" db:"id"`
	DatasetKey   core.DatasetKey `json:"dataset_key" db:"dataset_key"`
	Fingerprint  core.Hash       `json:"fingerprint" db:"fingerprint"`
	RowCount     int             `json:"row_count" db:"row_count"`
	ColumnCount  int             `json:"column_count" db:"column_count"`
	QualityScore float64         `json:"quality_score" db:"quality_score"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// AnalysisRepository stores completed analyses keyed by dataset
type AnalysisRepository interface {
	Save(ctx context.Context, key core.DatasetKey, analysis *stats.Analysis) error
	Get(ctx context.Context, id core.AnalysisID) (*stats.Analysis, error)
	LatestByKey(ctx context.Context, key core.DatasetKey) (*stats.Analysis, error)
	ListByKey(ctx context.Context, key core.DatasetKey, limit int) ([]AnalysisSummary, error)
}
