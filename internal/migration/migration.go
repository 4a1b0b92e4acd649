package migration

import (
	"context"
	"fmt"

	"insightforge/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. The statements
// are idempotent and work on both postgres and sqlite3.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createAnalysisSnapshotsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_snapshots table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

// payloadType is JSONB on postgres and plain text elsewhere
func payloadType(db *sqlx.DB) string {
	if db.DriverName() == "postgres" {
		return "JSONB"
	}
	return "TEXT"
}

func (r *MigrationRunner) createAnalysisSnapshotsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS analysis_snapshots (
			id VARCHAR(36) PRIMARY KEY,
			dataset_key VARCHAR(128) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			column_count INTEGER NOT NULL DEFAULT 0,
			quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			payload %s NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`, payloadType(db)))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_snapshots_key_created ON analysis_snapshots(dataset_key, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_snapshots_fingerprint ON analysis_snapshots(fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
