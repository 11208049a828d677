package migration

import (
	"context"

	"expcalc/internal"
	"expcalc/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	logger  *internal.Logger
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		logger:  internal.DefaultLogger.With("migration"),
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt.SQL); err != nil {
			if stmt.Optional {
				// Log but don't fail on index creation errors
				r.logger.Warn("failed to %s: %v", stmt.Name, err)
				continue
			}
			return errors.Wrapf(err, "failed to %s", stmt.Name)
		}
	}
	return nil
}

// Statement is one schema step
type Statement struct {
	Name     string
	SQL      string
	Optional bool
}

// Statements returns the schema steps in execution order
func Statements() []Statement {
	return []Statement{
		{
			Name: "create calculations table",
			SQL: `
		CREATE TABLE IF NOT EXISTS calculations (
			id UUID PRIMARY KEY,
			kind VARCHAR(64) NOT NULL,
			input_hash CHAR(64) NOT NULL,
			request JSONB NOT NULL,
			result JSONB NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`,
		},
		{
			Name:     "create calculations kind index",
			SQL:      "CREATE INDEX IF NOT EXISTS idx_calculations_kind_created ON calculations(kind, created_at DESC)",
			Optional: true,
		},
		{
			Name:     "create calculations input hash index",
			SQL:      "CREATE INDEX IF NOT EXISTS idx_calculations_input_hash ON calculations(input_hash)",
			Optional: true,
		},
	}
}
