package migration

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"qrnglab/internal/errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the session document table and the report store
type MigrationRunner struct {
	version       string
	sessionsTable string
	logger        *zap.Logger
}

// NewRunner creates a new migration runner for the given sessions table
func NewRunner(sessionsTable string, logger *zap.Logger) (*MigrationRunner, error) {
	if !tablePattern.MatchString(sessionsTable) {
		return nil, errors.ConfigInvalid(fmt.Sprintf("invalid sessions table name %q", sessionsTable))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrationRunner{
		version:       "1.0.0",
		sessionsTable: sessionsTable,
		logger:        logger.Named("migration"),
	}, nil
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSessionsTable(ctx, db); err != nil {
		return errors.Wrapf(err, "failed to create %s table", r.sessionsTable)
	}

	if err := r.createReportsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_reports table")
	}

	r.createIndexes(ctx, db)
	return nil
}

// Statements returns the DDL in execution order
func (r *MigrationRunner) Statements() []string {
	return append([]string{r.sessionsDDL(), reportsDDL}, r.indexes()...)
}

func (r *MigrationRunner) sessionsDDL() string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document JSONB NOT NULL,
			imported_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, r.sessionsTable)
}

const reportsDDL = `
		CREATE TABLE IF NOT EXISTS analysis_reports (
			id TEXT PRIMARY KEY,
			fingerprint CHAR(64) NOT NULL,
			generated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			results JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`

func (r *MigrationRunner) createSessionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, r.sessionsDDL())
	return err
}

func (r *MigrationRunner) createReportsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, reportsDDL)
	return err
}

func (r *MigrationRunner) indexes() []string {
	name := strings.ReplaceAll(r.sessionsTable, ".", "_")
	return []string{
		// Session documents are filtered on condition and creation time
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_condition ON %s((document->>'condition'))", name, r.sessionsTable),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_participant ON %s((document->>'participantId'))", name, r.sessionsTable),

		// Report indexes
		"CREATE INDEX IF NOT EXISTS idx_reports_fingerprint ON analysis_reports(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_reports_generated_at ON analysis_reports(generated_at DESC)",
	}
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) {
	for _, idxSQL := range r.indexes() {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Indexes are an optimization; a failure leaves the schema usable
			r.logger.Warn("failed to create index", zap.String("sql", idxSQL), zap.Error(err))
		}
	}
}
