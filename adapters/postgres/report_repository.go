package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/jmoiron/sqlx"

	"qrnglab/domain/core"
	"qrnglab/internal/errors"
	"qrnglab/internal/report"
)

type reportRow struct {
	report.Entry
	Results []byte `db:"results"`
}

// ReportRepositoryImpl stores assembled reports in analysis_reports
type ReportRepositoryImpl struct {
	db *sqlx.DB
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(db *sqlx.DB) *ReportRepositoryImpl {
	return &ReportRepositoryImpl{db: db}
}

// SaveReport stores a report. Saving the same report twice is a no-op.
func (r *ReportRepositoryImpl) SaveReport(ctx context.Context, rep *report.Report) error {
	results, err := json.Marshal(rep.Results)
	if err != nil {
		return errors.Wrap(err, "failed to encode report results")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_reports (id, fingerprint, generated_at, results)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, rep.ID.String(), rep.Fingerprint.String(), rep.GeneratedAt, results)
	return err
}

// GetReport loads a report by id
func (r *ReportRepositoryImpl) GetReport(ctx context.Context, id core.ReportID) (*report.Report, error) {
	var row reportRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, fingerprint, generated_at, results
		FROM analysis_reports
		WHERE id = $1
	`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("report " + id.String())
	}
	if err != nil {
		return nil, err
	}

	rep := &report.Report{
		ID:          row.ID,
		GeneratedAt: row.GeneratedAt.UTC(),
		Fingerprint: row.Fingerprint,
	}
	if err := json.Unmarshal(row.Results, &rep.Results); err != nil {
		return nil, errors.Wrapf(err, "failed to decode report %s", id)
	}
	return rep, nil
}

// ListReports returns the most recent reports first
func (r *ReportRepositoryImpl) ListReports(ctx context.Context, limit int) ([]report.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []report.Entry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, fingerprint, generated_at
		FROM analysis_reports
		ORDER BY generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
