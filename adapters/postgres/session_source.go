package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"qrnglab/adapters/snapshot"
	"qrnglab/domain/experiment"
	"qrnglab/internal/errors"
	"qrnglab/ports"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// sessionRow is one stored session document keyed by its row id
type sessionRow struct {
	ID       string `db:"id"`
	Document []byte `db:"document"`
}

// SessionSourceImpl reads session documents from a JSONB table. It implements
// ports.SessionSource.
type SessionSourceImpl struct {
	db      *sqlx.DB
	table   string
	timeout time.Duration
}

// NewSessionSource creates a source over table. The table name is interpolated
// into SQL, so it must be a plain identifier.
func NewSessionSource(db *sqlx.DB, table string, timeout time.Duration) (*SessionSourceImpl, error) {
	if !identifierPattern.MatchString(table) {
		return nil, errors.ConfigInvalid(fmt.Sprintf("invalid sessions table name %q", table))
	}
	return &SessionSourceImpl{db: db, table: table, timeout: timeout}, nil
}

// Name identifies the source by its table
func (s *SessionSourceImpl) Name() string {
	return "postgres:" + s.table
}

// LoadSessions reads every document in the table. Documents that fail to parse
// are counted in the diagnostics.
func (s *SessionSourceImpl) LoadSessions(ctx context.Context) ([]experiment.Session, ports.SourceDiagnostics, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	normalizer := snapshot.NewNormalizer(s.Name())
	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf(`
		SELECT id, document
		FROM %s
		ORDER BY id
	`, s.table))
	if err != nil {
		_, diag := normalizer.Result()
		return nil, diag, errors.SourceUnavailable(s.Name(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var row sessionRow
		if err := rows.StructScan(&row); err != nil {
			_, diag := normalizer.Result()
			return nil, diag, errors.SourceUnavailable(s.Name(), err)
		}
		normalizer.AddBytes(row.Document, row.ID)
	}
	sessions, diag := normalizer.Result()
	if err := rows.Err(); err != nil {
		return nil, diag, errors.SourceUnavailable(s.Name(), err)
	}
	return sessions, diag, nil
}

// ImportSessions upserts documents into the table, keyed by session id.
func (s *SessionSourceImpl) ImportSessions(ctx context.Context, sessions []experiment.Session) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin import")
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, imported_at = NOW()
	`, s.table)

	for _, session := range sessions {
		doc, err := snapshot.EncodeSession(session)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to encode session %s", session.ID)
		}
		if _, err := tx.ExecContext(ctx, query, session.ID.String(), doc); err != nil {
			return 0, errors.Wrapf(err, "failed to import session %s", session.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit import")
	}
	return len(sessions), nil
}
