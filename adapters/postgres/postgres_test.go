package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrnglab/internal/errors"
	"qrnglab/internal/migration"
	"qrnglab/internal/report"
	"qrnglab/internal/testkit"
)

func TestNewSessionSourceValidatesTable(t *testing.T) {
	_, err := NewSessionSource(nil, "sessions; DROP TABLE users", time.Second)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	src, err := NewSessionSource(nil, "public.experiment_sessions", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "postgres:public.experiment_sessions", src.Name())
}

// testDB connects to QRNG_TEST_DATABASE_URL and skips when it is unset.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("QRNG_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("QRNG_TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestImportAndLoadSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	table := "qrng_test_sessions"

	runner, err := migration.NewRunner(table, nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(ctx, db))
	t.Cleanup(func() { db.MustExec("DROP TABLE IF EXISTS " + table) })

	cfg := testkit.DefaultSessionConfig()
	cfg.SessionsPerCondition = 2
	cfg.BlocksPerSession = 3
	cfg.TrialsPerBlock = 10
	want := testkit.NewSessionGenerator(cfg).Generate()

	src, err := NewSessionSource(db, table, 5*time.Second)
	require.NoError(t, err)
	n, err := src.ImportSessions(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)

	got, diag, err := src.LoadSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, got, len(want))
	assert.Zero(t, diag.MalformedBlocks)
	assert.Zero(t, diag.MalformedSessions)
}

func TestSaveAndGetReport(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	runner, err := migration.NewRunner("qrng_test_sessions", nil)
	require.NoError(t, err)
	require.NoError(t, runner.Run(ctx, db))

	rep, err := report.New(report.Results{Config: report.Settings{Alpha: 0.05, Seed: 7}}, time.Now())
	require.NoError(t, err)

	repo := NewReportRepository(db)
	require.NoError(t, repo.SaveReport(ctx, rep))
	require.NoError(t, repo.SaveReport(ctx, rep))
	t.Cleanup(func() { db.MustExec("DELETE FROM analysis_reports WHERE id = $1", rep.ID.String()) })

	loaded, err := repo.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Fingerprint, loaded.Fingerprint)
	assert.True(t, loaded.Verify())

	_, err = repo.GetReport(ctx, "missing")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
