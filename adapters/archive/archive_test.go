package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrnglab/internal/errors"
	"qrnglab/internal/report"
)

func newReport(t *testing.T, seed int64, at time.Time) *report.Report {
	t.Helper()
	rep, err := report.New(report.Results{Config: report.Settings{Alpha: 0.05, Seed: seed}}, at)
	require.NoError(t, err)
	return rep
}

func TestSaveAndGetReport(t *testing.T) {
	a, err := OpenInMemory()
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	rep := newReport(t, 1, time.Now())
	require.NoError(t, a.SaveReport(ctx, rep))

	got, err := a.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, got.ID)
	assert.Equal(t, rep.Fingerprint, got.Fingerprint)
	assert.True(t, got.Verify())

	_, err = a.GetReport(ctx, "missing")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestListReportsNewestFirst(t *testing.T) {
	a, err := OpenInMemory()
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	old := newReport(t, 1, base)
	mid := newReport(t, 2, base.Add(time.Hour))
	recent := newReport(t, 3, base.Add(2*time.Hour))
	for _, r := range []*report.Report{mid, recent, old} {
		require.NoError(t, a.SaveReport(ctx, r))
	}

	entries, err := a.ListReports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, recent.ID, entries[0].ID)
	assert.Equal(t, old.ID, entries[2].ID)

	entries, err = a.ListReports(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPersistentArchiveReopens(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rep := newReport(t, 9, time.Now())

	a, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, a.SaveReport(ctx, rep))
	require.NoError(t, a.Close())

	b, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer b.Close()
	got, err := b.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Fingerprint, got.Fingerprint)
}
