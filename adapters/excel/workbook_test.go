package excel

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qrnglab/adapters/rng"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/analysis"
	"qrnglab/internal/config"
	"qrnglab/internal/logging"
	"qrnglab/internal/report"
	"qrnglab/internal/testkit"
)

func sampleReport(t *testing.T) *report.Report {
	t.Helper()
	gen := testkit.DefaultSessionConfig()
	gen.SessionsPerCondition = 4
	gen.BlocksPerSession = 6
	gen.TrialsPerBlock = 30
	cfg := config.Default().Analysis
	cfg.BootstrapIterations = 100
	cfg.PermutationIterations = 100

	rep, err := analysis.NewPipeline(cfg, rng.NewStreams(), logging.Nop()).
		Run(context.Background(), testkit.NewSessionGenerator(gen).Generate(), aggregation.DefaultFilter(), nil)
	require.NoError(t, err)
	return rep
}

func TestWriteReportSheets(t *testing.T) {
	rep := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetSessions, SheetBlocks, SheetConfirmatory, SheetExploratory}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Field", "Value"}, summary[0])
	assert.Equal(t, []string{"report_id", rep.ID.String()}, summary[1])
	assert.Equal(t, []string{"fingerprint", rep.Fingerprint.String()}, summary[3])

	sessions, err := f.GetRows(SheetSessions)
	require.NoError(t, err)
	assert.Len(t, sessions, 1+len(rep.Results.Summary.Sessions))

	blocks, err := f.GetRows(SheetBlocks)
	require.NoError(t, err)
	assert.Len(t, blocks, 1+len(rep.Results.Summary.Blocks))

	confirmatory, err := f.GetRows(SheetConfirmatory)
	require.NoError(t, err)
	assert.Len(t, confirmatory, 1+len(rep.Results.Confirmatory.Comparisons))
	assert.Equal(t, rep.Results.Confirmatory.Comparisons[0].Label, confirmatory[1][0])

	exploratory, err := f.GetRows(SheetExploratory)
	require.NoError(t, err)
	assert.Len(t, exploratory, 1+len(rep.Results.Exploratory.Tests())+len(rep.Results.Exploratory.Skipped))
}

func TestSaveReport(t *testing.T) {
	rep := sampleReport(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, SaveReport(path, rep))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(SheetSummary, "B4")
	require.NoError(t, err)
	assert.Equal(t, rep.Fingerprint.String(), v)
}
