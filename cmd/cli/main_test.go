package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrnglab/internal/report"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestSimulateThenAnalyze(t *testing.T) {
	t.Setenv("QRNG_BOOTSTRAP_ITERATIONS", "100")
	t.Setenv("QRNG_PERMUTATION_ITERATIONS", "100")
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	file := filepath.Join(dir, "sessions.json")
	out := execute(t, newSimulateCmd(), "--out", file, "--sessions", "3", "--blocks", "5", "--trials", "20")
	assert.Contains(t, out, "Wrote 9 sessions")

	out = execute(t, newAnalyzeCmd(), "--file", file, "--format", "json", "--condition", "human,ai")
	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Verify())
	assert.Equal(t, []string{"human", "ai"}, rep.Results.Filter.Conditions)
	assert.Len(t, rep.Results.Summary.Sessions, 6)
}

func TestAnalyzeRequiresSource(t *testing.T) {
	cmd := newAnalyzeCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestMigratePrint(t *testing.T) {
	out := execute(t, newMigrateCmd(), "--print")
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS experiment_sessions")
	assert.Contains(t, out, "analysis_reports")
}
