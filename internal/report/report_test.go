package report

import (
	"strings"
	"testing"
	"time"

	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/analysis/exploratory"
	"qrnglab/internal/analysis/primary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() Results {
	confirmatory := primary.Result{
		Scope: stats.ScopeConfirmatory,
		Alpha: 0.05,
		Groups: []primary.GroupStats{
			{Condition: "human", N: 10, Mean: 0.51, SD: 0.02, SE: 0.006},
			{Condition: "ai", N: 10, Mean: 0.50, SD: 0.02, SE: 0.006},
		},
	}
	return Results{
		Config:       Settings{Alpha: 0.05, Seed: 42, Conditions: []string{"human", "ai"}},
		Filter:       aggregation.DefaultFilter(),
		Summary:      aggregation.Summary{Input: 3, Exclusions: aggregation.Exclusions{MissingCondition: 1}},
		Confirmatory: &confirmatory,
		Exploratory: &exploratory.Result{
			Scope:   stats.ScopeExploratory,
			Caveat:  exploratory.Caveat,
			Skipped: []stats.SkipNote{{Test: exploratory.NameHoldDuration, Reason: "no hold times", Code: stats.WarningInsufficientData}},
		},
	}
}

func TestNewFingerprintIgnoresIdentity(t *testing.T) {
	a, err := New(sampleResults(), time.Now())
	require.NoError(t, err)
	b, err := New(sampleResults(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.Fingerprint.String(), 64)
	assert.Equal(t, SchemaVersion, a.Results.SchemaVersion)
	assert.Equal(t, exploratory.Caveat, a.Results.ExploratoryCaveat)
}

func TestVerifyDetectsTampering(t *testing.T) {
	r, err := New(sampleResults(), time.Now())
	require.NoError(t, err)
	require.True(t, r.Verify())

	r.Results.Config.Alpha = 0.1
	assert.False(t, r.Verify())
}

func TestRenderMarkdownSeparatesScopes(t *testing.T) {
	r, err := New(sampleResults(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	md := RenderMarkdown(r)
	confirmatory := strings.Index(md, "## Confirmatory analysis")
	exploratoryAt := strings.Index(md, "## Exploratory analyses")
	require.NotEqual(t, -1, confirmatory)
	require.NotEqual(t, -1, exploratoryAt)
	assert.Less(t, confirmatory, exploratoryAt)

	assert.Contains(t, md, "| missing condition | 1 |")
	assert.Contains(t, md, "| human | 10 | 0.5100 |")
	assert.Contains(t, md, "> "+exploratory.Caveat)
	assert.Contains(t, md, exploratory.NameHoldDuration+" (no hold times)")
}

func TestRenderHTML(t *testing.T) {
	r, err := New(sampleResults(), time.Now())
	require.NoError(t, err)

	html := string(RenderHTML(r))
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<h2")
}

func TestFormatP(t *testing.T) {
	assert.Equal(t, "<0.0001", formatP(1e-9))
	assert.Equal(t, "0.0500", formatP(0.05))
}
