package primary

import (
	"fmt"
	"math"
	"testing"

	"qrnglab/domain/core"
	"qrnglab/domain/experiment"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionsWithRates(condition string, hits ...int) []experiment.Session {
	out := make([]experiment.Session, len(hits))
	for i, h := range hits {
		out[i] = experiment.Session{
			ID:        core.SessionID(fmt.Sprintf("%s-%d", condition, i)),
			Condition: condition,
			Blocks:    []experiment.Block{{Index: 0, N: 100, SubjectHits: h, ControlHits: 50}},
		}
	}
	return out
}

func TestPairsInDeclaredOrder(t *testing.T) {
	pairs := Pairs([]string{"human", "ai", "baseline"})
	assert.Equal(t, []Pair{{"human", "ai"}, {"human", "baseline"}, {"ai", "baseline"}}, pairs)
	assert.Empty(t, Pairs([]string{"solo"}))
}

func TestHarmonicNAndMDE(t *testing.T) {
	assert.Equal(t, 20.0, HarmonicN(20, 20))
	assert.InDelta(t, 2*10*30/40.0, HarmonicN(10, 30), 1e-12)
	assert.InDelta(t, 2.8/math.Sqrt(20), MinimumDetectableEffect(20, 20), 1e-12)
	assert.Equal(t, 0.0, MinimumDetectableEffect(0, 5))
}

func TestRunThreeGroups(t *testing.T) {
	var sessions []experiment.Session
	sessions = append(sessions, sessionsWithRates("human", 60, 62, 58, 61, 59)...)
	sessions = append(sessions, sessionsWithRates("ai", 50, 49, 51, 50, 52)...)
	sessions = append(sessions, sessionsWithRates("baseline", 50, 51, 49, 48, 50)...)
	summary := aggregation.Aggregate(sessions, aggregation.DefaultFilter())

	res := Run(summary, DefaultOptions())
	assert.Equal(t, stats.ScopeConfirmatory, res.Scope)
	require.Len(t, res.Groups, 3)
	assert.Equal(t, 5, res.Groups[0].N)
	assert.InDelta(t, 0.60, res.Groups[0].Mean, 1e-12)
	assert.InDelta(t, 0.60, res.Groups[0].Median, 1e-12)

	require.Len(t, res.Comparisons, 3)
	assert.Equal(t, "human vs ai", res.Comparisons[0].Label)
	assert.Equal(t, "ai vs baseline", res.Comparisons[2].Label)
	assert.Greater(t, res.Comparisons[0].CohenD, 0.0)
	assert.InDelta(t, 2.8/math.Sqrt(5), res.Comparisons[0].MDE, 1e-12)

	require.Len(t, res.Correction.Members, 3)
	assert.Equal(t, stats.CorrectionHolm, res.Correction.Method)
	assert.True(t, res.Correction.Members[0].Significant)
	assert.True(t, res.Correction.Members[1].Significant)
	assert.False(t, res.Correction.Members[2].Significant)
	assert.Equal(t, 2, res.Rejections())

	for i, c := range res.Comparisons {
		assert.Equal(t, res.Correction.Members[i].Significant, c.Result.Significant, c.Label)
		assert.Equal(t, res.Correction.Members[i].Significant, res.Correction.Members[i].Result.Significant)
		assert.Equal(t, stats.ScopeConfirmatory, c.Result.Scope)
		assert.GreaterOrEqual(t, c.Result.PValue, 0.0)
		assert.LessOrEqual(t, c.Result.PValue, 1.0)
	}
}

func TestRunSkipsSmallGroups(t *testing.T) {
	var sessions []experiment.Session
	sessions = append(sessions, sessionsWithRates("human", 55, 45, 50)...)
	sessions = append(sessions, sessionsWithRates("ai", 50)...)
	sessions = append(sessions, sessionsWithRates("baseline", 51, 49, 50)...)
	summary := aggregation.Aggregate(sessions, aggregation.DefaultFilter())

	res := Run(summary, DefaultOptions())
	require.Len(t, res.Comparisons, 1)
	assert.Equal(t, "human vs baseline", res.Comparisons[0].Label)
	assert.Len(t, res.Skipped, 2)
	assert.Equal(t, stats.WarningInsufficientData, res.Skipped[0].Code)
	assert.Equal(t, 3, res.Correction.Family)
	require.Len(t, res.Correction.Members, 1)
	assert.InDelta(t, DefaultOptions().Alpha/3, res.Correction.Members[0].AdjustedAlpha, 1e-12)
}

func TestSkippedPairsStillCountTowardsHolmFamily(t *testing.T) {
	var sessions []experiment.Session
	sessions = append(sessions, sessionsWithRates("human", 52, 55, 51, 54, 52)...)
	sessions = append(sessions, sessionsWithRates("ai", 50)...)
	sessions = append(sessions, sessionsWithRates("baseline", 50, 51, 49, 52, 50)...)
	summary := aggregation.Aggregate(sessions, aggregation.DefaultFilter())

	res := Run(summary, DefaultOptions())
	require.Len(t, res.Comparisons, 1)
	c := res.Comparisons[0]
	assert.Less(t, c.Result.PValue, res.Alpha)
	assert.Greater(t, c.Result.PValue, res.Alpha/3)

	m := res.Correction.Members[0]
	assert.False(t, m.Significant)
	assert.InDelta(t, math.Min(1, 3*c.Result.PValue), m.AdjustedP, 1e-12)
	assert.False(t, c.Result.Significant)
	assert.Equal(t, 0, res.Rejections())
}

func TestRunDegenerateGroupsDoNotFail(t *testing.T) {
	var sessions []experiment.Session
	sessions = append(sessions, sessionsWithRates("human", 50, 50)...)
	sessions = append(sessions, sessionsWithRates("ai", 50, 50)...)
	summary := aggregation.Aggregate(sessions, aggregation.DefaultFilter())

	res := Run(summary, Options{Conditions: []string{"human", "ai"}, Alpha: 0.05})
	require.Len(t, res.Comparisons, 1)
	assert.True(t, res.Comparisons[0].Result.Degenerate)
	assert.Equal(t, 1.0, res.Comparisons[0].Result.PValue)
	assert.Equal(t, 0.0, res.Comparisons[0].Result.Statistic)
}

// Fair-coin data must reject at roughly the nominal rate.
func TestCalibrationUnderNull(t *testing.T) {
	if testing.Short() {
		t.Skip("calibration run")
	}
	const replications = 1000

	config := testkit.DefaultSessionConfig()
	config.BlocksPerSession = 1
	config.TrialsPerBlock = 100
	config.WithBits = false

	rejections, comparisons, familyErrors := 0, 0, 0
	for rep := 0; rep < replications; rep++ {
		config.Seed = int64(1000 + rep)
		sessions := testkit.NewSessionGenerator(config).Generate()
		res := Run(aggregation.Aggregate(sessions, aggregation.DefaultFilter()), DefaultOptions())

		for _, c := range res.Comparisons {
			comparisons++
			if c.Result.PValue < res.Alpha {
				rejections++
			}
		}
		if res.Rejections() > 0 {
			familyErrors++
		}
	}

	require.Equal(t, 3*replications, comparisons)
	rate := float64(rejections) / float64(comparisons)
	assert.InDelta(t, 0.05, rate, 0.02, "raw pairwise rejection rate %.4f", rate)
	assert.LessOrEqual(t, float64(familyErrors)/replications, 0.07)
}
