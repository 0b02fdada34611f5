// Package primary runs the pre-declared confirmatory comparison: session-level
// hit rates of each condition group, pairwise Welch t-tests, Holm correction.
package primary

import (
	"fmt"
	"math"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/hypothesis"

	mfstats "github.com/montanaflynn/stats"
)

// mdeMultiplier is z(1-alpha/2) + z(power) for alpha 0.05 and 80% power.
const mdeMultiplier = 2.8

// Options configures the confirmatory run.
type Options struct {
	Conditions          []string `json:"conditions"` // Declared order fixes the comparison set
	Alpha               float64  `json:"alpha"`
	MinSessionsPerGroup int      `json:"min_sessions_per_group"`
}

// DefaultOptions returns the three-group human/ai/baseline design at alpha 0.05.
func DefaultOptions() Options {
	return Options{
		Conditions:          []string{"human", "ai", "baseline"},
		Alpha:               0.05,
		MinSessionsPerGroup: 2,
	}
}

// GroupStats describes one condition's session hit rates.
type GroupStats struct {
	Condition string  `json:"condition"`
	N         int     `json:"n"`
	Mean      float64 `json:"mean"`
	SD        float64 `json:"sd"`
	SE        float64 `json:"se"`
	Median    float64 `json:"median"`
}

// Comparison is one pre-declared pairwise test.
type Comparison struct {
	Label     string                  `json:"label"`
	GroupA    string                  `json:"group_a"`
	GroupB    string                  `json:"group_b"`
	Welch     hypothesis.TTestResult  `json:"welch"`
	CohenD    float64                 `json:"cohen_d"`
	HarmonicN float64                 `json:"harmonic_n"`
	MDE       float64                 `json:"mde"`
	Result    stats.StatisticalResult `json:"result"`
}

// Result is the confirmatory output. Only this block is confirmatory.
type Result struct {
	Scope       stats.Scope         `json:"scope"`
	Alpha       float64             `json:"alpha"`
	Groups      []GroupStats        `json:"groups"`
	Comparisons []Comparison        `json:"comparisons"`
	Correction  stats.CorrectionSet `json:"correction"`
	Skipped     []stats.SkipNote    `json:"skipped,omitempty"`
}

// Pair is an ordered pair of condition labels.
type Pair struct {
	A, B string
}

// Pairs returns every pair of conditions in declared order: (0,1), (0,2), ..., (1,2), ...
func Pairs(conditions []string) []Pair {
	var out []Pair
	for i := 0; i < len(conditions); i++ {
		for j := i + 1; j < len(conditions); j++ {
			out = append(out, Pair{A: conditions[i], B: conditions[j]})
		}
	}
	return out
}

// HarmonicN is 2*n1*n2/(n1+n2).
func HarmonicN(n1, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 {
		return 0
	}
	return 2 * float64(n1) * float64(n2) / float64(n1+n2)
}

// MinimumDetectableEffect approximates the detectable standardized difference at
// 80% power and alpha 0.05 as 2.8/sqrt(n_h). An empty group gives 0.
func MinimumDetectableEffect(n1, n2 int) float64 {
	nh := HarmonicN(n1, n2)
	if nh == 0 {
		return 0
	}
	return mdeMultiplier / math.Sqrt(nh)
}

// Describe summarizes one group of session hit rates.
func Describe(condition string, values []float64) GroupStats {
	g := GroupStats{Condition: condition, N: len(values)}
	if len(values) == 0 {
		return g
	}
	g.Mean, _ = mfstats.Mean(values)
	g.Median, _ = mfstats.Median(values)
	if len(values) > 1 {
		g.SD, _ = mfstats.StandardDeviationSample(values)
		g.SE = g.SD / math.Sqrt(float64(len(values)))
	}
	return g
}

// Run executes the fixed comparison set over the summary's session rows.
func Run(summary aggregation.Summary, opts Options) Result {
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = DefaultOptions().Alpha
	}
	if opts.MinSessionsPerGroup < 2 {
		opts.MinSessionsPerGroup = 2
	}
	if len(opts.Conditions) == 0 {
		opts.Conditions = DefaultOptions().Conditions
	}

	res := Result{Scope: stats.ScopeConfirmatory, Alpha: opts.Alpha}
	groups := make(map[string][]float64, len(opts.Conditions))
	for _, c := range opts.Conditions {
		values := summary.HitRatesFor(c)
		groups[c] = values
		res.Groups = append(res.Groups, Describe(c, values))
	}

	pairs := Pairs(opts.Conditions)
	var family []stats.StatisticalResult
	for _, pair := range pairs {
		label := fmt.Sprintf("%s vs %s", pair.A, pair.B)
		a, b := groups[pair.A], groups[pair.B]
		if len(a) < opts.MinSessionsPerGroup || len(b) < opts.MinSessionsPerGroup {
			res.Skipped = append(res.Skipped, stats.SkipNote{
				Test:   label,
				Reason: fmt.Sprintf("group sizes %d and %d, need %d each", len(a), len(b), opts.MinSessionsPerGroup),
				Code:   stats.WarningInsufficientData,
			})
			continue
		}

		welch, err := hypothesis.WelchT(a, b)
		if err != nil {
			if core.IsAbsorbable(err) {
				res.Skipped = append(res.Skipped, stats.SkipNote{Test: label, Reason: err.Error(), Code: stats.WarningInsufficientData})
				continue
			}
			res.Skipped = append(res.Skipped, stats.SkipNote{Test: label, Reason: err.Error(), Code: stats.WarningDegenerate})
			continue
		}

		result := stats.NewResult(label, stats.TestWelchT, welch.T, welch.P, opts.Alpha, len(a)+len(b)).
			WithDF(welch.DF).
			WithEffect(welch.CohenD).
			WithScope(stats.ScopeConfirmatory).
			WithDegenerate(welch.Degenerate)

		family = append(family, result)
		res.Comparisons = append(res.Comparisons, Comparison{
			Label:     label,
			GroupA:    pair.A,
			GroupB:    pair.B,
			Welch:     welch,
			CohenD:    welch.CohenD,
			HarmonicN: HarmonicN(len(a), len(b)),
			MDE:       MinimumDetectableEffect(len(a), len(b)),
			Result:    result,
		})
	}

	res.Correction = hypothesis.HolmFamily(family, opts.Alpha, len(pairs))
	res.Correction.Scope = stats.ScopeConfirmatory
	for i := range res.Correction.Members {
		m := &res.Correction.Members[i]
		m.Result.Significant = m.Significant
		res.Comparisons[i].Result.Significant = m.Significant
	}
	return res
}

// Rejections counts comparisons significant after correction.
func (r Result) Rejections() int {
	n := 0
	for _, m := range r.Correction.Members {
		if m.Significant {
			n++
		}
	}
	return n
}
