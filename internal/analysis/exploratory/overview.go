package exploratory

import (
	"fmt"
	"sort"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/hypothesis"
)

// ConditionOverview is the trial-weighted pool of one condition.
type ConditionOverview struct {
	Condition   string                   `json:"condition"`
	Sessions    int                      `json:"sessions"`
	Trials      int                      `json:"trials"`
	SubjectHits int                      `json:"subject_hits"`
	ControlHits int                      `json:"control_hits"`
	HitRate     float64                  `json:"hit_rate"`
	GhostRate   float64                  `json:"ghost_rate"`
	VsControl   *stats.StatisticalResult `json:"vs_control,omitempty"`
}

// OverviewResult is the descriptive headline block of a report.
type OverviewResult struct {
	Pooled              aggregation.Pooled        `json:"pooled"`
	SubjectVsControl    hypothesis.ZTestResult    `json:"subject_vs_control"`
	SubjectVsControlRes stats.StatisticalResult   `json:"subject_vs_control_result"`
	BinomialTwoSided    hypothesis.BinomialResult `json:"binomial_two_sided"`
	BinomialGreater     hypothesis.BinomialResult `json:"binomial_greater"`
	MinHitsSignificant  int                       `json:"min_hits_significant"` // -1: unreachable
	Conditions          []ConditionOverview       `json:"conditions,omitempty"`
	ConditionContrasts  []stats.StatisticalResult `json:"condition_contrasts,omitempty"`
}

// Overview pools every selected trial and compares the subject hit rate with the
// control rate (two-proportion z) and with chance (exact binomial). Results are
// descriptive and never corrected.
func Overview(summary aggregation.Summary, opts Options) (*OverviewResult, error) {
	opts = opts.withDefaults()

	p := summary.Pooled
	if p.Trials == 0 {
		return nil, core.NewInsufficientDataError("overview", 0, 1)
	}

	z, err := hypothesis.TwoProportionZ(p.SubjectHits, p.Trials, p.ControlHits, p.Trials)
	if err != nil {
		return nil, err
	}
	two, err := hypothesis.BinomialTest(p.SubjectHits, p.Trials, 0.5, hypothesis.AlternativeTwoSided)
	if err != nil {
		return nil, err
	}
	greater, err := hypothesis.BinomialTest(p.SubjectHits, p.Trials, 0.5, hypothesis.AlternativeGreater)
	if err != nil {
		return nil, err
	}

	res := &OverviewResult{
		Pooled:              p,
		SubjectVsControl:    z,
		SubjectVsControlRes: zResult("pooled subject vs control", z, opts.Alpha),
		BinomialTwoSided:    two,
		BinomialGreater:     greater,
		MinHitsSignificant:  hypothesis.MinHitsForSignificance(p.Trials, 0.5, opts.Alpha),
	}

	res.Conditions = conditionPools(summary)
	for i := range res.Conditions {
		c := &res.Conditions[i]
		if cz, err := hypothesis.TwoProportionZ(c.SubjectHits, c.Trials, c.ControlHits, c.Trials); err == nil {
			r := zResult(c.Condition+" subject vs control", cz, opts.Alpha)
			c.VsControl = &r
		}
	}
	for i := 0; i < len(res.Conditions); i++ {
		for j := i + 1; j < len(res.Conditions); j++ {
			a, b := res.Conditions[i], res.Conditions[j]
			cz, err := hypothesis.TwoProportionZ(a.SubjectHits, a.Trials, b.SubjectHits, b.Trials)
			if err != nil {
				continue
			}
			res.ConditionContrasts = append(res.ConditionContrasts, zResult(fmt.Sprintf("%s vs %s", a.Condition, b.Condition), cz, opts.Alpha))
		}
	}
	return res, nil
}

// conditionPools groups session rows by condition, sorted by name.
func conditionPools(summary aggregation.Summary) []ConditionOverview {
	byName := map[string]*ConditionOverview{}
	var names []string
	for _, r := range summary.Sessions {
		if r.Condition == "" {
			continue
		}
		c, ok := byName[r.Condition]
		if !ok {
			c = &ConditionOverview{Condition: r.Condition}
			byName[r.Condition] = c
			names = append(names, r.Condition)
		}
		c.Sessions++
		c.Trials += r.Trials
		c.SubjectHits += r.SubjectHits
		c.ControlHits += r.ControlHits
	}
	sort.Strings(names)

	out := make([]ConditionOverview, 0, len(names))
	for _, name := range names {
		c := *byName[name]
		if c.Trials > 0 {
			c.HitRate = float64(c.SubjectHits) / float64(c.Trials)
			c.GhostRate = float64(c.ControlHits) / float64(c.Trials)
		}
		out = append(out, c)
	}
	return out
}

func zResult(label string, z hypothesis.ZTestResult, alpha float64) stats.StatisticalResult {
	return stats.NewResult(label, stats.TestTwoProportionZ, z.Z, z.P, alpha, z.N1+z.N2).
		WithEffect(z.P1 - z.P2).
		WithScope(stats.ScopeDescriptive).
		WithDegenerate(z.Degenerate)
}
