package exploratory

import (
	"fmt"
	"math/rand"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/hypothesis"
	"qrnglab/internal/sequence"
)

// windowMeans splits values into k contiguous windows with boundaries i*n/k and
// returns each window's mean. Requires len(values) >= k.
func windowMeans(values []float64, k int) []float64 {
	n := len(values)
	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = sequence.Mean(values[i*n/k : (i+1)*n/k])
	}
	return out
}

// EntropyTwoWindowResult is the k=2 decomposition: early vs late block entropy.
type EntropyTwoWindowResult struct {
	Sessions    int                           `json:"sessions"`
	WindowMeans [2]float64                    `json:"window_means"`
	Test        hypothesis.TTestResult        `json:"test"`
	Result      stats.StatisticalResult       `json:"result"`
	Bootstrap   *hypothesis.Interval          `json:"bootstrap,omitempty"`   // CI of mean(late - early)
	Permutation *hypothesis.PermutationResult `json:"permutation,omitempty"` // sign-flip on the same differences
	Skipped     []stats.SkipNote              `json:"skipped,omitempty"`
}

// EntropyTwoWindows compares each session's first- and second-window mean block
// entropy with a paired t-test, a bootstrap CI and a sign-flip permutation test.
func EntropyTwoWindows(summary aggregation.Summary, opts Options, rng *rand.Rand) (*EntropyTwoWindowResult, error) {
	opts = opts.withDefaults()

	var early, late, diffs []float64
	for _, s := range summary.Series {
		if len(s.SubjectEntropy) < 2 {
			continue
		}
		w := windowMeans(s.SubjectEntropy, 2)
		early = append(early, w[0])
		late = append(late, w[1])
		diffs = append(diffs, w[1]-w[0])
	}
	if len(diffs) < 2 {
		return nil, core.NewInsufficientDataError(NameEntropyTwoWindow, len(diffs), 2)
	}

	t, err := hypothesis.PairedT(late, early)
	if err != nil {
		return nil, err
	}
	res := &EntropyTwoWindowResult{
		Sessions:    len(diffs),
		WindowMeans: [2]float64{sequence.Mean(early), sequence.Mean(late)},
		Test:        t,
		Result:      tResult("entropy window 2 vs window 1", stats.TestPairedT, t, opts.Alpha, len(diffs)),
	}

	if ci, err := hypothesis.BootstrapCI(diffs, sequence.Mean, opts.Bootstrap, rng); err == nil {
		res.Bootstrap = &ci
	} else {
		res.Skipped = append(res.Skipped, skipNote("entropy window bootstrap", err))
	}
	if perm, err := hypothesis.SignFlipPermutation(diffs, opts.Permutation, rng); err == nil {
		res.Permutation = &perm
	} else {
		res.Skipped = append(res.Skipped, skipNote("entropy window permutation", err))
	}
	return res, nil
}

// EntropyThreeWindowResult is the k=3 decomposition.
type EntropyThreeWindowResult struct {
	Sessions     int                     `json:"sessions"`
	WindowMeans  [3]float64              `json:"window_means"`
	MeanSlope    float64                 `json:"mean_slope"`
	Trend        hypothesis.TTestResult  `json:"trend"`
	TrendResult  stats.StatisticalResult `json:"trend_result"`
	Contrasts    []Contrast              `json:"contrasts"`
	Holm         stats.CorrectionSet     `json:"holm"`
	FDR          stats.CorrectionSet     `json:"fdr"`
	Differential *DifferentialSlope      `json:"differential,omitempty"`
	Skipped      []stats.SkipNote        `json:"skipped,omitempty"`
}

// Contrast is one pairwise window comparison.
type Contrast struct {
	From   int                     `json:"from"` // 1-based window index
	To     int                     `json:"to"`
	Test   hypothesis.TTestResult  `json:"test"`
	Result stats.StatisticalResult `json:"result"`
}

// DifferentialSlope contrasts the subject trend with the control trend.
type DifferentialSlope struct {
	Sessions     int                     `json:"sessions"`
	SubjectSlope float64                 `json:"subject_slope"`
	ControlSlope float64                 `json:"control_slope"`
	Test         hypothesis.TTestResult  `json:"test"`
	Result       stats.StatisticalResult `json:"result"`
}

// EntropyThreeWindows tests a linear trend across three windows of block entropy
// (per-session slope, one-sample t vs 0), the three pairwise window contrasts
// under both Holm and Benjamini-Hochberg, and the subject-minus-control slope.
func EntropyThreeWindows(summary aggregation.Summary, opts Options) (*EntropyThreeWindowResult, error) {
	opts = opts.withDefaults()

	var slopes []float64
	windows := [3][]float64{}
	for _, s := range summary.Series {
		if len(s.SubjectEntropy) < 3 {
			continue
		}
		w := windowMeans(s.SubjectEntropy, 3)
		slopes = append(slopes, sequence.LinearTrend(w).Slope)
		for i := range windows {
			windows[i] = append(windows[i], w[i])
		}
	}
	if len(slopes) < 2 {
		return nil, core.NewInsufficientDataError(NameEntropyThreeWindow, len(slopes), 2)
	}

	trend, err := hypothesis.OneSampleT(slopes, 0)
	if err != nil {
		return nil, err
	}
	res := &EntropyThreeWindowResult{
		Sessions:    len(slopes),
		MeanSlope:   sequence.Mean(slopes),
		Trend:       trend,
		TrendResult: tResult("entropy slope across 3 windows", stats.TestOneSampleT, trend, opts.Alpha, len(slopes)),
	}
	for i := range windows {
		res.WindowMeans[i] = sequence.Mean(windows[i])
	}

	var family []stats.StatisticalResult
	for _, pair := range [][2]int{{0, 1}, {0, 2}, {1, 2}} {
		t, err := hypothesis.PairedT(windows[pair[1]], windows[pair[0]])
		if err != nil {
			res.Skipped = append(res.Skipped, skipNote(fmt.Sprintf("entropy window %d vs %d", pair[0]+1, pair[1]+1), err))
			continue
		}
		r := tResult(fmt.Sprintf("entropy window %d vs %d", pair[1]+1, pair[0]+1), stats.TestPairedT, t, opts.Alpha, len(slopes))
		res.Contrasts = append(res.Contrasts, Contrast{From: pair[0] + 1, To: pair[1] + 1, Test: t, Result: r})
		family = append(family, r)
	}
	res.Holm = hypothesis.Holm(family, opts.Alpha)
	res.FDR = hypothesis.BenjaminiHochberg(family, opts.Alpha)

	if diff, err := differentialSlope(summary, opts); err == nil {
		res.Differential = diff
	} else {
		res.Skipped = append(res.Skipped, skipNote("entropy differential slope", err))
	}
	return res, nil
}

// differentialSlope uses only blocks carrying both subject and control entropy,
// so both slopes are measured over the same windows.
func differentialSlope(summary aggregation.Summary, opts Options) (*DifferentialSlope, error) {
	var subject, control, diffs []float64
	for _, s := range summary.Series {
		if len(s.PairedEntropy) < 3 {
			continue
		}
		subj := make([]float64, len(s.PairedEntropy))
		ctl := make([]float64, len(s.PairedEntropy))
		for i, p := range s.PairedEntropy {
			subj[i], ctl[i] = p[0], p[1]
		}
		a := sequence.LinearTrend(windowMeans(subj, 3)).Slope
		b := sequence.LinearTrend(windowMeans(ctl, 3)).Slope
		subject = append(subject, a)
		control = append(control, b)
		diffs = append(diffs, a-b)
	}
	t, err := hypothesis.OneSampleT(diffs, 0)
	if err != nil {
		return nil, err
	}
	return &DifferentialSlope{
		Sessions:     len(diffs),
		SubjectSlope: sequence.Mean(subject),
		ControlSlope: sequence.Mean(control),
		Test:         t,
		Result:       tResult("subject minus control entropy slope", stats.TestOneSampleT, t, opts.Alpha, len(diffs)),
	}, nil
}
