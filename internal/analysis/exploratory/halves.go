package exploratory

import (
	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/hypothesis"
	"qrnglab/internal/sequence"
)

// HalfComparisonResult compares early and late blocks within sessions.
type HalfComparisonResult struct {
	Sessions      int                      `json:"sessions"`
	FirstMean     float64                  `json:"first_half_mean"`
	SecondMean    float64                  `json:"second_half_mean"`
	Test          hypothesis.TTestResult   `json:"test"`
	Result        stats.StatisticalResult  `json:"result"`
	ControlTest   *hypothesis.TTestResult  `json:"control_test,omitempty"`
	ControlResult *stats.StatisticalResult `json:"control_result,omitempty"`
}

// splitHalves returns the mean of the first floor(n/2) values and of the rest.
func splitHalves(values []float64) (float64, float64) {
	mid := len(values) / 2
	return sequence.Mean(values[:mid]), sequence.Mean(values[mid:])
}

// HalfComparison runs a paired t-test of first-half against second-half hit rate
// over sessions with at least two blocks, mirrored on the control stream.
func HalfComparison(summary aggregation.Summary, opts Options) (*HalfComparisonResult, error) {
	opts = opts.withDefaults()

	var first, second, ctlFirst, ctlSecond []float64
	for _, s := range summary.Series {
		if len(s.HitRates) < 2 {
			continue
		}
		a, b := splitHalves(s.HitRates)
		first = append(first, a)
		second = append(second, b)
		c, d := splitHalves(s.GhostRates)
		ctlFirst = append(ctlFirst, c)
		ctlSecond = append(ctlSecond, d)
	}
	if len(first) < 2 {
		return nil, core.NewInsufficientDataError(NameHalfComparison, len(first), 2)
	}

	t, err := hypothesis.PairedT(first, second)
	if err != nil {
		return nil, err
	}
	res := &HalfComparisonResult{
		Sessions:   len(first),
		FirstMean:  sequence.Mean(first),
		SecondMean: sequence.Mean(second),
		Test:       t,
		Result:     tResult("first vs second half hit rate", stats.TestPairedT, t, opts.Alpha, len(first)),
	}
	if ct, err := hypothesis.PairedT(ctlFirst, ctlSecond); err == nil {
		cr := tResult("first vs second half ghost rate", stats.TestPairedT, ct, opts.Alpha, len(ctlFirst))
		res.ControlTest = &ct
		res.ControlResult = &cr
	}
	return res, nil
}
