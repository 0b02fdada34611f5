// Package hypothesis implements the significance tests, resampling procedures and
// multiple-comparison corrections used by the analysis layers.
package hypothesis

import (
	"fmt"
	"math"

	"qrnglab/domain/core"
	"qrnglab/internal/numeric"
	"qrnglab/internal/sequence"
)

// TTestResult carries every intermediate quantity of a t-test.
type TTestResult struct {
	T          float64 `json:"t"`
	DF         float64 `json:"df"`
	P          float64 `json:"p"`
	MeanA      float64 `json:"mean_a"`
	MeanB      float64 `json:"mean_b"` // mu for one-sample tests
	Diff       float64 `json:"diff"`
	SE         float64 `json:"se"`
	NA         int     `json:"n_a"`
	NB         int     `json:"n_b,omitempty"`
	SDA        float64 `json:"sd_a"`
	SDB        float64 `json:"sd_b,omitempty"`
	CohenD     float64 `json:"cohen_d"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// finish fills T and P from Diff/SE/DF, applying the zero-SE sentinel.
func (r TTestResult) finish() TTestResult {
	if r.SE == 0 || math.IsNaN(r.SE) || math.IsInf(r.SE, 0) {
		r.T, r.P, r.Degenerate = 0, 1, true
		return r
	}
	r.T = r.Diff / r.SE
	r.P = numeric.TwoSidedTP(r.T, r.DF)
	return r
}

// OneSampleT tests mean(x) against mu.
func OneSampleT(x []float64, mu float64) (TTestResult, error) {
	n := len(x)
	if n < 2 {
		return TTestResult{}, core.NewInsufficientDataError("one-sample t", n, 2)
	}
	mean := sequence.Mean(x)
	sd := sequence.StdDev(x)
	res := TTestResult{
		DF:    float64(n - 1),
		MeanA: mean,
		MeanB: mu,
		Diff:  mean - mu,
		SE:    sd / math.Sqrt(float64(n)),
		NA:    n,
		SDA:   sd,
	}
	if sd > 0 {
		res.CohenD = (mean - mu) / sd
	}
	return res.finish(), nil
}

// PairedT tests the mean of a[i]-b[i] against zero.
func PairedT(a, b []float64) (TTestResult, error) {
	if len(a) != len(b) {
		return TTestResult{}, fmt.Errorf("paired t: length mismatch %d vs %d", len(a), len(b))
	}
	diffs := make([]float64, len(a))
	for i := range a {
		diffs[i] = a[i] - b[i]
	}
	res, err := OneSampleT(diffs, 0)
	if err != nil {
		return TTestResult{}, err
	}
	res.MeanA = sequence.Mean(a)
	res.MeanB = sequence.Mean(b)
	res.NB = len(b)
	return res, nil
}

func twoSample(a, b []float64) (TTestResult, float64, float64, error) {
	na, nb := len(a), len(b)
	if na < 2 || nb < 2 {
		have := na
		if nb < have {
			have = nb
		}
		return TTestResult{}, 0, 0, core.NewInsufficientDataError("two-sample t", have, 2)
	}
	va, vb := sequence.Variance(a), sequence.Variance(b)
	res := TTestResult{
		MeanA:  sequence.Mean(a),
		MeanB:  sequence.Mean(b),
		NA:     na,
		NB:     nb,
		SDA:    math.Sqrt(va),
		SDB:    math.Sqrt(vb),
		CohenD: CohenD(a, b),
	}
	res.Diff = res.MeanA - res.MeanB
	return res, va, vb, nil
}

// StudentT is the equal-variance two-sample t-test with pooled variance.
func StudentT(a, b []float64) (TTestResult, error) {
	res, va, vb, err := twoSample(a, b)
	if err != nil {
		return res, err
	}
	na, nb := float64(res.NA), float64(res.NB)
	res.DF = na + nb - 2
	pooled := ((na-1)*va + (nb-1)*vb) / res.DF
	res.SE = math.Sqrt(pooled * (1/na + 1/nb))
	return res.finish(), nil
}

// WelchT is the unequal-variance two-sample t-test with Welch-Satterthwaite df.
func WelchT(a, b []float64) (TTestResult, error) {
	res, va, vb, err := twoSample(a, b)
	if err != nil {
		return res, err
	}
	na, nb := float64(res.NA), float64(res.NB)
	sa, sb := va/na, vb/nb
	res.SE = math.Sqrt(sa + sb)
	denom := sa*sa/(na-1) + sb*sb/(nb-1)
	if denom > 0 {
		res.DF = (sa + sb) * (sa + sb) / denom
	} else {
		res.DF = na + nb - 2
	}
	return res.finish(), nil
}

// CohenD is the standardized mean difference with pooled standard deviation.
// Returns 0 when either group has fewer than two values or the pooled SD is 0.
func CohenD(a, b []float64) float64 {
	na, nb := float64(len(a)), float64(len(b))
	if na < 2 || nb < 2 {
		return 0
	}
	pooled := math.Sqrt(((na-1)*sequence.Variance(a) + (nb-1)*sequence.Variance(b)) / (na + nb - 2))
	if pooled == 0 || math.IsNaN(pooled) {
		return 0
	}
	return (sequence.Mean(a) - sequence.Mean(b)) / pooled
}
