package hypothesis

import (
	"math"

	"qrnglab/domain/core"
	"qrnglab/internal/numeric"
)

// Alternative selects the tail of a one-parameter test.
type Alternative string

const (
	AlternativeGreater  Alternative = "greater"
	AlternativeLess     Alternative = "less"
	AlternativeTwoSided Alternative = "two-sided"
)

// logPMF evaluates the binomial log-probability once, to seed a recurrence.
func logPMF(k, n int, p float64) float64 {
	lg := func(x int) float64 {
		v, _ := math.Lgamma(float64(x) + 1)
		return v
	}
	return lg(n) - lg(k) - lg(n-k) + float64(k)*math.Log(p) + float64(n-k)*math.Log1p(-p)
}

// BinomialUpperTail is the exact P(X >= k) for X ~ Bin(n, p).
// Above the mean it sums forward from k with pmf(j+1) = pmf(j)*(n-j)/(j+1)*p/(1-p),
// so terms shrink and large n cannot underflow the leading term away.
func BinomialUpperTail(k, n int, p float64) float64 {
	switch {
	case k <= 0:
		return 1
	case k > n:
		return 0
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	}
	if float64(k) <= float64(n)*p {
		return numeric.ClampP(1 - BinomialLowerTail(k-1, n, p))
	}

	ratio := p / (1 - p)
	term := math.Exp(logPMF(k, n, p))
	sum := term
	for j := k; j < n && term > 0; j++ {
		term *= float64(n-j) / float64(j+1) * ratio
		sum += term
	}
	return numeric.ClampP(sum)
}

// BinomialLowerTail is the exact P(X <= k) for X ~ Bin(n, p), summing backward
// from k below the mean.
func BinomialLowerTail(k, n int, p float64) float64 {
	switch {
	case k < 0:
		return 0
	case k >= n:
		return 1
	case p <= 0:
		return 1
	case p >= 1:
		return 0
	}
	if float64(k) >= float64(n)*p {
		return numeric.ClampP(1 - BinomialUpperTail(k+1, n, p))
	}

	ratio := (1 - p) / p
	term := math.Exp(logPMF(k, n, p))
	sum := term
	for j := k; j > 0 && term > 0; j-- {
		term *= float64(j) / float64(n-j+1) * ratio
		sum += term
	}
	return numeric.ClampP(sum)
}

// BinomialResult reports both the exact and the normal-approximate test.
type BinomialResult struct {
	K           int         `json:"k"`
	N           int         `json:"n"`
	P0          float64     `json:"p0"`
	Observed    float64     `json:"observed"`
	Alternative Alternative `json:"alternative"`
	PExact      float64     `json:"p_exact"`
	Z           float64     `json:"z"`
	PNormal     float64     `json:"p_normal"`
}

// BinomialTest tests k successes in n trials against probability p0.
// The exact two-sided p is min(1, 2*min(upper, lower)).
func BinomialTest(k, n int, p0 float64, alt Alternative) (BinomialResult, error) {
	if n <= 0 {
		return BinomialResult{}, core.NewInsufficientDataError("binomial", n, 1)
	}
	if alt == "" {
		alt = AlternativeTwoSided
	}
	res := BinomialResult{K: k, N: n, P0: p0, Observed: float64(k) / float64(n), Alternative: alt, PNormal: 1}

	upper := BinomialUpperTail(k, n, p0)
	lower := BinomialLowerTail(k, n, p0)
	switch alt {
	case AlternativeGreater:
		res.PExact = upper
	case AlternativeLess:
		res.PExact = lower
	default:
		res.PExact = numeric.ClampP(2 * math.Min(upper, lower))
	}

	se := math.Sqrt(float64(n) * p0 * (1 - p0))
	if se == 0 || math.IsNaN(se) {
		return res, nil
	}
	res.Z = (float64(k) - float64(n)*p0) / se
	switch alt {
	case AlternativeGreater:
		res.PNormal = numeric.UpperP(res.Z)
	case AlternativeLess:
		res.PNormal = numeric.LowerP(res.Z)
	default:
		res.PNormal = numeric.TwoSidedP(res.Z)
	}
	return res, nil
}

// MinHitsForSignificance scans upward from ceil(n*p) for the smallest k whose
// upper tail is below alpha. Returns -1 when even k = n is not significant.
func MinHitsForSignificance(n int, p, alpha float64) int {
	if n <= 0 {
		return -1
	}
	start := int(math.Ceil(float64(n) * p))
	if start < 0 {
		start = 0
	}
	for k := start; k <= n; k++ {
		if BinomialUpperTail(k, n, p) < alpha {
			return k
		}
	}
	return -1
}
