package hypothesis

import (
	"math"

	"qrnglab/domain/core"
	"qrnglab/internal/numeric"
)

// ZTestResult is a pooled-variance two-proportion z-test.
type ZTestResult struct {
	X1         int     `json:"x1"`
	N1         int     `json:"n1"`
	X2         int     `json:"x2"`
	N2         int     `json:"n2"`
	P1         float64 `json:"p1"`
	P2         float64 `json:"p2"`
	Pooled     float64 `json:"pooled"`
	SE         float64 `json:"se"`
	Z          float64 `json:"z"`
	P          float64 `json:"p"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// TwoProportionZ compares x1/n1 with x2/n2 using se = sqrt(p(1-p)(1/n1+1/n2)).
func TwoProportionZ(x1, n1, x2, n2 int) (ZTestResult, error) {
	if n1 <= 0 || n2 <= 0 {
		return ZTestResult{}, core.NewInsufficientDataError("two-proportion z", min(n1, n2), 1)
	}
	res := ZTestResult{
		X1: x1, N1: n1, X2: x2, N2: n2,
		P1:     float64(x1) / float64(n1),
		P2:     float64(x2) / float64(n2),
		Pooled: float64(x1+x2) / float64(n1+n2),
		P:      1,
	}
	res.SE = math.Sqrt(res.Pooled * (1 - res.Pooled) * (1/float64(n1) + 1/float64(n2)))
	if res.SE == 0 || math.IsNaN(res.SE) {
		res.Degenerate = true
		return res, nil
	}
	res.Z = (res.P1 - res.P2) / res.SE
	res.P = numeric.TwoSidedP(res.Z)
	return res, nil
}
