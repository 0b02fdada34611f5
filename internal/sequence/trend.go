package sequence

import (
	"math"

	"qrnglab/domain/core"
	"qrnglab/internal/numeric"

	"gonum.org/v1/gonum/stat"
)

// Trend is an ordinary least squares fit y = Intercept + Slope*x.
type Trend struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	R2         float64 `json:"r2"`
	N          int     `json:"n"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// LinearTrend fits the series against its index 0..n-1.
func LinearTrend(series []float64) Trend {
	return TrendAgainst(indexAxis(len(series)), series)
}

func indexAxis(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

// TrendAgainst fits y on x. A constant x (or fewer than two points) is degenerate:
// slope 0, intercept mean(y). A constant y fits perfectly with R2 reported as 0.
func TrendAgainst(x, y []float64) Trend {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	x, y = x[:n], y[:n]
	if n < 2 || Variance(x) == 0 {
		return Trend{Intercept: Mean(y), N: n, Degenerate: true}
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := 0.0
	if Variance(y) > 0 {
		r2 = stat.RSquared(x, y, nil, alpha, beta)
	}
	return Trend{Slope: beta, Intercept: alpha, R2: r2, N: n}
}

// SlopeTestResult is a t-test of H0: slope = 0.
type SlopeTestResult struct {
	Trend
	SE float64 `json:"se"`
	T  float64 `json:"t"`
	DF float64 `json:"df"`
	P  float64 `json:"p"`
}

// SlopeTest fits y on x and tests the slope against zero with n-2 df.
// A zero standard error is degenerate (t 0, p 1).
func SlopeTest(x, y []float64) (SlopeTestResult, error) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 3 {
		return SlopeTestResult{}, core.NewInsufficientDataError("slope test", n, 3)
	}
	trend := TrendAgainst(x[:n], y[:n])
	df := float64(n - 2)
	res := SlopeTestResult{Trend: trend, DF: df, P: 1}
	if trend.Degenerate {
		return res, nil
	}

	mx := Mean(x[:n])
	var sxx, ssr float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		sxx += dx * dx
		resid := y[i] - (trend.Intercept + trend.Slope*x[i])
		ssr += resid * resid
	}
	se := math.Sqrt(ssr / df / sxx)
	if se == 0 || math.IsNaN(se) {
		res.Degenerate = true
		return res, nil
	}
	res.SE = se
	res.T = trend.Slope / se
	res.P = numeric.TwoSidedTP(res.T, df)
	return res, nil
}
