// Package numeric holds the scalar primitives every test builds on: the error
// function, the normal CDF, and Student-t / chi-square tail probabilities.
package numeric

import "math"

// Abramowitz & Stegun 7.1.26 coefficients
const (
	erfP  = 0.3275911
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
)

// Erf approximates the error function with absolute error below 1.5e-7.
// Odd-symmetric and defined on the whole real line; NaN propagates.
func Erf(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}
	if math.IsInf(x, 1) {
		return sign
	}

	t := 1.0 / (1.0 + erfP*x)
	poly := t * (erfA1 + t*(erfA2+t*(erfA3+t*(erfA4+t*erfA5))))
	y := 1.0 - poly*math.Exp(-x*x)
	return sign * y
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(z float64) float64 {
	return 0.5 * (1 + Erf(z/math.Sqrt2))
}

// TwoSidedP converts a z statistic into a two-sided p-value.
func TwoSidedP(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return ClampP(2 * (1 - NormalCDF(math.Abs(z))))
}

// UpperP is the one-sided P(Z >= z).
func UpperP(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return ClampP(1 - NormalCDF(z))
}

// LowerP is the one-sided P(Z <= z).
func LowerP(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return ClampP(NormalCDF(z))
}

// ClampP maps NaN to 1 and clamps into [0,1].
func ClampP(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
