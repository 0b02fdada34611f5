package numeric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

func validDF(df float64) bool {
	return df > 0 && !math.IsNaN(df) && !math.IsInf(df, 0)
}

func studentsT(df float64) distuv.StudentsT {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
}

// StudentTCDF returns P(T <= t) for Student's t with df degrees of freedom.
// Invalid df or NaN t yields the sentinel 0.5.
func StudentTCDF(t, df float64) float64 {
	if !validDF(df) || math.IsNaN(t) {
		return 0.5
	}
	if math.IsInf(t, 1) {
		return 1
	}
	if math.IsInf(t, -1) {
		return 0
	}
	return ClampP(studentsT(df).CDF(t))
}

// TwoSidedTP converts a t statistic into a two-sided p-value. TwoSidedTP(0, df) == 1.
func TwoSidedTP(t, df float64) float64 {
	if !validDF(df) || math.IsNaN(t) {
		return 1
	}
	if t == 0 {
		return 1
	}
	if math.IsInf(t, 0) {
		return 0
	}
	return ClampP(2 * studentsT(df).Survival(math.Abs(t)))
}

// OneSidedTP returns P(T >= t) (greater) or P(T <= t) (less).
func OneSidedTP(t, df float64, greater bool) float64 {
	if !validDF(df) || math.IsNaN(t) {
		return 1
	}
	if greater {
		return ClampP(1 - StudentTCDF(t, df))
	}
	return ClampP(StudentTCDF(t, df))
}

// TCritical returns the two-sided critical value for alpha. Invalid input yields 0.
func TCritical(alpha, df float64) float64 {
	if !validDF(df) || !(alpha > 0 && alpha < 1) {
		return 0
	}
	return studentsT(df).Quantile(1 - alpha/2)
}

// ChiSquareCDF returns P(X <= x) for chi-square with df degrees of freedom.
func ChiSquareCDF(x, df float64) float64 {
	if !validDF(df) || math.IsNaN(x) || x <= 0 {
		return 0
	}
	if math.IsInf(x, 1) {
		return 1
	}
	return ClampP(distuv.ChiSquared{K: df}.CDF(x))
}

// ChiSquareUpperP returns P(X >= x); non-positive x gives 1.
func ChiSquareUpperP(x, df float64) float64 {
	if !validDF(df) || math.IsNaN(x) || x <= 0 {
		return 1
	}
	if math.IsInf(x, 1) {
		return 0
	}
	return ClampP(distuv.ChiSquared{K: df}.Survival(x))
}
