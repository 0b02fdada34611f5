package stats

import (
	"math"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// Scope separates the pre-declared confirmatory comparisons from everything else.
type Scope string

const (
	ScopeConfirmatory Scope = "confirmatory"
	ScopeExploratory  Scope = "exploratory"
	ScopeDescriptive  Scope = "descriptive"
)

// TestType names the statistical procedure that produced a result
type TestType string

const (
	TestOneSampleT     TestType = "one_sample_t"
	TestPairedT        TestType = "paired_t"
	TestStudentT       TestType = "student_t"
	TestWelchT         TestType = "welch_t"
	TestTwoProportionZ TestType = "two_proportion_z"
	TestBinomial       TestType = "binomial"
	TestChiSquare      TestType = "chi_square_2x2"
	TestRuns           TestType = "runs"
	TestPermutation    TestType = "sign_flip_permutation"
	TestCorrelationZ   TestType = "correlation_z"
	TestSlope          TestType = "slope_t"
)

// CorrectionMethod names a multiple-comparison procedure
type CorrectionMethod string

const (
	CorrectionHolm              CorrectionMethod = "holm"
	CorrectionBenjaminiHochberg CorrectionMethod = "benjamini_hochberg"
)

// WarningCode represents structured warning types
type WarningCode string

const (
	WarningDegenerate       WarningCode = "DEGENERATE_STATISTIC"  // Zero variance or zero denominator
	WarningLowN             WarningCode = "LOW_N"                 // Below the test's recommended size
	WarningInsufficientData WarningCode = "INSUFFICIENT_DATA"     // Test skipped
	WarningResampleCap      WarningCode = "RESAMPLE_CAP_EXCEEDED" // Resampling refused
	WarningDesignError      WarningCode = "DESIGN_ERROR"          // Paired streams are not independent
)

// ============================================================================
// RESULTS
// ============================================================================

// StatisticalResult is the output record of any single test.
// INVARIANTS:
// - PValue always in [0, 1]
// - Significant == PValue < Alpha for uncorrected results
// - Never mutated after creation; the With* helpers return copies
type StatisticalResult struct {
	Label       string        `json:"label"`
	Test        TestType      `json:"test"`
	Statistic   float64       `json:"statistic"`
	DF          *float64      `json:"df,omitempty"`
	PValue      float64       `json:"p_value"`
	Alpha       float64       `json:"alpha"`
	Significant bool          `json:"significant"`
	N           int           `json:"n"`
	EffectSize  *float64      `json:"effect_size,omitempty"`
	Degenerate  bool          `json:"degenerate,omitempty"`
	Scope       Scope         `json:"scope"`
	Warnings    []WarningCode `json:"warnings,omitempty"`
}

// NewResult builds a result, clamping p into [0,1] and deriving significance.
func NewResult(label string, test TestType, statistic float64, p, alpha float64, n int) StatisticalResult {
	p = clampP(p)
	if math.IsNaN(statistic) || math.IsInf(statistic, 0) {
		statistic = 0
		p = 1
	}
	return StatisticalResult{
		Label:       label,
		Test:        test,
		Statistic:   statistic,
		PValue:      p,
		Alpha:       alpha,
		Significant: p < alpha,
		N:           n,
		Scope:       ScopeExploratory,
	}
}

// WithDF returns a copy carrying degrees of freedom.
func (r StatisticalResult) WithDF(df float64) StatisticalResult {
	r.DF = &df
	return r
}

// WithEffect returns a copy carrying an effect size.
func (r StatisticalResult) WithEffect(effect float64) StatisticalResult {
	if math.IsNaN(effect) || math.IsInf(effect, 0) {
		return r
	}
	r.EffectSize = &effect
	return r
}

// WithScope returns a copy tagged with scope.
func (r StatisticalResult) WithScope(scope Scope) StatisticalResult {
	r.Scope = scope
	return r
}

// WithDegenerate returns a copy flagged as a degenerate-statistic outcome.
func (r StatisticalResult) WithDegenerate(degenerate bool) StatisticalResult {
	if !degenerate {
		return r
	}
	r.Degenerate = true
	r.Warnings = append(append([]WarningCode(nil), r.Warnings...), WarningDegenerate)
	return r
}

// WithWarning returns a copy with an extra warning.
func (r StatisticalResult) WithWarning(code WarningCode) StatisticalResult {
	r.Warnings = append(append([]WarningCode(nil), r.Warnings...), code)
	return r
}

// CorrectionMember is one result inside a corrected family.
type CorrectionMember struct {
	Result        StatisticalResult `json:"result"`
	Rank          int               `json:"rank"`           // 1 = smallest raw p
	AdjustedAlpha float64           `json:"adjusted_alpha"` // Threshold the raw p was compared against
	AdjustedP     float64           `json:"adjusted_p"`     // Holm adjusted p or BH q-value
	Significant   bool              `json:"significant"`    // After correction
}

// CorrectionSet is an ordered family of results subjected to one correction.
// Members keep the caller's input order; Rank gives the sorted position.
type CorrectionSet struct {
	Method  CorrectionMethod   `json:"method"`
	Alpha   float64            `json:"alpha"`
	Family  int                `json:"family_size"`
	Scope   Scope              `json:"scope"`
	Members []CorrectionMember `json:"members"`
}

// AnySignificant reports whether at least one member survives correction.
func (c CorrectionSet) AnySignificant() bool {
	for _, m := range c.Members {
		if m.Significant {
			return true
		}
	}
	return false
}

// Member looks up a member by result label.
func (c CorrectionSet) Member(label string) (CorrectionMember, bool) {
	for _, m := range c.Members {
		if m.Result.Label == label {
			return m, true
		}
	}
	return CorrectionMember{}, false
}

// SkipNote records a test that produced no result and why.
type SkipNote struct {
	Test   string      `json:"test"`
	Reason string      `json:"reason"`
	Code   WarningCode `json:"code"`
}

func clampP(p float64) float64 {
	if math.IsNaN(p) {
		return 1
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
