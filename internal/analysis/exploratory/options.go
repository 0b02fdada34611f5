// Package exploratory implements the exploratory analysis suite. Every analysis
// is independently invocable and applies corrections only within itself.
package exploratory

import (
	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/hypothesis"
	"qrnglab/internal/sequence"
)

// Caveat accompanies every exploratory block in a report.
const Caveat = "Exploratory analyses are corrected only within each analysis; no " +
	"family-wise budget spans the suite. Significance flags here generate hypotheses, they do not confirm them."

// Analysis names, also used to derive per-analysis RNG streams.
const (
	NameAutocorrelation    = "block_autocorrelation"
	NameHalfComparison     = "half_comparison"
	NameEntropyTwoWindow   = "entropy_windows_k2"
	NameEntropyThreeWindow = "entropy_windows_k3"
	NameHarmonic           = "harmonic_oscillation"
	NameDamped             = "damped_oscillator"
	NameControlValidation  = "control_validation"
	NameHoldDuration       = "hold_duration"
)

// Options configures the suite. Zero fields take the domain defaults.
type Options struct {
	Alpha               float64                  `json:"alpha"`
	Seed                int64                    `json:"seed"`
	MaxLag              int                      `json:"max_lag"`
	MinCorrelationN     int                      `json:"min_correlation_n"`
	HoldMinN            int                      `json:"hold_min_n"`
	ChiSquareMinTotal   int                      `json:"chi_square_min_total"`
	DependenceThreshold float64                  `json:"dependence_threshold"`
	CrossLagRange       int                      `json:"cross_lag_range"`
	Bootstrap           hypothesis.Resampling    `json:"bootstrap"`
	Permutation         hypothesis.Resampling    `json:"permutation"`
	Spectrum            sequence.SpectrumOptions `json:"spectrum"`
	Workers             int                      `json:"workers"`
}

// DefaultOptions returns the domain defaults.
func DefaultOptions() Options {
	return Options{
		Alpha:               0.05,
		Seed:                42,
		MaxLag:              5,
		MinCorrelationN:     3,
		HoldMinN:            20,
		ChiSquareMinTotal:   hypothesis.DefaultChiSquareMinTotal,
		DependenceThreshold: 0.5,
		CrossLagRange:       3,
		Bootstrap:           hypothesis.Resampling{Iterations: hypothesis.DefaultBootstrapIterations, Level: hypothesis.DefaultConfidenceLevel},
		Permutation:         hypothesis.Resampling{Iterations: hypothesis.DefaultPermutationIterations},
		Spectrum:            sequence.SpectrumOptions{Window: sequence.WindowHann, Method: sequence.MethodWelch, SegmentLength: 8},
		Workers:             4,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !(o.Alpha > 0 && o.Alpha < 1) {
		o.Alpha = d.Alpha
	}
	if o.MaxLag <= 0 {
		o.MaxLag = d.MaxLag
	}
	if o.MinCorrelationN <= 0 {
		o.MinCorrelationN = d.MinCorrelationN
	}
	if o.HoldMinN <= 0 {
		o.HoldMinN = d.HoldMinN
	}
	if o.ChiSquareMinTotal <= 0 {
		o.ChiSquareMinTotal = d.ChiSquareMinTotal
	}
	if o.DependenceThreshold <= 0 {
		o.DependenceThreshold = d.DependenceThreshold
	}
	if o.CrossLagRange <= 0 {
		o.CrossLagRange = d.CrossLagRange
	}
	if o.Bootstrap.Iterations <= 0 {
		o.Bootstrap.Iterations = d.Bootstrap.Iterations
	}
	if o.Permutation.Iterations <= 0 {
		o.Permutation.Iterations = d.Permutation.Iterations
	}
	if o.Spectrum.Window == "" {
		o.Spectrum.Window = d.Spectrum.Window
	}
	if o.Spectrum.Method == "" {
		o.Spectrum.Method = d.Spectrum.Method
		o.Spectrum.SegmentLength = d.Spectrum.SegmentLength
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}

// skipNote converts an absorbed error into a skip note.
func skipNote(test string, err error) stats.SkipNote {
	code := stats.WarningInsufficientData
	if err != nil && !core.IsInsufficientData(err) {
		code = stats.WarningResampleCap
	}
	return stats.SkipNote{Test: test, Reason: err.Error(), Code: code}
}

// tResult wraps a t-test as an exploratory StatisticalResult.
func tResult(label string, test stats.TestType, t hypothesis.TTestResult, alpha float64, n int) stats.StatisticalResult {
	return stats.NewResult(label, test, t.T, t.P, alpha, n).
		WithDF(t.DF).
		WithEffect(t.CohenD).
		WithScope(stats.ScopeExploratory).
		WithDegenerate(t.Degenerate)
}
