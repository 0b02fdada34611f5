package exploratory

import (
	"math"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/numeric"
	"qrnglab/internal/sequence"
)

// MeanTrajectory averages block hit rates position by position across sessions.
// Position i averages only the sessions with more than i blocks.
func MeanTrajectory(series []aggregation.SessionSeries) []float64 {
	var sums []float64
	var counts []int
	for _, s := range series {
		for i, v := range s.HitRates {
			if i == len(sums) {
				sums = append(sums, 0)
				counts = append(counts, 0)
			}
			sums[i] += v
			counts[i]++
		}
	}
	out := make([]float64, len(sums))
	for i := range sums {
		out[i] = sums[i] / float64(counts[i])
	}
	return out
}

// ============================================================================
// Harmonic oscillation
// ============================================================================

// HarmonicResult describes periodic structure in the mean trajectory.
type HarmonicResult struct {
	Points        int                        `json:"points"`
	BestLag       int                        `json:"best_lag"`
	BestR         float64                    `json:"best_r"`
	Z             float64                    `json:"z"`
	Result        stats.StatisticalResult    `json:"result"`
	Spectrum      sequence.Spectrum          `json:"spectrum"`
	TurningPoints sequence.TurningPointStats `json:"turning_points"`
}

// HarmonicOscillation scans the mean trajectory's autocorrelation over lags
// 2..n/2 and tests the best r with z = r*sqrt(n). The periodogram and turning
// point counts are reported alongside. Needs at least 4 trajectory points.
func HarmonicOscillation(summary aggregation.Summary, opts Options) (*HarmonicResult, error) {
	opts = opts.withDefaults()

	traj := MeanTrajectory(summary.Series)
	n := len(traj)
	if n < 4 {
		return nil, core.NewInsufficientDataError(NameHarmonic, n, 4)
	}
	lag, r, ok := sequence.BestLag(traj, 2, n/2)
	if !ok {
		return nil, core.NewInsufficientDataError(NameHarmonic, n, 4)
	}

	z := r * math.Sqrt(float64(n))
	res := &HarmonicResult{
		Points:        n,
		BestLag:       lag,
		BestR:         r,
		Z:             z,
		Spectrum:      sequence.Periodogram(traj, opts.Spectrum),
		TurningPoints: sequence.TurningPoints(traj),
	}
	res.Result = stats.NewResult("best-lag trajectory autocorrelation", stats.TestCorrelationZ, z, numeric.TwoSidedP(z), opts.Alpha, n).
		WithEffect(r).
		WithScope(stats.ScopeExploratory)
	if n < opts.MinCorrelationN*2 {
		res.Result = res.Result.WithWarning(stats.WarningLowN)
	}
	return res, nil
}

// ============================================================================
// Damped oscillator
// ============================================================================

// DampedResult is a log-linear fit to the envelope of trajectory peaks.
type DampedResult struct {
	Points     int                      `json:"points"`
	Peaks      []int                    `json:"peaks"`
	Amplitudes []float64                `json:"amplitudes"`
	Slope      sequence.SlopeTestResult `json:"slope"`
	DecayRate  float64                  `json:"decay_rate"`
	HalfLife   *float64                 `json:"half_life,omitempty"` // blocks; only for a decaying envelope
	Result     stats.StatisticalResult  `json:"result"`
}

// DampedOscillator finds local maxima of |trajectory - mean| and regresses log
// amplitude on block index. Decay rate is the negated slope. Needs 3 peaks with
// positive amplitude.
func DampedOscillator(summary aggregation.Summary, opts Options) (*DampedResult, error) {
	opts = opts.withDefaults()

	traj := MeanTrajectory(summary.Series)
	mean := sequence.Mean(traj)
	envelope := make([]float64, len(traj))
	for i, v := range traj {
		envelope[i] = math.Abs(v - mean)
	}

	var peaks []int
	var amps, xs, logs []float64
	for _, i := range sequence.Peaks(envelope) {
		if envelope[i] <= 0 {
			continue
		}
		peaks = append(peaks, i)
		amps = append(amps, envelope[i])
		xs = append(xs, float64(i))
		logs = append(logs, math.Log(envelope[i]))
	}
	if len(peaks) < 3 {
		return nil, core.NewInsufficientDataError(NameDamped, len(peaks), 3)
	}

	fit, err := sequence.SlopeTest(xs, logs)
	if err != nil {
		return nil, err
	}
	res := &DampedResult{
		Points:     len(traj),
		Peaks:      peaks,
		Amplitudes: amps,
		Slope:      fit,
		DecayRate:  -fit.Slope,
	}
	if res.DecayRate > 0 {
		h := math.Ln2 / res.DecayRate
		res.HalfLife = &h
	}
	res.Result = stats.NewResult("peak envelope log-linear slope", stats.TestSlope, fit.T, fit.P, opts.Alpha, len(peaks)).
		WithDF(fit.DF).
		WithScope(stats.ScopeExploratory).
		WithDegenerate(fit.Degenerate)
	return res, nil
}
