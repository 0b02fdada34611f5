package hypothesis

import (
	"math"
	"math/rand"
	"sort"

	"qrnglab/domain/core"
	"qrnglab/internal/numeric"
	"qrnglab/internal/sequence"
)

// Domain defaults for resampling.
const (
	DefaultBootstrapIterations   = 1000
	DefaultPermutationIterations = 10000
	DefaultConfidenceLevel       = 0.95
)

// Resampling bounds a bootstrap or permutation run. MaxN <= 0 disables the cap.
type Resampling struct {
	Iterations int     `json:"iterations"`
	Level      float64 `json:"level,omitempty"`
	MaxN       int     `json:"max_n,omitempty"`
}

func (r Resampling) check(n int, defaultIterations int) (Resampling, error) {
	if r.MaxN > 0 && n > r.MaxN {
		return r, core.NewResampleCapError(n, r.MaxN)
	}
	if r.Iterations <= 0 {
		r.Iterations = defaultIterations
	}
	if !(r.Level > 0 && r.Level < 1) {
		r.Level = DefaultConfidenceLevel
	}
	return r, nil
}

// Interval is a percentile bootstrap confidence interval.
type Interval struct {
	Estimate   float64 `json:"estimate"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Level      float64 `json:"level"`
	Iterations int     `json:"iterations"`
}

// Contains reports whether v lies inside the interval.
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

// BootstrapCI resamples data with replacement, recomputes statistic each time and
// reports the (1-Level)/2 and 1-(1-Level)/2 type-7 percentiles. A nil statistic
// means the sample mean.
func BootstrapCI(data []float64, statistic func([]float64) float64, opts Resampling, rng *rand.Rand) (Interval, error) {
	n := len(data)
	if n < 2 {
		return Interval{}, core.NewInsufficientDataError("bootstrap", n, 2)
	}
	opts, err := opts.check(n, DefaultBootstrapIterations)
	if err != nil {
		return Interval{}, err
	}
	if statistic == nil {
		statistic = sequence.Mean
	}

	estimates := make([]float64, opts.Iterations)
	sample := make([]float64, n)
	for b := range estimates {
		for i := range sample {
			sample[i] = data[rng.Intn(n)]
		}
		estimates[b] = statistic(sample)
	}
	sort.Float64s(estimates)

	tail := (1 - opts.Level) / 2
	return Interval{
		Estimate:   statistic(data),
		Lower:      sequence.Quantile(estimates, tail),
		Upper:      sequence.Quantile(estimates, 1-tail),
		Level:      opts.Level,
		Iterations: opts.Iterations,
	}, nil
}

// PermutationResult is a sign-flip permutation test of paired differences.
type PermutationResult struct {
	ObservedMean float64 `json:"observed_mean"`
	P            float64 `json:"p"`
	Extreme      int     `json:"extreme"` // resamples with |mean| >= |observed|
	Iterations   int     `json:"iterations"`
	N            int     `json:"n"`
}

// permutationTolerance absorbs float noise when comparing resampled means.
const permutationTolerance = 1e-12

// SignFlipPermutation flips the sign of each difference at random Iterations times
// and reports the fraction of resamples with |mean| >= |observed mean|.
func SignFlipPermutation(diffs []float64, opts Resampling, rng *rand.Rand) (PermutationResult, error) {
	n := len(diffs)
	if n < 2 {
		return PermutationResult{}, core.NewInsufficientDataError("sign-flip permutation", n, 2)
	}
	opts, err := opts.check(n, DefaultPermutationIterations)
	if err != nil {
		return PermutationResult{}, err
	}

	observed := sequence.Mean(diffs)
	threshold := math.Abs(observed) - permutationTolerance
	extreme := 0
	for b := 0; b < opts.Iterations; b++ {
		var sum float64
		for _, d := range diffs {
			if rng.Intn(2) == 0 {
				sum -= d
			} else {
				sum += d
			}
		}
		if math.Abs(sum/float64(n)) >= threshold {
			extreme++
		}
	}
	return PermutationResult{
		ObservedMean: observed,
		P:            numeric.ClampP(float64(extreme) / float64(opts.Iterations)),
		Extreme:      extreme,
		Iterations:   opts.Iterations,
		N:            n,
	}, nil
}
