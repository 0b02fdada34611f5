package exploratory

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/ports"
)

// Result collects every exploratory analysis. A nil field means the analysis
// was skipped; Skipped says why.
type Result struct {
	Scope               stats.Scope               `json:"scope"`
	Caveat              string                    `json:"caveat"`
	Autocorrelation     *AutocorrelationResult    `json:"autocorrelation,omitempty"`
	HalfComparison      *HalfComparisonResult     `json:"half_comparison,omitempty"`
	EntropyTwoWindows   *EntropyTwoWindowResult   `json:"entropy_two_windows,omitempty"`
	EntropyThreeWindows *EntropyThreeWindowResult `json:"entropy_three_windows,omitempty"`
	Harmonic            *HarmonicResult           `json:"harmonic,omitempty"`
	Damped              *DampedResult             `json:"damped,omitempty"`
	ControlValidation   *ControlValidationResult  `json:"control_validation,omitempty"`
	HoldDuration        *HoldDurationResult       `json:"hold_duration,omitempty"`
	Skipped             []stats.SkipNote          `json:"skipped,omitempty"`
}

// Suite runs the exploratory analyses concurrently.
type Suite struct {
	opts Options
	rng  ports.RNGPort
}

// NewSuite creates a suite drawing per-analysis random streams from rng.
func NewSuite(opts Options, rng ports.RNGPort) *Suite {
	return &Suite{opts: opts.withDefaults(), rng: rng}
}

type task struct {
	name string
	run  func(r *rand.Rand) error
}

// Run executes every analysis over summary with at most Workers in flight.
// Each analysis gets its own stream named after it, so results do not depend on
// scheduling. Insufficient data and resample refusals become skip notes; any
// other failure aborts the run.
func (s *Suite) Run(ctx context.Context, summary aggregation.Summary) (*Result, error) {
	res := &Result{Scope: stats.ScopeExploratory, Caveat: Caveat}
	opts := s.opts

	tasks := []task{
		{NameAutocorrelation, func(*rand.Rand) (err error) {
			res.Autocorrelation, err = BlockAutocorrelation(summary, opts)
			return err
		}},
		{NameHalfComparison, func(*rand.Rand) (err error) {
			res.HalfComparison, err = HalfComparison(summary, opts)
			return err
		}},
		{NameEntropyTwoWindow, func(r *rand.Rand) (err error) {
			res.EntropyTwoWindows, err = EntropyTwoWindows(summary, opts, r)
			return err
		}},
		{NameEntropyThreeWindow, func(*rand.Rand) (err error) {
			res.EntropyThreeWindows, err = EntropyThreeWindows(summary, opts)
			return err
		}},
		{NameHarmonic, func(*rand.Rand) (err error) {
			res.Harmonic, err = HarmonicOscillation(summary, opts)
			return err
		}},
		{NameDamped, func(*rand.Rand) (err error) {
			res.Damped, err = DampedOscillator(summary, opts)
			return err
		}},
		{NameControlValidation, func(*rand.Rand) (err error) {
			res.ControlValidation, err = ControlValidation(summary, opts)
			return err
		}},
		{NameHoldDuration, func(*rand.Rand) (err error) {
			res.HoldDuration, err = HoldDuration(summary, opts)
			return err
		}},
	}

	skipped := make([][]stats.SkipNote, len(tasks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			r, err := s.rng.Stream(gCtx, t.name, opts.Seed)
			if err != nil {
				return err
			}
			if err := t.run(r); err != nil {
				if !core.IsAbsorbable(err) {
					return fmt.Errorf("%s: %w", t.name, err)
				}
				skipped[i] = append(skipped[i], skipNote(t.name, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, notes := range skipped {
		res.Skipped = append(res.Skipped, notes...)
	}
	for _, notes := range [][]stats.SkipNote{
		skippedOf(res.EntropyTwoWindows),
		skippedOf(res.EntropyThreeWindows),
		skippedOf(res.ControlValidation),
	} {
		res.Skipped = append(res.Skipped, notes...)
	}
	return res, nil
}

// skippedOf lifts the sub-test skip notes an analysis recorded about itself.
func skippedOf(v any) []stats.SkipNote {
	switch r := v.(type) {
	case *EntropyTwoWindowResult:
		if r != nil {
			return r.Skipped
		}
	case *EntropyThreeWindowResult:
		if r != nil {
			return r.Skipped
		}
	case *ControlValidationResult:
		if r != nil {
			return r.Skipped
		}
	}
	return nil
}

// Tests flattens every computed statistical result in a fixed order, for
// tabular outputs.
func (r *Result) Tests() []stats.StatisticalResult {
	var out []stats.StatisticalResult
	if a := r.Autocorrelation; a != nil {
		for _, lags := range [][]LagResult{a.Subject, a.Control} {
			for _, l := range lags {
				if l.Result != nil {
					out = append(out, *l.Result)
				}
			}
		}
	}
	if h := r.HalfComparison; h != nil {
		out = append(out, h.Result)
		if h.ControlResult != nil {
			out = append(out, *h.ControlResult)
		}
	}
	if w := r.EntropyTwoWindows; w != nil {
		out = append(out, w.Result)
	}
	if w := r.EntropyThreeWindows; w != nil {
		out = append(out, w.TrendResult)
		for _, c := range w.Contrasts {
			out = append(out, c.Result)
		}
		if w.Differential != nil {
			out = append(out, w.Differential.Result)
		}
	}
	if h := r.Harmonic; h != nil {
		out = append(out, h.Result)
	}
	if d := r.Damped; d != nil {
		out = append(out, d.Result)
	}
	if c := r.ControlValidation; c != nil && c.ChiResult != nil {
		out = append(out, *c.ChiResult)
	}
	if h := r.HoldDuration; h != nil && h.Result != nil {
		out = append(out, *h.Result)
	}
	return out
}
