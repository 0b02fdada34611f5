package exploratory

import (
	"math"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/hypothesis"
	"qrnglab/internal/sequence"
)

// ControlValidationResult checks that the subject and control halves of each
// random fetch behave as independent streams.
type ControlValidationResult struct {
	Bits           int                         `json:"bits"`
	BitCorrelation float64                     `json:"bit_correlation"` // lag 0
	ChiSquare      *hypothesis.ChiSquareResult `json:"chi_square,omitempty"`
	ChiResult      *stats.StatisticalResult    `json:"chi_result,omitempty"`
	SubjectRuns    sequence.RunsResult         `json:"subject_runs"`
	ControlRuns    sequence.RunsResult         `json:"control_runs"`
	SubjectEntropy float64                     `json:"subject_entropy"`
	ControlEntropy float64                     `json:"control_entropy"`
	BlockLags      []BlockLag                  `json:"block_lags,omitempty"` // hit rate vs ghost rate
	DesignError    bool                        `json:"design_error"`
	Reasons        []string                    `json:"reasons,omitempty"`
	Skipped        []stats.SkipNote            `json:"skipped,omitempty"`
}

// ControlValidation pools the raw bits of every block that carries both halves.
// DesignError is raised when |r| at lag 0 reaches DependenceThreshold or the
// chi-square test rejects independence at Alpha.
func ControlValidation(summary aggregation.Summary, opts Options) (*ControlValidationResult, error) {
	opts = opts.withDefaults()

	var subject, control []uint8
	for _, s := range summary.Series {
		subject = append(subject, s.SubjectBits...)
		control = append(control, s.ControlBits...)
	}
	if len(subject) < 2 {
		return nil, core.NewInsufficientDataError(NameControlValidation, len(subject), 2)
	}

	res := &ControlValidationResult{
		Bits:           len(subject),
		BitCorrelation: sequence.CrossCorrelation(sequence.BitsToFloats(subject), sequence.BitsToFloats(control), 0),
		SubjectRuns:    sequence.RunsTest(subject),
		ControlRuns:    sequence.RunsTest(control),
		SubjectEntropy: sequence.ShannonEntropy(subject),
		ControlEntropy: sequence.ShannonEntropy(control),
	}

	if math.Abs(res.BitCorrelation) >= opts.DependenceThreshold {
		res.DesignError = true
		res.Reasons = append(res.Reasons, "subject and control bits are correlated at lag 0")
	}

	chi, err := hypothesis.ChiSquare2x2(hypothesis.ContingencyFromBits(subject, control), opts.ChiSquareMinTotal)
	if err != nil {
		res.Skipped = append(res.Skipped, skipNote("subject/control chi-square", err))
	} else {
		r := stats.NewResult("subject/control bit independence", stats.TestChiSquare, chi.Chi2, chi.P, opts.Alpha, chi.Total).
			WithDF(float64(chi.DF)).
			WithEffect(chi.Phi).
			WithScope(stats.ScopeExploratory).
			WithDegenerate(chi.Degenerate)
		if r.Significant {
			res.DesignError = true
			res.Reasons = append(res.Reasons, "chi-square rejects independence of subject and control bits")
			r = r.WithWarning(stats.WarningDesignError)
		}
		res.ChiSquare = &chi
		res.ChiResult = &r
	}

	res.BlockLags = blockLagScan(summary.Series, opts)
	return res, nil
}

// BlockLag is the mean within-session cross-correlation of block hit rate
// against ghost rate at one lag.
type BlockLag struct {
	Lag      int     `json:"lag"`
	MeanR    float64 `json:"mean_r"`
	Sessions int     `json:"sessions"`
}

// A session contributes to lag k only with at least max(|k|+2, MinCorrelationN)
// blocks. Lags no session reaches are left out.
func blockLagScan(series []aggregation.SessionSeries, opts Options) []BlockLag {
	var out []BlockLag
	for lag := -opts.CrossLagRange; lag <= opts.CrossLagRange; lag++ {
		need := max(abs(lag)+2, opts.MinCorrelationN)
		var rs []float64
		for _, s := range series {
			if len(s.HitRates) >= need && len(s.GhostRates) >= need {
				rs = append(rs, sequence.CrossCorrelation(s.HitRates, s.GhostRates, lag))
			}
		}
		if len(rs) == 0 {
			continue
		}
		out = append(out, BlockLag{Lag: lag, MeanR: sequence.Mean(rs), Sessions: len(rs)})
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
