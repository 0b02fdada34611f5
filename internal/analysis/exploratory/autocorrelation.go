package exploratory

import (
	"fmt"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/hypothesis"
	"qrnglab/internal/sequence"
)

// LagResult is the across-session test of one lag's autocorrelation.
type LagResult struct {
	Lag      int                      `json:"lag"`
	Sessions int                      `json:"sessions"`
	MeanR    float64                  `json:"mean_r"`
	Test     *hypothesis.TTestResult  `json:"test,omitempty"`
	Result   *stats.StatisticalResult `json:"result,omitempty"`
}

// AutocorrelationResult covers lags 1..MaxLag for both streams.
type AutocorrelationResult struct {
	Subject           []LagResult         `json:"subject"`
	Control           []LagResult         `json:"control"`
	SubjectCorrection stats.CorrectionSet `json:"subject_correction"`
}

// BlockAutocorrelation computes each session's lag-k autocorrelation of block hit
// rates and tests the mean r_k against zero with a one-sample t-test. A session
// contributes to lag k only with at least max(k+2, MinCorrelationN) blocks.
// Ghost rates are run through the same procedure as a no-effect mirror.
func BlockAutocorrelation(summary aggregation.Summary, opts Options) (*AutocorrelationResult, error) {
	opts = opts.withDefaults()

	subject := make([][]float64, 0, len(summary.Series))
	control := make([][]float64, 0, len(summary.Series))
	for _, s := range summary.Series {
		subject = append(subject, s.HitRates)
		control = append(control, s.GhostRates)
	}

	res := &AutocorrelationResult{
		Subject: lagScan("subject", subject, opts),
		Control: lagScan("control", control, opts),
	}

	var family []stats.StatisticalResult
	for _, l := range res.Subject {
		if l.Result != nil {
			family = append(family, *l.Result)
		}
	}
	if len(family) == 0 {
		return nil, core.NewInsufficientDataError(NameAutocorrelation, len(summary.Series), 2)
	}
	res.SubjectCorrection = hypothesis.Holm(family, opts.Alpha)
	return res, nil
}

func lagScan(stream string, series [][]float64, opts Options) []LagResult {
	out := make([]LagResult, 0, opts.MaxLag)
	for lag := 1; lag <= opts.MaxLag; lag++ {
		need := max(lag+2, opts.MinCorrelationN)
		var rs []float64
		for _, s := range series {
			if len(s) >= need {
				rs = append(rs, sequence.Autocorrelation(s, lag))
			}
		}
		lr := LagResult{Lag: lag, Sessions: len(rs), MeanR: sequence.Mean(rs)}
		if t, err := hypothesis.OneSampleT(rs, 0); err == nil {
			r := tResult(fmt.Sprintf("%s lag-%d autocorrelation", stream, lag), stats.TestOneSampleT, t, opts.Alpha, len(rs))
			lr.Test = &t
			lr.Result = &r
		}
		out = append(out, lr)
	}
	return out
}
