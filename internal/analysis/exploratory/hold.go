package exploratory

import (
	"fmt"

	mfstats "github.com/montanaflynn/stats"

	"qrnglab/domain/core"
	"qrnglab/domain/stats"
	"qrnglab/internal/aggregation"
	"qrnglab/internal/hypothesis"
	"qrnglab/internal/sequence"
)

// HoldBin is the hit rate of trials whose hold duration falls in one quartile.
type HoldBin struct {
	Label   string  `json:"label"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Trials  int     `json:"trials"`
	HitRate float64 `json:"hit_rate"`
}

// HoldDurationResult relates how long a participant held the button to outcome.
type HoldDurationResult struct {
	Trials    int                      `json:"trials"`
	MeanHold  float64                  `json:"mean_hold_ms"`
	Quartiles sequence.QuartileSummary `json:"quartiles"`
	Bins      []HoldBin                `json:"bins"`
	Test      *hypothesis.TTestResult  `json:"test,omitempty"`
	Result    *stats.StatisticalResult `json:"result,omitempty"`
}

// HoldDuration bins trials with a recorded hold duration by quartile and
// compares hit bits of the longest (d >= Q3) against the shortest (d <= Q1)
// holds with a Welch t-test. Needs HoldMinN trials.
func HoldDuration(summary aggregation.Summary, opts Options) (*HoldDurationResult, error) {
	opts = opts.withDefaults()

	var durations, hits []float64
	for _, s := range summary.Series {
		durations = append(durations, s.HoldDurations...)
		hits = append(hits, s.HoldHits...)
	}
	if len(durations) < opts.HoldMinN {
		return nil, core.NewInsufficientDataError(NameHoldDuration, len(durations), opts.HoldMinN)
	}

	q := sequence.Quartiles(durations)
	res := &HoldDurationResult{Trials: len(durations), Quartiles: q}
	res.MeanHold, _ = mfstats.Mean(durations)

	edges := []float64{q.Min, q.Q1, q.Median, q.Q3, q.Max}
	for i := 0; i < 4; i++ {
		bin := HoldBin{Label: fmt.Sprintf("Q%d", i+1), Lower: edges[i], Upper: edges[i+1]}
		var sum float64
		for j, d := range durations {
			if inBin(d, edges, i) {
				bin.Trials++
				sum += hits[j]
			}
		}
		if bin.Trials > 0 {
			bin.HitRate = sum / float64(bin.Trials)
		}
		res.Bins = append(res.Bins, bin)
	}

	var long, short []float64
	for j, d := range durations {
		if d >= q.Q3 {
			long = append(long, hits[j])
		}
		if d <= q.Q1 {
			short = append(short, hits[j])
		}
	}
	if t, err := hypothesis.WelchT(long, short); err == nil {
		r := tResult("longest vs shortest hold quartile hit rate", stats.TestWelchT, t, opts.Alpha, len(long)+len(short))
		res.Test = &t
		res.Result = &r
	}
	return res, nil
}

// inBin assigns each duration to exactly one of four bins. The first bin is
// closed on both ends; the others are open below.
func inBin(d float64, edges []float64, i int) bool {
	if i == 0 {
		return d >= edges[0] && d <= edges[1]
	}
	return d > edges[i] && d <= edges[i+1]
}
