package sequence

import (
	"math"
	"sort"
)

// Quantile interpolates linearly between order statistics of an ascending slice
// (R type 7): h = (n-1)q. q is clamped into [0,1]; an empty slice gives 0.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if math.IsNaN(q) || q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// QuartileSummary is a five-number summary plus IQR.
type QuartileSummary struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	IQR    float64 `json:"iqr"`
	N      int     `json:"n"`
}

// Quartiles sorts a copy of values and summarizes it with type-7 quantiles.
func Quartiles(values []float64) QuartileSummary {
	if len(values) == 0 {
		return QuartileSummary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q := QuartileSummary{
		Min:    sorted[0],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
		N:      len(sorted),
	}
	q.IQR = q.Q3 - q.Q1
	return q
}
