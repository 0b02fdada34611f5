package sequence

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Autocorrelation at lag, normalized by the lag-0 sum of squares around the
// whole-series mean. Returns 0 for lag < 0, len(series) <= lag, or a constant series.
func Autocorrelation(series []float64, lag int) float64 {
	n := len(series)
	if lag < 0 || n <= lag {
		return 0
	}
	mean := Mean(series)

	var denom float64
	for _, v := range series {
		d := v - mean
		denom += d * d
	}
	if denom == 0 {
		return 0
	}

	var num float64
	for i := 0; i+lag < n; i++ {
		num += (series[i] - mean) * (series[i+lag] - mean)
	}
	return num / denom
}

// CrossCorrelation pairs x[i] with y[i+lag] (x[i-lag] with y[i] for negative lag)
// and returns the Pearson correlation over the overlapping window only.
// Degenerate variance or fewer than two overlapping pairs returns 0.
func CrossCorrelation(x, y []float64, lag int) float64 {
	xs, ys := overlap(x, y, lag)
	if len(xs) < 2 {
		return 0
	}
	if Variance(xs) == 0 || Variance(ys) == 0 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func overlap(x, y []float64, lag int) ([]float64, []float64) {
	var xs, ys []float64
	if lag >= 0 {
		for i := 0; i < len(x) && i+lag < len(y); i++ {
			xs = append(xs, x[i])
			ys = append(ys, y[i+lag])
		}
		return xs, ys
	}
	shift := -lag
	for i := 0; i < len(y) && i+shift < len(x); i++ {
		xs = append(xs, x[i+shift])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// BestLag scans autocorrelation over [minLag, maxLag] and returns the lag with the
// largest r. The first lag wins ties. ok is false when the range is empty.
func BestLag(series []float64, minLag, maxLag int) (lag int, r float64, ok bool) {
	if minLag < 1 {
		minLag = 1
	}
	for k := minLag; k <= maxLag && k < len(series); k++ {
		rk := Autocorrelation(series, k)
		if !ok || rk > r {
			lag, r, ok = k, rk, true
		}
	}
	return lag, r, ok
}
