package sequence

// TurningPointStats counts strict local extrema of a series.
type TurningPointStats struct {
	Maxima   int     `json:"maxima"`
	Minima   int     `json:"minima"`
	Total    int     `json:"total"`
	Expected float64 `json:"expected"` // (n-2)*0.5
	Excess   float64 `json:"excess"`   // Total - Expected
	N        int     `json:"n"`
}

// TurningPoints counts interior points strictly above (maxima) or strictly below
// (minima) both neighbours. Series shorter than 3 have no turning points.
func TurningPoints(series []float64) TurningPointStats {
	n := len(series)
	out := TurningPointStats{N: n}
	if n < 3 {
		return out
	}
	for i := 1; i < n-1; i++ {
		prev, cur, next := series[i-1], series[i], series[i+1]
		switch {
		case cur > prev && cur > next:
			out.Maxima++
		case cur < prev && cur < next:
			out.Minima++
		}
	}
	out.Total = out.Maxima + out.Minima
	out.Expected = float64(n-2) * 0.5
	out.Excess = float64(out.Total) - out.Expected
	return out
}

// Peaks returns the indexes of strict local maxima.
func Peaks(series []float64) []int {
	var idx []int
	for i := 1; i < len(series)-1; i++ {
		if series[i] > series[i-1] && series[i] > series[i+1] {
			idx = append(idx, i)
		}
	}
	return idx
}
