package sequence

import (
	"math"

	"qrnglab/internal/numeric"
)

// RunsResult is a Wald-Wolfowitz runs test of a binary sequence.
type RunsResult struct {
	Runs       int     `json:"runs"`
	N1         int     `json:"n1"` // ones
	N2         int     `json:"n2"` // zeros
	Expected   float64 `json:"expected"`
	Variance   float64 `json:"variance"`
	Z          float64 `json:"z"`
	P          float64 `json:"p"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// RunsTest counts maximal runs of equal symbols and compares them with
// expected = 2*n1*n2/n + 1 under random ordering. A missing symbol class or a
// zero variance returns p = 1.
func RunsTest(bits []uint8) RunsResult {
	var res RunsResult
	for i, b := range bits {
		if b != 0 {
			res.N1++
		} else {
			res.N2++
		}
		if i == 0 || (b != 0) != (bits[i-1] != 0) {
			res.Runs++
		}
	}
	res.P = 1
	if res.N1 == 0 || res.N2 == 0 {
		res.Degenerate = true
		return res
	}

	n1, n2 := float64(res.N1), float64(res.N2)
	n := n1 + n2
	res.Expected = 2*n1*n2/n + 1
	res.Variance = 2 * n1 * n2 * (2*n1*n2 - n) / (n * n * (n - 1))
	if res.Variance <= 0 || math.IsNaN(res.Variance) {
		res.Degenerate = true
		return res
	}
	res.Z = (float64(res.Runs) - res.Expected) / math.Sqrt(res.Variance)
	res.P = numeric.TwoSidedP(res.Z)
	return res
}
