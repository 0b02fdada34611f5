package hypothesis

import (
	"math"

	"qrnglab/domain/core"
	"qrnglab/internal/numeric"
)

// DefaultChiSquareMinTotal is the smallest table total a 2x2 test is trusted at.
const DefaultChiSquareMinTotal = 50

// ChiSquareResult is a Pearson chi-square independence test on a 2x2 table.
type ChiSquareResult struct {
	Chi2       float64       `json:"chi2"`
	DF         int           `json:"df"`
	P          float64       `json:"p"`
	Phi        float64       `json:"phi"` // signed (ad-bc)/sqrt(margins)
	Observed   [2][2]int     `json:"observed"`
	Expected   [2][2]float64 `json:"expected"`
	Total      int           `json:"total"`
	Degenerate bool          `json:"degenerate,omitempty"`
}

// ChiSquare2x2 tests independence of rows and columns with one degree of freedom
// and no continuity correction. A total below minTotal is insufficient data;
// an empty row or column is degenerate (chi2 0, p 1).
func ChiSquare2x2(table [2][2]int, minTotal int) (ChiSquareResult, error) {
	var rows, cols [2]float64
	total := 0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			total += table[i][j]
			rows[i] += float64(table[i][j])
			cols[j] += float64(table[i][j])
		}
	}
	if total <= 0 || total < minTotal {
		return ChiSquareResult{}, core.NewInsufficientDataError("chi-square 2x2", total, max(minTotal, 1))
	}

	res := ChiSquareResult{DF: 1, P: 1, Observed: table, Total: total}
	if rows[0] == 0 || rows[1] == 0 || cols[0] == 0 || cols[1] == 0 {
		res.Degenerate = true
		return res, nil
	}

	n := float64(total)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			e := rows[i] * cols[j] / n
			res.Expected[i][j] = e
			d := float64(table[i][j]) - e
			res.Chi2 += d * d / e
		}
	}
	a, b := float64(table[0][0]), float64(table[0][1])
	c, d := float64(table[1][0]), float64(table[1][1])
	res.Phi = (a*d - b*c) / math.Sqrt(rows[0]*rows[1]*cols[0]*cols[1])
	res.P = numeric.ChiSquareUpperP(res.Chi2, 1)
	return res, nil
}

// ContingencyFromBits builds the 2x2 table of (subject bit, control bit) pairs.
// table[s][c] counts pairs with subject bit s and control bit c.
func ContingencyFromBits(subject, control []uint8) [2][2]int {
	var table [2][2]int
	n := min(len(subject), len(control))
	for i := 0; i < n; i++ {
		s, c := 0, 0
		if subject[i] != 0 {
			s = 1
		}
		if control[i] != 0 {
			c = 1
		}
		table[s][c]++
	}
	return table
}
