// Package sequence computes descriptive statistics over ordered series:
// entropy, correlation, trends, turning points, spectra, runs and quantiles.
package sequence

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ShannonEntropy is the binary entropy (bits) of the fraction of 1-bits.
// Empty and single-symbol sequences return exactly 0.
func ShannonEntropy(bits []uint8) float64 {
	if len(bits) == 0 {
		return 0
	}
	ones := 0
	for _, b := range bits {
		if b != 0 {
			ones++
		}
	}
	return BinaryEntropy(float64(ones) / float64(len(bits)))
}

// BinaryEntropy is -p*log2(p) - (1-p)*log2(1-p), 0 at p in {0,1}.
func BinaryEntropy(p float64) float64 {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log2(p) - (1-p)*math.Log2(1-p)
}

// BitsToFloats widens a bit slice for the float-based routines.
func BitsToFloats(bits []uint8) []float64 {
	out := make([]float64, len(bits))
	for i, b := range bits {
		if b != 0 {
			out[i] = 1
		}
	}
	return out
}

// Mean is the arithmetic mean; 0 for an empty series.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance is the unbiased (n-1) sample variance; 0 below two points.
func Variance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	v := stat.Variance(x, nil)
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// StdDev is the sample standard deviation.
func StdDev(x []float64) float64 {
	return math.Sqrt(Variance(x))
}
