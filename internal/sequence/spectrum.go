package sequence

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Window selects the taper applied before the transform.
type Window string

const (
	WindowNone Window = "none"
	WindowHann Window = "hann"
)

// Method selects single-pass or segment-averaged estimation.
type Method string

const (
	MethodDirect Method = "direct"
	MethodWelch  Method = "welch"
)

// minSpectrumPoints is the shortest series a spectrum is computed for.
const minSpectrumPoints = 4

// SpectrumOptions configures Periodogram.
type SpectrumOptions struct {
	Window        Window `json:"window" yaml:"window"`
	Method        Method `json:"method" yaml:"method"`
	SegmentLength int    `json:"segment_length" yaml:"segment_length"`
}

// Spectrum is a one-sided power estimate at frequencies k/n cycles per sample.
type Spectrum struct {
	Frequencies       []float64 `json:"frequencies"`
	Power             []float64 `json:"power"`
	DominantFrequency float64   `json:"dominant_frequency"`
	DominantPower     float64   `json:"dominant_power"`
	DominantPeriod    float64   `json:"dominant_period"`
	Method            Method    `json:"method"`
	Window            Window    `json:"window"`
	Segments          int       `json:"segments"`
}

// Empty reports whether no spectrum could be estimated.
func (s Spectrum) Empty() bool {
	return len(s.Power) == 0
}

// Periodogram removes the series mean, tapers, and returns power |X_k|^2 / sum(w^2).
// Welch mode averages 50%-overlapping segments of SegmentLength; a segment length
// outside [4, n] falls back to the direct method. The dominant component is the
// largest power at k >= 1. Fewer than 4 points yields an empty spectrum.
func Periodogram(series []float64, opts SpectrumOptions) Spectrum {
	n := len(series)
	if opts.Window == "" {
		opts.Window = WindowNone
	}
	if n < minSpectrumPoints {
		return Spectrum{Method: opts.Method, Window: opts.Window}
	}

	centered := make([]float64, n)
	mean := Mean(series)
	for i, v := range series {
		centered[i] = v - mean
	}

	method := opts.Method
	seg := opts.SegmentLength
	if method != MethodWelch || seg < minSpectrumPoints || seg > n {
		method = MethodDirect
		seg = n
	}

	fft := fourier.NewFFT(seg)
	weights, norm := taper(seg, opts.Window)

	step := seg / 2
	if step < 1 {
		step = 1
	}
	var power []float64
	segments := 0
	buf := make([]float64, seg)
	for start := 0; start+seg <= n; start += step {
		for i := 0; i < seg; i++ {
			buf[i] = centered[start+i] * weights[i]
		}
		coeffs := fft.Coefficients(nil, buf)
		if power == nil {
			power = make([]float64, len(coeffs))
		}
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			power[k] += a * a / norm
		}
		segments++
		if method == MethodDirect {
			break
		}
	}
	floats.Scale(1/float64(segments), power)

	freqs := make([]float64, len(power))
	for k := range freqs {
		freqs[k] = fft.Freq(k)
	}

	out := Spectrum{
		Frequencies: freqs,
		Power:       power,
		Method:      method,
		Window:      opts.Window,
		Segments:    segments,
	}
	k := 1 + floats.MaxIdx(power[1:])
	out.DominantFrequency = freqs[k]
	out.DominantPower = power[k]
	if freqs[k] > 0 {
		out.DominantPeriod = 1 / freqs[k]
	}
	return out
}

// taper returns the window weights and their sum of squares.
func taper(n int, w Window) ([]float64, float64) {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	if w == WindowHann {
		window.Hann(weights)
	}
	norm := floats.Dot(weights, weights)
	if norm == 0 || math.IsNaN(norm) {
		norm = 1
	}
	return weights, norm
}
