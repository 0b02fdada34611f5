package sequence

import (
	"math"
	"testing"

	"qrnglab/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alternating(n int, first uint8) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = first ^ uint8(i%2)
	}
	return out
}

func TestShannonEntropy(t *testing.T) {
	assert.Equal(t, 0.0, ShannonEntropy(nil))
	assert.Equal(t, 0.0, ShannonEntropy([]uint8{0, 0, 0, 0, 0}))
	assert.Equal(t, 0.0, ShannonEntropy([]uint8{1, 1, 1}))
	assert.Equal(t, 1.0, ShannonEntropy(alternating(8, 1)))
	assert.Equal(t, 1.0, ShannonEntropy(alternating(1000, 0)))
	assert.InDelta(t, 0.811278, ShannonEntropy([]uint8{1, 0, 0, 0}), 1e-6)
}

func TestAutocorrelation(t *testing.T) {
	assert.Equal(t, 0.0, Autocorrelation([]float64{3, 3, 3, 3}, 1))
	assert.Equal(t, 0.0, Autocorrelation([]float64{1, 2}, 2))
	assert.Equal(t, 0.0, Autocorrelation([]float64{1, 2, 3}, -1))
	assert.InDelta(t, -0.75, Autocorrelation([]float64{1, -1, 1, -1}, 1), 1e-12)

	for lag := 1; lag <= 5; lag++ {
		r := Autocorrelation([]float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, lag)
		assert.False(t, math.IsNaN(r))
		assert.Equal(t, 0.0, r)
	}
}

func TestCrossCorrelationOfAlternatingStreams(t *testing.T) {
	subject := BitsToFloats([]uint8{1, 0, 1, 0, 1, 0, 1, 0})
	control := BitsToFloats([]uint8{0, 1, 0, 1, 0, 1, 0, 1})

	assert.InDelta(t, -1.0, CrossCorrelation(subject, control, 0), 1e-12)
	assert.InDelta(t, 1.0, CrossCorrelation(subject, control, 1), 1e-12)
}

func TestCrossCorrelationLagDirection(t *testing.T) {
	x := []float64{0, 1, 0, 0, 1, 1, 0, 1, 1, 0}
	y := append([]float64{9}, x...) // y[i+1] == x[i]

	assert.InDelta(t, 1.0, CrossCorrelation(x, y, 1), 1e-12)
	assert.InDelta(t, 1.0, CrossCorrelation(y, x, -1), 1e-12)
	assert.Equal(t, 0.0, CrossCorrelation([]float64{1, 1, 1}, []float64{1, 2, 3}, 0))
	assert.Equal(t, 0.0, CrossCorrelation(x, y, 20))
}

func TestBestLagFindsPeriod(t *testing.T) {
	series := make([]float64, 40)
	for i := range series {
		series[i] = math.Round(math.Sin(float64(i) * math.Pi / 2))
	}
	lag, r, ok := BestLag(series, 2, 6)
	require.True(t, ok)
	assert.Equal(t, 4, lag)
	assert.InDelta(t, 0.9, r, 1e-9)

	_, _, ok = BestLag(series, 5, 2)
	assert.False(t, ok)
}

func TestLinearTrend(t *testing.T) {
	tr := LinearTrend([]float64{1, 3, 5, 7})
	assert.InDelta(t, 2.0, tr.Slope, 1e-12)
	assert.InDelta(t, 1.0, tr.Intercept, 1e-12)
	assert.InDelta(t, 1.0, tr.R2, 1e-12)
	assert.Equal(t, 4, tr.N)

	flat := LinearTrend([]float64{2, 2, 2})
	assert.Equal(t, 0.0, flat.R2)
	assert.InDelta(t, 0.0, flat.Slope, 1e-12)

	single := LinearTrend([]float64{5})
	assert.True(t, single.Degenerate)
}

func TestSlopeTest(t *testing.T) {
	_, err := SlopeTest([]float64{0, 1}, []float64{1, 2})
	require.Error(t, err)
	assert.True(t, core.IsInsufficientData(err))

	res, err := SlopeTest([]float64{0, 1, 2, 3, 4}, []float64{1, 2, 2, 4, 5})
	require.NoError(t, err)
	assert.Greater(t, res.T, 0.0)
	assert.Equal(t, 3.0, res.DF)
	assert.Less(t, res.P, 0.05)

	perfect, err := SlopeTest([]float64{0, 1, 2}, []float64{0, 0, 0})
	require.NoError(t, err)
	assert.True(t, perfect.Degenerate)
	assert.Equal(t, 1.0, perfect.P)
}

func TestTurningPoints(t *testing.T) {
	tp := TurningPoints([]float64{1, 3, 2, 4, 1})
	assert.Equal(t, 2, tp.Maxima)
	assert.Equal(t, 1, tp.Minima)
	assert.Equal(t, 3, tp.Total)
	assert.Equal(t, 1.5, tp.Expected)
	assert.Equal(t, 1.5, tp.Excess)

	// plateaus are not strict extrema
	flat := TurningPoints([]float64{1, 2, 2, 1})
	assert.Equal(t, 0, flat.Total)
	assert.Equal(t, 1.0, flat.Expected)

	assert.Equal(t, 0.0, TurningPoints([]float64{1, 2}).Expected)
	assert.Equal(t, []int{1, 3}, Peaks([]float64{1, 3, 2, 4, 1}))
}

func cosine(n int, period float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 + math.Cos(2*math.Pi*float64(i)/period)
	}
	return out
}

func TestPeriodogramDirect(t *testing.T) {
	for _, w := range []Window{WindowNone, WindowHann} {
		ps := Periodogram(cosine(64, 8), SpectrumOptions{Window: w, Method: MethodDirect})
		require.False(t, ps.Empty())
		assert.Len(t, ps.Power, 33)
		assert.InDelta(t, 0.125, ps.DominantFrequency, 1e-12)
		assert.InDelta(t, 8.0, ps.DominantPeriod, 1e-9)
		assert.Equal(t, 1, ps.Segments)
		if w == WindowNone {
			assert.InDelta(t, 0.0, ps.Power[0], 1e-9, "mean is removed")
		}
	}
}

func TestPeriodogramWelch(t *testing.T) {
	ps := Periodogram(cosine(64, 8), SpectrumOptions{Window: WindowHann, Method: MethodWelch, SegmentLength: 16})
	assert.Equal(t, MethodWelch, ps.Method)
	assert.Equal(t, 7, ps.Segments)
	assert.Len(t, ps.Power, 9)
	assert.InDelta(t, 0.125, ps.DominantFrequency, 1e-12)

	fallback := Periodogram(cosine(32, 8), SpectrumOptions{Method: MethodWelch, SegmentLength: 100})
	assert.Equal(t, MethodDirect, fallback.Method)
	assert.Equal(t, 1, fallback.Segments)

	assert.True(t, Periodogram([]float64{1, 2, 3}, SpectrumOptions{}).Empty())
}

func TestRunsTest(t *testing.T) {
	same := RunsTest([]uint8{1, 1, 1, 1, 1})
	assert.Equal(t, 1.0, same.P)
	assert.Equal(t, 1, same.Runs)
	assert.Equal(t, 0, same.N2)

	alt := RunsTest(alternating(8, 1))
	assert.Equal(t, 8, alt.Runs)
	assert.Equal(t, 5.0, alt.Expected)
	assert.InDelta(t, 768.0/448.0, alt.Variance, 1e-12)
	assert.Less(t, alt.P, 0.05)

	clustered := RunsTest([]uint8{1, 1, 1, 1, 0, 0, 0, 0})
	assert.Equal(t, 2, clustered.Runs)
	assert.Less(t, clustered.Z, 0.0)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	assert.Equal(t, 25.0, Quantile(sorted, 0.5))
	assert.Equal(t, 10.0, Quantile(sorted, 0))
	assert.Equal(t, 40.0, Quantile(sorted, 1))
	assert.InDelta(t, 17.5, Quantile(sorted, 0.25), 1e-12)
	assert.Equal(t, 0.0, Quantile(nil, 0.5))

	q := Quartiles([]float64{40, 10, 30, 20})
	assert.Equal(t, 25.0, q.Median)
	assert.InDelta(t, 15.0, q.IQR, 1e-12)
	assert.Equal(t, 4, q.N)
}

func TestMeanVarianceGuards(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Variance([]float64{4}))
	assert.InDelta(t, 1.0, Variance([]float64{1, 2, 3}), 1e-12)
}
