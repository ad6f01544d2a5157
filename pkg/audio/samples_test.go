package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeakNormalize(t *testing.T) {
	t.Run("scales to full scale", func(t *testing.T) {
		in := []float64{100, -200, 50}
		out := PeakNormalize(in)
		require.InDelta(t, -FullScale, out[1], 1e-9)
		require.InDelta(t, FullScale/2.0, out[0], 1e-9)
		require.InDelta(t, FullScale/4.0, out[2], 1e-9)
		require.Equal(t, []float64{100, -200, 50}, in, "the input must not be modified")
	})

	t.Run("silence", func(t *testing.T) {
		out := PeakNormalize([]float64{0, 0, 0})
		require.Equal(t, []float64{0, 0, 0}, out)
	})

	t.Run("empty", func(t *testing.T) {
		require.Empty(t, PeakNormalize(nil))
	})
}

func TestQuantize(t *testing.T) {
	out := Quantize([]float64{0.4, 0.5, -0.5, -1.6, 40000, -40000, math.NaN()})
	require.Equal(t, []int16{0, 1, -1, -2, math.MaxInt16, math.MinInt16, 0}, out)
}

func TestFromInts(t *testing.T) {
	require.Equal(t, []float64{1, -2}, FromInts([]int{1, -2}, 16))
	require.Equal(t, []float64{1, -2}, FromInts([]int{256, -512}, 24))
	require.Equal(t, []float64{256, -512}, FromInts([]int{1, -2}, 8))
}

func TestSamplesForMinutes(t *testing.T) {
	require.Equal(t, 9_600_000, SampleRateDefault.SamplesForMinutes(10))
	require.Equal(t, 8_000, SampleRateDefault.SamplesForMinutes(0.5/60))
}
