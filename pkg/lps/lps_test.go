package lps

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStats(t *testing.T, mean, variance float64) *Stats {
	m := make([]float64, NumBins)
	v := make([]float64, NumBins)
	for idx := range m {
		m[idx] = mean + float64(idx)
		v[idx] = variance
	}
	stats, err := NewStats(m, v)
	require.NoError(t, err)
	return stats
}

func TestNormalize(t *testing.T) {
	stats := testStats(t, 1, 4)
	frames := NewMatrix(3, NumBins)
	for i := range frames {
		for j := range frames[i] {
			frames[i][j] = float64(i*10 + j)
		}
	}

	out, err := Normalize(frames, stats)
	require.NoError(t, err)
	require.Equal(t, Shape{Rows: 3, Cols: NumBins}, out.Shape())
	for i := range out {
		for j := range out[i] {
			expected := (float64(i*10+j) - (1 + float64(j))) / 4
			require.InDelta(t, expected, out[i][j], 1e-12, "[%d][%d]", i, j)
		}
	}
	require.Equal(t, float64(0), frames[0][0], "the input must not be modified")
}

func TestNormalizeShapeMismatch(t *testing.T) {
	stats := testStats(t, 0, 1)

	_, err := Normalize(NewMatrix(2, NumBins-1), stats)
	var shapeErr *ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr), "%v", err)
	require.Equal(t, NumBins, shapeErr.Expected.Cols)

	ragged := NewMatrix(3, NumBins)
	ragged[2] = ragged[2][:10]
	_, err = Normalize(ragged, stats)
	require.True(t, errors.As(err, &shapeErr), "%v", err)
	require.Equal(t, 2, shapeErr.Row)
}

func TestNormalizeEmpty(t *testing.T) {
	out, err := Normalize(nil, testStats(t, 0, 1))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestNewStatsValidation(t *testing.T) {
	ones := make([]float64, NumBins)
	for idx := range ones {
		ones[idx] = 1
	}

	_, err := NewStats(ones, ones[:10])
	require.Error(t, err)

	_, err = NewStats(ones[:10], ones[:10])
	require.Error(t, err)

	zeros := make([]float64, NumBins)
	_, err = NewStats(ones, zeros)
	require.Error(t, err)

	stats, err := NewStats(ones, ones)
	require.NoError(t, err)
	mean := stats.Mean()
	mean[0] = 42
	require.Equal(t, float64(1), stats.Mean()[0], "Stats must not be mutable through accessors")
}

func TestLoadStatsFromReader(t *testing.T) {
	var b strings.Builder
	b.WriteString("global_mean: [")
	for idx := 0; idx < NumBins; idx++ {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString("0.5")
	}
	b.WriteString("]\nglobal_var: [")
	for idx := 0; idx < NumBins; idx++ {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString("2")
	}
	b.WriteString("]\n")

	stats, err := LoadStatsFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Equal(t, NumBins, stats.Bins())
	require.Equal(t, 0.5, stats.Mean()[NumBins-1])
	require.Equal(t, float64(2), stats.Variance()[0])

	_, err = LoadStatsFromReader(strings.NewReader("global_mean: [1]\nunknown: 1\n"))
	require.Error(t, err)
}
