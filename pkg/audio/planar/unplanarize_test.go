package planar

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func TestUnplanarize(t *testing.T) {
	planes := [][]int16{
		{0, 1, 2, 3},
		{10, 11, 12, 13},
	}
	r, err := Unplanarize(planes)
	require.NoError(t, err)
	require.Equal(t, []int16{0, 10, 1, 11, 2, 12, 3, 13}, r, spew.Sdump(planes))
}

func TestUnplanarizeMismatchedLengths(t *testing.T) {
	_, err := Unplanarize([][]int16{{1, 2}, {3}})
	require.Error(t, err)

	_, err = Unplanarize[int16](nil)
	require.Error(t, err)
}

func TestPlanarize(t *testing.T) {
	b := []float64{0, 10, 20, 1, 11, 21}
	planes, err := Planarize(3, b)
	require.NoError(t, err)
	require.Equal(t, [][]float64{{0, 1}, {10, 11}, {20, 21}}, planes, spew.Sdump(b))

	back, err := Unplanarize(planes)
	require.NoError(t, err)
	require.Equal(t, b, back)
}

func TestPlanarizeInvalid(t *testing.T) {
	_, err := Planarize(2, []int{1, 2, 3})
	require.Error(t, err)

	_, err = Planarize(0, []int{1, 2})
	require.Error(t, err)
}

func TestPlanarizeMono(t *testing.T) {
	planes, err := Planarize(1, []int{5, 6, 7})
	require.NoError(t, err)
	require.Equal(t, [][]int{{5, 6, 7}}, planes)
}
