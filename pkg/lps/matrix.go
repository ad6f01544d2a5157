// Package lps contains the log-power-spectrum frame matrix shared by
// the analysis, normalization and masking stages, together with the
// global mean/variance statistics used to normalize it.
package lps

// NumBins is the amount of non-negative frequency bins of a 512-sample
// analysis window. Every frame matrix consumed by a mask model has
// exactly this many columns.
const NumBins = 257

// Matrix is an ordered sequence of frames (rows), each holding one
// value per frequency bin (columns).
type Matrix [][]float64

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	backing := make([]float64, rows*cols)
	for idx := range m {
		m[idx] = backing[idx*cols : (idx+1)*cols : (idx+1)*cols]
	}
	return m
}

// Shape returns the amount of rows and columns. The column count is
// taken from the first row; use CheckRectangular to verify the rest.
func (m Matrix) Shape() Shape {
	if len(m) == 0 {
		return Shape{}
	}
	return Shape{Rows: len(m), Cols: len(m[0])}
}

// CheckRectangular returns a ShapeMismatchError if any row has a
// different length than the first one.
func (m Matrix) CheckRectangular(what string) error {
	shape := m.Shape()
	for idx, row := range m {
		if len(row) != shape.Cols {
			return &ShapeMismatchError{
				What:     what,
				Expected: shape,
				Actual:   Shape{Rows: len(m), Cols: len(row)},
				Row:      idx,
			}
		}
	}
	return nil
}

type Shape struct {
	Rows int
	Cols int
}
