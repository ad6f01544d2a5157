package lps

import (
	"fmt"
)

// ShapeMismatchError reports that a frame or mask matrix does not have
// the dimensions the next stage expects. It always indicates a defect
// in the windowing code or at the model boundary and is never retried.
type ShapeMismatchError struct {
	What     string
	Expected Shape
	Actual   Shape

	// Row is the index of the first ragged row, or 0 if the mismatch
	// is about the overall dimensions.
	Row int
}

func (e *ShapeMismatchError) Error() string {
	if e.Expected.Rows == e.Actual.Rows && e.Expected.Cols != e.Actual.Cols && e.Row > 0 {
		return fmt.Sprintf("%s: row %d has %d columns, expected %d", e.What, e.Row, e.Actual.Cols, e.Expected.Cols)
	}
	return fmt.Sprintf("%s: shape mismatch: expected %dx%d, got %dx%d",
		e.What, e.Expected.Rows, e.Expected.Cols, e.Actual.Rows, e.Actual.Cols)
}

// CheckShape returns a ShapeMismatchError if m is not exactly of the
// expected shape (including every row).
func CheckShape(what string, m Matrix, expected Shape) error {
	if actual := m.Shape(); actual != expected {
		return &ShapeMismatchError{What: what, Expected: expected, Actual: actual}
	}
	return m.CheckRectangular(what)
}
