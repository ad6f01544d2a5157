package maskestimator

import (
	"fmt"
	"math"

	"github.com/xaionaro-go/denoise/pkg/lps"
)

const (
	// MaskFloor is the smallest mask value used in the log domain; smaller
	// values (including exact zeros) are raised to it before taking the log.
	MaskFloor = 1e-8

	// MaskCeiling is the largest mask value used in the log domain. A mask
	// is an attenuation gain, so values above it are lowered to it and
	// masking never amplifies a bin.
	MaskCeiling = 1.0
)

// CheckMask verifies that mask has exactly the shape of frames and that
// every value is a finite number.
func CheckMask(frames, mask lps.Matrix) error {
	if err := lps.CheckShape("mask", mask, frames.Shape()); err != nil {
		return err
	}
	for i, row := range mask {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("mask[%d][%d] is not a finite number: %v", i, j, v)
			}
		}
	}
	return nil
}

// ClampMaskValue bounds v to [MaskFloor, MaskCeiling].
func ClampMaskValue(v float64) float64 {
	switch {
	case v < MaskFloor:
		return MaskFloor
	case v > MaskCeiling:
		return MaskCeiling
	}
	return v
}

// CountClamped returns how many values of mask ClampMaskValue changes.
func CountClamped(mask lps.Matrix) (belowFloor, aboveCeiling int) {
	for _, row := range mask {
		for _, v := range row {
			switch {
			case v < MaskFloor:
				belowFloor++
			case v > MaskCeiling:
				aboveCeiling++
			}
		}
	}
	return
}
