package denoise

import (
	"math"

	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

// ApplyMask applies mask to the log-power frames: out = lps + log(mask),
// with mask values bounded to [maskestimator.MaskFloor, maskestimator.MaskCeiling].
func ApplyMask(frames, mask lps.Matrix) (lps.Matrix, error) {
	if err := lps.CheckShape("mask", mask, frames.Shape()); err != nil {
		return nil, err
	}
	result := make(lps.Matrix, len(frames))
	for i, row := range frames {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = v + math.Log(maskestimator.ClampMaskValue(mask[i][j]))
		}
		result[i] = out
	}
	return result, nil
}
