package maskestimator

import (
	"context"
	"io"

	"github.com/xaionaro-go/denoise/pkg/lps"
)

// Options select where the model runs.
type Options struct {
	UseAcceleratedCompute bool
	// DeviceID is meaningful only if UseAcceleratedCompute is true.
	DeviceID int
}

// MaskEstimator maps normalized log-power-spectrum frames to a ratio
// mask of the same shape with values in (0, 1].
type MaskEstimator interface {
	io.Closer

	EstimateMask(ctx context.Context, frames lps.Matrix, opts Options) (lps.Matrix, error)
}
