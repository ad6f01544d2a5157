package maskworker

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

type halfEstimator struct {
	lastOpts maskestimator.Options
}

func (*halfEstimator) Close() error { return nil }

func (e *halfEstimator) EstimateMask(_ context.Context, frames lps.Matrix, opts maskestimator.Options) (lps.Matrix, error) {
	e.lastOpts = opts
	shape := frames.Shape()
	mask := lps.NewMatrix(shape.Rows, shape.Cols)
	for _, row := range mask {
		for idx := range row {
			row[idx] = 0.5
		}
	}
	return mask, nil
}

type outOfMemoryError struct{}

func (outOfMemoryError) Error() string { return "out of device memory" }

type failingEstimator struct{}

func (failingEstimator) Close() error { return nil }

func (failingEstimator) EstimateMask(context.Context, lps.Matrix, maskestimator.Options) (lps.Matrix, error) {
	return nil, fmt.Errorf("unable to run the graph: %w", outOfMemoryError{})
}

type panickingEstimator struct{}

func (panickingEstimator) Close() error { return nil }

func (panickingEstimator) EstimateMask(context.Context, lps.Matrix, maskestimator.Options) (lps.Matrix, error) {
	panic("index out of range in the model")
}

func roundTrip(t *testing.T, estimator maskestimator.MaskEstimator, req *Request) *Response {
	var in, out bytes.Buffer
	require.NoError(t, msgpack.NewEncoder(&in).Encode(req))
	require.NoError(t, Serve(context.Background(), &in, &out, estimator))

	var resp Response
	require.NoError(t, msgpack.NewDecoder(&out).Decode(&resp))
	return &resp
}

func TestServe(t *testing.T) {
	frames := lps.NewMatrix(3, lps.NumBins)
	estimator := &halfEstimator{}
	resp := roundTrip(t, estimator, &Request{
		ID:                    "req-1",
		Frames:                ToFloat32(frames),
		UseAcceleratedCompute: true,
		DeviceID:              2,
	})

	require.Nil(t, resp.Error)
	require.Equal(t, "req-1", resp.ID)
	require.Equal(t, maskestimator.Options{UseAcceleratedCompute: true, DeviceID: 2}, estimator.lastOpts)
	mask := FromFloat32(resp.Mask)
	require.Equal(t, frames.Shape(), mask.Shape())
	require.Equal(t, 0.5, mask[2][lps.NumBins-1])
}

func TestServeEstimatorError(t *testing.T) {
	resp := roundTrip(t, failingEstimator{}, &Request{ID: "req-2", Frames: ToFloat32(lps.NewMatrix(1, 2))})
	require.Equal(t, "req-2", resp.ID)
	require.Nil(t, resp.Mask)
	require.NotNil(t, resp.Error)
	require.Equal(t, "maskworker.outOfMemoryError", resp.Error.Category)
	require.Equal(t, "unable to run the graph: out of device memory", resp.Error.Message)
	require.Contains(t, resp.Error.Trace, "goroutine")
}

func TestServeEstimatorPanic(t *testing.T) {
	resp := roundTrip(t, panickingEstimator{}, &Request{ID: "req-3", Frames: ToFloat32(lps.NewMatrix(1, 2))})
	require.NotNil(t, resp.Error)
	require.Equal(t, CategoryPanic, resp.Error.Category)
	require.Equal(t, "index out of range in the model", resp.Error.Message)
	require.Contains(t, resp.Error.Trace, "panickingEstimator")
}

func TestServeGarbageRequest(t *testing.T) {
	var out bytes.Buffer
	err := Serve(context.Background(), bytes.NewReader([]byte{0xc1}), &out, maskestimator.NewDummy())
	require.Error(t, err)

	var resp Response
	require.NoError(t, msgpack.NewDecoder(&out).Decode(&resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, CategoryProtocol, resp.Error.Category)
}

func TestErrorCategory(t *testing.T) {
	err := fmt.Errorf("a: %w", fmt.Errorf("b: %w", &lps.ShapeMismatchError{}))
	require.Equal(t, "*lps.ShapeMismatchError", ErrorCategory(err))
}
