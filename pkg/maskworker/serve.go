package maskworker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

const (
	CategoryPanic    = "panic"
	CategoryProtocol = "protocol"
)

// Serve handles one request: it decodes a Request from input, runs the
// estimator and encodes the Response into output. Failures of the
// estimator (including panics) are reported inside the Response; the
// returned error is only about being unable to talk the protocol.
func Serve(
	ctx context.Context,
	input io.Reader,
	output io.Writer,
	estimator maskestimator.MaskEstimator,
) (_err error) {
	logger.Tracef(ctx, "Serve")
	defer func() { logger.Tracef(ctx, "/Serve: %v", _err) }()

	var req Request
	if err := msgpack.NewDecoder(input).Decode(&req); err != nil {
		err = fmt.Errorf("unable to decode the request: %w", err)
		writeErr := writeResponse(output, &Response{Error: &RemoteError{
			Category: CategoryProtocol,
			Message:  err.Error(),
		}})
		return multierror.Append(err, writeErr).ErrorOrNil()
	}
	logger.Debugf(ctx, "received request %s: %d frames, accelerated:%v, device:%d",
		req.ID, len(req.Frames), req.UseAcceleratedCompute, req.DeviceID)

	resp := &Response{ID: req.ID}
	mask, remoteErr := estimate(ctx, estimator, &req)
	if remoteErr != nil {
		logger.Errorf(ctx, "unable to estimate the mask: %v", remoteErr)
		resp.Error = remoteErr
	} else {
		resp.Mask = ToFloat32(mask)
	}

	if err := writeResponse(output, resp); err != nil {
		return fmt.Errorf("unable to write the response: %w", err)
	}
	return nil
}

func estimate(
	ctx context.Context,
	estimator maskestimator.MaskEstimator,
	req *Request,
) (_ret lps.Matrix, _err *RemoteError) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		_ret = nil
		_err = &RemoteError{
			Category: CategoryPanic,
			Message:  fmt.Sprint(r),
			Trace:    string(debug.Stack()),
		}
	}()

	mask, err := estimator.EstimateMask(ctx, FromFloat32(req.Frames), req.Options())
	if err != nil {
		return nil, &RemoteError{
			Category: ErrorCategory(err),
			Message:  err.Error(),
			Trace:    string(debug.Stack()),
		}
	}
	return mask, nil
}

// ErrorCategory names the kind of err by the Go type of the innermost
// wrapped error, e.g. "*lps.ShapeMismatchError".
func ErrorCategory(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

func writeResponse(output io.Writer, resp *Response) error {
	return msgpack.NewEncoder(output).Encode(resp)
}
