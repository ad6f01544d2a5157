// Package maskworker defines the request/response protocol spoken
// between a pipeline and a short-lived mask worker process, and the
// worker side of it.
//
// The worker reads exactly one msgpack-encoded Request from its stdin,
// writes exactly one msgpack-encoded Response to its stdout and exits.
// Anything the worker wants to log goes to stderr.
package maskworker

import (
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

// SubcommandName is the first argument that switches the denoise
// binary into the worker mode.
const SubcommandName = "mask-worker"

type Request struct {
	ID                    string      `msgpack:"id"`
	Frames                [][]float32 `msgpack:"frames"`
	UseAcceleratedCompute bool        `msgpack:"use_accelerated_compute"`
	DeviceID              int         `msgpack:"device_id"`
}

func (r *Request) Options() maskestimator.Options {
	return maskestimator.Options{
		UseAcceleratedCompute: r.UseAcceleratedCompute,
		DeviceID:              r.DeviceID,
	}
}

type Response struct {
	ID    string       `msgpack:"id"`
	Mask  [][]float32  `msgpack:"mask,omitempty"`
	Error *RemoteError `msgpack:"error,omitempty"`
}

// RemoteError is an error that happened inside the worker.
type RemoteError struct {
	Category string `msgpack:"category"`
	Message  string `msgpack:"message"`
	Trace    string `msgpack:"trace"`
}

func (e *RemoteError) Error() string {
	return e.Category + ": " + e.Message
}

// ToFloat32 narrows a matrix for the wire.
func ToFloat32(m lps.Matrix) [][]float32 {
	result := make([][]float32, len(m))
	for i, row := range m {
		out := make([]float32, len(row))
		for j, v := range row {
			out[j] = float32(v)
		}
		result[i] = out
	}
	return result
}

// FromFloat32 widens a matrix received from the wire.
func FromFloat32(m [][]float32) lps.Matrix {
	result := make(lps.Matrix, len(m))
	for i, row := range m {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = float64(v)
		}
		result[i] = out
	}
	return result
}
