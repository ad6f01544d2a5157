//go:build !onnx
// +build !onnx

package onnx

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

type ONNX = maskestimator.Dummy

func New(
	ctx context.Context,
	modelPath string,
	sharedLibraryPath string,
) (*ONNX, error) {
	return nil, fmt.Errorf("built without tag 'onnx'")
}
