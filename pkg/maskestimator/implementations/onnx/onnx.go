//go:build onnx
// +build onnx

package onnx

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	InputNameDefault  = "input"
	OutputNameDefault = "output"
)

var (
	environmentLocker sync.Mutex
	environmentUsers  int
)

// ONNX runs a mask estimation graph with ONNX Runtime. The graph takes
// a [1, T, 257] float32 tensor and produces a tensor of the same shape.
type ONNX struct {
	ModelPath  string
	InputName  string
	OutputName string

	closed bool
}

var _ maskestimator.MaskEstimator = (*ONNX)(nil)

func New(
	ctx context.Context,
	modelPath string,
	sharedLibraryPath string,
) (*ONNX, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("the path to the ONNX model is not set")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("unable to access the model file: %w", err)
	}

	environmentLocker.Lock()
	defer environmentLocker.Unlock()
	if environmentUsers == 0 {
		if sharedLibraryPath != "" {
			ort.SetSharedLibraryPath(sharedLibraryPath)
		}
		logger.Debugf(ctx, "initializing the ONNX Runtime environment")
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("unable to initialize the ONNX Runtime environment: %w", err)
		}
	}
	environmentUsers++

	return &ONNX{
		ModelPath:  modelPath,
		InputName:  InputNameDefault,
		OutputName: OutputNameDefault,
	}, nil
}

func (m *ONNX) Close() error {
	environmentLocker.Lock()
	defer environmentLocker.Unlock()
	if m.closed {
		return fmt.Errorf("double-close attempt")
	}
	m.closed = true
	environmentUsers--
	if environmentUsers > 0 {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("unable to destroy the ONNX Runtime environment: %w", err)
	}
	return nil
}

func (m *ONNX) EstimateMask(
	ctx context.Context,
	frames lps.Matrix,
	opts maskestimator.Options,
) (_ret lps.Matrix, _err error) {
	logger.Tracef(ctx, "EstimateMask")
	defer func() { logger.Tracef(ctx, "/EstimateMask: %v", _err) }()

	shape := frames.Shape()
	if shape.Rows == 0 {
		return lps.Matrix{}, nil
	}
	if err := frames.CheckRectangular("frames"); err != nil {
		return nil, err
	}

	data := make([]float32, 0, shape.Rows*shape.Cols)
	for _, row := range frames {
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	tensorShape := ort.NewShape(1, int64(shape.Rows), int64(shape.Cols))
	input, err := ort.NewTensor(tensorShape, data)
	if err != nil {
		return nil, fmt.Errorf("unable to create the input tensor: %w", err)
	}
	defer input.Destroy()
	output, err := ort.NewEmptyTensor[float32](tensorShape)
	if err != nil {
		return nil, fmt.Errorf("unable to create the output tensor: %w", err)
	}
	defer output.Destroy()

	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("unable to create session options: %w", err)
	}
	defer sessionOptions.Destroy()
	if opts.UseAcceleratedCompute {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("unable to create CUDA provider options: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := cudaOptions.Update(map[string]string{
			"device_id": strconv.Itoa(opts.DeviceID),
		}); err != nil {
			return nil, fmt.Errorf("unable to select CUDA device %d: %w", opts.DeviceID, err)
		}
		if err := sessionOptions.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return nil, fmt.Errorf("unable to enable the CUDA execution provider: %w", err)
		}
	}

	session, err := ort.NewAdvancedSession(
		m.ModelPath,
		[]string{m.InputName},
		[]string{m.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		sessionOptions,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create a session for %q: %w", m.ModelPath, err)
	}
	defer session.Destroy()

	logger.Debugf(ctx, "running the model on %d frames (accelerated:%v, device:%d)", shape.Rows, opts.UseAcceleratedCompute, opts.DeviceID)
	if err := session.Run(); err != nil {
		return nil, fmt.Errorf("unable to run the model: %w", err)
	}

	result := output.GetData()
	mask := lps.NewMatrix(shape.Rows, shape.Cols)
	for i, row := range mask {
		for j := range row {
			row[j] = float64(result[i*shape.Cols+j])
		}
	}
	return mask, nil
}
