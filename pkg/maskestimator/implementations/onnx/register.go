package onnx

import (
	"context"

	"github.com/xaionaro-go/denoise/pkg/maskestimator"
	"github.com/xaionaro-go/denoise/pkg/maskestimator/registry"
)

const ModelName = "onnx"

func init() {
	registry.RegisterFactory(ModelName, registry.FactoryFunc(func(
		ctx context.Context,
		params registry.Params,
	) (maskestimator.MaskEstimator, error) {
		m, err := New(ctx, params.ModelPath, params.SharedLibraryPath)
		if err != nil {
			return nil, err
		}
		return m, nil
	}))
}
