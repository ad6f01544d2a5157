package onnx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/denoise/pkg/maskestimator/registry"
)

func TestRegistered(t *testing.T) {
	require.Contains(t, registry.Names(), ModelName)

	_, err := registry.New(context.Background(), ModelName, registry.Params{})
	require.Error(t, err)
}
