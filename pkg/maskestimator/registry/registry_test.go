package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	estimator, err := New(ctx, ModelIdentity, Params{})
	require.NoError(t, err)
	require.IsType(t, &maskestimator.Dummy{}, estimator)
	require.NoError(t, estimator.Close())

	_, err = New(ctx, "no-such-model", Params{})
	require.ErrorContains(t, err, ModelIdentity)
}

func TestRegisterFactoryDuplicate(t *testing.T) {
	require.Contains(t, Names(), ModelIdentity)
	require.Panics(t, func() {
		RegisterFactory(ModelIdentity, FactoryFunc(func(context.Context, Params) (maskestimator.MaskEstimator, error) {
			return nil, nil
		}))
	})
}
