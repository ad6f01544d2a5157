package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

// ModelIdentity is the name of the built-in model that keeps every
// time-frequency bin (a mask of ones).
const ModelIdentity = "identity"

// Params are the model-specific parameters a factory may need.
type Params struct {
	ModelPath         string
	SharedLibraryPath string
}

type Factory interface {
	NewMaskEstimator(ctx context.Context, params Params) (maskestimator.MaskEstimator, error)
}

type FactoryFunc func(ctx context.Context, params Params) (maskestimator.MaskEstimator, error)

func (fn FactoryFunc) NewMaskEstimator(ctx context.Context, params Params) (maskestimator.MaskEstimator, error) {
	return fn(ctx, params)
}

var (
	factoryRegistry       = map[string]Factory{}
	factoryRegistryLocker sync.Mutex
)

func init() {
	RegisterFactory(ModelIdentity, FactoryFunc(func(context.Context, Params) (maskestimator.MaskEstimator, error) {
		return maskestimator.NewDummy(), nil
	}))
}

func RegisterFactory(
	name string,
	factory Factory,
) {
	factoryRegistryLocker.Lock()
	defer factoryRegistryLocker.Unlock()
	if _, ok := factoryRegistry[name]; ok {
		panic(fmt.Errorf("there is already registered a mask estimator factory with name %q", name))
	}
	factoryRegistry[name] = factory
}

// Names returns the names of all registered models, sorted.
func Names() []string {
	factoryRegistryLocker.Lock()
	defer factoryRegistryLocker.Unlock()
	names := make([]string, 0, len(factoryRegistry))
	for name := range factoryRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New instantiates the model registered under name.
func New(
	ctx context.Context,
	name string,
	params Params,
) (maskestimator.MaskEstimator, error) {
	factoryRegistryLocker.Lock()
	factory, ok := factoryRegistry[name]
	factoryRegistryLocker.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown model %q, known models: %s", name, strings.Join(Names(), ", "))
	}
	estimator, err := factory.NewMaskEstimator(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize model %q: %w", name, err)
	}
	return estimator, nil
}
