package main

import (
	"context"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
	_ "github.com/xaionaro-go/denoise/pkg/maskestimator/implementations/onnx"
	"github.com/xaionaro-go/denoise/pkg/maskestimator/registry"
	"github.com/xaionaro-go/denoise/pkg/maskworker"
)

// brokenEstimator reports the model initialization failure through
// the protocol, so that the caller receives its category.
type brokenEstimator struct {
	err error
}

func (brokenEstimator) Close() error {
	return nil
}

func (e brokenEstimator) EstimateMask(context.Context, lps.Matrix, maskestimator.Options) (lps.Matrix, error) {
	return nil, e.err
}

// maskWorkerMain serves exactly one mask request on stdin/stdout.
// Logs go to stderr.
func maskWorkerMain(args []string) int {
	flags := pflag.NewFlagSet(maskworker.SubcommandName, pflag.ExitOnError)
	loggerLevel := logger.LevelWarning
	flags.Var(&loggerLevel, "log-level", "Log level")
	model := flags.String("model", registry.ModelIdentity, "mask estimation model")
	modelPath := flags.String("model-path", "", "path to the model file")
	onnxLib := flags.String("onnx-shared-library", "", "path to the ONNX Runtime shared library")
	flags.Parse(args)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	estimator, err := registry.New(ctx, *model, registry.Params{
		ModelPath:         *modelPath,
		SharedLibraryPath: *onnxLib,
	})
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		estimator = brokenEstimator{err: err}
	}
	defer func() {
		if err := estimator.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the model: %v", err)
		}
	}()

	if err := maskworker.Serve(ctx, os.Stdin, os.Stdout, estimator); err != nil {
		logger.Errorf(ctx, "%v", err)
		return 1
	}
	return 0
}
