package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/config"
	"github.com/xaionaro-go/denoise/pkg/denoise"
	"github.com/xaionaro-go/denoise/pkg/ffmpeg"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
	"github.com/xaionaro-go/denoise/pkg/maskestimator/implementations/subprocess"
	"github.com/xaionaro-go/denoise/pkg/maskworker"
	"github.com/xaionaro-go/denoise/pkg/orchestrator"
	"github.com/xaionaro-go/denoise/pkg/vad"
	"github.com/xaionaro-go/denoise/pkg/vad/implementations/fvad"
	"github.com/xaionaro-go/observability"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == maskworker.SubcommandName {
		os.Exit(maskWorkerMain(os.Args[2:]))
	}

	defaults := config.Default()
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to a YAML config file; flags override its values")
	wavDir := pflag.String("wav-dir", "", "directory containing WAV files to denoise (searched recursively)")
	scriptFile := pflag.StringP("script-file", "S", "", "file listing the audio files to denoise, one per line")
	outputDir := pflag.String("output-dir", "", "output directory for the denoised files (default: --wav-dir)")
	statsPath := pflag.String("stats", defaults.StatsPath, "path to the global mean/variance statistics (YAML or JSON)")
	useGPU := pflag.Bool("use-gpu", defaults.UseAcceleratedCompute, "run the model on a GPU")
	gpuID := pflag.Int("gpu-id", defaults.DeviceID, "the GPU to use if --use-gpu is set")
	truncateMinutes := pflag.Float64("truncate-minutes", defaults.TruncateMinutes, "maximal duration of a segment processed at once, in minutes")
	model := pflag.String("model", defaults.Model, "mask estimation model (onnx or identity)")
	modelPath := pflag.String("model-path", defaults.ModelPath, "path to the model file")
	onnxLib := pflag.String("onnx-shared-library", defaults.ONNXSharedLibrary, "path to the ONNX Runtime shared library")
	maskTimeout := pflag.Duration("mask-timeout", defaults.MaskTimeout, "kill the mask worker if it does not respond in time (0 is no limit)")
	ffmpegPath := pflag.String("ffmpeg-path", defaults.FFmpegPath, "path to the ffmpeg executable")
	jobs := pflag.Int("jobs", defaults.Jobs, "amount of files processed at the same time")
	vadReport := pflag.Bool("vad-report", defaults.VADReport, "log the share of speech frames before and after the enhancement")
	verbose := pflag.Bool("verbose", false, "log complete diagnostics of failures")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	cfg := &defaults
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		assertNoError(err)
	}
	flags := pflag.CommandLine
	overrideString(flags, "stats", &cfg.StatsPath, *statsPath)
	overrideBool(flags, "use-gpu", &cfg.UseAcceleratedCompute, *useGPU)
	overrideInt(flags, "gpu-id", &cfg.DeviceID, *gpuID)
	overrideFloat64(flags, "truncate-minutes", &cfg.TruncateMinutes, *truncateMinutes)
	overrideString(flags, "model", &cfg.Model, *model)
	overrideString(flags, "model-path", &cfg.ModelPath, *modelPath)
	overrideString(flags, "onnx-shared-library", &cfg.ONNXSharedLibrary, *onnxLib)
	overrideString(flags, "ffmpeg-path", &cfg.FFmpegPath, *ffmpegPath)
	overrideInt(flags, "jobs", &cfg.Jobs, *jobs)
	overrideBool(flags, "vad-report", &cfg.VADReport, *vadReport)
	if flags.Changed("mask-timeout") {
		cfg.MaskTimeout = *maskTimeout
	}
	assertNoError(cfg.Validate())

	if (*wavDir == "") == (*scriptFile == "") {
		logger.Fatalf(ctx, "exactly one of --wav-dir and -S must be set")
	}
	var inputs []string
	var err error
	if *wavDir != "" {
		inputs, err = orchestrator.ListDir(*wavDir)
		assertNoError(err)
		if *outputDir == "" {
			logger.Warnf(ctx, "--output-dir is not set, writing the results into %q", *wavDir)
			*outputDir = *wavDir
		}
	} else {
		inputs, err = orchestrator.LoadScriptFile(*scriptFile)
		assertNoError(err)
		if *outputDir == "" {
			logger.Fatalf(ctx, "--output-dir is required with -S")
		}
	}
	if len(inputs) == 0 {
		logger.Warnf(ctx, "nothing to process")
		return
	}

	stats, err := lps.LoadStats(cfg.StatsPath)
	assertNoError(err)

	workerCommand := cfg.MaskWorkerCommand
	if len(workerCommand) == 0 {
		workerCommand, err = selfWorkerCommand(cfg, loggerLevel)
		assertNoError(err)
	}
	estimator, err := subprocess.New(workerCommand, subprocess.WithTimeout(cfg.MaskTimeout))
	assertNoError(err)
	defer estimator.Close()

	denoiser, err := denoise.New(denoise.Config{
		TruncateMinutes: cfg.TruncateMinutes,
		SampleRate:      audio.SampleRateDefault,
		Options: maskestimator.Options{
			UseAcceleratedCompute: cfg.UseAcceleratedCompute,
			DeviceID:              cfg.DeviceID,
		},
	}, stats, estimator)
	assertNoError(err)

	o := orchestrator.New(orchestrator.Config{
		OutputDir: *outputDir,
		InputRoot: *wavDir,
		Jobs:      cfg.Jobs,
		Verbose:   *verbose,
	}, denoiser, ffmpeg.New(cfg.FFmpegPath))
	if cfg.VADReport {
		o.NewVAD = func() (vad.VAD, error) {
			return fvad.New(audio.SampleRateDefault, fvad.ModeAggressive, fvad.FrameDurationDefault)
		}
		v, err := o.NewVAD()
		if err != nil {
			logger.Fatalf(ctx, "--vad-report is set, but the voice activity detector is not available: %v", err)
		}
		assertNoError(v.Close())
	}

	report, err := o.ProcessBatch(ctx, inputs)
	failed := report.Failed()
	logger.Infof(ctx, "processed %d files, %d failed", len(report.Files), len(failed))
	if err != nil {
		belt.Flush(ctx)
		os.Exit(1)
	}
}

// selfWorkerCommand re-executes this binary in the mask worker mode.
func selfWorkerCommand(cfg *config.Config, level logger.Level) ([]string, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("unable to find the path to the current executable: %w", err)
	}
	return []string{
		executable, maskworker.SubcommandName,
		"--model", cfg.Model,
		"--model-path", cfg.ModelPath,
		"--onnx-shared-library", cfg.ONNXSharedLibrary,
		"--log-level", level.String(),
	}, nil
}

func overrideString(flags *pflag.FlagSet, name string, dst *string, value string) {
	if flags.Changed(name) {
		*dst = value
	}
}

func overrideBool(flags *pflag.FlagSet, name string, dst *bool, value bool) {
	if flags.Changed(name) {
		*dst = value
	}
}

func overrideInt(flags *pflag.FlagSet, name string, dst *int, value int) {
	if flags.Changed(name) {
		*dst = value
	}
}

func overrideFloat64(flags *pflag.FlagSet, name string, dst *float64, value float64) {
	if flags.Changed(name) {
		*dst = value
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
