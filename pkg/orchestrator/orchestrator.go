// Package orchestrator runs the enhancement over files: it decodes the
// input (converting it first if needed), enhances every channel and
// writes the result next to the other outputs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/audiofile"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
	"github.com/xaionaro-go/denoise/pkg/vad"
)

const (
	OutputSuffix = "_enhanced"

	// SpeechOnsetMinDuration is how much speech must be detected before
	// the first speech frame is reported as the onset.
	SpeechOnsetMinDuration = 90 * time.Millisecond
)

// Denoiser enhances one channel of 16 kHz audio.
type Denoiser interface {
	Denoise(ctx context.Context, waveform []float64) ([]int16, error)
}

// Converter converts between containers the pipeline cannot handle natively.
type Converter interface {
	ToPCM16WAV(ctx context.Context, src, dst string) error
	Convert(ctx context.Context, src, dst string) error
}

type Config struct {
	OutputDir string
	// InputRoot is the directory whose subdirectory structure is
	// mirrored in OutputDir; inputs outside of it go to OutputDir itself.
	InputRoot string
	Jobs      int
	// Verbose enables full diagnostics (remote traces) in the logs of failed files.
	Verbose bool
}

type Orchestrator struct {
	Config    Config
	Denoiser  Denoiser
	Converter Converter
	// NewVAD, if set, enables the speech activity report of every written file.
	NewVAD func() (vad.VAD, error)
}

func New(
	cfg Config,
	denoiser Denoiser,
	converter Converter,
) *Orchestrator {
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	return &Orchestrator{
		Config:    cfg,
		Denoiser:  denoiser,
		Converter: converter,
	}
}

// OutputPath returns where the enhanced version of inputPath is written:
// <OutputDir>/<subdirectory relative to InputRoot>/<name>_enhanced<ext>.
func (o *Orchestrator) OutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	name := strings.TrimSuffix(filepath.Base(inputPath), ext)

	var relDir string
	if o.Config.InputRoot != "" {
		rel, err := filepath.Rel(o.Config.InputRoot, filepath.Dir(inputPath))
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			relDir = rel
		}
	}
	return filepath.Join(o.Config.OutputDir, relDir, name+OutputSuffix+ext)
}

// ProcessFile enhances the file at inputPath and returns the path of the result.
func (o *Orchestrator) ProcessFile(
	ctx context.Context,
	inputPath string,
) (_ret string, _err error) {
	ctx = logger.CtxWithLogger(ctx, logger.FromCtx(ctx).WithField("file", inputPath))
	logger.Tracef(ctx, "ProcessFile")
	defer func() { logger.Tracef(ctx, "/ProcessFile: %v", _err) }()

	stat, err := os.Stat(inputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", &InputValidationError{Path: inputPath, Reason: "the file does not exist"}
	case err != nil:
		return "", &InputValidationError{Path: inputPath, Reason: "unable to access the file", Err: err}
	case stat.IsDir():
		return "", &InputValidationError{Path: inputPath, Reason: "it is a directory"}
	}

	input, err := o.load(ctx, inputPath)
	if err != nil {
		return "", err
	}
	if len(input.Channels) < 1 {
		return "", &InputValidationError{Path: inputPath, Reason: "there are no audio channels"}
	}
	if input.NumSamples() == 0 {
		return "", &InputValidationError{Path: inputPath, Reason: "there are no samples"}
	}

	output := make([][]int16, len(input.Channels))
	for ch, samples := range input.Channels {
		chCtx := ctx
		if len(input.Channels) > 1 {
			chCtx = logger.CtxWithLogger(ctx, logger.FromCtx(ctx).WithField("channel", ch))
		}
		logger.Infof(chCtx, "processing channel %d/%d", ch+1, len(input.Channels))
		output[ch], err = o.Denoiser.Denoise(chCtx, samples)
		if err != nil {
			return "", fmt.Errorf("unable to enhance channel %d: %w", ch, err)
		}
	}

	outputPath := o.OutputPath(inputPath)
	if err := o.write(ctx, outputPath, output); err != nil {
		return "", fmt.Errorf("unable to write %q: %w", outputPath, err)
	}
	logger.Infof(ctx, "wrote %q", outputPath)

	if o.NewVAD != nil {
		if _, err := o.reportSpeechActivity(ctx, input, output); err != nil {
			logger.Warnf(ctx, "unable to report the speech activity: %v", err)
		}
	}
	return outputPath, nil
}

func (o *Orchestrator) load(
	ctx context.Context,
	inputPath string,
) (*audiofile.Audio, error) {
	format, err := audiofile.Probe(inputPath)
	switch {
	case err == nil && format.IsPipelineNative():
		a, err := audiofile.Read(inputPath)
		switch {
		case err == nil:
			return a, nil
		case errors.Is(err, audiofile.ErrUnsupportedContainer):
			logger.Debugf(ctx, "the encoding is not supported natively (%v), converting", err)
		default:
			return nil, &InputValidationError{Path: inputPath, Reason: "unable to decode", Err: err}
		}
	case err == nil:
		if format.SampleRate != audio.SampleRateDefault {
			logger.Warnf(ctx, "the sample rate is %d Hz, converting to %d Hz", format.SampleRate, audio.SampleRateDefault)
		}
		if format.BitDepth != 0 && format.BitDepth != audio.BitDepthDefault {
			logger.Warnf(ctx, "the bit depth is %d, converting to %d", format.BitDepth, audio.BitDepthDefault)
		}
	case errors.Is(err, audiofile.ErrUnsupportedContainer):
		logger.Debugf(ctx, "the container is not supported natively, converting")
	default:
		return nil, &InputValidationError{Path: inputPath, Reason: "unable to read the header", Err: err}
	}

	if o.Converter == nil {
		return nil, &InputValidationError{Path: inputPath, Reason: "the format requires a conversion, but no converter is configured"}
	}
	tmpDir, err := os.MkdirTemp("", "denoise-input-")
	if err != nil {
		return nil, fmt.Errorf("unable to create a temporary directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	converted := filepath.Join(tmpDir, "input.wav")
	if err := o.Converter.ToPCM16WAV(ctx, inputPath, converted); err != nil {
		return nil, &InputValidationError{Path: inputPath, Reason: "unable to convert", Err: err}
	}
	a, err := audiofile.Read(converted)
	if err != nil {
		return nil, &InputValidationError{Path: inputPath, Reason: "unable to decode the converted audio", Err: err}
	}
	return a, nil
}

// write creates outputPath atomically: the data is written into a
// temporary file in the same directory and then renamed.
func (o *Orchestrator) write(
	ctx context.Context,
	outputPath string,
	channels [][]int16,
) (_err error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create the output directory: %w", err)
	}

	ext := filepath.Ext(outputPath)
	tmpFile, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(outputPath), ext)+".*"+ext)
	if err != nil {
		return fmt.Errorf("unable to create a temporary file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if _err != nil {
			os.Remove(tmpPath)
		}
	}()

	if audiofile.ContainerByExtension(outputPath) == audiofile.ContainerWAV {
		err = audiofile.WriteWAV(tmpFile, audio.SampleRateDefault, channels)
		if closeErr := tmpFile.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
	} else {
		tmpFile.Close()
		if err := o.encode(ctx, tmpPath, channels); err != nil {
			return err
		}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("unable to move the result into place: %w", err)
	}
	return nil
}

func (o *Orchestrator) encode(
	ctx context.Context,
	dst string,
	channels [][]int16,
) error {
	if o.Converter == nil {
		return fmt.Errorf("the output container requires a conversion, but no converter is configured")
	}
	tmpDir, err := os.MkdirTemp("", "denoise-output-")
	if err != nil {
		return fmt.Errorf("unable to create a temporary directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "output.wav")
	if err := audiofile.WriteWAVFile(wavPath, audio.SampleRateDefault, channels); err != nil {
		return err
	}
	if err := o.Converter.Convert(ctx, wavPath, dst); err != nil {
		return fmt.Errorf("unable to convert the result: %w", err)
	}
	return nil
}

// SpeechActivity compares the voice activity of a channel before and
// after the enhancement.
type SpeechActivity struct {
	Channel     int
	RatioBefore float64
	RatioAfter  float64
	// OnsetBefore and OnsetAfter are -1 if no speech was found.
	OnsetBefore time.Duration
	OnsetAfter  time.Duration
}

func (o *Orchestrator) reportSpeechActivity(
	ctx context.Context,
	input *audiofile.Audio,
	output [][]int16,
) (_ret []SpeechActivity, _err error) {
	v, err := o.NewVAD()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the voice activity detector: %w", err)
	}
	defer v.Close()

	for ch := range output {
		activity := SpeechActivity{Channel: ch}
		before := audio.Quantize(audio.PeakNormalize(input.Channels[ch]))
		for _, side := range []struct {
			samples []int16
			ratio   *float64
			onset   *time.Duration
		}{
			{before, &activity.RatioBefore, &activity.OnsetBefore},
			{output[ch], &activity.RatioAfter, &activity.OnsetAfter},
		} {
			if *side.ratio, err = vad.SpeechRatio(ctx, v, side.samples); err != nil {
				return nil, err
			}
			if *side.onset, err = vad.FindNextVoice(ctx, v, side.samples, SpeechOnsetMinDuration); err != nil {
				return nil, err
			}
		}
		logger.Infof(ctx, "channel %d: speech frames %.1f%% -> %.1f%%, speech onset %v -> %v",
			ch, activity.RatioBefore*100, activity.RatioAfter*100, activity.OnsetBefore, activity.OnsetAfter)
		_ret = append(_ret, activity)
	}
	return _ret, nil
}

// describeError returns what to log about a failed file.
func (o *Orchestrator) describeError(err error) string {
	if o.Config.Verbose {
		return err.Error()
	}
	var inferenceErr *maskestimator.ModelInferenceError
	if errors.As(err, &inferenceErr) {
		return inferenceErr.Summary()
	}
	return err.Error()
}
