// Package denoise implements the enhancement of a single-channel
// waveform: peak normalization, splitting into chunks, and, for every
// chunk, spectral analysis, feature normalization, mask estimation,
// masking and resynthesis.
package denoise

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
	"github.com/xaionaro-go/denoise/pkg/spectral"
)

const (
	TruncateMinutesDefault = 10
)

type Config struct {
	// TruncateMinutes is the maximal duration of a chunk.
	TruncateMinutes float64
	SampleRate      audio.SampleRate
	Options         maskestimator.Options
}

func DefaultConfig() Config {
	return Config{
		TruncateMinutes: TruncateMinutesDefault,
		SampleRate:      audio.SampleRateDefault,
	}
}

func (cfg Config) ChunkLength() int {
	return ChunkLength(cfg.TruncateMinutes, cfg.SampleRate)
}

type Denoiser struct {
	Config    Config
	Stats     *lps.Stats
	Estimator maskestimator.MaskEstimator
	Window    []float64
}

func New(
	cfg Config,
	stats *lps.Stats,
	estimator maskestimator.MaskEstimator,
) (*Denoiser, error) {
	if stats == nil {
		return nil, fmt.Errorf("the global statistics are not set")
	}
	if estimator == nil {
		return nil, fmt.Errorf("the mask estimator is not set")
	}
	if !(cfg.TruncateMinutes > 0) {
		return nil, fmt.Errorf("the chunk duration must be positive, but it is %v minutes", cfg.TruncateMinutes)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.SampleRateDefault
	}
	if cfg.ChunkLength() < 1 {
		return nil, fmt.Errorf("a chunk of %v minutes is shorter than one sample", cfg.TruncateMinutes)
	}
	window := spectral.HammingWindow()
	if bins := len(window)/2 + 1; stats.Bins() != bins {
		return nil, fmt.Errorf("the global statistics have %d bins, but the analysis produces %d", stats.Bins(), bins)
	}
	return &Denoiser{
		Config:    cfg,
		Stats:     stats,
		Estimator: estimator,
		Window:    window,
	}, nil
}

// Denoise returns the enhanced version of waveform (samples in the
// signed 16-bit range). The result has the same length as the input.
// Chunks are processed one after another; the first failing chunk
// aborts the whole waveform.
func (d *Denoiser) Denoise(
	ctx context.Context,
	waveform []float64,
) (_ret []int16, _err error) {
	logger.Tracef(ctx, "Denoise")
	defer func() { logger.Tracef(ctx, "/Denoise: %v", _err) }()

	normalized := audio.PeakNormalize(waveform)
	chunks := Chunks(len(normalized), d.Config.ChunkLength())
	result := make([]float64, 0, len(normalized))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Infof(ctx, "processing segment %d/%d", chunk.Index+1, len(chunks))
		out, err := d.denoiseChunk(ctx, normalized[chunk.Start:chunk.End])
		if err != nil {
			return nil, fmt.Errorf("unable to process segment %d/%d: %w", chunk.Index+1, len(chunks), err)
		}
		result = append(result, out...)
	}
	return audio.Quantize(result), nil
}

func (d *Denoiser) denoiseChunk(
	ctx context.Context,
	samples []float64,
) (_ret []float64, _err error) {
	logger.Tracef(ctx, "denoiseChunk")
	defer func() { logger.Tracef(ctx, "/denoiseChunk: %v", _err) }()

	if len(samples) < len(d.Window)/2 {
		logger.Debugf(ctx, "the segment has only %d samples, keeping it as is", len(samples))
		return append([]float64(nil), samples...), nil
	}

	spec, err := spectral.Analyze(samples, d.Window)
	if err != nil {
		return nil, fmt.Errorf("unable to analyze: %w", err)
	}

	features, err := lps.Normalize(spec.LPS, d.Stats)
	if err != nil {
		return nil, fmt.Errorf("unable to normalize the features: %w", err)
	}

	mask, err := d.Estimator.EstimateMask(ctx, features, d.Config.Options)
	if err != nil {
		return nil, fmt.Errorf("unable to estimate the mask: %w", err)
	}
	if err := maskestimator.CheckMask(spec.LPS, mask); err != nil {
		return nil, fmt.Errorf("received an invalid mask: %w", err)
	}
	if belowFloor, aboveCeiling := maskestimator.CountClamped(mask); belowFloor+aboveCeiling > 0 {
		logger.Debugf(ctx, "clamping the mask: %d values below %v, %d values above %v",
			belowFloor, maskestimator.MaskFloor, aboveCeiling, maskestimator.MaskCeiling)
	}

	masked, err := ApplyMask(spec.LPS, mask)
	if err != nil {
		return nil, err
	}

	out, err := spec.Synthesize(masked)
	if err != nil {
		return nil, fmt.Errorf("unable to synthesize: %w", err)
	}
	return out, nil
}
