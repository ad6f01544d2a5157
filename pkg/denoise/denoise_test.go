package denoise

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
)

type testEstimator struct {
	maskValue float64
	rowsCut   int
	failOn    int

	calls      atomic.Int64
	inProgress atomic.Int64
	maxInFly   atomic.Int64
}

var errTestModel = errors.New("the model is broken")

func (*testEstimator) Close() error { return nil }

func (e *testEstimator) EstimateMask(_ context.Context, frames lps.Matrix, _ maskestimator.Options) (lps.Matrix, error) {
	call := e.calls.Add(1)
	inFly := e.inProgress.Add(1)
	defer e.inProgress.Add(-1)
	if inFly > e.maxInFly.Load() {
		e.maxInFly.Store(inFly)
	}
	if e.failOn > 0 && int(call) == e.failOn {
		return nil, errTestModel
	}

	shape := frames.Shape()
	mask := lps.NewMatrix(shape.Rows-e.rowsCut, shape.Cols)
	for _, row := range mask {
		for idx := range row {
			row[idx] = e.maskValue
		}
	}
	return mask, nil
}

func testStats(t *testing.T) *lps.Stats {
	mean := make([]float64, lps.NumBins)
	variance := make([]float64, lps.NumBins)
	for idx := range variance {
		mean[idx] = 5
		variance[idx] = 2
	}
	stats, err := lps.NewStats(mean, variance)
	require.NoError(t, err)
	return stats
}

// testWaveform returns integer-valued samples whose peak is exactly
// audio.FullScale, so that peak normalization keeps them as is.
func testWaveform(numSamples int) []float64 {
	result := make([]float64, numSamples)
	for idx := range result {
		v := 0.6*math.Sin(float64(idx)*0.05) + 0.3*math.Sin(float64(idx)*0.31)
		result[idx] = math.Round(v * 20000)
	}
	result[numSamples/3] = audio.FullScale
	return result
}

func newTestDenoiser(t *testing.T, chunkLength int, estimator maskestimator.MaskEstimator) *Denoiser {
	cfg := DefaultConfig()
	cfg.TruncateMinutes = float64(chunkLength) / float64(audio.SampleRateDefault) / 60
	for cfg.ChunkLength() < chunkLength {
		cfg.TruncateMinutes = math.Nextafter(cfg.TruncateMinutes, math.Inf(1))
	}
	d, err := New(cfg, testStats(t), estimator)
	require.NoError(t, err)
	require.Equal(t, chunkLength, d.Config.ChunkLength())
	return d
}

func TestNew(t *testing.T) {
	stats := testStats(t)
	_, err := New(DefaultConfig(), nil, maskestimator.NewDummy())
	require.Error(t, err)
	_, err = New(DefaultConfig(), stats, nil)
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.TruncateMinutes = 0
	_, err = New(cfg, stats, maskestimator.NewDummy())
	require.Error(t, err)

	cfg.TruncateMinutes = math.NaN()
	_, err = New(cfg, stats, maskestimator.NewDummy())
	require.Error(t, err)

	d, err := New(DefaultConfig(), stats, maskestimator.NewDummy())
	require.NoError(t, err)
	require.Equal(t, 9_600_000, d.Config.ChunkLength())
}

func TestDenoiseIdentityMask(t *testing.T) {
	waveform := testWaveform(5000)
	estimator := &testEstimator{maskValue: 1}
	d := newTestDenoiser(t, 2000, estimator)

	out, err := d.Denoise(context.Background(), waveform)
	require.NoError(t, err)
	require.Len(t, out, len(waveform))
	for idx, v := range waveform {
		require.Equal(t, int16(v), out[idx], "sample %d", idx)
	}
	require.EqualValues(t, 3, estimator.calls.Load())
	require.EqualValues(t, 1, estimator.maxInFly.Load())
}

func TestDenoiseShortTailIsKept(t *testing.T) {
	const chunkLength = 1000
	waveform := testWaveform(2*chunkLength + 100)
	estimator := &testEstimator{maskValue: 0.25}
	d := newTestDenoiser(t, chunkLength, estimator)

	out, err := d.Denoise(context.Background(), waveform)
	require.NoError(t, err)
	require.Len(t, out, len(waveform))
	require.EqualValues(t, 2, estimator.calls.Load())

	for idx := 0; idx < 2*chunkLength; idx++ {
		require.InDelta(t, waveform[idx]/2, float64(out[idx]), 1, "sample %d", idx)
	}
	for idx := 2 * chunkLength; idx < len(waveform); idx++ {
		require.Equal(t, int16(waveform[idx]), out[idx], "sample %d", idx)
	}
}

func TestDenoisePeakNormalization(t *testing.T) {
	waveform := testWaveform(3000)
	quiet := make([]float64, len(waveform))
	for idx, v := range waveform {
		quiet[idx] = v / 4
	}
	d := newTestDenoiser(t, 10000, maskestimator.NewDummy())

	out, err := d.Denoise(context.Background(), quiet)
	require.NoError(t, err)
	for idx, v := range waveform {
		require.InDelta(t, v, float64(out[idx]), 1, "sample %d", idx)
	}
}

func TestDenoiseSilence(t *testing.T) {
	d := newTestDenoiser(t, 10000, maskestimator.NewDummy())
	out, err := d.Denoise(context.Background(), make([]float64, 4000))
	require.NoError(t, err)
	require.Equal(t, make([]int16, 4000), out)
}

func TestDenoiseTinyInput(t *testing.T) {
	estimator := &testEstimator{maskValue: 0.5}
	d := newTestDenoiser(t, 10000, estimator)
	waveform := []float64{1, -2, 3}

	out, err := d.Denoise(context.Background(), waveform)
	require.NoError(t, err)
	require.Equal(t, []int16{10922, -21845, 32767}, out)
	require.Zero(t, estimator.calls.Load())
}

func TestDenoiseAbortsOnModelError(t *testing.T) {
	estimator := &testEstimator{maskValue: 1, failOn: 2}
	d := newTestDenoiser(t, 1000, estimator)

	out, err := d.Denoise(context.Background(), testWaveform(5000))
	require.ErrorIs(t, err, errTestModel)
	require.Nil(t, out)
	require.EqualValues(t, 2, estimator.calls.Load())
}

func TestDenoiseRejectsWrongFrameCount(t *testing.T) {
	estimator := &testEstimator{maskValue: 1, rowsCut: 1}
	d := newTestDenoiser(t, 1000, estimator)

	_, err := d.Denoise(context.Background(), testWaveform(1500))
	var shapeErr *lps.ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr), err)
}

func TestDenoiseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDenoiser(t, 1000, maskestimator.NewDummy())
	_, err := d.Denoise(ctx, testWaveform(1500))
	require.ErrorIs(t, err, context.Canceled)
}

func TestApplyMask(t *testing.T) {
	frames := lps.Matrix{{0, 1}, {2, 3}}
	masked, err := ApplyMask(frames, lps.Matrix{{1, 0.5}, {0, 7}})
	require.NoError(t, err)
	require.Equal(t, 0.0, masked[0][0])
	require.InDelta(t, 1-math.Ln2, masked[0][1], 1e-12)
	require.InDelta(t, 2+math.Log(maskestimator.MaskFloor), masked[1][0], 1e-12)
	require.Equal(t, 3.0, masked[1][1])
	require.Equal(t, 1.0, frames[0][1])

	_, err = ApplyMask(frames, lps.Matrix{{1, 1}})
	require.Error(t, err)
}
