package audio

import (
	"math"
)

type SampleRate uint32

type Channel uint32

const (
	// SampleRateDefault is the only sample rate the enhancement pipeline
	// works with; everything else is converted upstream.
	SampleRateDefault = SampleRate(16_000)

	// BitDepthDefault is the bit depth of both the expected input and the
	// produced output.
	BitDepthDefault = 16

	// FullScale is the largest magnitude a sample may have after peak
	// normalization, so that quantization never overflows int16.
	FullScale = math.MaxInt16
)

// SamplesForMinutes returns the amount of samples in the given
// duration (in minutes), truncated towards zero.
func (r SampleRate) SamplesForMinutes(minutes float64) int {
	return int(minutes * float64(r) * 60)
}
