package audio

import (
	"math"
)

// PeakNormalize returns a copy of samples scaled so that the largest
// absolute sample reaches FullScale. A silent input is returned as
// an unscaled copy.
func PeakNormalize(samples []float64) []float64 {
	result := make([]float64, len(samples))
	var peak float64
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		copy(result, samples)
		return result
	}
	scale := FullScale / peak
	for idx, v := range samples {
		result[idx] = v * scale
	}
	return result
}

// Quantize converts samples in the 16-bit range to int16, rounding
// to the nearest integer and saturating at the int16 bounds. Halves are
// rounded away from zero; nothing is truncated toward zero.
func Quantize(samples []float64) []int16 {
	result := make([]int16, len(samples))
	for idx, v := range samples {
		result[idx] = quantizeOne(v)
	}
	return result
}

func quantizeOne(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(math.Round(v))
}

// FromInts converts integer PCM samples of the given bit depth
// into the signed 16-bit range.
func FromInts(samples []int, bitDepth int) []float64 {
	scale := math.Ldexp(1, BitDepthDefault-bitDepth)
	result := make([]float64, len(samples))
	for idx, v := range samples {
		result[idx] = float64(v) * scale
	}
	return result
}

// FromFloat32 converts floating point samples in [-1, 1] into the
// signed 16-bit range.
func FromFloat32(samples []float32) []float64 {
	result := make([]float64, len(samples))
	for idx, v := range samples {
		result[idx] = float64(v) * 32768
	}
	return result
}

// ToInts widens int16 samples, which is the sample representation
// expected by WAV encoders.
func ToInts(samples []int16) []int {
	result := make([]int, len(samples))
	for idx, v := range samples {
		result[idx] = int(v)
	}
	return result
}
