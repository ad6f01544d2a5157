// Package spectral implements the short-time Fourier analysis that
// turns a chunk of samples into log-power-spectrum frames, and the
// matching overlap-add synthesis that turns (masked) log-power frames
// back into samples using the phase of the original chunk.
//
// Frame geometry: the signal is zero-padded by one hop in front and by
// at least one hop at the end, so that every input sample is covered by
// two windows. For N samples and a window of length W (hop W/2) there
// are ceil(N/(W/2))+1 frames.
package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/brettbuddin/fourier"
	dspwindow "github.com/mjibson/go-dsp/window"
	"github.com/xaionaro-go/denoise/pkg/lps"
)

const (
	// WindowLength is the analysis window length in samples.
	WindowLength = 512

	// HopLength is the distance between the starts of two consecutive frames.
	HopLength = WindowLength / 2

	// PowerFloor bounds the power before taking the logarithm, so
	// digital silence produces a finite log-power value.
	PowerFloor = 1e-10

	// windowNormFloor guards the overlap-add normalization against
	// division by (almost) zero at the padded edges.
	windowNormFloor = 1e-12
)

// ErrTooShort is returned when the input has fewer samples than half
// of the window.
var ErrTooShort = errors.New("the input is shorter than half of the analysis window")

// HammingWindow returns a fresh symmetric Hamming window of WindowLength samples.
func HammingWindow() []float64 {
	return dspwindow.Hamming(WindowLength)
}

// FrameCount returns the amount of analysis frames Analyze produces for
// numSamples samples and a window of windowLength samples.
func FrameCount(numSamples, windowLength int) int {
	hop := windowLength / 2
	return (numSamples+hop-1)/hop + 1
}

// Spectrogram is the result of the analysis of one chunk. LPS is what
// the rest of the pipeline operates on; Phase is kept untouched so that
// Synthesize can reuse it.
type Spectrogram struct {
	LPS   lps.Matrix
	Phase [][]float64

	window     []float64
	numSamples int
}

// NumSamples returns the length of the analyzed signal.
func (s *Spectrogram) NumSamples() int {
	return s.numSamples
}

// Analyze computes log(|STFT|^2) of samples for the len(window)/2+1
// non-negative frequency bins.
func Analyze(samples []float64, window []float64) (*Spectrogram, error) {
	winLen := len(window)
	if winLen < 2 || winLen&(winLen-1) != 0 {
		return nil, fmt.Errorf("the window length must be a power of two: %d", winLen)
	}
	hop := winLen / 2
	if len(samples) < hop {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooShort, len(samples), hop)
	}

	numFrames := FrameCount(len(samples), winLen)
	padded := make([]float64, (numFrames-1)*hop+winLen)
	copy(padded[hop:], samples)

	bins := winLen/2 + 1
	s := &Spectrogram{
		LPS:        lps.NewMatrix(numFrames, bins),
		Phase:      make([][]float64, numFrames),
		window:     append([]float64(nil), window...),
		numSamples: len(samples),
	}
	phaseBacking := make([]float64, numFrames*bins)

	buf := make([]complex128, winLen)
	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		frame := padded[frameIdx*hop : frameIdx*hop+winLen]
		for idx, v := range frame {
			buf[idx] = complex(v*window[idx], 0)
		}
		if err := fourier.Forward(buf); err != nil {
			return nil, fmt.Errorf("unable to transform frame %d: %w", frameIdx, err)
		}

		row := s.LPS[frameIdx]
		phase := phaseBacking[frameIdx*bins : (frameIdx+1)*bins]
		for k := 0; k < bins; k++ {
			c := buf[k]
			power := real(c)*real(c) + imag(c)*imag(c)
			row[k] = math.Log(math.Max(power, PowerFloor))
			phase[k] = cmplx.Phase(c)
		}
		s.Phase[frameIdx] = phase
	}
	return s, nil
}

// Synthesize converts (masked) log-power frames back to samples, pairing
// them with the phase of the analyzed signal. The result has exactly as
// many samples as the analyzed signal.
func (s *Spectrogram) Synthesize(maskedLPS lps.Matrix) ([]float64, error) {
	if err := lps.CheckShape("synthesis input", maskedLPS, s.LPS.Shape()); err != nil {
		return nil, err
	}

	winLen := len(s.window)
	hop := winLen / 2
	bins := winLen/2 + 1
	numFrames := len(maskedLPS)
	paddedLen := (numFrames-1)*hop + winLen

	acc := make([]float64, paddedLen)
	norm := make([]float64, paddedLen)
	buf := make([]complex128, winLen)
	for frameIdx, row := range maskedLPS {
		phase := s.Phase[frameIdx]
		for k := 0; k < bins; k++ {
			buf[k] = cmplx.Rect(math.Exp(row[k]/2), phase[k])
		}
		for k := 1; k < winLen/2; k++ {
			buf[winLen-k] = cmplx.Conj(buf[k])
		}
		if err := inverse(buf); err != nil {
			return nil, fmt.Errorf("unable to inverse-transform frame %d: %w", frameIdx, err)
		}

		offset := frameIdx * hop
		for idx, w := range s.window {
			acc[offset+idx] += real(buf[idx]) * w
			norm[offset+idx] += w * w
		}
	}

	result := make([]float64, s.numSamples)
	for idx := range result {
		n := norm[hop+idx]
		if n > windowNormFloor {
			result[idx] = acc[hop+idx] / n
		}
	}
	return result, nil
}

// Synthesize re-analyzes reference to obtain its phase and resynthesizes
// maskedLPS with it. maskedLPS must have the shape Analyze(reference, window)
// produces.
func Synthesize(maskedLPS lps.Matrix, reference []float64, window []float64) ([]float64, error) {
	s, err := Analyze(reference, window)
	if err != nil {
		return nil, fmt.Errorf("unable to analyze the reference signal: %w", err)
	}
	return s.Synthesize(maskedLPS)
}

// inverse computes the inverse DFT in place as conj(DFT(conj(x)))/N.
func inverse(buf []complex128) error {
	for idx, c := range buf {
		buf[idx] = cmplx.Conj(c)
	}
	if err := fourier.Forward(buf); err != nil {
		return err
	}
	scale := 1 / float64(len(buf))
	for idx, c := range buf {
		buf[idx] = complex(real(c)*scale, -imag(c)*scale)
	}
	return nil
}
