//go:build fvad
// +build fvad

package fvad

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/josharian/fvad"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/vad"
)

// FVAD is the WebRTC voice activity detector.
type FVAD struct {
	locker      sync.Mutex
	detector    *fvad.Detector
	sampleRate  audio.SampleRate
	frameLength int
}

var _ vad.VAD = (*FVAD)(nil)

func New(
	sampleRate audio.SampleRate,
	mode Mode,
	frameDuration time.Duration,
) (*FVAD, error) {
	if err := checkFrameDuration(frameDuration); err != nil {
		return nil, err
	}
	detector := fvad.NewDetector()
	if err := detector.SetSampleRate(int(sampleRate)); err != nil {
		return nil, fmt.Errorf("unable to set the sample rate %d: %w", sampleRate, err)
	}
	if err := detector.SetMode(int(mode)); err != nil {
		return nil, fmt.Errorf("unable to set the mode %d: %w", mode, err)
	}
	return &FVAD{
		detector:    detector,
		sampleRate:  sampleRate,
		frameLength: int(time.Duration(sampleRate) * frameDuration / time.Second),
	}, nil
}

func (v *FVAD) Close() error {
	v.locker.Lock()
	defer v.locker.Unlock()
	if v.detector == nil {
		return fmt.Errorf("double-close attempt")
	}
	v.detector = nil
	return nil
}

func (v *FVAD) SampleRate() audio.SampleRate {
	return v.sampleRate
}

func (v *FVAD) FrameLength() int {
	return v.frameLength
}

func (v *FVAD) IsSpeech(_ context.Context, frame []int16) (bool, error) {
	if len(frame) != v.frameLength {
		return false, fmt.Errorf("expected a frame of %d samples, received %d", v.frameLength, len(frame))
	}
	v.locker.Lock()
	defer v.locker.Unlock()
	if v.detector == nil {
		return false, fmt.Errorf("the detector is closed")
	}
	return v.detector.Process(frame)
}
