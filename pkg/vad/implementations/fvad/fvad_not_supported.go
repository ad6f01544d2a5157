//go:build !fvad
// +build !fvad

package fvad

import (
	"context"
	"fmt"
	"time"

	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/vad"
)

type FVAD struct{}

var _ vad.VAD = (*FVAD)(nil)

func New(
	sampleRate audio.SampleRate,
	mode Mode,
	frameDuration time.Duration,
) (*FVAD, error) {
	if err := checkFrameDuration(frameDuration); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("built without tag 'fvad'")
}

func (*FVAD) Close() error {
	return nil
}

func (*FVAD) SampleRate() audio.SampleRate {
	return 0
}

func (*FVAD) FrameLength() int {
	return 0
}

func (*FVAD) IsSpeech(context.Context, []int16) (bool, error) {
	return false, fmt.Errorf("built without tag 'fvad'")
}
