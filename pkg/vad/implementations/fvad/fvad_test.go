//go:build fvad
// +build fvad

package fvad

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/vad"
)

func TestNewInvalidFrameDuration(t *testing.T) {
	_, err := New(audio.SampleRateDefault, ModeQuality, 25*time.Millisecond)
	require.Error(t, err)
}

func TestSilenceIsNotSpeech(t *testing.T) {
	v, err := New(audio.SampleRateDefault, ModeAggressive, FrameDurationDefault)
	require.NoError(t, err)
	defer v.Close()
	require.Equal(t, 480, v.FrameLength())

	ratio, err := vad.SpeechRatio(context.Background(), v, make([]int16, 16000))
	require.NoError(t, err)
	require.Zero(t, ratio)

	_, err = v.IsSpeech(context.Background(), make([]int16, 100))
	require.Error(t, err)
}
