package vad

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/denoise/pkg/audio"
)

// loudVAD treats a frame as speech if any sample exceeds the threshold.
type loudVAD struct {
	threshold int16
}

func (loudVAD) Close() error {
	return nil
}

func (loudVAD) SampleRate() audio.SampleRate {
	return audio.SampleRateDefault
}

func (loudVAD) FrameLength() int {
	return 160
}

func (v loudVAD) IsSpeech(_ context.Context, frame []int16) (bool, error) {
	for _, s := range frame {
		if s > v.threshold || s < -v.threshold {
			return true, nil
		}
	}
	return false, nil
}

// frames builds a signal of 10ms frames, loud where pattern has true.
func frames(pattern ...bool) []int16 {
	var result []int16
	for _, loud := range pattern {
		frame := make([]int16, 160)
		if loud {
			frame[80] = 10000
		}
		result = append(result, frame...)
	}
	return result
}

func TestSpeechRatio(t *testing.T) {
	ctx := context.Background()
	ratio, err := SpeechRatio(ctx, loudVAD{threshold: 100}, frames(true, false, false, true))
	require.NoError(t, err)
	require.Equal(t, 0.5, ratio)

	ratio, err = SpeechRatio(ctx, loudVAD{threshold: 100}, make([]int16, 100))
	require.NoError(t, err)
	require.Zero(t, ratio)
}

func TestFindNextVoice(t *testing.T) {
	ctx := context.Background()
	v := loudVAD{threshold: 100}
	signal := frames(false, false, true, false, true, true)

	pos, err := FindNextVoice(ctx, v, signal, 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 20*time.Millisecond, pos)

	pos, err = FindNextVoice(ctx, v, signal, 30*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 20*time.Millisecond, pos)

	pos, err = FindNextVoice(ctx, v, signal, 40*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, time.Duration(-1), pos)
}
