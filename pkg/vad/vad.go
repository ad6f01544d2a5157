package vad

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xaionaro-go/denoise/pkg/audio"
)

// VAD classifies fixed-size frames of 16-bit mono audio as speech or not.
type VAD interface {
	io.Closer

	SampleRate() audio.SampleRate
	// FrameLength is the amount of samples IsSpeech expects.
	FrameLength() int
	IsSpeech(ctx context.Context, frame []int16) (bool, error)
}

func frameDuration(v VAD) time.Duration {
	return time.Duration(v.FrameLength()) * time.Second / time.Duration(v.SampleRate())
}

// FindNextVoice returns the position of the first speech frame in
// samples, as soon as speech was detected for at least minDuration in
// total. It returns -1 if that never happens. An incomplete frame at
// the end is ignored.
func FindNextVoice(
	ctx context.Context,
	v VAD,
	samples []int16,
	minDuration time.Duration,
) (time.Duration, error) {
	frameLength := v.FrameLength()
	chunkDuration := frameDuration(v)

	var foundVoiceFor time.Duration
	firstVoiceDetection := time.Duration(-1)
	for pos := 0; len(samples) >= frameLength; pos++ {
		frame := samples[:frameLength]
		samples = samples[frameLength:]
		isSpeech, err := v.IsSpeech(ctx, frame)
		if err != nil {
			return firstVoiceDetection, fmt.Errorf("unable to classify frame %d: %w", pos, err)
		}
		if !isSpeech {
			continue
		}
		foundVoiceFor += chunkDuration
		if firstVoiceDetection < 0 {
			firstVoiceDetection = chunkDuration * time.Duration(pos)
		}
		if foundVoiceFor >= minDuration {
			return firstVoiceDetection, nil
		}
	}
	return -1, nil
}

// SpeechRatio returns the share of complete frames classified as speech.
func SpeechRatio(
	ctx context.Context,
	v VAD,
	samples []int16,
) (float64, error) {
	frameLength := v.FrameLength()
	total := len(samples) / frameLength
	if total == 0 {
		return 0, nil
	}
	speech := 0
	for pos := 0; pos < total; pos++ {
		isSpeech, err := v.IsSpeech(ctx, samples[pos*frameLength:(pos+1)*frameLength])
		if err != nil {
			return 0, fmt.Errorf("unable to classify frame %d: %w", pos, err)
		}
		if isSpeech {
			speech++
		}
	}
	return float64(speech) / float64(total), nil
}
