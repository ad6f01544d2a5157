package planar

import (
	"fmt"

	"github.com/xaionaro-go/denoise/pkg/audio"
)

// Planarize splits interleaved samples (ch0 ch1 ... chN ch0 ch1 ...)
// into one slice per channel.
func Planarize[T any](channels audio.Channel, interleaved []T) ([][]T, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid amount of channels: %d", channels)
	}
	if len(interleaved)%int(channels) != 0 {
		return nil, fmt.Errorf("expected a message length that is a multiple of %d, but received %d", channels, len(interleaved))
	}

	samplesPerChan := len(interleaved) / int(channels)
	planes := make([][]T, channels)
	for ch := range planes {
		plane := make([]T, samplesPerChan)
		for samplePos := range plane {
			plane[samplePos] = interleaved[samplePos*int(channels)+ch]
		}
		planes[ch] = plane
	}
	return planes, nil
}
