package planar

import (
	"fmt"
)

// Unplanarize is the inverse of Planarize: it interleaves equally
// long per-channel slices into one slice.
func Unplanarize[T any](planes [][]T) ([]T, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("no channels provided")
	}

	samplesPerChan := len(planes[0])
	for ch, plane := range planes {
		if len(plane) != samplesPerChan {
			return nil, fmt.Errorf("the lengths of channel 0 and channel %d are not equal: %d != %d", ch, samplesPerChan, len(plane))
		}
	}

	channels := len(planes)
	output := make([]T, samplesPerChan*channels)
	for ch, plane := range planes {
		for samplePos, v := range plane {
			output[samplePos*channels+ch] = v
		}
	}
	return output, nil
}
