package fvad

import (
	"fmt"
	"time"
)

// Mode is the aggressiveness of the detector, from 0 (least likely to
// drop speech) to 3 (least likely to report non-speech as speech).
type Mode int

const (
	ModeQuality        = Mode(0)
	ModeLowBitrate     = Mode(1)
	ModeAggressive     = Mode(2)
	ModeVeryAggressive = Mode(3)

	FrameDurationDefault = 30 * time.Millisecond
)

func checkFrameDuration(frameDuration time.Duration) error {
	switch frameDuration {
	case 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond:
		return nil
	}
	return fmt.Errorf("the frame duration must be 10, 20 or 30 ms, but it is %v", frameDuration)
}
