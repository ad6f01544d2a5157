package denoise

import (
	"github.com/xaionaro-go/denoise/pkg/audio"
)

// Chunk is a half-open range [Start, End) of samples of a waveform.
type Chunk struct {
	Index int
	Start int
	End   int
}

func (c Chunk) Len() int {
	return c.End - c.Start
}

// ChunkLength returns the amount of samples in a chunk of
// truncateMinutes minutes.
func ChunkLength(truncateMinutes float64, sampleRate audio.SampleRate) int {
	return sampleRate.SamplesForMinutes(truncateMinutes)
}

// Chunks splits numSamples samples into consecutive chunks of chunkLength
// samples; the last chunk may be shorter. It returns nil if there are
// no samples or chunkLength is not positive.
func Chunks(numSamples, chunkLength int) []Chunk {
	if numSamples <= 0 || chunkLength <= 0 {
		return nil
	}
	result := make([]Chunk, 0, (numSamples+chunkLength-1)/chunkLength)
	for start := 0; start < numSamples; start += chunkLength {
		end := start + chunkLength
		if end > numSamples {
			end = numSamples
		}
		result = append(result, Chunk{
			Index: len(result),
			Start: start,
			End:   end,
		})
	}
	return result
}
