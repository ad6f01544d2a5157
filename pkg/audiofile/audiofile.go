// Package audiofile reads and writes the audio containers the
// enhancement pipeline handles natively: PCM WAV and Ogg Vorbis.
// Samples are exchanged as per-channel slices in the signed 16-bit range.
package audiofile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xaionaro-go/denoise/pkg/audio"
)

type Container string

const (
	ContainerUndefined = Container("")
	ContainerWAV       = Container("wav")
	ContainerOggVorbis = Container("ogg")
)

// ErrUnsupportedContainer is returned for files that cannot be decoded
// natively; such files are expected to be converted first.
var ErrUnsupportedContainer = errors.New("unsupported container")

// ContainerByExtension guesses the container by the file name.
func ContainerByExtension(path string) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return ContainerWAV
	case ".ogg", ".oga":
		return ContainerOggVorbis
	}
	return ContainerUndefined
}

type Format struct {
	Container  Container
	SampleRate audio.SampleRate
	// BitDepth is zero for containers of compressed audio.
	BitDepth int
	Channels audio.Channel
}

// IsPipelineNative reports whether audio in this format may be fed to
// the pipeline without resampling or requantization.
func (f Format) IsPipelineNative() bool {
	if f.SampleRate != audio.SampleRateDefault {
		return false
	}
	switch f.Container {
	case ContainerWAV:
		return f.BitDepth == audio.BitDepthDefault
	case ContainerOggVorbis:
		return true
	}
	return false
}

type Audio struct {
	Format Format
	// Channels contains one slice of samples per channel, all of the same length.
	Channels [][]float64
}

func (a *Audio) NumSamples() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Probe reads only the header of the file at path.
func Probe(path string) (_ret *Format, _err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ContainerByExtension(path) {
	case ContainerWAV:
		return probeWAV(f)
	case ContainerOggVorbis:
		return probeOggVorbis(f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedContainer, filepath.Ext(path))
}

// Read decodes the whole file at path.
func Read(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ContainerByExtension(path) {
	case ContainerWAV:
		return ReadWAV(f)
	case ContainerOggVorbis:
		return ReadOggVorbis(f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedContainer, filepath.Ext(path))
}
