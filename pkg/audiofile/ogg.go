package audiofile

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/audio/planar"
)

func probeOggVorbis(r io.Reader) (*Format, error) {
	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}
	return &Format{
		Container:  ContainerOggVorbis,
		SampleRate: audio.SampleRate(oggReader.SampleRate()),
		Channels:   audio.Channel(oggReader.Channels()),
	}, nil
}

// ReadOggVorbis decodes a whole Ogg Vorbis stream.
func ReadOggVorbis(r io.Reader) (*Audio, error) {
	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}
	format := Format{
		Container:  ContainerOggVorbis,
		SampleRate: audio.SampleRate(oggReader.SampleRate()),
		Channels:   audio.Channel(oggReader.Channels()),
	}

	if format.Channels < 1 {
		return nil, fmt.Errorf("invalid amount of channels: %d", format.Channels)
	}

	var interleaved []float32
	buf := make([]float32, 4096*int(format.Channels))
	for {
		n, err := oggReader.Read(buf)
		interleaved = append(interleaved, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to decode the vorbis stream: %w", err)
		}
	}

	planes, err := planar.Planarize(format.Channels, interleaved)
	if err != nil {
		return nil, fmt.Errorf("unable to split the channels: %w", err)
	}
	result := &Audio{
		Format:   format,
		Channels: make([][]float64, len(planes)),
	}
	for ch, plane := range planes {
		result.Channels[ch] = audio.FromFloat32(plane)
	}
	return result, nil
}
