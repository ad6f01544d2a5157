package audiofile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/denoise/pkg/audio"
	"github.com/xaionaro-go/denoise/pkg/audio/planar"
)

const (
	wavFormatPCM        = 0x0001
	wavFormatExtensible = 0xFFFE

	// offset of the SubFormat GUID inside a WAVE_FORMAT_EXTENSIBLE fmt chunk
	wavExtensibleSubFormatOffset = 24
	wavExtensibleFmtSize         = wavExtensibleSubFormatOffset + 16
)

// the trailing 14 bytes shared by every KSDATAFORMAT_SUBTYPE_* GUID
var wavSubFormatGUIDSuffix = []byte{
	0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71,
}

// wavEncoding returns the format tag of the stream; for WAVE_FORMAT_EXTENSIBLE
// it is the tag embedded into the SubFormat GUID. The reader is rewound to the start.
func wavEncoding(r io.ReadSeeker) (_ret uint16, _err error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("unable to rewind: %w", err)
	}
	defer func() {
		if _, err := r.Seek(0, io.SeekStart); err != nil && _err == nil {
			_err = fmt.Errorf("unable to rewind: %w", err)
		}
	}()

	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return 0, fmt.Errorf("unable to parse the RIFF header: %w", err)
	}
	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("the fmt chunk is not found: %w", err)
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}
		fmtChunk := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk, fmtChunk); err != nil {
			return 0, fmt.Errorf("unable to read the fmt chunk: %w", err)
		}
		if len(fmtChunk) < 2 {
			return 0, fmt.Errorf("the fmt chunk is too short: %d bytes", len(fmtChunk))
		}
		tag := binary.LittleEndian.Uint16(fmtChunk)
		if tag != wavFormatExtensible {
			return tag, nil
		}
		if len(fmtChunk) < wavExtensibleFmtSize {
			return 0, fmt.Errorf("the extensible fmt chunk is too short: %d bytes", len(fmtChunk))
		}
		guid := fmtChunk[wavExtensibleSubFormatOffset:wavExtensibleFmtSize]
		if !bytes.Equal(guid[2:], wavSubFormatGUIDSuffix) {
			return tag, nil
		}
		return binary.LittleEndian.Uint16(guid), nil
	}
}

func probeWAV(r io.ReadSeeker) (*Format, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	return &Format{
		Container:  ContainerWAV,
		SampleRate: audio.SampleRate(decoder.SampleRate),
		BitDepth:   int(decoder.BitDepth),
		Channels:   audio.Channel(decoder.NumChans),
	}, nil
}

// ReadWAV decodes an integer PCM WAV stream, including WAVE_FORMAT_EXTENSIBLE
// streams with the PCM subformat.
func ReadWAV(r io.ReadSeeker) (*Audio, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		if decoder.WavAudioFormat != wavFormatExtensible {
			return nil, fmt.Errorf("%w: WAV audio format %d is not integer PCM", ErrUnsupportedContainer, decoder.WavAudioFormat)
		}
		encoding, err := wavEncoding(r)
		if err != nil {
			return nil, fmt.Errorf("unable to read the WAV subformat: %w", err)
		}
		if encoding != wavFormatPCM {
			return nil, fmt.Errorf("%w: WAV subformat %d is not integer PCM", ErrUnsupportedContainer, encoding)
		}
		decoder = wav.NewDecoder(r)
		if !decoder.IsValidFile() {
			return nil, fmt.Errorf("not a valid WAV file")
		}
	}
	format := Format{
		Container:  ContainerWAV,
		SampleRate: audio.SampleRate(decoder.SampleRate),
		BitDepth:   int(decoder.BitDepth),
		Channels:   audio.Channel(decoder.NumChans),
	}
	if format.Channels < 1 {
		return nil, fmt.Errorf("invalid amount of channels: %d", format.Channels)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("unable to read the PCM data: %w", err)
	}
	planes, err := planar.Planarize(format.Channels, buf.Data)
	if err != nil {
		return nil, fmt.Errorf("unable to split the channels: %w", err)
	}

	result := &Audio{
		Format:   format,
		Channels: make([][]float64, len(planes)),
	}
	for ch, plane := range planes {
		result.Channels[ch] = audio.FromInts(plane, format.BitDepth)
	}
	return result, nil
}

// WriteWAV encodes 16-bit PCM channels (all of the same length) as a WAV stream.
func WriteWAV(
	w io.WriteSeeker,
	sampleRate audio.SampleRate,
	channels [][]int16,
) error {
	planes := make([][]int, len(channels))
	for ch, samples := range channels {
		planes[ch] = audio.ToInts(samples)
	}
	data, err := planar.Unplanarize(planes)
	if err != nil {
		return fmt.Errorf("unable to merge the channels: %w", err)
	}

	encoder := wav.NewEncoder(w, int(sampleRate), audio.BitDepthDefault, len(channels), wavFormatPCM)
	if err := encoder.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: len(channels),
			SampleRate:  int(sampleRate),
		},
		Data:           data,
		SourceBitDepth: audio.BitDepthDefault,
	}); err != nil {
		return fmt.Errorf("unable to write the samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("unable to finalize the WAV stream: %w", err)
	}
	return nil
}

// WriteWAVFile is WriteWAV into a newly created file at path.
func WriteWAVFile(
	path string,
	sampleRate audio.SampleRate,
	channels [][]int16,
) (_err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = err
		}
	}()
	return WriteWAV(f, sampleRate, channels)
}
