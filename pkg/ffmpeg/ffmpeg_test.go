package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	name   string
	args   []string
	output []byte
	err    error
}

func (r *fakeRunner) CombinedOutput(_ context.Context, name string, args []string) ([]byte, error) {
	r.name = name
	r.args = args
	return r.output, r.err
}

func TestToPCM16WAV(t *testing.T) {
	runner := &fakeRunner{}
	f := New("", WithCommandRunner(runner))
	require.NoError(t, f.ToPCM16WAV(context.Background(), "in.mp3", "out.wav"))
	require.Equal(t, PathDefault, runner.name)
	require.Equal(t, []string{
		"-y", "-i", "in.mp3",
		"-flags", "bitexact",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"out.wav",
	}, runner.args)
}

func TestConvert(t *testing.T) {
	runner := &fakeRunner{}
	f := New("/opt/ffmpeg/bin/ffmpeg", WithCommandRunner(runner))
	require.NoError(t, f.Convert(context.Background(), "in.wav", "out.flac"))
	require.Equal(t, "/opt/ffmpeg/bin/ffmpeg", runner.name)
	require.Equal(t, "out.flac", runner.args[len(runner.args)-1])
}

func TestConversionError(t *testing.T) {
	var output strings.Builder
	for idx := 0; idx < 50; idx++ {
		fmt.Fprintf(&output, "line %d\n", idx)
	}
	exitErr := errors.New("exit status 1")
	runner := &fakeRunner{output: []byte(output.String()), err: exitErr}
	f := New("", WithCommandRunner(runner))

	err := f.ToPCM16WAV(context.Background(), "in.xyz", "out.wav")
	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr), err)
	require.ErrorIs(t, err, exitErr)
	require.Equal(t, outputTailLines, strings.Count(convErr.Output, "\n")+1)
	require.True(t, strings.HasSuffix(convErr.Output, "line 49"))
	require.NotContains(t, convErr.Output, "line 29\n")
}
