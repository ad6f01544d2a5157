// Package ffmpeg wraps the ffmpeg command line tool for the conversions
// the enhancement pipeline cannot do natively.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/denoise/pkg/audio"
)

const (
	PathDefault = "ffmpeg"

	outputTailLines = 20
)

// CommandRunner runs an external command and returns its combined output.
type CommandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ConversionError is returned when ffmpeg fails; Output is the tail
// of what ffmpeg printed.
type ConversionError struct {
	Args   []string
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("ffmpeg %s: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

type FFmpeg struct {
	Path   string
	Runner CommandRunner
}

type Option func(*FFmpeg)

func WithCommandRunner(runner CommandRunner) Option {
	return func(f *FFmpeg) {
		f.Runner = runner
	}
}

func New(path string, opts ...Option) *FFmpeg {
	if path == "" {
		path = PathDefault
	}
	f := &FFmpeg{
		Path:   path,
		Runner: execCommandRunner{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ToPCM16WAV converts any input ffmpeg understands into a 16-bit PCM
// WAV file at the pipeline sample rate, keeping the channel layout.
func (f *FFmpeg) ToPCM16WAV(ctx context.Context, src, dst string) error {
	return f.run(ctx,
		"-y", "-i", src,
		"-flags", "bitexact",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(int(audio.SampleRateDefault)),
		dst,
	)
}

// Convert re-encodes src into dst; the output container and codec are
// chosen by ffmpeg from the extension of dst.
func (f *FFmpeg) Convert(ctx context.Context, src, dst string) error {
	return f.run(ctx,
		"-y", "-i", src,
		"-flags", "bitexact",
		dst,
	)
}

func (f *FFmpeg) run(ctx context.Context, args ...string) (_err error) {
	logger.Debugf(ctx, "run: %s %s", f.Path, strings.Join(args, " "))
	defer func() { logger.Tracef(ctx, "/run: %v", _err) }()

	output, err := f.Runner.CombinedOutput(ctx, f.Path, args)
	if err != nil {
		return &ConversionError{
			Args:   args,
			Output: tailLines(string(output), outputTailLines),
			Err:    err,
		}
	}
	return nil
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
