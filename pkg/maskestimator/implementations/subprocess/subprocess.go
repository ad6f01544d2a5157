// Package subprocess implements a MaskEstimator that runs every
// estimation in a fresh worker process speaking the maskworker protocol.
//
// The worker is always killed and reaped before EstimateMask returns,
// so the resources held by the model (including accelerator memory)
// are released by the operating system regardless of how the call ended.
package subprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/denoise/pkg/lps"
	"github.com/xaionaro-go/denoise/pkg/maskestimator"
	"github.com/xaionaro-go/denoise/pkg/maskworker"
	"github.com/xaionaro-go/observability"
)

const (
	CategoryTimeout    = "timeout"
	CategoryWorkerExit = "worker_exit"

	StderrTailSizeDefault = 8 * 1024
	WaitDelayDefault      = 5 * time.Second
)

type Estimator struct {
	// Command is the worker executable followed by its arguments.
	Command []string
	// Env is appended to the environment of the current process.
	Env []string
	// Timeout bounds a single call; zero means no bound.
	Timeout        time.Duration
	StderrTailSize int
}

var _ maskestimator.MaskEstimator = (*Estimator)(nil)

type Option func(*Estimator)

func WithEnv(env ...string) Option {
	return func(e *Estimator) {
		e.Env = append(e.Env, env...)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(e *Estimator) {
		e.Timeout = timeout
	}
}

func WithStderrTailSize(size int) Option {
	return func(e *Estimator) {
		e.StderrTailSize = size
	}
}

func New(command []string, opts ...Option) (*Estimator, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("the worker command is not set")
	}
	e := &Estimator{
		Command:        command,
		StderrTailSize: StderrTailSizeDefault,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Timeout < 0 {
		return nil, fmt.Errorf("the timeout cannot be negative: %v", e.Timeout)
	}
	return e, nil
}

func (*Estimator) Close() error {
	return nil
}

func (e *Estimator) EstimateMask(
	ctx context.Context,
	frames lps.Matrix,
	opts maskestimator.Options,
) (_ret lps.Matrix, _err error) {
	req := &maskworker.Request{
		ID:                    uuid.NewString(),
		Frames:                maskworker.ToFloat32(frames),
		UseAcceleratedCompute: opts.UseAcceleratedCompute,
		DeviceID:              opts.DeviceID,
	}
	ctx = logger.CtxWithLogger(ctx, logger.FromCtx(ctx).WithField("mask_request_id", req.ID))
	logger.Tracef(ctx, "EstimateMask")
	defer func() { logger.Tracef(ctx, "/EstimateMask: %v", _err) }()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("not starting the worker: %w", err)
	}

	cmd := exec.Command(e.Command[0], e.Command[1:]...)
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.WaitDelay = WaitDelayDefault
	stderr := newStderrTail(e.StderrTailSize)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to open the stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to open the stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("unable to start the worker %q: %w", e.Command[0], err)
	}
	logger.Debugf(ctx, "started the worker, pid %d", cmd.Process.Pid)

	var (
		waited  bool
		waitErr error
	)
	wait := func() error {
		if !waited {
			waited = true
			waitErr = cmd.Wait()
		}
		return waitErr
	}
	defer func() {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Warnf(ctx, "unable to kill the worker: %v", err)
		}
		_ = wait()
		logger.Debugf(ctx, "the worker is reaped")
	}()

	var (
		watchCtx    context.Context
		watchCancel context.CancelFunc
	)
	if e.Timeout > 0 {
		watchCtx, watchCancel = context.WithTimeout(ctx, e.Timeout)
	} else {
		watchCtx, watchCancel = context.WithCancel(ctx)
	}
	defer watchCancel()
	finished := make(chan struct{})
	defer close(finished)
	observability.Go(ctx, func() {
		select {
		case <-finished:
		case <-watchCtx.Done():
			logger.Debugf(ctx, "killing the worker: %v", watchCtx.Err())
			_ = cmd.Process.Kill()
		}
	})

	writeResultCh := make(chan error, 1)
	wc := datacounter.NewWriterCounter(stdin)
	observability.Go(ctx, func() {
		err := msgpack.NewEncoder(wc).Encode(req)
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		logger.Tracef(ctx, "sent %d bytes to the worker: %v", wc.Count(), err)
		writeResultCh <- err
	})

	rc := datacounter.NewReaderCounter(stdout)
	var resp maskworker.Response
	decodeErr := msgpack.NewDecoder(rc).Decode(&resp)
	logger.Tracef(ctx, "received %d bytes from the worker: %v", rc.Count(), decodeErr)
	if decodeErr == nil {
		if _, err := io.Copy(io.Discard, stdout); err != nil {
			logger.Debugf(ctx, "unable to drain the worker stdout: %v", err)
		}
	}
	exitErr := wait()
	writeErr := <-writeResultCh

	if decodeErr != nil {
		if parentErr := ctx.Err(); parentErr != nil {
			return nil, fmt.Errorf("the mask estimation was interrupted: %w", parentErr)
		}
		if errors.Is(watchCtx.Err(), context.DeadlineExceeded) {
			return nil, &maskestimator.ModelInferenceError{
				Category:   CategoryTimeout,
				Message:    fmt.Sprintf("the worker did not respond within %v", e.Timeout),
				StderrTail: stderr.String(),
			}
		}
		result := multierror.Append(nil, fmt.Errorf("unable to decode the response: %w", decodeErr))
		if writeErr != nil {
			result = multierror.Append(result, fmt.Errorf("unable to send the request: %w", writeErr))
		}
		if exitErr != nil {
			result = multierror.Append(result, exitErr)
		}
		return nil, &maskestimator.ModelInferenceError{
			Category:   CategoryWorkerExit,
			Message:    fmt.Sprintf("the worker finished without a response: %v", result.ErrorOrNil()),
			StderrTail: stderr.String(),
		}
	}
	if exitErr != nil {
		logger.Warnf(ctx, "the worker responded, but exited with: %v", exitErr)
	}
	if writeErr != nil {
		logger.Debugf(ctx, "the worker responded before consuming the whole request: %v", writeErr)
	}

	if resp.Error != nil {
		return nil, &maskestimator.ModelInferenceError{
			Category:   resp.Error.Category,
			Message:    resp.Error.Message,
			Trace:      resp.Error.Trace,
			StderrTail: stderr.String(),
		}
	}
	if resp.ID != req.ID {
		return nil, &maskestimator.ModelInferenceError{
			Category:   maskworker.CategoryProtocol,
			Message:    fmt.Sprintf("the response is for request %q, while %q was expected", resp.ID, req.ID),
			StderrTail: stderr.String(),
		}
	}

	mask := maskworker.FromFloat32(resp.Mask)
	if err := maskestimator.CheckMask(frames, mask); err != nil {
		return nil, fmt.Errorf("the worker returned an invalid mask: %w", err)
	}
	return mask, nil
}
