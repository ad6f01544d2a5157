package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

type FileResult struct {
	Input  string
	Output string
	Err    error
}

type Report struct {
	Files []FileResult
}

func (r *Report) Failed() []FileResult {
	var result []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			result = append(result, f)
		}
	}
	return result
}

// Err aggregates the errors of all the failed files.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, f := range r.Failed() {
		result = multierror.Append(result, fmt.Errorf("%q: %w", f.Input, f.Err))
	}
	return result.ErrorOrNil()
}

// ProcessBatch processes every input; a failure of one file does not
// prevent the others from being processed. Up to Config.Jobs files
// are processed at the same time.
func (o *Orchestrator) ProcessBatch(
	ctx context.Context,
	inputs []string,
) (_ret *Report, _err error) {
	logger.Tracef(ctx, "ProcessBatch")
	defer func() { logger.Tracef(ctx, "/ProcessBatch: %v", _err) }()

	report := &Report{
		Files: make([]FileResult, len(inputs)),
	}
	var locker sync.Mutex
	done := 0

	var g errgroup.Group
	g.SetLimit(o.Config.Jobs)
	for idx, input := range inputs {
		g.Go(func() error {
			result := FileResult{Input: input}
			if err := ctx.Err(); err != nil {
				result.Err = err
			} else {
				result.Output, result.Err = o.ProcessFile(ctx, input)
			}

			locker.Lock()
			defer locker.Unlock()
			report.Files[idx] = result
			done++
			if result.Err != nil {
				logger.Errorf(ctx, "[%d/%d] unable to process %q: %s", done, len(inputs), input, o.describeError(result.Err))
			} else {
				logger.Infof(ctx, "[%d/%d] finished processing %q", done, len(inputs), input)
			}
			return nil
		})
	}
	_ = g.Wait()

	return report, report.Err()
}
