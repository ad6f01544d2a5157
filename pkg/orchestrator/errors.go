package orchestrator

import (
	"fmt"
)

// InputValidationError means the input file cannot be processed at all:
// it is missing, cannot be decoded or contains no audio.
type InputValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InputValidationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid input %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid input %q: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *InputValidationError) Unwrap() error {
	return e.Err
}
