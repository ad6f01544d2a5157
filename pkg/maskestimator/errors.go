package maskestimator

import (
	"fmt"
	"strings"
)

// ModelInferenceError is a failure that happened inside the model
// (usually in a worker process). Category is the kind of the original
// error as reported by the worker, Trace is its stack trace.
type ModelInferenceError struct {
	Category   string
	Message    string
	Trace      string
	StderrTail string
}

func (e *ModelInferenceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (in subprocess)", e.Category, e.Message)
	if e.Trace != "" {
		b.WriteString("\n")
		b.WriteString(e.Trace)
	}
	if e.StderrTail != "" {
		b.WriteString("\nworker stderr (tail):\n")
		b.WriteString(e.StderrTail)
	}
	return b.String()
}

// Summary returns the first line of the error, without diagnostics.
func (e *ModelInferenceError) Summary() string {
	return fmt.Sprintf("%s: %s (in subprocess)", e.Category, firstLine(e.Message))
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
