package subprocess

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/iamcalledrob/circular"
)

// stderrTail keeps only the last bytes written to it.
type stderrTail struct {
	locker sync.Mutex
	buffer *circular.Buffer
	size   int
}

var _ io.Writer = (*stderrTail)(nil)

func newStderrTail(size int) *stderrTail {
	if size < 2 {
		size = 2
	}
	return &stderrTail{
		buffer: circular.NewBuffer(size),
		size:   size,
	}
}

func (t *stderrTail) Write(p []byte) (int, error) {
	t.locker.Lock()
	defer t.locker.Unlock()

	total := len(p)
	if limit := t.size - 1; len(p) > limit {
		p = p[len(p)-limit:]
	}

	scratch := make([]byte, len(p))
	for len(p) > 0 {
		w, err := t.buffer.Write(p)
		p = p[w:]
		if err == nil {
			continue
		}
		if !errors.Is(err, circular.ErrNoSpace) {
			return total - len(p), fmt.Errorf("unable to write to the circular buffer: %w", err)
		}
		dropped, err := t.buffer.Read(scratch[:len(p)])
		if err != nil && !errors.Is(err, io.EOF) {
			return total - len(p), fmt.Errorf("unable to drop old bytes from the circular buffer: %w", err)
		}
		if dropped == 0 {
			return total - len(p), fmt.Errorf("the circular buffer is full and empty at the same time")
		}
	}
	return total, nil
}

// String drains the buffer and returns what was there.
func (t *stderrTail) String() string {
	t.locker.Lock()
	defer t.locker.Unlock()

	var result []byte
	buf := make([]byte, t.size)
	for {
		n, err := t.buffer.Read(buf)
		result = append(result, buf[:n]...)
		if err != nil || n == 0 {
			break
		}
	}
	return string(result)
}
