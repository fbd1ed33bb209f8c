package decomp

import (
	"sync"
	"time"

	"github.com/seisview/seisview/pkg/tilewire"
)

// Task is the pending handle for one decompression request. A task resolves
// exactly once; Done is closed on resolution and Result never changes
// afterwards. Completion order is unrelated to submission order.
type Task struct {
	id               uint64
	payload          []byte
	kind             tilewire.Compression
	uncompressedSize int
	enqueuedAt       time.Time

	once    sync.Once
	done    chan struct{}
	data    []byte
	err     error
	elapsed time.Duration
}

// ID returns the task's monotonic id.
func (t *Task) ID() uint64 { return t.id }

// Done is closed when the task has resolved.
func (t *Task) Done() <-chan struct{} { return t.done }

// Result blocks until the task resolves and returns the decoded bytes or
// the terminal error.
func (t *Task) Result() ([]byte, error) {
	<-t.done
	return t.data, t.err
}

// Elapsed returns the execution time of a completed task, zero if the task
// never reached a worker.
func (t *Task) Elapsed() time.Duration {
	<-t.done
	return t.elapsed
}

// resolve records the terminal outcome. Reports whether this call was the
// first resolution; late worker completions after disposal lose the race
// and must not touch scheduler counters.
func (t *Task) resolve(data []byte, err error, elapsed time.Duration) bool {
	first := false
	t.once.Do(func() {
		t.data, t.err, t.elapsed = data, err, elapsed
		first = true
		close(t.done)
	})
	return first
}
