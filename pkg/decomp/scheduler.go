package decomp

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/seisview/seisview/pkg/tilewire"
)

// Sentinel errors carried by task results.
var (
	// ErrClosed resolves every task rejected because the scheduler was
	// disposed, and every submission after disposal.
	ErrClosed = errors.New("decomp: scheduler closed")

	// ErrBackpressure resolves the oldest queued task evicted to make room
	// for a new submission.
	ErrBackpressure = errors.New("decomp: dropped under backpressure")

	// ErrWorkerFault resolves the task whose worker panicked. The worker is
	// retired for the rest of the session.
	ErrWorkerFault = errors.New("decomp: worker fault")
)

// backoffPressure is the queue pressure above which ShouldBackOff asks
// callers to throttle submission.
const backoffPressure = 0.8

// DefaultQueueSize bounds the task queue when Config.QueueSize is zero.
const DefaultQueueSize = 32

// Config sizes a Scheduler.
type Config struct {
	// Workers is the requested pool size. The effective size is capped at a
	// hardware-concurrency default; zero means use the default.
	Workers int `yaml:"workers"`

	// QueueSize bounds the not-yet-dispatched task queue.
	QueueSize int `yaml:"queue_size"`

	// Codecs overrides the codec for individual compression kinds. Kinds
	// not present keep their default codec. Tests use this to inject
	// blocking or faulting codecs.
	Codecs map[tilewire.Compression]Codec `yaml:"-"`
}

// Scheduler owns the worker pool and the bounded task queue. Create with
// NewScheduler, release with Close. All methods are safe for concurrent
// use. The queue, the pending map, and the counters are mutated only under
// the scheduler mutex, so submission and completion cannot interleave
// destructively.
type Scheduler struct {
	maxQueue int
	codecs   map[tilewire.Compression]Codec

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Task
	pending map[uint64]*Task
	closed  bool
	nextID  uint64

	total     uint64
	completed uint64
	dropped   uint64
	avgMs     float64
	live      int
	inflight  int
}

// NewScheduler creates the pool and starts its workers.
func NewScheduler(cfg Config) *Scheduler {
	hw := max(2, runtime.GOMAXPROCS(0))
	workers := cfg.Workers
	if workers <= 0 || workers > hw {
		workers = hw
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	codecs := defaultCodecs()
	for kind, c := range cfg.Codecs {
		codecs[kind] = c
	}

	s := &Scheduler{
		maxQueue: queueSize,
		codecs:   codecs,
		pending:  make(map[uint64]*Task),
		live:     workers,
	}
	s.cond = sync.NewCond(&s.mu)
	for range workers {
		go s.worker()
	}
	return s
}

// Submit queues one decompression request and returns its pending handle.
// It never blocks: if the queue is full, the oldest queued task is evicted
// and resolved with ErrBackpressure first. After Close the returned task is
// already resolved with ErrClosed.
func (s *Scheduler) Submit(payload []byte, kind tilewire.Compression, uncompressedSize int) *Task {
	t := &Task{
		payload:          payload,
		kind:             kind,
		uncompressedSize: uncompressedSize,
		enqueuedAt:       time.Now(),
		done:             make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		t.resolve(nil, ErrClosed, 0)
		return t
	}
	s.nextID++
	t.id = s.nextID
	s.total++

	var evicted *Task
	if len(s.queue) >= s.maxQueue {
		evicted = s.queue[0]
		s.queue = s.queue[1:]
		delete(s.pending, evicted.id)
		s.dropped++
	}
	s.queue = append(s.queue, t)
	s.pending[t.id] = t
	s.cond.Signal()
	s.mu.Unlock()

	if evicted != nil {
		evicted.resolve(nil, ErrBackpressure, 0)
	}
	return t
}

// QueuePressure returns queued/capacity in [0,1].
func (s *Scheduler) QueuePressure() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(len(s.queue)) / float64(s.maxQueue)
}

// ShouldBackOff reports whether callers should throttle submission until
// the queue drains.
func (s *Scheduler) ShouldBackOff() bool {
	return s.QueuePressure() > backoffPressure
}

// Close disposes the scheduler: every queued and in-flight task resolves
// with ErrClosed and all workers terminate. Idempotent; the scheduler is
// unusable afterwards.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	victims := make([]*Task, 0, len(s.pending))
	for _, t := range s.pending {
		victims = append(victims, t)
	}
	s.pending = make(map[uint64]*Task)
	s.queue = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, t := range victims {
		t.resolve(nil, ErrClosed, 0)
	}
	return nil
}

func (s *Scheduler) worker() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.inflight++
		s.mu.Unlock()

		start := time.Now()
		data, err := s.execute(t)
		elapsed := time.Since(start)
		faulted := errors.Is(err, ErrWorkerFault)

		// Resolving under the lock keeps the counters consistent with the
		// task outcome for anyone who observes Done and then reads Stats.
		s.mu.Lock()
		s.inflight--
		first := t.resolve(data, err, elapsed)
		if first {
			delete(s.pending, t.id)
			if !faulted {
				s.completed++
				n := float64(s.completed)
				ms := float64(elapsed) / float64(time.Millisecond)
				s.avgMs = (s.avgMs*(n-1) + ms) / n
			}
		}
		if faulted {
			s.live--
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// execute runs the codec for one task, converting a panic into an
// ErrWorkerFault result.
func (s *Scheduler) execute(t *Task) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("decomp: worker faulted", "task", t.id, "kind", t.kind.String(), "panic", r)
			data, err = nil, fmt.Errorf("%w: task %d: %v", ErrWorkerFault, t.id, r)
		}
	}()
	codec, ok := s.codecs[t.kind]
	if !ok {
		return nil, fmt.Errorf("decomp: no codec for %s", t.kind)
	}
	return codec.Decompress(t.payload, t.uncompressedSize)
}

// Stats is a snapshot of the scheduler counters.
type Stats struct {
	TotalTasks     uint64
	CompletedTasks uint64
	DroppedTasks   uint64
	AverageTimeMs  float64
	QueueLength    int
	ActiveWorkers  int
	InFlight       int
}

// Stats returns a snapshot of the counters. Safe for concurrent use.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TotalTasks:     s.total,
		CompletedTasks: s.completed,
		DroppedTasks:   s.dropped,
		AverageTimeMs:  s.avgMs,
		QueueLength:    len(s.queue),
		ActiveWorkers:  s.live,
		InFlight:       s.inflight,
	}
}
