package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Ticks counts main-loop iterations. All deferred work is expressed in ticks so
// it can be driven by a wall-clock ticker in production and advanced manually
// in tests.
type Ticks int64

// Task is a handle to a scheduled one-shot or repeating callback.
type Task struct {
	id        uint64
	due       Ticks
	period    Ticks
	fn        func()
	cancelled atomic.Bool
}

func (t *Task) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

func (t *Task) Cancelled() bool {
	return t == nil || t.cancelled.Load()
}

// Scheduler is a cooperative queue of deferred and periodic callbacks. Every
// callback runs on the goroutine that calls Advance (or Run), which is the
// host's main thread.
type Scheduler struct {
	mu    sync.Mutex
	now   Ticks
	seq   uint64
	tasks taskHeap
	inbox []func()
}

func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the number of ticks processed so far.
func (s *Scheduler) Now() Ticks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// RunAfter runs fn once, delay ticks from now. A delay below one tick still
// waits for the next tick.
func (s *Scheduler) RunAfter(delay Ticks, fn func()) *Task {
	if delay < 1 {
		delay = 1
	}
	return s.schedule(delay, 0, fn)
}

// RunRepeating runs fn after initialDelay ticks and then every period ticks
// until the returned task is cancelled.
func (s *Scheduler) RunRepeating(initialDelay, period Ticks, fn func()) *Task {
	if initialDelay < 1 {
		initialDelay = 1
	}
	if period < 1 {
		period = 1
	}
	return s.schedule(initialDelay, period, fn)
}

func (s *Scheduler) schedule(delay, period Ticks, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &Task{id: s.seq, due: s.now + delay, period: period, fn: fn}
	heap.Push(&s.tasks, t)
	return t
}

// Do queues fn to run on the main loop at the start of the next tick. It is
// safe to call from any goroutine.
func (s *Scheduler) Do(fn func()) {
	s.mu.Lock()
	s.inbox = append(s.inbox, fn)
	s.mu.Unlock()
}

// Call queues fn like Do and blocks until it has run or ctx is done. It must
// not be called from a scheduled callback: the loop would wait on itself.
// When ctx ends first fn may still run later.
func (s *Scheduler) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.Do(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many tasks are waiting, cancelled ones included until
// they are reached.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Len() + len(s.inbox)
}

// Advance processes n ticks synchronously on the calling goroutine.
func (s *Scheduler) Advance(n Ticks) {
	for i := Ticks(0); i < n; i++ {
		s.tick()
	}
}

// Run drives the scheduler from a wall-clock ticker until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	s.now++
	now := s.now
	inbox := s.inbox
	s.inbox = nil
	var due []*Task
	for s.tasks.Len() > 0 && s.tasks[0].due <= now {
		t := heap.Pop(&s.tasks).(*Task)
		if t.Cancelled() {
			continue
		}
		due = append(due, t)
	}
	s.mu.Unlock()
	metricTicksTotal.Add(1)

	for _, fn := range inbox {
		runSafe(fn)
	}
	for _, t := range due {
		if t.Cancelled() {
			continue
		}
		runSafe(t.fn)
		if t.period > 0 && !t.Cancelled() {
			s.mu.Lock()
			t.due = now + t.period
			heap.Push(&s.tasks, t)
			s.mu.Unlock()
		}
	}
}

func runSafe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metricTaskPanicsTotal.Add(1)
			log.Error().Interface("panic", r).Msg("scheduled task panicked")
		}
	}()
	fn()
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due == h[j].due {
		return h[i].id < h[j].id
	}
	return h[i].due < h[j].due
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*Task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
