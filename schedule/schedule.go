package schedule

import (
	"sort"
	"sync"
	"time"
)

// Handle is a cancellation handle for a scheduled callback.
type Handle interface {
	// Cancel prevents the callback from running.
	// Returns true if the callback was cancelled before it fired.
	Cancel() bool
}

// Scheduler schedules a callback to run after a delay.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Callbacks run at most once, on an unspecified goroutine.
// - Cancel after the callback fired is a no-op returning false.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Handle
}

// TimerScheduler schedules callbacks on OS timers.
type TimerScheduler struct{}

// NewTimerScheduler creates a scheduler backed by time.AfterFunc.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// Schedule runs fn after delay unless cancelled first.
func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) Handle {
	return &timerHandle{timer: time.AfterFunc(delay, fn)}
}

type timerHandle struct {
	timer *time.Timer
}

func (h *timerHandle) Cancel() bool {
	return h.timer.Stop()
}

// ManualScheduler is a deterministic scheduler for tests. Callbacks fire only
// when Advance moves the virtual clock past their deadline.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextSeq uint64
	pending []*manualEntry
}

type manualEntry struct {
	deadline  time.Duration
	seq       uint64
	fn        func()
	cancelled bool
	fired     bool
	sched     *ManualScheduler
}

// NewManualScheduler creates a scheduler whose clock only moves via Advance.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule registers fn to fire once the virtual clock advances by delay.
func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &manualEntry{
		deadline: s.now + delay,
		seq:      s.nextSeq,
		fn:       fn,
		sched:    s,
	}
	s.nextSeq++
	s.pending = append(s.pending, e)
	return e
}

// Advance moves the virtual clock forward and fires due callbacks in deadline
// order. Callbacks run synchronously on the caller's goroutine.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	now := s.now

	var due []*manualEntry
	remaining := s.pending[:0]
	for _, e := range s.pending {
		if !e.cancelled && e.deadline <= now {
			due = append(due, e)
		} else if !e.cancelled {
			remaining = append(remaining, e)
		}
	}
	s.pending = remaining
	for _, e := range due {
		e.fired = true
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].seq < due[j].seq
	})

	for _, e := range due {
		e.fn()
	}
}

// PendingCount returns the number of scheduled, uncancelled callbacks.
func (s *ManualScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.pending {
		if !e.cancelled {
			n++
		}
	}
	return n
}

func (e *manualEntry) Cancel() bool {
	e.sched.mu.Lock()
	defer e.sched.mu.Unlock()

	if e.fired || e.cancelled {
		return false
	}
	e.cancelled = true
	return true
}
