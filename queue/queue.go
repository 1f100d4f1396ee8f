package queue

import (
	"context"
	"sync"
	"time"

	"github.com/storekit/backstop/schedule"
)

// Priority orders contention for concurrency slots. Higher values are
// promoted first; entries with equal priority are promoted FIFO.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParsePriority parses a priority name. Unknown names map to PriorityNormal.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Task is a unit of work admitted through the queue. It runs on the
// submitting caller's goroutine and receives the caller's context.
type Task func(ctx context.Context) error

// Totals are cumulative per-service counters.
type Totals struct {
	// Processed counts tasks that ran to completion (success or failure).
	Processed int64

	// Rejected counts admissions refused at the door (queue full or paused).
	Rejected int64

	// TimedOut counts pending entries that waited out their queue timeout.
	TimedOut int64
}

// entry is one pending call. Exactly one of admit/reject resolves it; the
// resolved flag (guarded by the queue lock) makes that resolution atomic
// against the timeout timer, clear, and caller cancellation.
type entry struct {
	id         string
	priority   Priority
	enqueuedAt time.Time
	seq        uint64

	admit    chan struct{} // closed on promotion
	reject   chan error    // buffered, receives the rejection
	timer    schedule.Handle
	resolved bool
}

// serviceQueue holds the admission state for one service. It has its own
// lock so saturation of one service never blocks another.
type serviceQueue struct {
	name string
	cfg  ServiceConfig
	mgr  *Manager

	mu      sync.Mutex
	pending []*entry
	active  int
	paused  bool
	totals  Totals
	nextSeq uint64

	// Completed-task accounting for wait estimation.
	completed     int64
	totalDuration time.Duration
}

// insertLocked places e after every entry of equal or higher priority,
// preserving FIFO order within a band. Already-pending entries never move.
func (q *serviceQueue) insertLocked(e *entry) {
	idx := len(q.pending)
	for i, other := range q.pending {
		if other.priority < e.priority {
			idx = i
			break
		}
	}
	q.pending = append(q.pending, nil)
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = e
}

func (q *serviceQueue) removeLocked(e *entry) {
	for i, other := range q.pending {
		if other.seq == e.seq {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// promoteLocked moves the highest-priority, oldest pending entry into an
// active slot, cancelling its timeout. Returns nil when nothing can move.
func (q *serviceQueue) promoteLocked() *entry {
	if q.paused || q.active >= q.cfg.MaxConcurrent || len(q.pending) == 0 {
		return nil
	}

	e := q.pending[0]
	q.pending = q.pending[1:]
	e.resolved = true
	e.timer.Cancel()
	q.active++
	close(e.admit)
	return e
}

// run executes the task in an already-held concurrency slot. The slot is
// released and the next entry promoted even if the task panics.
func (q *serviceQueue) run(ctx context.Context, task Task) (err error) {
	start := q.mgr.config.Clock()
	defer func() {
		d := q.mgr.config.Clock().Sub(start)
		q.complete(d, true)
		if hook := q.mgr.config.OnTaskDone; hook != nil {
			hook(q.name, d, err)
		}
	}()

	err = task(ctx)
	return err
}

// complete releases one active slot and promotes the next pending entry.
// processed is false when the slot was granted but the task never ran.
func (q *serviceQueue) complete(d time.Duration, processed bool) {
	q.mu.Lock()
	q.active--
	if processed {
		q.totals.Processed++
		q.completed++
		q.totalDuration += d
	}
	q.promoteLocked()
	q.mu.Unlock()
}

// release gives back a granted slot without counting a processed task.
func (q *serviceQueue) release() {
	q.complete(0, false)
}

// expire is the timeout-timer callback for a pending entry.
func (q *serviceQueue) expire(e *entry) {
	q.mu.Lock()
	if e.resolved {
		q.mu.Unlock()
		return
	}
	q.removeLocked(e)
	e.resolved = true
	q.totals.TimedOut++
	waited := q.mgr.config.Clock().Sub(e.enqueuedAt)
	q.mu.Unlock()

	e.reject <- &TimeoutError{Service: q.name, Waited: waited}
	if hook := q.mgr.config.OnReject; hook != nil {
		hook(q.name, "timeout")
	}
}

// withdraw removes a still-pending entry on caller cancellation. Returns
// false if the entry was already promoted or rejected.
func (q *serviceQueue) withdraw(e *entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e.resolved {
		return false
	}
	q.removeLocked(e)
	e.resolved = true
	e.timer.Cancel()
	return true
}
