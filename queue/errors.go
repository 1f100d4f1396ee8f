package queue

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors, matched by errors.Is against the typed rejections below.
var (
	// ErrQueueFull indicates the pending list is at capacity.
	ErrQueueFull = errors.New("queue: at capacity")

	// ErrQueueTimeout indicates an entry waited out its queue timeout
	// without ever starting. Distinct from a timeout of the call itself.
	ErrQueueTimeout = errors.New("queue: wait timed out")

	// ErrQueuePaused indicates the queue is administratively paused.
	ErrQueuePaused = errors.New("queue: paused")

	// ErrQueueCleared indicates the entry was rejected by an administrative
	// clear of the pending list.
	ErrQueueCleared = errors.New("queue: cleared")
)

// FullError is returned when a service's pending list is at capacity.
// Callers should surface backpressure (e.g. HTTP 429) rather than retry.
type FullError struct {
	Service string
	Limit   int
}

func (e *FullError) Error() string {
	return fmt.Sprintf("queue: %s at capacity (%d pending)", e.Service, e.Limit)
}

func (e *FullError) Unwrap() error { return ErrQueueFull }

// TimeoutError is returned when a pending entry's timer fires before it is
// promoted.
type TimeoutError struct {
	Service string
	Waited  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("queue: %s entry timed out after %s in queue", e.Service, e.Waited)
}

func (e *TimeoutError) Unwrap() error { return ErrQueueTimeout }

// PausedError is returned when new work is submitted to a paused queue.
type PausedError struct {
	Service string
}

func (e *PausedError) Error() string {
	return fmt.Sprintf("queue: %s is paused", e.Service)
}

func (e *PausedError) Unwrap() error { return ErrQueuePaused }

// ClearedError is returned to every entry rejected by Clear.
type ClearedError struct {
	Service string
	Reason  string
}

func (e *ClearedError) Error() string {
	return fmt.Sprintf("queue: %s cleared: %s", e.Service, e.Reason)
}

func (e *ClearedError) Unwrap() error { return ErrQueueCleared }

// IsRejection reports whether err is a queue-layer rejection rather than a
// failure of the task itself.
func IsRejection(err error) bool {
	return errors.Is(err, ErrQueueFull) ||
		errors.Is(err, ErrQueueTimeout) ||
		errors.Is(err, ErrQueuePaused) ||
		errors.Is(err, ErrQueueCleared)
}
