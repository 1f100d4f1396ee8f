package breaker

import (
	"sync"
	"time"
)

// State represents the circuit state.
type State int

const (
	// StateClosed means calls flow normally and failures are counted.
	StateClosed State = iota
	// StateOpen means calls are rejected until the cooldown elapses.
	StateOpen
	// StateHalfOpen means a single probe call is testing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of one circuit.
type Snapshot struct {
	Service             string
	State               State
	ConsecutiveFailures int

	// LastFailureAt is nil until the first recorded failure and after Reset.
	LastFailureAt *time.Time

	// OpenedAt is nil unless the circuit is open or half-open.
	OpenedAt *time.Time

	// RetryAfter is the remaining cooldown when open, zero otherwise.
	RetryAfter time.Duration
}

// circuit is the per-service record. Each circuit has its own lock so
// activity on one service never blocks progress on another.
type circuit struct {
	mu sync.Mutex

	state               State
	consecutiveFailures int
	lastFailureAt       time.Time
	openedAt            time.Time

	// probeInFlight is set while the single half-open probe is outstanding.
	probeInFlight bool
}

// transition captures a state change observed under the circuit lock.
type transition struct {
	from, to State
}

func (c *circuit) setState(s State) transition {
	tr := transition{from: c.state, to: s}
	c.state = s
	if s != StateHalfOpen {
		c.probeInFlight = false
	}
	return tr
}

// allowLocked decides whether a call may proceed, consuming the half-open
// probe slot when it grants one. Returns the remaining cooldown when denied
// and any transition it performed (open -> half-open on cooldown expiry).
func (c *circuit) allowLocked(now time.Time, cooldown time.Duration) (ok bool, retryAfter time.Duration, tr *transition) {
	switch c.state {
	case StateClosed:
		return true, 0, nil

	case StateOpen:
		elapsed := now.Sub(c.openedAt)
		if elapsed < cooldown {
			return false, cooldown - elapsed, nil
		}
		t := c.setState(StateHalfOpen)
		c.probeInFlight = true
		return true, 0, &t

	case StateHalfOpen:
		if c.probeInFlight {
			return false, 0, nil
		}
		c.probeInFlight = true
		return true, 0, nil

	default:
		return true, 0, nil
	}
}
