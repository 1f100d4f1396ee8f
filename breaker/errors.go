package breaker

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is matched by errors.Is for any open-circuit rejection.
var ErrCircuitOpen = errors.New("breaker: circuit open")

// CircuitOpenError is returned when a call is rejected because the service's
// circuit is open. RetryAfter estimates the remaining cooldown; callers should
// not retry before it elapses.
type CircuitOpenError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("breaker: circuit open for %s (retry after %s)", e.Service, e.RetryAfter)
}

func (e *CircuitOpenError) Unwrap() error {
	return ErrCircuitOpen
}
