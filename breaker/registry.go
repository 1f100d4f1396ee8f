package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storekit/backstop/alert"
)

// Config configures a Registry.
type Config struct {
	// FailureThreshold is the run of consecutive failures that opens a circuit.
	// Default: 5
	FailureThreshold int

	// Cooldown is how long an open circuit rejects calls before admitting a
	// recovery probe.
	// Default: 30 seconds
	Cooldown time.Duration

	// Dispatcher receives one alert per circuit opening. Optional; delivery
	// failure never affects state transitions.
	Dispatcher alert.Dispatcher

	// Logger records state transitions. Default: no-op.
	Logger *zap.Logger

	// Clock supplies timestamps, injectable for tests.
	// Default: time.Now
	Clock func() time.Time

	// OnStateChange is called after every state transition, with the
	// circuit's lock held. It must not call back into the registry.
	OnStateChange func(service string, from, to State)
}

// Registry tracks one circuit per external service. Circuits are created
// lazily with the registry's defaults; unknown service names are valid input
// everywhere and simply materialize a closed circuit.
type Registry struct {
	mu       sync.RWMutex
	circuits map[string]*circuit
	config   Config
}

// NewRegistry creates a registry with the given configuration.
func NewRegistry(config Config) *Registry {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Registry{
		circuits: make(map[string]*circuit),
		config:   config,
	}
}

// circuit returns the service's record, creating it on first reference.
func (r *Registry) circuit(service string) *circuit {
	r.mu.RLock()
	c, ok := r.circuits[service]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it.
	if c, ok = r.circuits[service]; ok {
		return c
	}
	c = &circuit{state: StateClosed}
	r.circuits[service] = c
	return c
}

// Allow reports whether a call to service may proceed. It returns nil when
// the circuit is closed, when the cooldown has elapsed (moving the circuit to
// half-open and consuming the single probe slot), or when the probe slot is
// free. Otherwise it returns a *CircuitOpenError carrying the remaining
// cooldown.
func (r *Registry) Allow(service string) error {
	c := r.circuit(service)

	c.mu.Lock()
	ok, retryAfter, tr := c.allowLocked(r.config.Clock(), r.config.Cooldown)
	if tr != nil {
		r.notifyLocked(service, *tr)
	}
	c.mu.Unlock()

	if ok {
		return nil
	}
	return &CircuitOpenError{Service: service, RetryAfter: retryAfter}
}

// CanProceed is the boolean form of Allow. A true result in half-open
// consumes the probe slot, so the caller is expected to attempt the call and
// report its outcome.
func (r *Registry) CanProceed(service string) bool {
	return r.Allow(service) == nil
}

// ReleaseProbe frees the half-open probe slot when a call admitted by Allow
// never actually ran (e.g. it was rejected by the queue), so the gate cannot
// wedge waiting for an outcome that will never arrive. No-op in other states.
func (r *Registry) ReleaseProbe(service string) {
	c := r.circuit(service)

	c.mu.Lock()
	if c.state == StateHalfOpen {
		c.probeInFlight = false
	}
	c.mu.Unlock()
}

// RecordFailure counts a failed call. Reaching the failure threshold in the
// closed state opens the circuit and dispatches one alert; a failed half-open
// probe reopens the circuit and restarts the cooldown without alerting again.
func (r *Registry) RecordFailure(ctx context.Context, service string, cause error) {
	c := r.circuit(service)
	now := r.config.Clock()

	var opened bool
	c.mu.Lock()
	c.consecutiveFailures++
	c.lastFailureAt = now
	failures := c.consecutiveFailures

	switch c.state {
	case StateClosed:
		if c.consecutiveFailures >= r.config.FailureThreshold {
			c.openedAt = now
			r.notifyLocked(service, c.setState(StateOpen))
			opened = true
		}
	case StateHalfOpen:
		// Failed probe: back to open, cooldown restarts.
		c.openedAt = now
		r.notifyLocked(service, c.setState(StateOpen))
	}
	c.mu.Unlock()

	if opened {
		r.config.Logger.Error("circuit opened",
			zap.String("service", service),
			zap.Int("consecutive_failures", failures),
			zap.NamedError("cause", cause),
		)
		r.dispatchAlert(ctx, service, alert.Alert{
			Type:     alert.TypeForService(service),
			Severity: alert.SeverityCritical,
			Message:  fmt.Sprintf("circuit opened for %s after %d consecutive failures", service, failures),
			Metadata: map[string]any{
				"service":              service,
				"consecutive_failures": failures,
				"cause":                errString(cause),
			},
		})
	}
}

// RecordSuccess counts a successful call. In the closed state it clears the
// failure run; a successful half-open probe closes the circuit.
func (r *Registry) RecordSuccess(service string) {
	c := r.circuit(service)

	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.consecutiveFailures = 0
	case StateHalfOpen:
		c.consecutiveFailures = 0
		c.openedAt = time.Time{}
		r.notifyLocked(service, c.setState(StateClosed))
		r.config.Logger.Info("circuit closed after successful probe",
			zap.String("service", service))
	}
	c.mu.Unlock()
}

// Trip force-opens the circuit regardless of failure count and always
// attempts exactly one alert dispatch. The state mutation is unconditional
// and commits before the dispatch is attempted.
func (r *Registry) Trip(ctx context.Context, service, reason string) {
	c := r.circuit(service)
	now := r.config.Clock()

	c.mu.Lock()
	c.openedAt = now
	if c.state != StateOpen {
		r.notifyLocked(service, c.setState(StateOpen))
	}
	c.mu.Unlock()

	r.config.Logger.Warn("circuit tripped",
		zap.String("service", service),
		zap.String("reason", reason),
	)
	r.dispatchAlert(ctx, service, alert.Alert{
		Type:     alert.TypeForService(service),
		Severity: alert.SeverityCritical,
		Message:  fmt.Sprintf("circuit manually tripped for %s: %s", service, reason),
		Metadata: map[string]any{
			"service": service,
			"reason":  reason,
		},
	})
}

// Reset forces the circuit closed and clears its counters and timestamps.
func (r *Registry) Reset(service string) {
	c := r.circuit(service)

	c.mu.Lock()
	c.consecutiveFailures = 0
	c.lastFailureAt = time.Time{}
	c.openedAt = time.Time{}
	if c.state != StateClosed {
		r.notifyLocked(service, c.setState(StateClosed))
	}
	c.mu.Unlock()

	r.config.Logger.Info("circuit reset", zap.String("service", service))
}

// Status returns a read-only snapshot of the service's circuit.
func (r *Registry) Status(service string) Snapshot {
	c := r.circuit(service)

	c.mu.Lock()
	defer c.mu.Unlock()
	return r.snapshotLocked(service, c)
}

// AllStatuses returns snapshots for every circuit the registry has seen.
func (r *Registry) AllStatuses() map[string]Snapshot {
	r.mu.RLock()
	circuits := make(map[string]*circuit, len(r.circuits))
	for name, c := range r.circuits {
		circuits[name] = c
	}
	r.mu.RUnlock()

	out := make(map[string]Snapshot, len(circuits))
	for name, c := range circuits {
		c.mu.Lock()
		out[name] = r.snapshotLocked(name, c)
		c.mu.Unlock()
	}
	return out
}

func (r *Registry) snapshotLocked(service string, c *circuit) Snapshot {
	snap := Snapshot{
		Service:             service,
		State:               c.state,
		ConsecutiveFailures: c.consecutiveFailures,
	}
	if !c.lastFailureAt.IsZero() {
		t := c.lastFailureAt
		snap.LastFailureAt = &t
	}
	if !c.openedAt.IsZero() {
		t := c.openedAt
		snap.OpenedAt = &t
	}
	if c.state == StateOpen {
		if remaining := r.config.Cooldown - r.config.Clock().Sub(c.openedAt); remaining > 0 {
			snap.RetryAfter = remaining
		}
	}
	return snap
}

func (r *Registry) notifyLocked(service string, tr transition) {
	r.config.Logger.Debug("circuit state changed",
		zap.String("service", service),
		zap.Stringer("from", tr.from),
		zap.Stringer("to", tr.to),
	)
	if r.config.OnStateChange != nil {
		r.config.OnStateChange(service, tr.from, tr.to)
	}
}

// dispatchAlert hands the alert to the dispatcher after the state change
// has committed. Dispatcher errors and panics are contained here.
func (r *Registry) dispatchAlert(ctx context.Context, service string, a alert.Alert) {
	if r.config.Dispatcher == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.config.Logger.Error("alert dispatcher panicked",
				zap.String("service", service),
				zap.Any("panic", rec),
			)
		}
	}()

	if err := r.config.Dispatcher.Dispatch(ctx, a); err != nil {
		r.config.Logger.Error("alert dispatch failed",
			zap.String("service", service),
			zap.String("alert_type", a.Type),
			zap.Error(err),
		)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
