// Package breaker implements a per-service circuit breaker registry.
//
// Each external dependency gets its own circuit, created lazily on first
// reference. A circuit starts closed, opens after a run of consecutive
// failures (or an explicit trip), and probes recovery through a half-open
// state once its cooldown elapses.
//
// State machine:
//
//   - closed: calls allowed, consecutive failures counted. Reaching the
//     threshold opens the circuit.
//   - open: calls rejected until the cooldown elapses, then the next Allow
//     moves the circuit to half-open.
//   - half-open: a single probe call is admitted. Success closes the circuit,
//     failure reopens it and restarts the cooldown.
//
// Opening a circuit (threshold or manual trip) dispatches exactly one alert.
// Alert delivery is fire-and-forget: the state transition commits before and
// independently of the dispatch, and dispatch failures are logged, never
// surfaced.
//
//	reg := breaker.NewRegistry(breaker.Config{
//	    FailureThreshold: 5,
//	    Cooldown:         30 * time.Second,
//	    Dispatcher:       dispatcher,
//	    Logger:           logger,
//	})
//
//	if err := reg.Allow("ecommerce-platform"); err != nil {
//	    return err // *CircuitOpenError, carries RetryAfter
//	}
//	err := callPlatform(ctx)
//	if err != nil {
//	    reg.RecordFailure(ctx, "ecommerce-platform", err)
//	} else {
//	    reg.RecordSuccess("ecommerce-platform")
//	}
package breaker
