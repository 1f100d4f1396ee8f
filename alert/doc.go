// Package alert defines the alert dispatch contract used by the circuit
// breaker registry and adapters for common destinations.
//
// Dispatch is a side channel: the breaker's state transitions must never
// depend on alert delivery. AsyncDispatcher enforces that boundary by running
// the wrapped dispatcher on a detached goroutine, recovering panics and
// logging failures instead of propagating them. Its Wait method lets tests
// and shutdown paths await in-flight deliveries.
//
//	dispatcher := alert.NewAsyncDispatcher(
//	    alert.NewLogDispatcher(logger),
//	    alert.AsyncConfig{Logger: logger},
//	)
//	defer dispatcher.Wait(ctx)
package alert
