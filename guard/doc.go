// Package guard composes the circuit breaker registry and the request queue
// manager into the one call contract application code depends on: run a task
// against a service at a priority, failing fast when the circuit is open,
// admitting through the queue otherwise, and reporting the task's outcome
// back to the breaker.
//
// The two registries share no state; the guard is the only place they meet.
// Queue-layer rejections (full, timed out, paused, cleared) are not reported
// to the breaker: they say nothing about the dependency's health, only about
// local saturation.
//
//	g := guard.New(guard.Config{
//	    Breakers: breakers,
//	    Queues:   queues,
//	})
//
//	err := g.Execute(ctx, "ecommerce-platform", queue.PriorityNormal,
//	    func(ctx context.Context) error {
//	        return pushInventory(ctx, changes)
//	    })
package guard
