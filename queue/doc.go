// Package queue bounds concurrency and pending work per external service so
// a burst against one flaky dependency cannot starve the process or grow
// memory without limit.
//
// Each service gets its own queue, created lazily with the manager's default
// configuration (overridable per service name). Admission follows a strict
// order: a paused queue rejects immediately; a free concurrency slot admits
// immediately; room in the pending list queues the caller ordered by priority
// (high before normal before low, FIFO within a band) with a cancellable
// timeout; otherwise the call is rejected with backpressure.
//
// Enqueue suspends the caller while its entry is pending and runs the task on
// the caller's goroutine once a slot frees up. Pending entries can be
// rejected by timeout, pause, administrative clear, or the caller's own
// context; active tasks are never cancelled by the manager.
//
//	mgr := queue.NewManager(queue.Config{
//	    Defaults: queue.ServiceConfig{
//	        MaxConcurrent: 5,
//	        MaxQueueSize:  50,
//	        QueueTimeout:  30 * time.Second,
//	    },
//	})
//
//	err := mgr.Enqueue(ctx, "ai-generation", queue.PriorityHigh, func(ctx context.Context) error {
//	    return generateDescription(ctx, product)
//	})
package queue
