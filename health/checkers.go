package health

import (
	"context"
	"fmt"

	"github.com/storekit/backstop/breaker"
	"github.com/storekit/backstop/queue"
)

// BreakerChecker reports degraded when any circuit is open. A tripped
// circuit means a downstream dependency is failing, not that this service
// is down, so an open circuit never reports unhealthy.
type BreakerChecker struct {
	registry *breaker.Registry
}

// NewBreakerChecker creates a checker over the given circuit registry.
func NewBreakerChecker(registry *breaker.Registry) *BreakerChecker {
	return &BreakerChecker{registry: registry}
}

// Name returns the name of this checker.
func (c *BreakerChecker) Name() string {
	return "circuits"
}

// Check inspects every known circuit.
func (c *BreakerChecker) Check(ctx context.Context) Result {
	statuses := c.registry.AllStatuses()

	details := make(map[string]any, len(statuses))
	open := 0
	for service, snap := range statuses {
		details[service] = map[string]any{
			"state":                snap.State.String(),
			"consecutive_failures": snap.ConsecutiveFailures,
		}
		if snap.State == breaker.StateOpen {
			open++
		}
	}

	if open > 0 {
		return Degraded(fmt.Sprintf("%d of %d circuits open", open, len(statuses))).
			WithDetails(details)
	}
	return Healthy(fmt.Sprintf("all %d circuits closed", len(statuses))).
		WithDetails(details)
}

// QueueChecker reports degraded when any queue is paused or its depth has
// crossed the operational threshold.
type QueueChecker struct {
	manager *queue.Manager
}

// NewQueueChecker creates a checker over the given queue manager.
func NewQueueChecker(manager *queue.Manager) *QueueChecker {
	return &QueueChecker{manager: manager}
}

// Name returns the name of this checker.
func (c *QueueChecker) Name() string {
	return "queues"
}

// Check inspects every known queue.
func (c *QueueChecker) Check(ctx context.Context) Result {
	statuses := c.manager.AllStatuses()

	details := make(map[string]any, len(statuses))
	unhealthy := 0
	for service, snap := range statuses {
		details[service] = map[string]any{
			"pending": len(snap.Pending),
			"active":  snap.Active,
			"paused":  snap.Paused,
			"depth":   fmt.Sprintf("%.0f%%", snap.QueueDepthPercent),
		}
		if !c.manager.Healthy(service) {
			unhealthy++
		}
	}

	if unhealthy > 0 {
		return Degraded(fmt.Sprintf("%d of %d queues saturated or paused", unhealthy, len(statuses))).
			WithDetails(details)
	}
	return Healthy(fmt.Sprintf("all %d queues accepting work", len(statuses))).
		WithDetails(details)
}
