package health

import (
	"context"
	"testing"

	"github.com/storekit/backstop/breaker"
	"github.com/storekit/backstop/queue"
)

func TestBreakerChecker(t *testing.T) {
	registry := breaker.NewRegistry(breaker.Config{})
	checker := NewBreakerChecker(registry)

	if err := registry.Allow("payments"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	registry.RecordSuccess("payments")

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("status = %v, want healthy", result.Status)
	}

	registry.Trip(context.Background(), "payments", "maintenance")

	result = checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Fatalf("status after trip = %v, want degraded", result.Status)
	}
	detail, ok := result.Details["payments"].(map[string]any)
	if !ok {
		t.Fatal("missing payments detail")
	}
	if detail["state"] != "open" {
		t.Errorf("payments state = %v, want open", detail["state"])
	}

	registry.Reset("payments")
	result = checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("status after reset = %v, want healthy", result.Status)
	}
}

func TestQueueChecker(t *testing.T) {
	manager := queue.NewManager(queue.Config{})
	checker := NewQueueChecker(manager)

	err := manager.Enqueue(context.Background(), "payments", queue.PriorityNormal,
		func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("status = %v, want healthy", result.Status)
	}

	manager.Pause("payments")

	result = checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Fatalf("status after pause = %v, want degraded", result.Status)
	}
	detail, ok := result.Details["payments"].(map[string]any)
	if !ok {
		t.Fatal("missing payments detail")
	}
	if detail["paused"] != true {
		t.Errorf("payments paused = %v, want true", detail["paused"])
	}

	manager.Resume("payments")
	result = checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("status after resume = %v, want healthy", result.Status)
	}
}
