package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storekit/backstop/schedule"
)

func TestManager_TimeoutRejectsPendingEntry(t *testing.T) {
	sched := schedule.NewManualScheduler()
	mgr := NewManager(Config{
		Defaults:  ServiceConfig{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: 100 * time.Millisecond},
		Scheduler: sched,
	})

	hold := submitBlocking(mgr, "svc", PriorityNormal)
	<-hold.started

	queued := submitBlocking(mgr, "svc", PriorityNormal)
	waitFor(t, func() bool { return len(mgr.Status("svc").Pending) == 1 }, "entry to queue")

	// The virtual clock passes the queue timeout before any slot frees up.
	sched.Advance(100 * time.Millisecond)

	select {
	case err := <-queued.done:
		var timeoutErr *TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("Enqueue() error = %v, want *TimeoutError", err)
		}
		if !errors.Is(err, ErrQueueTimeout) {
			t.Error("errors.Is(err, ErrQueueTimeout) = false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed-out entry did not resolve")
	}

	snap := mgr.Status("svc")
	if snap.Totals.TimedOut != 1 {
		t.Errorf("TimedOut = %d, want exactly 1", snap.Totals.TimedOut)
	}
	if len(snap.Pending) != 0 {
		t.Errorf("Pending = %d, want 0", len(snap.Pending))
	}
	if snap.Active != 1 {
		t.Errorf("Active = %d, want 1 (active task untouched)", snap.Active)
	}

	hold.finish(t)
}

func TestManager_PromotionCancelsTimer(t *testing.T) {
	sched := schedule.NewManualScheduler()
	mgr := NewManager(Config{
		Defaults:  ServiceConfig{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: 100 * time.Millisecond},
		Scheduler: sched,
	})

	hold := submitBlocking(mgr, "svc", PriorityNormal)
	<-hold.started

	queued := submitBlocking(mgr, "svc", PriorityNormal)
	waitFor(t, func() bool { return len(mgr.Status("svc").Pending) == 1 }, "entry to queue")

	// Promotion must cancel the pending timer so a later firing cannot hit
	// an already-resolved entry.
	hold.finish(t)
	<-queued.started

	sched.Advance(time.Hour)

	queued.finish(t)
	snap := mgr.Status("svc")
	if snap.Totals.TimedOut != 0 {
		t.Errorf("TimedOut = %d, want 0", snap.Totals.TimedOut)
	}
	if snap.Totals.Processed != 2 {
		t.Errorf("Processed = %d, want 2", snap.Totals.Processed)
	}
}

func TestManager_PauseRejectsNewWork(t *testing.T) {
	mgr := NewManager(Config{Defaults: ServiceConfig{MaxConcurrent: 2, MaxQueueSize: 5}})

	mgr.Pause("svc")

	before := mgr.Status("svc")
	err := mgr.Enqueue(context.Background(), "svc", PriorityHigh, func(ctx context.Context) error {
		t.Error("task ran on paused queue")
		return nil
	})
	var pausedErr *PausedError
	if !errors.As(err, &pausedErr) {
		t.Fatalf("Enqueue() error = %v, want *PausedError", err)
	}

	after := mgr.Status("svc")
	if after.Active != before.Active || len(after.Pending) != len(before.Pending) {
		t.Errorf("pause rejection changed counts: %+v -> %+v", before, after)
	}
	if !after.Paused {
		t.Error("Paused = false, want true")
	}
}

func TestManager_PausedQueueNeverPromotes(t *testing.T) {
	mgr := NewManager(Config{
		Defaults: ServiceConfig{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: time.Minute},
	})

	hold := submitBlocking(mgr, "svc", PriorityNormal)
	<-hold.started

	queued := submitBlocking(mgr, "svc", PriorityNormal)
	waitFor(t, func() bool { return len(mgr.Status("svc").Pending) == 1 }, "entry to queue")

	mgr.Pause("svc")
	hold.finish(t)

	// The freed slot must stay empty while paused.
	select {
	case <-queued.started:
		t.Fatal("paused queue promoted a pending entry")
	case <-time.After(20 * time.Millisecond):
	}
	if got := mgr.Status("svc").Active; got != 0 {
		t.Errorf("Active = %d, want 0", got)
	}

	mgr.Resume("svc")
	<-queued.started
	queued.finish(t)
}

func TestManager_ClearRejectsPendingOnly(t *testing.T) {
	mgr := NewManager(Config{
		Defaults: ServiceConfig{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: time.Minute},
	})

	active := submitBlocking(mgr, "svc", PriorityNormal)
	<-active.started

	queued := []*blockingCall{
		submitBlocking(mgr, "svc", PriorityLow),
		submitBlocking(mgr, "svc", PriorityHigh),
		submitBlocking(mgr, "svc", PriorityNormal),
	}
	waitFor(t, func() bool { return len(mgr.Status("svc").Pending) == 3 }, "entries to queue")

	cleared := mgr.Clear("svc", "deploy rollout")
	if cleared != 3 {
		t.Errorf("Clear() = %d, want 3", cleared)
	}

	for i, c := range queued {
		select {
		case err := <-c.done:
			var clearedErr *ClearedError
			if !errors.As(err, &clearedErr) {
				t.Errorf("entry %d error = %v, want *ClearedError", i, err)
				continue
			}
			if clearedErr.Reason != "deploy rollout" {
				t.Errorf("entry %d reason = %q", i, clearedErr.Reason)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("cleared entry %d did not resolve", i)
		}
	}

	// The active call was untouched.
	snap := mgr.Status("svc")
	if snap.Active != 1 {
		t.Errorf("Active = %d, want 1", snap.Active)
	}
	active.finish(t)

	// Clearing an empty queue is a no-op.
	if got := mgr.Clear("svc", "again"); got != 0 {
		t.Errorf("Clear() on empty = %d, want 0", got)
	}
}

func TestManager_ContextCancelWithdrawsPendingEntry(t *testing.T) {
	mgr := NewManager(Config{
		Defaults: ServiceConfig{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: time.Minute},
	})

	hold := submitBlocking(mgr, "svc", PriorityNormal)
	<-hold.started

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mgr.Enqueue(ctx, "svc", PriorityNormal, func(ctx context.Context) error {
			t.Error("cancelled entry's task ran")
			return nil
		})
	}()
	waitFor(t, func() bool { return len(mgr.Status("svc").Pending) == 1 }, "entry to queue")

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Enqueue() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled entry did not resolve")
	}

	if got := len(mgr.Status("svc").Pending); got != 0 {
		t.Errorf("Pending = %d, want 0", got)
	}
	hold.finish(t)
}

func TestManager_Healthy(t *testing.T) {
	mgr := NewManager(Config{
		Defaults:            ServiceConfig{MaxConcurrent: 1, MaxQueueSize: 4, QueueTimeout: time.Minute},
		HealthyDepthPercent: 75,
	})

	if !mgr.Healthy("svc") {
		t.Error("fresh queue Healthy() = false, want true")
	}

	mgr.Pause("svc")
	if mgr.Healthy("svc") {
		t.Error("paused queue Healthy() = true, want false")
	}
	mgr.Resume("svc")

	hold := submitBlocking(mgr, "svc", PriorityNormal)
	<-hold.started
	for i := 0; i < 3; i++ {
		submitBlocking(mgr, "svc", PriorityNormal)
	}
	waitFor(t, func() bool { return len(mgr.Status("svc").Pending) == 3 }, "depth to build")

	// Depth 3/4 = 75% reaches the threshold.
	if mgr.Healthy("svc") {
		t.Error("deep queue Healthy() = true, want false")
	}

	mgr.Clear("svc", "test teardown")
	hold.finish(t)
}

func TestManager_EstimateWait(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	elapsed := time.Duration(0)
	mgr := NewManager(Config{
		Defaults: ServiceConfig{MaxConcurrent: 2, MaxQueueSize: 10, QueueTimeout: time.Minute},
		Clock:    func() time.Time { return fixed.Add(elapsed) },
	})

	// No history yet: the estimate is zero.
	if got := mgr.EstimateWait("svc", PriorityHigh); got != 0 {
		t.Errorf("EstimateWait() with no history = %v, want 0", got)
	}

	// Complete one task taking 100ms of virtual time.
	err := mgr.Enqueue(context.Background(), "svc", PriorityNormal, func(ctx context.Context) error {
		elapsed += 100 * time.Millisecond
		return nil
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// Empty queue: position 1, avg 100ms, concurrency 2 -> 50ms.
	if got := mgr.EstimateWait("svc", PriorityNormal); got != 50*time.Millisecond {
		t.Errorf("EstimateWait() = %v, want 50ms", got)
	}
}

func TestManager_ServicesAreIsolated(t *testing.T) {
	mgr := NewManager(Config{
		Defaults: ServiceConfig{MaxConcurrent: 1, MaxQueueSize: 1, QueueTimeout: time.Minute},
	})

	// Saturate "slow" completely.
	hold := submitBlocking(mgr, "slow", PriorityNormal)
	<-hold.started
	submitBlocking(mgr, "slow", PriorityNormal)
	waitFor(t, func() bool { return len(mgr.Status("slow").Pending) == 1 }, "slow to saturate")

	mgr.Pause("slow")

	// "fast" is completely unaffected.
	err := mgr.Enqueue(context.Background(), "fast", PriorityNormal, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("Enqueue(fast) error = %v, want nil", err)
	}

	mgr.Clear("slow", "test teardown")
	hold.finish(t)
}
