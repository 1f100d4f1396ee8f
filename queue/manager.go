package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storekit/backstop/schedule"
)

// ServiceConfig bounds one service's admission.
type ServiceConfig struct {
	// MaxConcurrent is the number of tasks allowed in flight at once.
	// Default: 5
	MaxConcurrent int

	// MaxQueueSize bounds the pending list.
	// Default: 50
	MaxQueueSize int

	// QueueTimeout is how long an entry may wait before being rejected.
	// Default: 30 seconds
	QueueTimeout time.Duration
}

func (c ServiceConfig) withDefaults(d ServiceConfig) ServiceConfig {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.QueueTimeout <= 0 {
		c.QueueTimeout = d.QueueTimeout
	}
	return c
}

// Config configures a Manager.
type Config struct {
	// Defaults applies to every service without an override.
	Defaults ServiceConfig

	// Overrides customizes named services. Zero fields fall back to Defaults.
	Overrides map[string]ServiceConfig

	// Scheduler supplies cancellable timeout timers.
	// Default: schedule.NewTimerScheduler()
	Scheduler schedule.Scheduler

	// Logger records administrative actions. Default: no-op.
	Logger *zap.Logger

	// Clock supplies timestamps, injectable for tests.
	// Default: time.Now
	Clock func() time.Time

	// HealthyDepthPercent is the queue-depth percentage at or above which
	// Healthy reports false.
	// Default: 80
	HealthyDepthPercent float64

	// OnAdmit is called when a task is admitted, with how long it waited.
	OnAdmit func(service string, p Priority, waited time.Duration)

	// OnReject is called with reason "full", "paused", "timeout" or "cleared".
	OnReject func(service string, reason string)

	// OnTaskDone is called after each admitted task finishes.
	OnTaskDone func(service string, d time.Duration, err error)
}

// Manager admits, queues, or rejects work per external service.
type Manager struct {
	mu     sync.RWMutex
	queues map[string]*serviceQueue
	config Config
}

// NewManager creates a manager with the given configuration.
func NewManager(config Config) *Manager {
	defaults := ServiceConfig{
		MaxConcurrent: 5,
		MaxQueueSize:  50,
		QueueTimeout:  30 * time.Second,
	}
	config.Defaults = config.Defaults.withDefaults(defaults)
	if config.Scheduler == nil {
		config.Scheduler = schedule.NewTimerScheduler()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.HealthyDepthPercent <= 0 {
		config.HealthyDepthPercent = 80
	}

	return &Manager{
		queues: make(map[string]*serviceQueue),
		config: config,
	}
}

// queue returns the service's queue, creating it on first reference.
func (m *Manager) queue(service string) *serviceQueue {
	m.mu.RLock()
	q, ok := m.queues[service]
	m.mu.RUnlock()
	if ok {
		return q
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check: another goroutine may have created it.
	if q, ok = m.queues[service]; ok {
		return q
	}

	cfg := m.config.Defaults
	if override, ok := m.config.Overrides[service]; ok {
		cfg = override.withDefaults(m.config.Defaults)
	}
	q = &serviceQueue{name: service, cfg: cfg, mgr: m}
	m.queues[service] = q
	return q
}

// Enqueue admits task immediately when a concurrency slot is free, queues it
// in priority order when the pending list has room, and rejects it otherwise.
// The call suspends until the task has run or the entry was rejected; the
// task runs on the caller's goroutine with the caller's context.
//
// The returned error is either a queue-layer rejection (see IsRejection), the
// caller's context error, or the task's own error propagated unchanged.
func (m *Manager) Enqueue(ctx context.Context, service string, p Priority, task Task) error {
	q := m.queue(service)

	q.mu.Lock()
	if q.paused {
		q.totals.Rejected++
		q.mu.Unlock()
		m.rejectHook(service, "paused")
		return &PausedError{Service: service}
	}

	if q.active < q.cfg.MaxConcurrent {
		q.active++
		q.mu.Unlock()
		m.admitHook(service, p, 0)
		return q.run(ctx, task)
	}

	if len(q.pending) >= q.cfg.MaxQueueSize {
		q.totals.Rejected++
		limit := q.cfg.MaxQueueSize
		q.mu.Unlock()
		m.rejectHook(service, "full")
		return &FullError{Service: service, Limit: limit}
	}

	e := &entry{
		id:         uuid.NewString(),
		priority:   p,
		enqueuedAt: m.config.Clock(),
		seq:        q.nextSeq,
		admit:      make(chan struct{}),
		reject:     make(chan error, 1),
	}
	q.nextSeq++
	q.insertLocked(e)
	e.timer = m.config.Scheduler.Schedule(q.cfg.QueueTimeout, func() { q.expire(e) })
	q.mu.Unlock()

	select {
	case <-e.admit:
		m.admitHook(service, p, m.config.Clock().Sub(e.enqueuedAt))
		return q.run(ctx, task)

	case err := <-e.reject:
		return err

	case <-ctx.Done():
		if q.withdraw(e) {
			return ctx.Err()
		}
		// The entry resolved concurrently with the cancellation.
		select {
		case <-e.admit:
			// Slot already granted; give it back without running the task.
			q.release()
			return ctx.Err()
		case err := <-e.reject:
			return err
		}
	}
}

// Pause stops promotion of pending entries and makes new Enqueue calls
// reject. Active tasks are unaffected.
func (m *Manager) Pause(service string) {
	q := m.queue(service)

	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()

	m.config.Logger.Info("queue paused", zap.String("service", service))
}

// Resume restores promotion, immediately filling any free concurrency slots
// from the pending list.
func (m *Manager) Resume(service string) {
	q := m.queue(service)

	q.mu.Lock()
	q.paused = false
	for q.promoteLocked() != nil {
	}
	q.mu.Unlock()

	m.config.Logger.Info("queue resumed", zap.String("service", service))
}

// Clear synchronously rejects every pending entry with reason and returns the
// number cleared. Active tasks are untouched.
func (m *Manager) Clear(service, reason string) int {
	q := m.queue(service)

	q.mu.Lock()
	cleared := q.pending
	q.pending = nil
	for _, e := range cleared {
		e.resolved = true
		e.timer.Cancel()
	}
	q.mu.Unlock()

	for _, e := range cleared {
		e.reject <- &ClearedError{Service: service, Reason: reason}
		m.rejectHook(service, "cleared")
	}

	m.config.Logger.Info("queue cleared",
		zap.String("service", service),
		zap.String("reason", reason),
		zap.Int("entries", len(cleared)),
	)
	return len(cleared)
}

// Healthy reports whether the service's queue is accepting work and its
// depth is below the operational threshold.
func (m *Manager) Healthy(service string) bool {
	snap := m.Status(service)
	return !snap.Paused && snap.QueueDepthPercent < m.config.HealthyDepthPercent
}

// EstimateWait returns a heuristic wait for a new entry at the given
// priority: its position within the priority ordering times the observed
// average task duration, divided by the concurrency limit. Advisory only.
func (m *Manager) EstimateWait(service string, p Priority) time.Duration {
	q := m.queue(service)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.completed == 0 {
		return 0
	}
	avg := q.totalDuration / time.Duration(q.completed)

	ahead := 0
	for _, e := range q.pending {
		if e.priority >= p {
			ahead++
		}
	}
	position := ahead + 1
	return time.Duration(position) * avg / time.Duration(q.cfg.MaxConcurrent)
}

func (m *Manager) admitHook(service string, p Priority, waited time.Duration) {
	if m.config.OnAdmit != nil {
		m.config.OnAdmit(service, p, waited)
	}
}

func (m *Manager) rejectHook(service, reason string) {
	if m.config.OnReject != nil {
		m.config.OnReject(service, reason)
	}
}
