package queue

import "time"

// EntrySnapshot describes one pending entry.
type EntrySnapshot struct {
	ID         string        `json:"id"`
	Priority   string        `json:"priority"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	Waiting    time.Duration `json:"waiting"`
}

// Snapshot is a point-in-time view of one service's queue.
type Snapshot struct {
	Service string          `json:"service"`
	Pending []EntrySnapshot `json:"pending"`
	Active  int             `json:"active"`
	Paused  bool            `json:"paused"`
	Config  ServiceConfig   `json:"config"`
	Totals  Totals          `json:"totals"`

	// UtilizationPercent is active / maxConcurrent.
	UtilizationPercent float64 `json:"utilization_percent"`

	// QueueDepthPercent is pending / maxQueueSize.
	QueueDepthPercent float64 `json:"queue_depth_percent"`

	// AvgTaskDuration is the observed mean task duration, zero until the
	// first task completes.
	AvgTaskDuration time.Duration `json:"avg_task_duration"`
}

// Status returns a snapshot of the service's queue, creating it if the
// service has never been seen.
func (m *Manager) Status(service string) Snapshot {
	q := m.queue(service)

	q.mu.Lock()
	defer q.mu.Unlock()
	return m.snapshotLocked(q)
}

// AllStatuses returns snapshots for every queue the manager has seen.
func (m *Manager) AllStatuses() map[string]Snapshot {
	m.mu.RLock()
	queues := make(map[string]*serviceQueue, len(m.queues))
	for name, q := range m.queues {
		queues[name] = q
	}
	m.mu.RUnlock()

	out := make(map[string]Snapshot, len(queues))
	for name, q := range queues {
		q.mu.Lock()
		out[name] = m.snapshotLocked(q)
		q.mu.Unlock()
	}
	return out
}

func (m *Manager) snapshotLocked(q *serviceQueue) Snapshot {
	now := m.config.Clock()

	pending := make([]EntrySnapshot, len(q.pending))
	for i, e := range q.pending {
		pending[i] = EntrySnapshot{
			ID:         e.id,
			Priority:   e.priority.String(),
			EnqueuedAt: e.enqueuedAt,
			Waiting:    now.Sub(e.enqueuedAt),
		}
	}

	snap := Snapshot{
		Service: q.name,
		Pending: pending,
		Active:  q.active,
		Paused:  q.paused,
		Config:  q.cfg,
		Totals:  q.totals,
	}
	if q.cfg.MaxConcurrent > 0 {
		snap.UtilizationPercent = float64(q.active) / float64(q.cfg.MaxConcurrent) * 100
	}
	if q.cfg.MaxQueueSize > 0 {
		snap.QueueDepthPercent = float64(len(q.pending)) / float64(q.cfg.MaxQueueSize) * 100
	}
	if q.completed > 0 {
		snap.AvgTaskDuration = q.totalDuration / time.Duration(q.completed)
	}
	return snap
}
