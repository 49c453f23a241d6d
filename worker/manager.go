package worker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Manager owns one QueuePool per named queue (spec.md §5: `default`,
// `integrations`, `analytics`, `messaging`, `bot`) and is the thing cmd/
// constructs once at startup and shuts down on SIGTERM.
type Manager struct {
	pools map[string]*QueuePool
}

// NewManager builds one QueuePool per name in queues, all sized the same.
func NewManager(queues []string, numWorkers, queueSize int) *Manager {
	m := &Manager{pools: make(map[string]*QueuePool, len(queues))}
	for _, name := range queues {
		m.pools[name] = NewQueuePool(name, numWorkers, queueSize)
	}
	return m
}

func (m *Manager) Start(ctx context.Context) {
	for _, p := range m.pools {
		p.Start(ctx)
	}
}

func (m *Manager) Stop() {
	for _, p := range m.pools {
		p.Stop()
	}
}

// Pool returns the named queue's pool, or nil if it was never configured —
// callers should treat a nil pool as a configuration error, not dispatch
// to a zero-value pool.
func (m *Manager) Pool(queue string) *QueuePool { return m.pools[queue] }

// Dispatch enqueues job onto the pool named by job.Queue.
func (m *Manager) Dispatch(job Job) error {
	p := m.pools[job.Queue]
	if p == nil {
		return fmt.Errorf("worker: unknown queue %q", job.Queue)
	}
	if !p.TryDispatch(job) {
		logrus.Warnf("[worker] dropped job for shard %q on queue %q: pool full", job.ShardKey, job.Queue)
	}
	return nil
}

func (m *Manager) Stats() []PoolStats {
	out := make([]PoolStats, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p.Stats())
	}
	return out
}
