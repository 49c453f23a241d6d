package worker

import (
	"context"
	"database/sql"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/convocommerce/backend/platform/config"
)

var (
	globalManager *Manager
	globalRunner  *Runner
	globalOnce    sync.Once
	globalCancel  context.CancelFunc
)

// GetGlobalManager returns the process-wide queue Manager, built from
// platform/config's WorkerPool section (Size, QueueSize, Queues — the
// named-queue list defaults to default/integrations/analytics/messaging/
// bot). db is the raw *sql.DB every job transaction runs against.
func GetGlobalManager(db *sql.DB, cfg config.WorkerPoolConfig) *Manager {
	globalOnce.Do(func() {
		var ctx context.Context
		ctx, globalCancel = context.WithCancel(context.Background())

		size := cfg.Size
		if size <= 0 {
			size = 6
		}
		queueSize := cfg.QueueSize
		if queueSize <= 0 {
			queueSize = 250
		}
		queues := cfg.Queues
		if len(queues) == 0 {
			queues = []string{"default", "integrations", "analytics", "messaging", "bot"}
		}

		globalManager = NewManager(queues, size, queueSize)
		globalRunner = NewRunner(db, globalManager)
		globalManager.Start(ctx)
		logrus.Infof("[worker] global manager started: queues=%v workers=%d queue_size=%d", queues, size, queueSize)
	})
	return globalManager
}

// GetGlobalRunner returns the transactional job Runner bound to the
// global Manager; panics if GetGlobalManager has not been called yet.
func GetGlobalRunner() *Runner {
	if globalRunner == nil {
		panic("worker: GetGlobalRunner called before GetGlobalManager")
	}
	return globalRunner
}

// StopGlobalManager stops every named queue's pool.
func StopGlobalManager() {
	if globalCancel != nil {
		globalCancel()
	}
	if globalManager != nil {
		globalManager.Stop()
	}
}

func GetGlobalStats() []PoolStats {
	if globalManager == nil {
		return nil
	}
	return globalManager.Stats()
}
