// Package worker implements the named, parallel job queues spec.md §5's
// scheduling model calls for (`default`, `integrations`, `analytics`,
// `messaging`, `bot`), each a sharded worker pool, plus the transactional
// job-body wrapper and retry policy spec.md §4.10 requires. Grounded on
// the teacher's pkg/msgworker/pool.go (the per-worker channel, fnv-hash
// consistent sharding, atomic counters, and graceful-drain shutdown are
// kept near-verbatim) generalized from one WhatsApp-instance/chat pool
// into one pool per named queue, sharded by an arbitrary caller-supplied
// key (a conversation id, a tenant id, ...) instead of instance|chatJID.
package worker

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one unit of work dispatched to a named queue. ShardKey pins all
// jobs sharing it to the same worker, so jobs for the same conversation
// are processed one at a time in the order they reach that worker; a
// retried job re-enters the queue behind jobs submitted after it.
type Job struct {
	Queue    string
	ShardKey string
	Handler  func(ctx context.Context) error

	// Attempt and MaxRetries back the retry policy a Runner applies via
	// OnJobFailed; a Job submitted directly (bypassing Runner) leaves
	// MaxRetries at zero and is never retried.
	Attempt    int
	MaxRetries int
}

// PoolStats mirrors the teacher's runtime metrics shape, scoped to one
// named queue.
type PoolStats struct {
	Queue           string        `json:"queue"`
	NumWorkers      int           `json:"num_workers"`
	QueueSize       int           `json:"queue_size"`
	ActiveWorkers   int           `json:"active_workers"`
	TotalDispatched int64         `json:"total_dispatched"`
	TotalProcessed  int64         `json:"total_processed"`
	TotalDropped    int64         `json:"total_dropped"`
	TotalErrors     int64         `json:"total_errors"`
	WorkerStats     []WorkerStats `json:"worker_stats"`
}

type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

// QueuePool is a sharded worker pool backing a single named queue.
type QueuePool struct {
	name       string
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64

	// OnJobFailed fires after a job's Handler returns a non-nil error,
	// before any retry decision is made — the Runner uses this to
	// requeue under its retry policy without the pool itself knowing
	// about retries.
	OnJobFailed func(job Job, err error)
}

type worker struct {
	id            int
	jobQueue      chan Job
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *QueuePool
}

func NewQueuePool(name string, numWorkers, queueSize int) *QueuePool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &QueuePool{
		name:       name,
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
	}
}

func (p *QueuePool) Name() string { return p.name }

func (p *QueuePool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, jobQueue: make(chan Job, p.queueSize), ctx: workerCtx, cancel: cancel, pool: p}
		p.workers[i] = w
		p.wg.Add(1)
		go w.run(&p.wg)
	}
	logrus.Infof("[worker] queue %q started with %d workers, queue size %d", p.name, p.numWorkers, p.queueSize)
}

// TryDispatch enqueues job on its shard's worker without blocking,
// reporting whether it was accepted. Used to apply backpressure at the
// submission boundary (e.g. the edge handler) rather than block a request.
func (p *QueuePool) TryDispatch(job Job) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardFor(job.ShardKey)
	atomic.AddInt64(&p.totalDispatched, 1)

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if sent {
		return true
	}
	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[worker] queue %q worker %d full, dropping job for shard %q", p.name, shard, job.ShardKey)
	return false
}

func (p *QueuePool) Dispatch(job Job) { _ = p.TryDispatch(job) }

func (p *QueuePool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		logrus.Infof("[worker] queue %q stopping...", p.name)
		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}
		p.wg.Wait()
		logrus.Infof("[worker] queue %q stopped", p.name)
	})
}

func (p *QueuePool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *QueuePool) Stats() PoolStats {
	workerStats := make([]WorkerStats, len(p.workers))
	activeWorkers := 0
	for i, w := range p.workers {
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			activeWorkers++
		}
		workerStats[i] = WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		}
	}
	return PoolStats{
		Queue:           p.name,
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
		WorkerStats:     workerStats,
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	logrus.Debugf("[worker] pool %q worker %d started", w.pool.name, w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		case <-w.ctx.Done():
			w.drainQueue()
			return
		}
	}
}

func (w *worker) process(job Job) {
	atomic.StoreInt32(&w.isProcessing, 1)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[worker] pool %q worker %d panic on shard %q: %v", w.pool.name, w.id, job.ShardKey, r)
		}
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	if err := job.Handler(w.ctx); err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Errorf("[worker] pool %q worker %d job failed on shard %q", w.pool.name, w.id, job.ShardKey)
		if w.pool.OnJobFailed != nil {
			w.pool.OnJobFailed(job, err)
		}
	}
}

func (w *worker) drainQueue() {
	logrus.Debugf("[worker] pool %q worker %d draining before shutdown", w.pool.name, w.id)
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		default:
			return
		}
	}
}

// backoffDelay returns the exponential-backoff-with-jitter delay for the
// given zero-based retry attempt, matching the tool contract layer's
// schedule (1s, 5s, 15s) and extending geometrically beyond it for job
// categories with a higher retry ceiling (spec.md §4.10's billing jobs).
func backoffDelay(attempt int) time.Duration {
	schedule := []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second}
	var base time.Duration
	if attempt < len(schedule) {
		base = schedule[attempt]
	} else {
		base = schedule[len(schedule)-1]
		for i := len(schedule) - 1; i < attempt; i++ {
			base *= 2
		}
	}
	return base + time.Duration(rand.Int63n(int64(base)/2))
}
