package worker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// JobCategory selects the retry ceiling spec.md §4.10 assigns a background
// job: routine sync/rollup work gets 3 retries, billing work gets 5, each
// after the job's first attempt.
type JobCategory string

const (
	CategoryRoutine JobCategory = "routine"
	CategoryBilling JobCategory = "billing"
)

func maxRetriesFor(category JobCategory) int {
	if category == CategoryBilling {
		return 5
	}
	return 3
}

// TransactionalBody is a job's unit of work. It receives an open
// transaction; returning a non-nil error rolls the transaction back and,
// per spec.md §4.10, relies on the Runner's retry policy rather than the
// body attempting its own recovery.
type TransactionalBody func(ctx context.Context, tx *sql.Tx) error

// Runner wraps job bodies in a database transaction and applies the
// named-queue retry policy, requeuing a failed job after an exponential
// backoff until its category's retry ceiling is reached.
type Runner struct {
	db      *sql.DB
	manager *Manager
}

func NewRunner(db *sql.DB, manager *Manager) *Runner {
	r := &Runner{db: db, manager: manager}
	for _, pool := range manager.pools {
		pool.OnJobFailed = r.onJobFailed
	}
	return r
}

// Submit wraps body in a transaction and dispatches it to queue, sharded
// by shardKey, with the retry ceiling category implies. The job's first
// attempt runs synchronously-dispatched (non-blocking) like any other Job.
func (r *Runner) Submit(queue, shardKey string, category JobCategory, body TransactionalBody) error {
	job := Job{
		Queue:      queue,
		ShardKey:   shardKey,
		MaxRetries: maxRetriesFor(category),
	}
	job.Handler = r.handlerFor(job, body)
	return r.manager.Dispatch(job)
}

func (r *Runner) handlerFor(job Job, body TransactionalBody) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("worker: begin job tx: %w", err)
		}
		if err := body(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("worker: commit job tx: %w", err)
		}
		return nil
	}
}

// onJobFailed is installed as every pool's OnJobFailed hook; it requeues
// the job with an incremented attempt count after a backoff delay, up to
// its MaxRetries, and logs a permanent failure once exhausted.
func (r *Runner) onJobFailed(job Job, err error) {
	if job.Attempt >= job.MaxRetries {
		logrus.WithError(err).Errorf("[worker] job on queue %q shard %q exhausted %d retries, giving up",
			job.Queue, job.ShardKey, job.MaxRetries)
		return
	}

	next := job
	next.Attempt = job.Attempt + 1
	delay := backoffDelay(job.Attempt)

	time.AfterFunc(delay, func() {
		if dispatchErr := r.manager.Dispatch(next); dispatchErr != nil {
			logrus.WithError(dispatchErr).Errorf("[worker] failed to requeue job on queue %q shard %q", job.Queue, job.ShardKey)
		}
	})
}
