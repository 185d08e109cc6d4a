package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acme/codereviewd/pkg/review"
)

// Executor runs a single Job to completion. review.Engine implements this.
type Executor interface {
	Run(ctx context.Context, job review.Job)
}

type workerStatus int32

const (
	statusIdle workerStatus = iota
	statusWorking
)

// worker pulls jobs off the shared channel until it is closed or the pool
// context is cancelled.
type worker struct {
	id       string
	jobs     <-chan review.Job
	executor Executor
	logger   *slog.Logger

	status        atomic.Int32
	jobsProcessed atomic.Int32
	mu            sync.Mutex
	lastActivity  time.Time
}

func newWorker(id string, jobs <-chan review.Job, executor Executor, logger *slog.Logger) *worker {
	return &worker{id: id, jobs: jobs, executor: executor, logger: logger}
}

// run processes jobs until ctx is done or jobs is closed and drained.
// Per spec, a worker finishes the stage it's in before checking
// cancellation — review.Engine.Run itself checks ctx.Err() before the LLM
// and persistence stages,
// so the worker loop only needs to stop picking up NEW jobs on shutdown.
func (w *worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (w *worker) process(ctx context.Context, job review.Job) {
	w.status.Store(int32(statusWorking))
	w.mu.Lock()
	w.lastActivity = time.Now()
	w.mu.Unlock()

	w.executor.Run(ctx, job)

	w.jobsProcessed.Add(1)
	w.status.Store(int32(statusIdle))
	w.mu.Lock()
	w.lastActivity = time.Now()
	w.mu.Unlock()
}

func (w *worker) health() WorkerHealth {
	status := "idle"
	if workerStatus(w.status.Load()) == statusWorking {
		status = "working"
	}
	w.mu.Lock()
	last := w.lastActivity
	w.mu.Unlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        status,
		JobsProcessed: int(w.jobsProcessed.Load()),
		LastActivity:  last,
	}
}
