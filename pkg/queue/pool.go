package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/acme/codereviewd/pkg/config"
	"github.com/acme/codereviewd/pkg/metrics"
	"github.com/acme/codereviewd/pkg/review"
)

// WorkerPool is the bounded, channel-backed work queue. Submit never
// blocks: when the channel is full it returns ErrQueueFull immediately,
// the only admission-control mechanism the system provides.
type WorkerPool struct {
	jobs        chan review.Job
	workers     []*worker
	executor    Executor
	logger      *slog.Logger
	workerCount int

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// New creates a pool sized by cfg.Capacity/cfg.WorkerCount. Call Start to
// spawn workers.
func New(cfg config.Queue, executor Executor, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		jobs:        make(chan review.Job, cfg.Capacity),
		executor:    executor,
		logger:      logger.With("component", "worker-pool"),
		workers:     make([]*worker, 0, cfg.WorkerCount),
		workerCount: cfg.WorkerCount,
	}
}

// Start spawns worker goroutines bound to ctx. Safe to call once; a second
// call is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workerCount; i++ {
		w := newWorker(fmt.Sprintf("worker-%d", i), p.jobs, p.executor, p.logger)
		p.workers = append(p.workers, w)
		p.wg.Add(1)
		go w.run(runCtx, &p.wg)
	}

	p.logger.Info("worker pool started", "worker_count", p.workerCount, "capacity", cap(p.jobs))
}

// Submit enqueues job without blocking. Returns ErrQueueFull if the
// channel has no spare capacity.
func (p *WorkerPool) Submit(job review.Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown closes the job channel and waits for in-flight and already
// queued jobs to drain, or for ctx to expire. Submit must not be called
// after Shutdown: a send on the closed channel panics.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.logger.Warn("worker pool shutdown grace period exceeded, cancelled in-flight work")
		return ctx.Err()
	}
}

// Health reports current queue depth and per-worker status.
func (p *WorkerPool) Health() Health {
	p.mu.Lock()
	workers := make([]*worker, len(p.workers))
	copy(workers, p.workers)
	p.mu.Unlock()

	stats := make([]WorkerHealth, len(workers))
	active := 0
	for i, w := range workers {
		h := w.health()
		stats[i] = h
		if h.Status == "working" {
			active++
		}
	}

	return Health{
		QueueDepth:    len(p.jobs),
		QueueCapacity: cap(p.jobs),
		TotalWorkers:  len(workers),
		ActiveWorkers: active,
		WorkerStats:   stats,
	}
}

// ReportMetrics snapshots the current Health into c's queue gauges. Safe
// to call from a /metrics scrape handler since Health itself is.
func (p *WorkerPool) ReportMetrics(c *metrics.Collector) {
	if c == nil {
		return
	}
	h := p.Health()
	c.QueueDepth.Set(float64(h.QueueDepth))
	c.QueueCapacity.Set(float64(h.QueueCapacity))
	c.ActiveWorkers.Set(float64(h.ActiveWorkers))
}
