// Package queue provides the bounded in-memory work queue and worker pool
// that decouple webhook ingestion from pipeline execution, so ingestion
// never blocks on a review run.
package queue

import (
	"errors"
	"time"
)

// ErrQueueFull is returned by Submit when the bounded channel has no
// capacity left; callers (the webhook handler) translate this into a 503.
var ErrQueueFull = errors.New("queue: at capacity")

// Health reports the current state of the worker pool for the /health
// endpoint and for operators.
type Health struct {
	QueueDepth        int            `json:"queue_depth"`
	QueueCapacity     int            `json:"queue_capacity"`
	TotalWorkers      int            `json:"total_workers"`
	ActiveWorkers     int            `json:"active_workers"`
	WorkerStats       []WorkerHealth `json:"worker_stats"`
}

// WorkerHealth reports the status of a single worker goroutine.
type WorkerHealth struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"` // idle or working
	JobsProcessed     int       `json:"jobs_processed"`
	LastActivity      time.Time `json:"last_activity"`
}
