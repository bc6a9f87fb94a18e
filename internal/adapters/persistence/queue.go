package persistence

import (
	"context"
	"sync"

	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/pkg/metrics"
)

const defaultQueueCapacity = 4096

// SaveJob is one pending persistence write.
type SaveJob struct {
	PropertyID string
	Result     model.EnsembleResult
	Raw        map[string]any
}

// Queue buffers save jobs between the prediction path and the writers.
// Enqueue is non-blocking: a full queue drops the job, which is acceptable
// for a fire-and-forget collaborator.
type Queue struct {
	jobs   chan SaveJob
	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a bounded job queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{}
	capacity := defaultQueueCapacity

	for _, opt := range opts {
		capacity = opt(capacity)
	}

	q.jobs = make(chan SaveJob, capacity)
	return q
}

// QueueOption adjusts queue construction.
type QueueOption func(capacity int) int

// WithQueueCapacity bounds the number of pending save jobs.
func WithQueueCapacity(capacity int) QueueOption {
	return func(current int) int {
		if capacity > 0 {
			return capacity
		}
		return current
	}
}

// Enqueue adds a job. Returns false when the queue is full or closed.
func (q *Queue) Enqueue(_ context.Context, job SaveJob) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.jobs <- job:
		metrics.UpdatePersistQueueDepth(len(q.jobs))
		return true
	default:
		return false
	}
}

// Dequeue returns the channel writers drain. Closed together with the queue.
func (q *Queue) Dequeue() <-chan SaveJob {
	return q.jobs
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs and lets writers drain the remainder.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}
