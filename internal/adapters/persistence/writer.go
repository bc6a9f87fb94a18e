package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/brickfield/appraisal/pkg/logger"
	"github.com/brickfield/appraisal/pkg/metrics"
)

const drainTimeout = 10 * time.Second

// WriterPool drains the save queue into the store. Write failures are
// logged and counted, never surfaced: persistence is best-effort.
type WriterPool struct {
	queue   *Queue
	store   Store
	workers int
	log     logger.Logger

	wg sync.WaitGroup
}

// NewWriterPool creates a pool of writer goroutines over queue and store.
func NewWriterPool(workers int, queue *Queue, store Store, opts ...WriterOption) *WriterPool {
	p := &WriterPool{
		queue:   queue,
		store:   store,
		workers: workers,
	}
	if p.workers <= 0 {
		p.workers = 1
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WriterOption adjusts pool construction.
type WriterOption func(*WriterPool)

// WithWriterLogger sets a custom logger for the pool.
func WithWriterLogger(log logger.Logger) WriterOption {
	return func(p *WriterPool) {
		if log != nil {
			p.log = log
		}
	}
}

// Start launches the writers. They run until the queue closes.
func (p *WriterPool) Start(ctx context.Context) {
	if p.log == nil {
		p.log = logger.Get().Named("persistence")
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *WriterPool) run(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.queue.Dequeue() {
		p.save(ctx, job)
		metrics.UpdatePersistQueueDepth(p.queue.Len())
	}
}

func (p *WriterPool) save(ctx context.Context, job SaveJob) {
	if err := p.store.Save(ctx, job.PropertyID, job.Result, job.Raw); err != nil {
		metrics.RecordPersistFailure()
		p.log.Warn(ctx, "valuation not persisted",
			logger.String("property_id", job.PropertyID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordPersistWrite()
}

// Stop closes the queue and waits for the writers to drain it.
func (p *WriterPool) Stop() {
	p.queue.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		p.log.Warn(context.Background(), "persistence drain timed out",
			logger.Int("pending", p.queue.Len()),
		)
	}
}
