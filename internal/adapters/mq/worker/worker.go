// Package worker drains the job queue one job at a time.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

// Job abstracts what the worker reads off the queue.
type Job = model.Job

// Handler executes a job.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) } //nolint:gocritic // hugeParam: Job is passed by value like the queue

// Queue defines how the worker receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Releaser forgets a job's coalescing key once the job starts.
type Releaser interface {
	Unrecord(ctx context.Context, key string)
}

// Worker processes jobs from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker runs jobs sequentially, so at most one ingestion is ever in flight.
type InMemoryWorker struct {
	queue    Queue
	handler  Handler
	releaser Releaser
	name     string
	timeout  time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "job failed",
					logger.String("jobID", job.ID),
					logger.String("kind", string(job.Kind)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker to stop after the current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: Job is passed by value like the queue
	if w.releaser != nil {
		// Release first so a trigger arriving mid-run queues a follow-up.
		w.releaser.Unrecord(ctx, job.Key())
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	ctx = logger.WithCorrelationID(ctx, job.ID)

	start := time.Now()
	w.logger.Debug(ctx, "job started",
		logger.String("kind", string(job.Kind)),
		logger.String("trigger", job.Trigger),
		logger.Any("queuedFor", start.Sub(job.EnqueuedAt).String()),
	)

	if err := w.handler.Handle(ctx, job); err != nil {
		metrics.RecordJobProcessed(string(job.Kind), "failed")
		metrics.RecordErrorByComponent("worker", string(job.Kind))
		return fmt.Errorf("job %s (%s): %w", job.ID, job.Kind, err)
	}

	metrics.RecordJobProcessed(string(job.Kind), "success")
	w.logger.Debug(ctx, "job finished",
		logger.String("kind", string(job.Kind)),
		logger.Any("took", time.Since(start).String()),
	)
	return nil
}
