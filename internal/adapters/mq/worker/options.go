package worker

import (
	"time"

	"github.com/okian/exambot/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithReleaser releases each job's coalescing key when the job starts.
func WithReleaser(r Releaser) Option {
	return func(w *InMemoryWorker) {
		w.releaser = r
	}
}

// WithJobTimeout bounds each job's run time. Zero means no bound.
func WithJobTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d >= 0 {
			w.timeout = d
		}
	}
}
