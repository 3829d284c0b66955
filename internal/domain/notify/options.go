package notify

import "github.com/okian/exambot/pkg/logger"

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithBudget sets the maximum message length in characters.
func WithBudget(budget int) Option {
	return func(r *Reconciler) {
		if budget > 0 {
			r.budget = budget
		}
	}
}

// WithLocker replaces the in-process per-course lock.
func WithLocker(l Locker) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.locker = l
		}
	}
}

// WithWorkers bounds how many courses ReconcileAll handles at once.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithRenderer sets how the formatted line is wrapped before posting.
func WithRenderer(render func(line string) string) Option {
	return func(r *Reconciler) {
		if render != nil {
			r.render = render
		}
	}
}

// WithLogger sets a custom logger for the reconciler.
func WithLogger(l logger.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}
