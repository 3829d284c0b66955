package watcher

import (
	"time"

	"github.com/okian/exambot/pkg/logger"
)

// Option applies a configuration option to the FileWatcher.
type Option func(*FileWatcher)

// WithDebounce sets how long writes must pause before onChange runs.
func WithDebounce(d time.Duration) Option {
	return func(fw *FileWatcher) {
		if d > 0 {
			fw.debounce = d
		}
	}
}

// WithLogger sets a custom logger for the watcher.
func WithLogger(l logger.Logger) Option {
	return func(fw *FileWatcher) {
		if l != nil {
			fw.logger = l
		}
	}
}
