package query

import "github.com/okian/exambot/pkg/logger"

// Option applies a configuration option to the Formatter.
type Option func(*Formatter)

// WithLogger sets a custom logger for the formatter.
func WithLogger(l logger.Logger) Option {
	return func(f *Formatter) {
		if l != nil {
			f.logger = l
		}
	}
}
