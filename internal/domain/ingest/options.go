package ingest

import "github.com/okian/exambot/pkg/logger"

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithFirstRow sets the 1-indexed row where data starts (past the header block).
func WithFirstRow(row int) Option {
	return func(p *Pipeline) {
		if row > 0 {
			p.firstRow = row
		}
	}
}

// WithMaxRow stops the scan after the given row. Zero means unbounded.
func WithMaxRow(row int) Option {
	return func(p *Pipeline) {
		if row >= 0 {
			p.maxRow = row
		}
	}
}

// WithBlankRunLimit stops the scan after n consecutive non-course rows.
// Zero disables the sentinel and scans until the source or max row ends.
func WithBlankRunLimit(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.blankRunLimit = n
		}
	}
}

// WithAllowEmpty lets a scan that finds no courses replace the schedule.
// By default such a scan fails with ErrNoCourses, since it usually means
// the workbook layout changed.
func WithAllowEmpty(allow bool) Option {
	return func(p *Pipeline) {
		p.allowEmpty = allow
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
