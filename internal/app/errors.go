package service

import "errors"

var (
	// ErrNotPrivileged is returned when an unprivileged caller invokes an
	// operation that changes state.
	ErrNotPrivileged = errors.New("operation requires a privileged caller")
	// ErrNoSource means no source URL has been configured.
	ErrNoSource = errors.New("no source url configured")
	// ErrDataFile wraps failures reading or writing the local data file.
	ErrDataFile = errors.New("data file")
	// ErrNoCourses is returned when a notification names no courses.
	ErrNoCourses = errors.New("no courses given")
	// ErrQueueFull means a background job could not be queued.
	ErrQueueFull = errors.New("job queue full or closed")
	// ErrUnknownJob is returned for a job kind the service does not run.
	ErrUnknownJob = errors.New("unknown job kind")
)
