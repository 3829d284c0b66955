package repository

import "time"

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithClock overrides the time source used to stamp generations.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotStore) {
		if now != nil {
			s.now = now
		}
	}
}
