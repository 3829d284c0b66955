package channels

import "time"

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithAutoCreate makes Find create unknown channels instead of failing.
func WithAutoCreate(on bool) Option {
	return func(b *Board) {
		b.autoCreate = on
	}
}

// WithClock sets the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}
