package ical

import "time"

// Option applies a configuration option to the Exporter.
type Option func(*Exporter)

// WithProductID sets the PRODID of exported calendars.
func WithProductID(id string) Option {
	return func(e *Exporter) {
		if id != "" {
			e.productID = id
		}
	}
}

// WithName sets the calendar display name.
func WithName(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.name = name
		}
	}
}

// WithClock sets the time source used for DTSTAMP.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}
