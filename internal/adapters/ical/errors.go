package ical

import "errors"

// ErrSerialize is returned when a calendar cannot be written.
var ErrSerialize = errors.New("serialize calendar")
