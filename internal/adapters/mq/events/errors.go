package events

import "errors"

// ErrBroker wraps message broker failures.
var ErrBroker = errors.New("message broker")
