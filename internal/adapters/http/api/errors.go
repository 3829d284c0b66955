package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("http serve failed")
	ErrBadRequest = errors.New("bad request")
)

// wrap prefixes err with the operation name.
func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// badRequest builds an ErrBadRequest carrying a reason.
func badRequest(op, reason string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrBadRequest, reason)
}
