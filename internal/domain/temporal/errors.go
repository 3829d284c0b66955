package temporal

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidTemporalValue = errors.New("invalid temporal value")
)

func invalid(field string, v float64) error {
	return fmt.Errorf("%s %v: %w", field, v, ErrInvalidTemporalValue)
}
