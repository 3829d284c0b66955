package course

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrNotACourse = errors.New("not a course")
)

func notACourse(input string) error {
	return fmt.Errorf("%q: %w", input, ErrNotACourse)
}
