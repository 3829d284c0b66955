package repository

import "errors"

// Sentinel kinds for schedule errors.
var (
	ErrNotFound = errors.New("course not in schedule")
)
