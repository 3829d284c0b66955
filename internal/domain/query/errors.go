package query

import "errors"

var (
	// ErrNoData means a well-formed course code has no scheduled exam.
	ErrNoData = errors.New("no exam data")
	// ErrLineTooLarge means a single record cannot fit the message budget.
	ErrLineTooLarge = errors.New("line too large for budget")
)
