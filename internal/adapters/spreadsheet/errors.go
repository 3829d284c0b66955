package spreadsheet

import "errors"

var (
	// ErrOpen means the bytes are not a readable workbook.
	ErrOpen = errors.New("cannot open workbook")
	// ErrNoSheet means the requested worksheet does not exist.
	ErrNoSheet = errors.New("worksheet not found")
	// ErrRead wraps a failure while streaming rows.
	ErrRead = errors.New("cannot read worksheet")
)
