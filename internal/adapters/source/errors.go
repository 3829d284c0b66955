package source

import "errors"

var (
	// ErrInvalidURL means the URL cannot point at a timetable workbook.
	ErrInvalidURL = errors.New("invalid source url")
	// ErrFetch wraps a failed download.
	ErrFetch = errors.New("fetch failed")
	// ErrTooLarge means the download exceeded the size limit.
	ErrTooLarge = errors.New("source exceeds size limit")
)
