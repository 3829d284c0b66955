package ingest

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrIngestionSource wraps a row source failure. The schedule is untouched.
	ErrIngestionSource = errors.New("ingestion source failure")
	// ErrNoCourses means the scan completed without a single course row.
	ErrNoCourses = errors.New("no course rows found")
	// ErrInvalidCell marks a non-numeric value in a numeric column.
	ErrInvalidCell = errors.New("invalid cell value")
)
