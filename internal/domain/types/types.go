// Package types contains response shapes shared by the service and the API.
package types

import (
	"time"

	"github.com/okian/exambot/internal/domain/model"
)

// Pages is a paginated query answer. Each page fits the message budget.
type Pages struct {
	Pages  []string     `json:"pages"`
	Misses []model.Miss `json:"misses,omitempty"`
	Lines  int          `json:"lines"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Courses     int       `json:"courses"`
	Generation  uint64    `json:"generation"`
	RowsScanned int       `json:"rowsScanned"`
	RowsSkipped int       `json:"rowsSkipped"`
	Duplicates  int       `json:"duplicates"`
	LastRow     int       `json:"lastRow"`
	Issues      []Issue   `json:"issues,omitempty"`
	LoadedAt    time.Time `json:"loadedAt"`
	Unchanged   bool      `json:"unchanged,omitempty"`
}

// Issue is a cell that could not be decoded.
type Issue struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Error  string `json:"error"`
}

// NotifyReport summarizes a notification request.
type NotifyReport struct {
	Notified int            `json:"notified"`
	Outcomes []NotifyResult `json:"outcomes,omitempty"`
	Failures []model.Miss   `json:"failures,omitempty"`
	// JobID is set when the request was queued instead of run inline.
	JobID string `json:"jobId,omitempty"`
}

// NotifyResult is the outcome for one course.
type NotifyResult struct {
	Token     string       `json:"token"`
	Course    string       `json:"course,omitempty"`
	Channel   string       `json:"channel,omitempty"`
	State     string       `json:"state"`
	FailedAt  string       `json:"failedAt,omitempty"`
	Reason    model.Reason `json:"reason,omitempty"`
	Error     string       `json:"error,omitempty"`
	Deleted   int          `json:"deleted"`
	MessageID string       `json:"messageId,omitempty"`
}

// Stats is the service status shown by /stats.
type Stats struct {
	StartedAt   time.Time `json:"startedAt"`
	Uptime      string    `json:"uptime"`
	Courses     int       `json:"courses"`
	Generation  uint64    `json:"generation"`
	LoadedAt    time.Time `json:"loadedAt,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	DataFile    string    `json:"dataFile"`
	QueueLength int       `json:"queueLength"`
	Pending     int64     `json:"pending"`
}
