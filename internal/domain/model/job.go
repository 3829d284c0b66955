package model

import "time"

// JobKind names a background job.
type JobKind string

// Background job kinds.
const (
	// JobRefresh fetches the timetable from the configured source and ingests it.
	JobRefresh JobKind = "refresh"
	// JobReload re-ingests the local data file without fetching.
	JobReload JobKind = "reload"
	// JobNotifyAll reconciles every scheduled course, or Codes when set.
	JobNotifyAll JobKind = "notify_all"
)

// Job is a unit of background work.
type Job struct {
	ID         string    `json:"id"`
	Kind       JobKind   `json:"kind"`
	Codes      []string  `json:"codes,omitempty"`
	Trigger    string    `json:"trigger"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Key identifies jobs that are interchangeable while pending. Two pending
// refreshes do the same work, so they share a key.
func (j Job) Key() string {
	if j.Kind == JobNotifyAll && len(j.Codes) > 0 {
		return "" // targeted batches never coalesce
	}
	return string(j.Kind)
}
