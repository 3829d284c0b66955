// Package events publishes domain events about schedule and notification
// changes to a message broker.
package events

import (
	"context"
	"time"

	"github.com/okian/exambot/pkg/logger"
)

// Event types, also used as routing keys.
const (
	TypeScheduleIngested = "schedule.ingested"
	TypeIngestFailed     = "schedule.ingest_failed"
	TypeCourseNotified   = "course.notified"
	TypeNotifyFailed     = "course.notify_failed"
)

// Event is a domain event. Fields that do not apply to a type are omitted.
type Event struct {
	Type       string    `json:"type"`
	At         time.Time `json:"at"`
	Generation uint64    `json:"generation,omitempty"`
	Courses    int       `json:"courses,omitempty"`
	Course     string    `json:"course,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	MessageID  string    `json:"messageId,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(l logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.Nop()
	}
	return &LogPublisher{logger: l}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.Debug(ctx, "event",
		logger.String("type", e.Type),
		logger.String("course", e.Course),
		logger.Any("generation", e.Generation),
		logger.String("reason", e.Reason),
	)
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }
