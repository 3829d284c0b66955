// Package ical renders exam records as an iCalendar feed.
package ical

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
)

const defaultProductID = "-//exambot//exam timetable//EN"

// Exporter builds calendars from exam records.
type Exporter struct {
	productID string
	name      string
	now       func() time.Time
}

// New creates an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		productID: defaultProductID,
		name:      "Exams",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calendar builds one VEVENT per record that has both a date and a start
// time. Records that cannot be placed are returned as skipped.
func (e *Exporter) Calendar(records []model.ExamRecord) (*ics.Calendar, []course.Code) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	cal.SetName(e.name)

	stamp := e.now().UTC()
	var skipped []course.Code
	for _, rec := range records {
		if rec.Date == nil || rec.Start == nil {
			skipped = append(skipped, rec.Course)
			continue
		}
		start := rec.Start.On(*rec.Date)

		ev := cal.AddEvent(UID(rec))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		if rec.Duration != nil && *rec.Duration > 0 {
			ev.SetEndAt(start.Add(time.Duration(*rec.Duration * float64(time.Minute))))
		}
		ev.SetSummary(rec.Course.String() + " exam")
		if rec.Rooms != nil && *rec.Rooms != "" {
			ev.SetLocation(*rec.Rooms)
		}
	}
	return cal, skipped
}

// Write serializes the calendar for records to w.
func (e *Exporter) Write(w io.Writer, records []model.ExamRecord) ([]course.Code, error) {
	cal, skipped := e.Calendar(records)
	if err := cal.SerializeTo(w); err != nil {
		return skipped, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	return skipped, nil
}

// UID is stable across exports of the same session so calendar clients
// update events in place.
func UID(rec model.ExamRecord) string {
	if rec.Date == nil {
		return rec.Course.String() + "@exambot"
	}
	d := rec.Date
	return fmt.Sprintf("%s-%04d%02d%02d@exambot", rec.Course, d.Year, d.Month, d.Day)
}
