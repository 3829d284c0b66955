// Package temporal decodes spreadsheet date and time encodings.
//
// Spreadsheets store dates as a day count from their own epoch and times of
// day as a fraction of a day. Decoding is pinned to UTC so results never
// depend on the host time zone.
package temporal

import (
	"fmt"
	"math"
	"time"
)

const (
	// epochOffsetDays is the gap between the spreadsheet epoch and 1970-01-01.
	epochOffsetDays = 25569
	msPerDay        = 86_400_000
	// maxSerial is 31/12/9999, the last date a spreadsheet can hold.
	maxSerial       = 2_958_465
	secondsPerDay   = 86_400
)

// Date is a calendar date with a 1-indexed day and month.
type Date struct {
	Day   int
	Month int
	Year  int
}

// String renders DD/MM/YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Clock is a 24-hour time of day.
type Clock struct {
	Hour   int
	Minute int
}

// String renders H:MM AM|PM with 12 shown for both noon and midnight.
func (c Clock) String() string {
	meridiem := "AM"
	if c.Hour >= 12 {
		meridiem = "PM"
	}
	h := c.Hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute, meridiem)
}

// On combines the clock with a date into a UTC instant.
func (c Clock) On(d Date) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, c.Hour, c.Minute, 0, 0, time.UTC)
}

// DecodeDate converts a spreadsheet day serial into a calendar date.
// Any fractional (time-of-day) part is discarded.
func DecodeDate(serial float64) (Date, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 || serial >= maxSerial+1 {
		return Date{}, invalid("date", serial)
	}
	ms := math.Floor((serial - epochOffsetDays) * msPerDay)
	t := time.UnixMilli(int64(ms)).UTC()
	return Date{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}, nil
}

// DecodeStart converts a fraction of a day into a clock time. Values of one
// or more are treated as full date-times and only the fractional part is
// used. The fraction is rounded to the nearest second first so stored
// values like 0.020833 read as 0:30 rather than 0:29.
func DecodeStart(fraction float64) (Clock, error) {
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) || fraction < 0 {
		return Clock{}, invalid("start", fraction)
	}
	_, f := math.Modf(fraction)
	secs := int(math.Round(f * secondsPerDay))
	if secs >= secondsPerDay {
		secs = secondsPerDay - 1
	}
	return Clock{Hour: secs / 3600, Minute: secs % 3600 / 60}, nil
}
