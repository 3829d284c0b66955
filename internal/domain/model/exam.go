// Package model contains domain models passed between layers.
package model

import (
	"strconv"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/temporal"
)

// placeholder is rendered for fields whose source cell was empty.
const placeholder = "-"

// ExamRecord is one exam session. Optional fields are nil when the source
// cell was empty or could not be decoded.
type ExamRecord struct {
	Course   course.Code
	Duration *float64 // minutes
	Date     *temporal.Date
	Start    *temporal.Clock
	Rooms    *string
	Row      int // source row number, for diagnostics
}

// DurationText renders the duration without trailing zeros.
func (r ExamRecord) DurationText() string {
	if r.Duration == nil {
		return placeholder
	}
	return strconv.FormatFloat(*r.Duration, 'f', -1, 64)
}

// DateText renders the date as DD/MM/YYYY.
func (r ExamRecord) DateText() string {
	if r.Date == nil {
		return placeholder
	}
	return r.Date.String()
}

// StartText renders the start time in 12-hour form.
func (r ExamRecord) StartText() string {
	if r.Start == nil {
		return placeholder
	}
	return r.Start.String()
}

// RoomsText returns the rooms cell verbatim.
func (r ExamRecord) RoomsText() string {
	if r.Rooms == nil || *r.Rooms == "" {
		return placeholder
	}
	return *r.Rooms
}

// Reason classifies why a requested item produced no result.
type Reason string

// Failure reasons shared by queries and notifications.
const (
	ReasonNotACourse      Reason = "not_a_course"
	ReasonNoData          Reason = "no_data"
	ReasonChannelNotFound Reason = "channel_not_found"
	ReasonLineTooLarge    Reason = "line_too_large_for_budget"
	ReasonChannelFailure  Reason = "channel_failure"
	ReasonCanceled        Reason = "canceled"
	ReasonLockUnavailable Reason = "lock_unavailable"
)

// Miss reports a requested token that produced no line.
type Miss struct {
	Token  string `json:"token"`
	Reason Reason `json:"reason"`
}
