// Package notify converges a course's topic channel to a single pinned
// message carrying the current exam details.
//
// Each reconciliation walks a small state machine:
//
//	Idle -> Listing -> Deleting -> Posting -> Pinning -> Done
//
// Any step may end in Failed. A failed Outcome remembers where it stopped so
// Resume can pick up from there.
package notify

import (
	"context"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
)

// ChannelDirectory resolves topic channels by name.
type ChannelDirectory interface {
	// Find returns ErrChannelNotFound when no channel has the name.
	Find(ctx context.Context, name string) (Channel, error)
}

// Channel is a topic channel the bot can post to.
type Channel interface {
	Name() string
	// ListOwnMessages returns messages authored by this bot only.
	ListOwnMessages(ctx context.Context) ([]Message, error)
	Post(ctx context.Context, text string) (Message, error)
}

// Message is a posted chat message.
type Message interface {
	ID() string
	Delete(ctx context.Context) error
	Pin(ctx context.Context) error
}

// Locker serializes reconciliations of the same course.
type Locker interface {
	// Lock blocks until key is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// State is a step of the reconcile state machine.
type State string

// Reconcile states.
const (
	StateIdle     State = "idle"
	StateListing  State = "listing"
	StateDeleting State = "deleting"
	StatePosting  State = "posting"
	StatePinning  State = "pinning"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Outcome is the result of reconciling one course.
type Outcome struct {
	Token     string       `json:"token"`
	Course    course.Code  `json:"course,omitempty"`
	Channel   string       `json:"channel,omitempty"`
	State     State        `json:"state"`
	FailedAt  State        `json:"failedAt,omitempty"`
	Reason    model.Reason `json:"reason,omitempty"`
	Err       error        `json:"-"`
	Deleted   int          `json:"deleted"`
	MessageID string       `json:"messageId,omitempty"`

	text    string
	posted  Message
	channel Channel
}

// Done reports whether the channel converged.
func (o Outcome) Done() bool { return o.State == StateDone }

// Miss describes a failed outcome for batch reports.
func (o Outcome) Miss() model.Miss {
	tok := o.Token
	if o.Course != "" {
		tok = o.Course.String()
	}
	return model.Miss{Token: tok, Reason: o.Reason}
}

// Summary aggregates a batch of reconciliations.
type Summary struct {
	Notified int          `json:"notified"`
	Outcomes []Outcome    `json:"outcomes"`
	Failures []model.Miss `json:"failures"`
}

func (o Outcome) fail(at State, reason model.Reason, err error) Outcome {
	o.State = StateFailed
	o.FailedAt = at
	o.Reason = reason
	o.Err = err
	return o
}
