package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/query"
	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

const (
	defaultBudget  = 2000
	defaultWorkers = 4
)

// CodeBlock wraps text in a fenced block so columns line up in chat clients.
func CodeBlock(line string) string {
	return "```\n" + line + "```"
}

// Reconciler publishes per-course notifications.
type Reconciler struct {
	formatter *query.Formatter
	directory ChannelDirectory
	locker    Locker
	budget    int
	workers   int
	render    func(string) string
	logger    logger.Logger
}

// NewReconciler creates a reconciler that formats with f and posts into dir.
func NewReconciler(f *query.Formatter, dir ChannelDirectory, opts ...Option) *Reconciler {
	r := &Reconciler{
		formatter: f,
		directory: dir,
		locker:    NewKeyedMutex(),
		budget:    defaultBudget,
		workers:   defaultWorkers,
		render:    CodeBlock,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile makes the course's channel hold exactly one pinned message with
// the course's current exam details. It is safe to repeat.
func (r *Reconciler) Reconcile(ctx context.Context, token string) Outcome {
	out := Outcome{Token: token, State: StateIdle}

	code, err := course.NormalizeFreeText(token)
	if err != nil {
		return r.finish(ctx, out.fail(StateIdle, model.ReasonNotACourse, err))
	}
	out.Course = code
	out.Channel = code.Channel()

	line, err := r.formatter.Single(ctx, code, r.budget)
	switch {
	case errors.Is(err, query.ErrNoData):
		return r.finish(ctx, out.fail(StateIdle, model.ReasonNoData, err))
	case errors.Is(err, query.ErrLineTooLarge):
		return r.finish(ctx, out.fail(StateIdle, model.ReasonLineTooLarge, err))
	case err != nil:
		return r.finish(ctx, out.fail(StateIdle, model.ReasonNoData, err))
	}
	out.text = r.render(line)
	if query.Length(out.text) > r.budget {
		return r.finish(ctx, out.fail(StateIdle, model.ReasonLineTooLarge,
			fmt.Errorf("%s: %w", code, query.ErrLineTooLarge)))
	}

	ch, err := r.directory.Find(ctx, out.Channel)
	if err != nil {
		reason := model.ReasonChannelFailure
		if errors.Is(err, ErrChannelNotFound) {
			reason = model.ReasonChannelNotFound
		}
		return r.finish(ctx, out.fail(StateIdle, reason, err))
	}
	out.channel = ch

	return r.finish(ctx, r.locked(ctx, out, StateListing))
}

// Resume continues a failed outcome. A message that was posted but not
// pinned is pinned in place; anything else is reconciled again from the top.
// Outcomes that did not fail are returned unchanged.
func (r *Reconciler) Resume(ctx context.Context, prev Outcome) Outcome {
	if prev.State != StateFailed {
		return prev
	}
	if prev.FailedAt == StatePinning && prev.posted != nil {
		r.logger.Info(ctx, "resuming notification at pin",
			logger.String("course", prev.Course.String()),
			logger.String("messageId", prev.MessageID),
		)
		return r.finish(ctx, r.locked(ctx, prev, StatePinning))
	}
	return r.Reconcile(ctx, prev.Token)
}

// ReconcileAll reconciles every token with bounded concurrency. One course
// failing never stops the others. Notified counts distinct channels, so the
// same course written several ways is one notification.
func (r *Reconciler) ReconcileAll(ctx context.Context, tokens []string) Summary {
	outcomes := make([]Outcome, len(tokens))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, tok := range tokens {
		g.Go(func() error {
			outcomes[i] = r.Reconcile(ctx, tok)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Outcomes: outcomes}
	notified := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o.Done() {
			notified[o.Channel] = struct{}{}
			continue
		}
		sum.Failures = append(sum.Failures, o.Miss())
	}
	sum.Notified = len(notified)
	sort.SliceStable(sum.Failures, func(i, j int) bool {
		return sum.Failures[i].Token < sum.Failures[j].Token
	})

	r.logger.Info(ctx, "batch notification finished",
		logger.Int("requested", len(tokens)),
		logger.Int("notified", sum.Notified),
		logger.Int("failed", len(sum.Failures)),
	)
	return sum
}

// locked runs the state machine from the given state under the course lock.
func (r *Reconciler) locked(ctx context.Context, out Outcome, from State) Outcome {
	unlock, err := r.locker.Lock(ctx, out.Course.String())
	if err != nil {
		reason := model.ReasonLockUnavailable
		if ctx.Err() != nil {
			reason = model.ReasonCanceled
		}
		return out.fail(StateIdle, reason, err)
	}
	defer unlock()
	return r.run(ctx, out, from)
}

// run drives the machine. Each step waits for the previous one to complete.
func (r *Reconciler) run(ctx context.Context, out Outcome, state State) Outcome {
	var prior []Message
	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return out.fail(state, model.ReasonCanceled, err)
		}
		started := time.Now()
		step := state

		switch state {
		case StateListing:
			msgs, err := out.channel.ListOwnMessages(ctx)
			if err != nil {
				return out.fail(state, failureReason(ctx), fmt.Errorf("list %s: %w", out.Channel, err))
			}
			prior = msgs
			state = StateDeleting

		case StateDeleting:
			for _, m := range prior {
				if err := m.Delete(ctx); err != nil {
					return out.fail(state, failureReason(ctx), fmt.Errorf("delete %s: %w", m.ID(), err))
				}
				out.Deleted++
			}
			metrics.RecordNotifyDeleted(len(prior))
			state = StatePosting

		case StatePosting:
			msg, err := out.channel.Post(ctx, out.text)
			if err != nil {
				return out.fail(state, failureReason(ctx), fmt.Errorf("post %s: %w", out.Channel, err))
			}
			out.posted = msg
			out.MessageID = msg.ID()
			state = StatePinning

		case StatePinning:
			if err := out.posted.Pin(ctx); err != nil {
				return out.fail(state, failureReason(ctx), fmt.Errorf("pin %s: %w", out.MessageID, err))
			}
			state = StateDone

		default:
			return out.fail(state, model.ReasonChannelFailure, fmt.Errorf("unexpected state %q", state))
		}

		metrics.RecordNotifyStep(string(step), float64(time.Since(started).Milliseconds()))
	}

	out.State = StateDone
	out.FailedAt = ""
	out.Reason = ""
	out.Err = nil
	return out
}

func (r *Reconciler) finish(ctx context.Context, out Outcome) Outcome {
	if out.Done() {
		metrics.RecordNotifyOutcome(string(StateDone))
		r.logger.Info(ctx, "course notified",
			logger.String("course", out.Course.String()),
			logger.String("channel", out.Channel),
			logger.String("messageId", out.MessageID),
			logger.Int("deleted", out.Deleted),
		)
		return out
	}
	metrics.RecordNotifyOutcome(string(out.Reason))
	r.logger.Warn(ctx, "course not notified",
		logger.String("token", out.Token),
		logger.String("channel", out.Channel),
		logger.String("failedAt", string(out.FailedAt)),
		logger.String("reason", string(out.Reason)),
		logger.Error(out.Err),
	)
	return out
}

func failureReason(ctx context.Context) model.Reason {
	if ctx.Err() != nil {
		return model.ReasonCanceled
	}
	return model.ReasonChannelFailure
}
