package service

import (
	"context"

	"github.com/okian/exambot/internal/adapters/mq/events"
	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/notify"
	"github.com/okian/exambot/internal/domain/types"
)

// Notify reconciles the channel of every requested course so it holds one
// pinned, current message.
func (s *Service) Notify(ctx context.Context, tokens []string, privileged bool) (types.NotifyReport, error) {
	if !privileged {
		return types.NotifyReport{}, ErrNotPrivileged
	}
	if len(tokens) == 0 {
		return types.NotifyReport{}, ErrNoCourses
	}
	if len(tokens) == 1 {
		out := s.reconciler.Reconcile(ctx, tokens[0])
		s.published(ctx, out)
		rep := types.NotifyReport{Outcomes: []types.NotifyResult{notifyResult(out)}}
		if out.Done() {
			rep.Notified = 1
		} else {
			rep.Failures = []model.Miss{out.Miss()}
		}
		return rep, nil
	}
	return s.reconcileAll(ctx, tokens), nil
}

// NotifyAll reconciles every scheduled course. With async set the batch is
// queued and the report carries only the job id.
func (s *Service) NotifyAll(ctx context.Context, privileged, async bool) (types.NotifyReport, error) {
	if !privileged {
		return types.NotifyReport{}, ErrNotPrivileged
	}
	if async {
		job, _, err := s.Enqueue(ctx, model.JobNotifyAll, "request")
		if err != nil {
			return types.NotifyReport{}, err
		}
		return types.NotifyReport{JobID: job.ID}, nil
	}
	return s.reconcileAll(ctx, codeStrings(s.store.Codes(ctx))), nil
}

func (s *Service) reconcileAll(ctx context.Context, tokens []string) types.NotifyReport {
	sum := s.reconciler.ReconcileAll(ctx, tokens)
	rep := types.NotifyReport{Notified: sum.Notified, Failures: sum.Failures}
	for _, out := range sum.Outcomes {
		s.published(ctx, out)
		rep.Outcomes = append(rep.Outcomes, notifyResult(out))
	}
	return rep
}

func (s *Service) published(ctx context.Context, out notify.Outcome) { //nolint:gocritic // hugeParam: outcomes are passed by value throughout
	e := events.Event{
		Type:      events.TypeCourseNotified,
		Course:    out.Course.String(),
		Channel:   out.Channel,
		MessageID: out.MessageID,
	}
	if !out.Done() {
		e.Type = events.TypeNotifyFailed
		e.Reason = string(out.Reason)
	}
	s.publish(ctx, e)
}

func notifyResult(out notify.Outcome) types.NotifyResult { //nolint:gocritic // hugeParam: outcomes are passed by value throughout
	r := types.NotifyResult{
		Token:     out.Token,
		Course:    out.Course.String(),
		Channel:   out.Channel,
		State:     string(out.State),
		FailedAt:  string(out.FailedAt),
		Reason:    out.Reason,
		Deleted:   out.Deleted,
		MessageID: out.MessageID,
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	return r
}

func codeStrings(codes []course.Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.String()
	}
	return out
}
