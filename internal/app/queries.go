package service

import (
	"context"
	"io"

	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/query"
	"github.com/okian/exambot/internal/domain/types"
	"github.com/okian/exambot/pkg/metrics"
)

// Budget returns the per-message character ceiling.
func (s *Service) Budget() int { return s.budget }

// Exams formats the requested courses, reporting each token that produced
// no line.
func (s *Service) Exams(ctx context.Context, tokens []string) types.Pages {
	return pages(s.formatter.FormatQuery(ctx, tokens, s.budget, true))
}

// RoleExams formats the courses named by chat role names. Roles that are
// not course roles are ignored.
func (s *Service) RoleExams(ctx context.Context, roles []string) (types.Pages, error) {
	res, err := s.formatter.RoleQuery(ctx, roles, s.budget)
	if err != nil {
		return types.Pages{}, err
	}
	return pages(res), nil
}

// List formats every scheduled course in code order.
func (s *Service) List(ctx context.Context) (types.Pages, error) {
	res, err := s.formatter.ListAll(ctx, s.budget)
	if err != nil {
		return types.Pages{}, err
	}
	return pages(res), nil
}

// Calendar writes an iCalendar feed for the requested courses, or for the
// whole schedule when tokens is empty. Sessions without a date and start
// time cannot be placed and come back as misses.
func (s *Service) Calendar(ctx context.Context, w io.Writer, tokens []string) ([]model.Miss, error) {
	snap := s.store.Snapshot(ctx)
	metrics.RecordQuery("calendar")

	var (
		records []model.ExamRecord
		misses  []model.Miss
	)
	if len(tokens) == 0 {
		for _, code := range snap.Codes() {
			rec, _ := snap.Get(code)
			records = append(records, rec)
		}
	}
	for _, tok := range tokens {
		code, err := course.NormalizeFreeText(tok)
		if err != nil {
			misses = append(misses, model.Miss{Token: tok, Reason: model.ReasonNotACourse})
			continue
		}
		rec, ok := snap.Get(code)
		if !ok {
			misses = append(misses, model.Miss{Token: tok, Reason: model.ReasonNoData})
			continue
		}
		records = append(records, rec)
	}

	skipped, err := s.exporter.Write(w, records)
	for _, code := range skipped {
		misses = append(misses, model.Miss{Token: code.String(), Reason: model.ReasonNoData})
	}
	for _, m := range misses {
		metrics.RecordQueryMiss(string(m.Reason))
	}
	return misses, err
}

func pages(res query.Result) types.Pages {
	return types.Pages{Pages: res.Pages, Misses: res.Misses, Lines: res.Lines}
}
