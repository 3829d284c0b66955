// Package query renders schedule records as text and splits the text into
// pages that fit a message size budget.
package query

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/okian/exambot/internal/adapters/repository"
	"github.com/okian/exambot/internal/domain/course"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

// Query kinds used for metrics and logs.
const (
	KindCourses = "courses"
	KindRoles   = "roles"
	KindList    = "list"
	KindNotify  = "notify"
)

// Page is a run of complete lines. OverBudget is set only for a page holding
// a single line longer than the budget.
type Page struct {
	Lines      []string
	Length     int
	OverBudget bool
}

// Text joins the page's lines.
func (p Page) Text() string { return strings.Join(p.Lines, "") }

// Result is the output of a paginated query.
type Result struct {
	Pages  []string     `json:"pages"`
	Misses []model.Miss `json:"misses"`
	Lines  int          `json:"lines"`
}

// Formatter answers queries against a schedule.
type Formatter struct {
	store  repository.Reader
	logger logger.Logger
}

// New creates a formatter reading from store.
func New(store repository.Reader, opts ...Option) *Formatter {
	f := &Formatter{store: store, logger: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Line renders one record as a tab-separated, newline-terminated line.
func Line(rec model.ExamRecord) string {
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s\n",
		rec.Course, rec.DurationText(), rec.DateText(), rec.StartText(), rec.RoomsText())
}

// Length counts characters, not bytes.
func Length(s string) int { return utf8.RuneCountInString(s) }

type entry struct {
	code course.Code
	line string
}

// Format renders one line per requested token that resolves to a scheduled
// course. Misses are always computed but only returned when reportMisses.
func (f *Formatter) Format(ctx context.Context, tokens []string, reportMisses bool) ([]string, []model.Miss) {
	entries, misses := f.resolve(ctx, tokens)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.line)
	}
	if !reportMisses {
		return lines, nil
	}
	return lines, misses
}

// resolve reads a single snapshot so one query never spans two generations.
func (f *Formatter) resolve(ctx context.Context, tokens []string) ([]entry, []model.Miss) {
	snap := f.store.Snapshot(ctx)
	entries := make([]entry, 0, len(tokens))
	var misses []model.Miss
	for _, tok := range tokens {
		code, err := course.NormalizeFreeText(tok)
		if err != nil {
			misses = append(misses, model.Miss{Token: tok, Reason: model.ReasonNotACourse})
			metrics.RecordQueryMiss(string(model.ReasonNotACourse))
			continue
		}
		rec, ok := snap.Get(code)
		if !ok {
			misses = append(misses, model.Miss{Token: tok, Reason: model.ReasonNoData})
			metrics.RecordQueryMiss(string(model.ReasonNoData))
			continue
		}
		entries = append(entries, entry{code: code, line: Line(rec)})
	}
	return entries, misses
}

// Paginate packs lines greedily into pages of at most budget characters.
// A line longer than the budget gets a page of its own, flagged OverBudget.
// A non-positive budget puts everything on one page.
func Paginate(lines []string, budget int) []Page {
	var pages []Page
	var cur Page
	for _, l := range lines {
		n := Length(l)
		if budget > 0 && len(cur.Lines) > 0 && cur.Length+n > budget {
			pages = append(pages, cur)
			cur = Page{}
		}
		cur.Lines = append(cur.Lines, l)
		cur.Length += n
		if budget > 0 && cur.Length > budget {
			cur.OverBudget = true
		}
	}
	if len(cur.Lines) > 0 {
		pages = append(pages, cur)
	}
	return pages
}

// FormatQuery formats tokens and paginates the lines. Lines that cannot fit
// the budget are withheld and reported as line_too_large_for_budget
// whatever reportMisses says.
func (f *Formatter) FormatQuery(ctx context.Context, tokens []string, budget int, reportMisses bool) Result {
	metrics.RecordQuery(KindCourses)
	entries, misses := f.resolve(ctx, tokens)
	if !reportMisses {
		misses = nil
	}
	return f.paginate(ctx, KindCourses, entries, misses, budget)
}

// ListAll pages every scheduled course in ascending code order.
func (f *Formatter) ListAll(ctx context.Context, budget int) (Result, error) {
	metrics.RecordQuery(KindList)
	snap := f.store.Snapshot(ctx)
	if snap.Len() == 0 {
		return Result{}, ErrNoData
	}
	entries := make([]entry, 0, snap.Len())
	for _, code := range snap.Codes() {
		rec, _ := snap.Get(code)
		entries = append(entries, entry{code: code, line: Line(rec)})
	}
	return f.paginate(ctx, KindList, entries, nil, budget), nil
}

// RoleQuery answers for the course roles among roleNames. Other roles are
// ignored and misses are suppressed. ErrNoData is returned when none of the
// roles has a scheduled exam.
func (f *Formatter) RoleQuery(ctx context.Context, roleNames []string, budget int) (Result, error) {
	metrics.RecordQuery(KindRoles)
	tokens := make([]string, 0, len(roleNames))
	for _, r := range roleNames {
		code, err := course.NormalizeRoleName(r)
		if err != nil {
			continue
		}
		tokens = append(tokens, code.String())
	}
	entries, _ := f.resolve(ctx, tokens)
	res := f.paginate(ctx, KindRoles, entries, nil, budget)
	if len(res.Pages) == 0 && len(res.Misses) == 0 {
		return res, ErrNoData
	}
	return res, nil
}

// Single renders one course's notification text.
func (f *Formatter) Single(ctx context.Context, code course.Code, budget int) (string, error) {
	metrics.RecordQuery(KindNotify)
	rec, err := f.store.Get(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%s: %w", code, ErrNoData)
	}
	line := Line(rec)
	if budget > 0 && Length(line) > budget {
		return "", fmt.Errorf("%s: %w", code, ErrLineTooLarge)
	}
	return line, nil
}

func (f *Formatter) paginate(ctx context.Context, kind string, entries []entry, misses []model.Miss, budget int) Result {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if budget > 0 && Length(e.line) > budget {
			misses = append(misses, model.Miss{Token: e.code.String(), Reason: model.ReasonLineTooLarge})
			metrics.RecordQueryMiss(string(model.ReasonLineTooLarge))
			f.logger.Warn(ctx, "line exceeds message budget",
				logger.String("course", e.code.String()),
				logger.Int("length", Length(e.line)),
				logger.Int("budget", budget),
			)
			continue
		}
		lines = append(lines, e.line)
	}

	pages := Paginate(lines, budget)
	res := Result{Pages: make([]string, 0, len(pages)), Misses: misses, Lines: len(lines)}
	for _, p := range pages {
		res.Pages = append(res.Pages, p.Text())
	}
	metrics.RecordQueryPages(len(res.Pages))
	f.logger.Debug(ctx, "query formatted",
		logger.String("kind", kind),
		logger.Int("lines", res.Lines),
		logger.Int("pages", len(res.Pages)),
		logger.Int("misses", len(res.Misses)),
	)
	return res
}
