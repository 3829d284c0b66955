package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/types"
)

// ExamsDependencies defines the read operations behind the exam routes.
type ExamsDependencies interface {
	Exams(ctx context.Context, tokens []string) types.Pages
	RoleExams(ctx context.Context, roles []string) (types.Pages, error)
	List(ctx context.Context) (types.Pages, error)
	Calendar(ctx context.Context, w io.Writer, tokens []string) ([]model.Miss, error)
}

// MissingHeader lists tokens that produced no calendar event.
const MissingHeader = "X-Missing-Courses"

// ExamsHandler handles exam queries.
type ExamsHandler struct {
	deps ExamsDependencies
}

// NewExamsHandler creates a new exams handler.
func NewExamsHandler(deps ExamsDependencies) *ExamsHandler {
	return &ExamsHandler{deps: deps}
}

// listPage is one message of a listing plus its footer. The footer is
// rendered outside the message body and does not count against the budget.
type listPage struct {
	Text   string `json:"text"`
	Footer string `json:"footer"`
}

type listResponse struct {
	Pages  []listPage   `json:"pages"`
	Misses []model.Miss `json:"misses,omitempty"`
	Lines  int          `json:"lines"`
}

func footed(p types.Pages) listResponse {
	out := listResponse{Pages: make([]listPage, len(p.Pages)), Misses: p.Misses, Lines: p.Lines}
	for i, text := range p.Pages {
		out.Pages[i] = listPage{Text: text, Footer: fmt.Sprintf("Page %d of %d", i+1, len(p.Pages))}
	}
	return out
}

// HandleExams handles GET /exams?course=COMP102&course=ENGR123 requests.
func (h *ExamsHandler) HandleExams(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_exams"
	courses := tokens(r, "course")
	if len(courses) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, "missing course"))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Exams(r.Context(), courses))
}

// HandleRoles handles GET /exams/roles?role=COMP-102 requests.
func (h *ExamsHandler) HandleRoles(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_role_exams"
	roles := tokens(r, "role")
	if len(roles) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, "missing role"))
		return
	}
	res, err := h.deps.RoleExams(r.Context(), roles)
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleList handles GET /list requests.
func (h *ExamsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_list"
	res, err := h.deps.List(r.Context())
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, footed(res))
}

// HandleCalendar handles GET /exams.ics requests. Without a course filter
// the whole schedule is exported.
func (h *ExamsHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_calendar"
	var buf bytes.Buffer
	misses, err := h.deps.Calendar(r.Context(), &buf, tokens(r, "course"))
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	if len(misses) > 0 {
		names := make([]string, len(misses))
		for i, m := range misses {
			names[i] = m.Token
		}
		w.Header().Set(MissingHeader, strings.Join(names, ","))
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="exams.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
