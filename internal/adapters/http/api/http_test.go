package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/exambot/internal/adapters/channels"
	"github.com/okian/exambot/internal/adapters/http/api"
	"github.com/okian/exambot/internal/adapters/source"
	service "github.com/okian/exambot/internal/app"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/query"
	"github.com/okian/exambot/internal/domain/types"
)

type mockDependencies struct {
	tokens     []string
	privileged []bool
	async      bool
	sourceURL  string

	pages     types.Pages
	listErr   error
	roleErr   error
	updateErr error
	notifyErr error
	calendar  string
	calMisses []model.Miss
	notifyRep types.NotifyReport
	updateRep types.IngestReport
}

func (m *mockDependencies) Exams(ctx context.Context, tokens []string) types.Pages {
	m.tokens = tokens
	return m.pages
}

func (m *mockDependencies) RoleExams(ctx context.Context, roles []string) (types.Pages, error) {
	m.tokens = roles
	return m.pages, m.roleErr
}

func (m *mockDependencies) List(ctx context.Context) (types.Pages, error) {
	return m.pages, m.listErr
}

func (m *mockDependencies) Calendar(ctx context.Context, w io.Writer, tokens []string) ([]model.Miss, error) {
	m.tokens = tokens
	_, _ = io.WriteString(w, m.calendar)
	return m.calMisses, nil
}

func (m *mockDependencies) Update(ctx context.Context, privileged bool) (types.IngestReport, error) {
	m.privileged = append(m.privileged, privileged)
	if !privileged {
		return types.IngestReport{}, service.ErrNotPrivileged
	}
	return m.updateRep, m.updateErr
}

func (m *mockDependencies) SetSourceURL(ctx context.Context, raw string, privileged bool) error {
	m.privileged = append(m.privileged, privileged)
	if !privileged {
		return service.ErrNotPrivileged
	}
	if !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("%q: %w", raw, source.ErrInvalidURL)
	}
	m.sourceURL = raw
	return nil
}

func (m *mockDependencies) Notify(ctx context.Context, tokens []string, privileged bool) (types.NotifyReport, error) {
	m.privileged = append(m.privileged, privileged)
	m.tokens = tokens
	if len(tokens) == 0 {
		return types.NotifyReport{}, service.ErrNoCourses
	}
	return m.notifyRep, m.notifyErr
}

func (m *mockDependencies) NotifyAll(ctx context.Context, privileged, async bool) (types.NotifyReport, error) {
	m.privileged = append(m.privileged, privileged)
	m.async = async
	if async {
		return types.NotifyReport{JobID: "job-1"}, nil
	}
	return m.notifyRep, m.notifyErr
}

type mockStatsProvider struct {
	stats types.Stats
}

func (m *mockStatsProvider) GetStats() types.Stats {
	return m.stats
}

func serve(h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_ReadRoutes(t *testing.T) {
	Convey("Given a server over a schedule", t, func() {
		deps := &mockDependencies{
			pages: types.Pages{
				Pages:  []string{"COMP102\t120\t01/01/2021\t9:30 AM\tHMLT206\n", "ENGR123\t180\t02/01/2021\t1:00 PM\tKKLT303\n"},
				Misses: []model.Miss{{Token: "fake000", Reason: model.ReasonNoData}},
				Lines:  2,
			},
			calendar: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n",
		}
		stats := &mockStatsProvider{stats: types.Stats{Courses: 2, Generation: 3, DataFile: "data/timetable.xlsx"}}
		h := api.NewServer(deps, stats).Handler()

		Convey("When health is requested", func() {
			w := serve(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When stats are requested", func() {
			w := serve(h, http.MethodGet, "/stats", "")
			var got types.Stats
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(got.Courses, ShouldEqual, 2)
			So(got.Generation, ShouldEqual, 3)
		})

		Convey("When exams are requested with repeated and comma separated courses", func() {
			w := serve(h, http.MethodGet, "/exams?course=COMP102,%20ENGR123&course=fake000", "")

			Convey("Then every token reaches the service in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.tokens, ShouldResemble, []string{"COMP102", "ENGR123", "fake000"})
			})

			Convey("And the pages and misses are returned", func() {
				var got types.Pages
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				if diff := cmp.Diff(deps.pages, got); diff != "" {
					t.Errorf("pages mismatch (-want +got):\n%s", diff)
				}
			})
		})

		Convey("When exams are requested without a course", func() {
			w := serve(h, http.MethodGet, "/exams", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When role exams are requested without a role", func() {
			w := serve(h, http.MethodGet, "/exams/roles", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When role exams are requested", func() {
			w := serve(h, http.MethodGet, "/exams/roles?role=COMP-102", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.tokens, ShouldResemble, []string{"COMP-102"})
		})

		Convey("When the list is requested", func() {
			w := serve(h, http.MethodGet, "/list", "")
			var got struct {
				Pages []struct {
					Text   string `json:"text"`
					Footer string `json:"footer"`
				} `json:"pages"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)

			Convey("Then each page carries a footer", func() {
				So(got.Pages, ShouldHaveLength, 2)
				So(got.Pages[0].Footer, ShouldEqual, "Page 1 of 2")
				So(got.Pages[1].Footer, ShouldEqual, "Page 2 of 2")
				So(got.Pages[1].Text, ShouldStartWith, "ENGR123")
			})
		})

		Convey("When the list is empty", func() {
			deps.listErr = fmt.Errorf("list: %w", query.ErrNoData)
			w := serve(h, http.MethodGet, "/list", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the calendar is requested", func() {
			deps.calMisses = []model.Miss{{Token: "MATH161", Reason: model.ReasonNoData}, {Token: "x", Reason: model.ReasonNotACourse}}
			w := serve(h, http.MethodGet, "/exams.ics?course=COMP102", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/calendar")
			So(w.Header().Get(api.MissingHeader), ShouldEqual, "MATH161,x")
			So(w.Body.String(), ShouldEqual, deps.calendar)
		})

		Convey("When an unknown route is requested", func() {
			w := serve(h, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_AdminRoutes(t *testing.T) {
	Convey("Given a server guarded by an admin token", t, func() {
		deps := &mockDependencies{
			notifyRep: types.NotifyReport{Notified: 1},
			updateRep: types.IngestReport{Courses: 2, Generation: 1},
		}
		h := api.NewServer(deps, &mockStatsProvider{}, api.WithAdminToken("s3cret")).Handler()

		Convey("When update is called without the token", func() {
			w := serve(h, http.MethodPost, "/update", "")

			Convey("Then it is forbidden", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(deps.privileged, ShouldResemble, []bool{false})
			})
		})

		Convey("When update is called with a wrong token", func() {
			w := serve(h, http.MethodPost, "/update", "", api.AdminTokenHeader, "guess")
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When update is called with the token", func() {
			w := serve(h, http.MethodPost, "/update", "", api.AdminTokenHeader, "s3cret")
			var got types.IngestReport
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(got.Courses, ShouldEqual, 2)
		})

		Convey("When the source is set", func() {
			ok := serve(h, http.MethodPut, "/source", `{"url":"https://example.org/t.xlsx"}`, api.AdminTokenHeader, "s3cret")
			bad := serve(h, http.MethodPut, "/source", `{"url":"ftp://example.org/t.xlsx"}`, api.AdminTokenHeader, "s3cret")
			empty := serve(h, http.MethodPut, "/source", `{}`, api.AdminTokenHeader, "s3cret")
			garbage := serve(h, http.MethodPut, "/source", `{`, api.AdminTokenHeader, "s3cret")

			So(ok.Code, ShouldEqual, http.StatusOK)
			So(deps.sourceURL, ShouldEqual, "https://example.org/t.xlsx")
			So(bad.Code, ShouldEqual, http.StatusBadRequest)
			So(empty.Code, ShouldEqual, http.StatusBadRequest)
			So(garbage.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When notify is called", func() {
			w := serve(h, http.MethodPost, "/notify", `{"courses":["COMP102"]}`, api.AdminTokenHeader, "s3cret")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.tokens, ShouldResemble, []string{"COMP102"})
		})

		Convey("When notify is called with no courses", func() {
			w := serve(h, http.MethodPost, "/notify", `{"courses":[]}`, api.AdminTokenHeader, "s3cret")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When notify all is queued", func() {
			w := serve(h, http.MethodPost, "/notify/all?async=true", "", api.AdminTokenHeader, "s3cret")
			var got types.NotifyReport
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(got.JobID, ShouldEqual, "job-1")
			So(deps.async, ShouldBeTrue)
		})

		Convey("When notify all has a malformed async flag", func() {
			w := serve(h, http.MethodPost, "/notify/all?async=maybe", "", api.AdminTokenHeader, "s3cret")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Given a server without an admin token", t, func() {
		deps := &mockDependencies{}
		h := api.NewServer(deps, &mockStatsProvider{}).Handler()

		Convey("Then every caller is privileged", func() {
			w := serve(h, http.MethodPost, "/notify/all", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.privileged, ShouldResemble, []bool{true})
		})
	})
}

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given service failures", t, func() {
		cases := []struct {
			err  error
			code int
		}{
			{service.ErrNoSource, http.StatusConflict},
			{fmt.Errorf("%w: timeout", source.ErrFetch), http.StatusBadGateway},
			{service.ErrQueueFull, http.StatusTooManyRequests},
			{errors.New("boom"), http.StatusInternalServerError},
		}
		for _, c := range cases {
			deps := &mockDependencies{updateErr: c.err}
			h := api.NewServer(deps, &mockStatsProvider{}).Handler()
			w := serve(h, http.MethodPost, "/update", "")
			So(w.Code, ShouldEqual, c.code)
		}
	})
}

func TestServer_RateLimit(t *testing.T) {
	Convey("Given a limit of one mutating request per minute", t, func() {
		deps := &mockDependencies{}
		h := api.NewServer(deps, &mockStatsProvider{}, api.WithRateLimit(1)).Handler()

		first := serve(h, http.MethodPost, "/notify/all", "")
		second := serve(h, http.MethodPost, "/notify/all", "")
		read := serve(h, http.MethodGet, "/stats", "")

		So(first.Code, ShouldEqual, http.StatusOK)
		So(second.Code, ShouldEqual, http.StatusTooManyRequests)
		So(read.Code, ShouldEqual, http.StatusOK)
	})
}

func TestServer_Board(t *testing.T) {
	Convey("Given a server exposing the channel board", t, func() {
		board := channels.NewBoard("exambot")
		board.Create("comp-102")
		So(board.Say("comp-102", "alice", "hi"), ShouldBeNil)
		h := api.NewServer(&mockDependencies{}, &mockStatsProvider{}, api.WithBoard(board)).Handler()

		Convey("When a known channel is read", func() {
			w := serve(h, http.MethodGet, "/channels/comp-102", "")
			var got []channels.MessageView
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(got, ShouldHaveLength, 1)
			So(got[0].Author, ShouldEqual, "alice")
		})

		Convey("When an unknown channel is read", func() {
			w := serve(h, http.MethodGet, "/channels/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
