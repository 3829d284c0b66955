// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/okian/exambot/internal/adapters/channels"
	"github.com/okian/exambot/internal/adapters/http/swagger"
	"github.com/okian/exambot/internal/adapters/source"
	"github.com/okian/exambot/internal/adapters/spreadsheet"
	service "github.com/okian/exambot/internal/app"
	"github.com/okian/exambot/internal/domain/ingest"
	"github.com/okian/exambot/internal/domain/notify"
	"github.com/okian/exambot/internal/domain/query"
	"github.com/okian/exambot/pkg/logger"
)

// AdminTokenHeader carries the admin token on mutating requests.
const AdminTokenHeader = "X-Admin-Token"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ExamsDependencies
	AdminDependencies
}

// BoardReader exposes the in-memory channel board for inspection.
type BoardReader interface {
	Messages(name string) ([]channels.MessageView, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps          Dependencies
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	examsHandler  *ExamsHandler
	adminHandler  *AdminHandler
	boardHandler  *BoardHandler

	adminToken string
	rateLimit  int
	logger     logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.examsHandler = NewExamsHandler(deps)
	s.adminHandler = NewAdminHandler(deps, s.privileged)
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.correlation)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Register(r)

	r.Get("/exams", MetricsMiddleware(s.examsHandler.HandleExams, "exams"))
	r.Get("/exams/roles", MetricsMiddleware(s.examsHandler.HandleRoles, "exams_roles"))
	r.Get("/exams.ics", MetricsMiddleware(s.examsHandler.HandleCalendar, "exams_ics"))
	r.Get("/list", MetricsMiddleware(s.examsHandler.HandleList, "list"))

	r.Group(func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
		}
		r.Post("/update", MetricsMiddleware(s.adminHandler.HandleUpdate, "update"))
		r.Put("/source", MetricsMiddleware(s.adminHandler.HandleSetSource, "source"))
		r.Post("/notify", MetricsMiddleware(s.adminHandler.HandleNotify, "notify"))
		r.Post("/notify/all", MetricsMiddleware(s.adminHandler.HandleNotifyAll, "notify_all"))
	})

	if s.boardHandler != nil {
		r.Get("/channels/{name}", MetricsMiddleware(s.boardHandler.HandleChannel, "channels"))
	}
	return r
}

// privileged reports whether the request carries the admin token. With no
// token configured every caller is privileged.
func (s *Server) privileged(r *http.Request) bool {
	if s.adminToken == "" {
		return true
	}
	got := r.Header.Get(AdminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) == 1
}

func (s *Server) correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithCorrelationID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
		s.logger.Debug(ctx, "request served", logger.String("method", r.Method), logger.String("path", r.URL.Path))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotPrivileged):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, source.ErrInvalidURL),
		errors.Is(err, service.ErrNoCourses):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, query.ErrNoData),
		errors.Is(err, notify.ErrChannelNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrNoSource):
		writeError(w, http.StatusConflict, "no_source", err)
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, source.ErrFetch), errors.Is(err, source.ErrTooLarge):
		writeError(w, http.StatusBadGateway, "fetch_failed", err)
	case errors.Is(err, ingest.ErrNoCourses),
		errors.Is(err, ingest.ErrIngestionSource),
		errors.Is(err, spreadsheet.ErrOpen),
		errors.Is(err, spreadsheet.ErrNoSheet),
		errors.Is(err, spreadsheet.ErrRead):
		writeError(w, http.StatusUnprocessableEntity, "ingest_failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// tokens collects repeated and comma-separated query values.
func tokens(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
