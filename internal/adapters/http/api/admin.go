package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/exambot/internal/domain/types"
)

// AdminDependencies defines the state-changing operations.
type AdminDependencies interface {
	Update(ctx context.Context, privileged bool) (types.IngestReport, error)
	SetSourceURL(ctx context.Context, raw string, privileged bool) error
	Notify(ctx context.Context, tokens []string, privileged bool) (types.NotifyReport, error)
	NotifyAll(ctx context.Context, privileged, async bool) (types.NotifyReport, error)
}

// AdminHandler handles mutating requests. Whether the caller is privileged
// is decided per request and passed through to the service.
type AdminHandler struct {
	deps       AdminDependencies
	privileged func(*http.Request) bool
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies, privileged func(*http.Request) bool) *AdminHandler {
	return &AdminHandler{deps: deps, privileged: privileged}
}

type sourceRequest struct {
	URL string `json:"url"`
}

type sourceResponse struct {
	URL string `json:"url"`
}

type notifyRequest struct {
	Courses []string `json:"courses"`
}

// HandleUpdate handles POST /update requests.
func (h *AdminHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_update"
	rep, err := h.deps.Update(r.Context(), h.privileged(r))
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleSetSource handles PUT /source requests.
func (h *AdminHandler) HandleSetSource(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_source"
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err.Error()))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, "missing url"))
		return
	}
	if err := h.deps.SetSourceURL(r.Context(), req.URL, h.privileged(r)); err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse{URL: strings.TrimSpace(req.URL)})
}

// HandleNotify handles POST /notify requests.
func (h *AdminHandler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_notify"
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err.Error()))
		return
	}
	rep, err := h.deps.Notify(r.Context(), req.Courses, h.privileged(r))
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleNotifyAll handles POST /notify/all?async=true requests. Queued
// batches answer 202 with the job id.
func (h *AdminHandler) HandleNotifyAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_notify_all"
	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, "async must be a boolean"))
			return
		}
		async = b
	}
	rep, err := h.deps.NotifyAll(r.Context(), h.privileged(r), async)
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	status := http.StatusOK
	if async {
		status = http.StatusAccepted
	}
	writeJSON(w, status, rep)
}
