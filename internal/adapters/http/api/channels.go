package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// BoardHandler serves the in-memory channel board.
type BoardHandler struct {
	board BoardReader
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(b BoardReader) *BoardHandler {
	return &BoardHandler{board: b}
}

// HandleChannel handles GET /channels/{name} requests.
func (h *BoardHandler) HandleChannel(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_channel"
	msgs, err := h.board.Messages(chi.URLParam(r, "name"))
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
