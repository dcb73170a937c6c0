// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/crowdex/vigil/internal/analysis"
)

// StatusHandler serves analysis lifecycle state.
type StatusHandler struct {
	reader AnalysisReader
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(reader AnalysisReader) *StatusHandler {
	return &StatusHandler{reader: reader}
}

// HandleGetStatus handles GET /status/{id} requests. GET /status/ with no id
// lists all analyses, newest first.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/status/")
	if id == "" {
		writeJSON(w, http.StatusOK, h.reader.List())
		return
	}

	a, err := h.reader.Get(id)
	if err != nil {
		if errors.Is(err, analysis.ErrAnalysisNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "status_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
