// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/crowdex/vigil/internal/alerts"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	store  AlertStore
	reader AnalysisReader
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store AlertStore, reader AnalysisReader) *StatsHandler {
	return &StatsHandler{store: store, reader: reader}
}

// statsResponse is the aggregate shape for GET /stats.
type statsResponse struct {
	Alerts         alerts.Stats `json:"alerts"`
	ActiveAnalyses int          `json:"active_analyses"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Alerts:         h.store.Stats(),
		ActiveAnalyses: h.reader.Active(),
	})
}
