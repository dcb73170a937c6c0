// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/domain/model"
)

// AlertsHandler serves the alert history and status updates.
type AlertsHandler struct {
	store AlertStore
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(store AlertStore) *AlertsHandler {
	return &AlertsHandler{store: store}
}

// HandleAlerts handles GET /alerts requests. Supported query parameters:
// type, status, limit.
func (h *AlertsHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	var filter alerts.ListFilter
	q := r.URL.Query()

	if raw := q.Get("type"); raw != "" {
		t, err := model.ParseThreatType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_type", err)
			return
		}
		filter.Type = t
	}
	if raw := q.Get("status"); raw != "" {
		s, err := model.ParseAlertStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status", err)
			return
		}
		filter.Status = s
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	writeJSON(w, http.StatusOK, h.store.List(filter))
}

// statusUpdateRequest mirrors the request schema for PATCH /alerts/{id}.
type statusUpdateRequest struct {
	Status string `json:"status"`
}

// HandleAlertByID handles GET and PATCH /alerts/{id} requests.
func (h *AlertsHandler) HandleAlertByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/alerts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a, err := h.store.Get(id)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)

	case http.MethodPatch:
		var req statusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err)
			return
		}
		status, err := model.ParseAlertStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status", err)
			return
		}

		a, err := h.store.UpdateStatus(r.Context(), id, status)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)

	default:
		http.NotFound(w, r)
	}
}

func (h *AlertsHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, alerts.ErrAlertNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "alert_store", err)
}
