// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/crowdex/vigil/internal/analysis"
	"github.com/crowdex/vigil/internal/domain/model"
)

// AnalyzeHandler handles analysis submissions.
type AnalyzeHandler struct {
	service AnalysisService
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(service AnalysisService) *AnalyzeHandler {
	return &AnalyzeHandler{service: service}
}

// analyzeRequest mirrors the request schema for POST /analyze.
type analyzeRequest struct {
	Target      string   `json:"target"`
	Types       []string `json:"types"`
	TestingMode bool     `json:"testing_mode"`
	FrameSkip   int      `json:"frame_skip"`
}

func (a analyzeRequest) validate() error {
	switch {
	case strings.TrimSpace(a.Target) == "":
		return errors.New("missing target")
	case len(a.Types) == 0:
		return errors.New("missing types")
	}
	return nil
}

// HandleAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	types := make([]model.ThreatType, 0, len(req.Types))
	for _, raw := range req.Types {
		t, err := model.ParseThreatType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_type", err)
			return
		}
		types = append(types, t)
	}

	a, err := h.service.Start(analysis.Request{
		Target:      req.Target,
		Types:       types,
		TestingMode: req.TestingMode,
		FrameSkip:   req.FrameSkip,
	})
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrShuttingDown):
			writeError(w, http.StatusServiceUnavailable, "shutting_down", err)
		case errors.Is(err, analysis.ErrInvalidRequest), errors.Is(err, analysis.ErrNoThreatTypes):
			writeError(w, http.StatusBadRequest, "invalid_request", err)
		case errors.Is(err, analysis.ErrTargetBusy):
			writeError(w, http.StatusConflict, "target_busy", err)
		default:
			writeError(w, http.StatusInternalServerError, "start_failed", err)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, a)
}
