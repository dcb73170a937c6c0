// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/crowdex/vigil/internal/adapters/repository"
)

// defaultRankingLimit applies when GET /rankings carries no limit.
const defaultRankingLimit = 10

// RankingsHandler serves the incident severity ranking.
type RankingsHandler struct {
	store RankingStore
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(store RankingStore) *RankingsHandler {
	return &RankingsHandler{store: store}
}

// rankingsResponse mirrors the response schema for GET /rankings.
type rankingsResponse struct {
	Total   int                `json:"total"`
	Entries []repository.Entry `json:"entries"`
}

// HandleRankings handles GET /rankings requests. Supported query
// parameters: limit.
func (h *RankingsHandler) HandleRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultRankingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.store.TopN(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ranking_store", err)
		return
	}

	writeJSON(w, http.StatusOK, rankingsResponse{
		Total:   h.store.Count(r.Context()),
		Entries: entries,
	})
}

// HandleRankByID handles GET /rankings/{analysisID} requests.
func (h *RankingsHandler) HandleRankByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/rankings/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	entry, err := h.store.Rank(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "ranking_store", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
