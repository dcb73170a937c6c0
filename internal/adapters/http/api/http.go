// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/crowdex/vigil/internal/adapters/repository"
	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/analysis"
	"github.com/crowdex/vigil/internal/domain/model"
)

// AnalysisService is the pipeline surface the handlers need.
type AnalysisService interface {
	Start(req analysis.Request) (analysis.Analysis, error)
}

// AnalysisReader exposes analysis lifecycle state.
type AnalysisReader interface {
	Get(id string) (analysis.Analysis, error)
	List() []analysis.Analysis
	Active() int
}

// AlertStore is the alert surface the handlers need.
type AlertStore interface {
	List(filter alerts.ListFilter) []alerts.Alert
	Get(id string) (alerts.Alert, error)
	UpdateStatus(ctx context.Context, id string, status model.AlertStatus) (alerts.Alert, error)
	Stats() alerts.Stats
	Subscribe() (<-chan alerts.Alert, func())
}

// RankingStore is the incident severity ranking surface the handlers need.
type RankingStore interface {
	TopN(ctx context.Context, n int) ([]repository.Entry, error)
	Rank(ctx context.Context, analysisID string) (repository.Entry, error)
	Count(ctx context.Context) int
}

// Server wires HTTP routes for the monitoring API.
type Server struct {
	healthHandler  *HealthHandler
	analyzeHandler *AnalyzeHandler
	statusHandler  *StatusHandler
	alertsHandler  *AlertsHandler
	statsHandler   *StatsHandler
	alertFeed      *AlertFeedHandler
	analysisStream *AnalysisStreamHandler

	// optional, enabled via WithRankingStore
	rankingsHandler *RankingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(service AnalysisService, reader AnalysisReader, store AlertStore, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		analyzeHandler: NewAnalyzeHandler(service),
		statusHandler:  NewStatusHandler(reader),
		alertsHandler:  NewAlertsHandler(store),
		statsHandler:   NewStatsHandler(store, reader),
		alertFeed:      NewAlertFeedHandler(store),
		analysisStream: NewAnalysisStreamHandler(reader),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/status/", MetricsMiddleware(s.statusHandler.HandleGetStatus, "status"))
	mux.HandleFunc("/alerts", MetricsMiddleware(s.alertsHandler.HandleAlerts, "alerts"))
	mux.HandleFunc("/alerts/", MetricsMiddleware(s.alertsHandler.HandleAlertByID, "alerts_by_id"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ws/alerts", s.alertFeed.HandleAlertFeed)
	mux.HandleFunc("/ws/analysis/", s.analysisStream.HandleAnalysisStream)

	if s.rankingsHandler != nil {
		mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleRankings, "rankings"))
		mux.HandleFunc("/rankings/", MetricsMiddleware(s.rankingsHandler.HandleRankByID, "rank_by_id"))
	}
}
