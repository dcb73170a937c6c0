// Package repository is the incident severity ranking store. Each analysis
// target holds one row carrying its peak alert severity; the ranking orders
// live incidents for operator triage.
package repository

import "context"

// Entry is one ranked incident.
type Entry struct {
	Rank       int     `json:"rank"`
	AnalysisID string  `json:"analysis_id"`
	Severity   float64 `json:"severity"`
	AlertID    string  `json:"alert_id,omitempty"`
	Threat     string  `json:"threat,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Store provides read/write access to the ranking state.
type Store interface {
	// UpdateBest records a new peak severity for an analysis if it exceeds
	// the current one. Returns true if the store updated the row.
	UpdateBest(ctx context.Context, analysisID string, severity float64) (bool, error)
	// UpdateBestWithMeta records a new peak severity and the alert that set
	// it when improved.
	UpdateBestWithMeta(ctx context.Context, analysisID string, severity float64, alertID string, threat string, confidence float64) (bool, error)

	// Rank returns the current rank and severity for an analysis.
	// Returns ErrNotFound if the analysis never produced an alert.
	Rank(ctx context.Context, analysisID string) (Entry, error)

	// TopN returns the n most severe incidents, severity descending.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of ranked incidents.
	Count(ctx context.Context) int
}
