package analysis

import "errors"

var (
	// ErrAnalysisNotFound is returned when an analysis id is unknown.
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrNoThreatTypes is returned when a request selects nothing to watch.
	ErrNoThreatTypes = errors.New("at least one threat type required")
	// ErrInvalidRequest is returned for malformed analysis requests.
	ErrInvalidRequest = errors.New("invalid analysis request")
	// ErrTargetBusy is returned when the target already has a live analysis.
	ErrTargetBusy = errors.New("target already under analysis")
	// ErrShuttingDown is returned once the service stopped accepting work.
	ErrShuttingDown = errors.New("service shutting down")
)
