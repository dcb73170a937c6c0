// Package simulate drives the full analysis pipeline with synthetic footage.
// Each scenario scripts the per-frame detections a vision model would emit
// for one incident and verifies that the expected events and alerts come out
// the other end.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	Scenarios  []string      // Scenario names to run; empty means all
	OutputFile string        // Output file for raised alerts
	LogFile    string        // Log file for run output
	Timeout    time.Duration // Overall run timeout
	FrameSkip  int           // Process every n-th frame
	Verbose    bool          // Enable verbose logging
}

// Result is the outcome of one scenario run.
type Result struct {
	Scenario   string  `json:"scenario"`
	AnalysisID string  `json:"analysis_id"`
	Status     string  `json:"status"`
	Frames     int     `json:"frames"`
	Events     int     `json:"events"`
	Alerts     int     `json:"alerts"`
	Seconds    float64 `json:"seconds"`
	Verified   bool    `json:"verified"`
	Error      string  `json:"error,omitempty"`
}

// Stats aggregates a full simulation run.
type Stats struct {
	ScenariosRun    int
	ScenariosPassed int
	AlertsRaised    int
	EventsDetected  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
