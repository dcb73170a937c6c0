// Package analysis orchestrates threat detection over a frame stream. Each
// analysis owns its own detector instances and tracking state, so any number
// of analyses can run concurrently against a shared vision model.
package analysis

import (
	"context"

	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/vision"
)

// Detector is one threat-class state machine fed frame by frame. Detectors
// are stateful and not safe for concurrent use; the pipeline creates a fresh
// set per analysis.
type Detector interface {
	Type() model.ThreatType
	Reset()
	SetTestingMode(enabled bool)
	ProcessFrame(ctx context.Context, frame vision.Frame, ts float64) (model.FrameReport, error)
}

// DetectorFactory builds a fresh detector for one threat class.
type DetectorFactory func(t model.ThreatType) (Detector, error)

// Status is the lifecycle state of one analysis.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether no further state changes can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Request describes one analysis to run.
type Request struct {
	// Target is the stream source handed to the source factory: a media
	// URL, camera id, or scenario name for simulated sources.
	Target string `json:"target"`
	// Types selects the threat classes to watch for. At least one.
	Types []model.ThreatType `json:"types"`
	// TestingMode rescales detection thresholds for demo footage.
	TestingMode bool `json:"testing_mode"`
	// FrameSkip processes every Nth frame; 0 and 1 both mean every frame.
	FrameSkip int `json:"frame_skip"`
}

// recentEventsTail bounds the per-analysis event tail kept for status reads.
const recentEventsTail = 20
