// Package prone detects medical emergencies from pose geometry. A person
// whose keypoint layout reads as lying down starts an episode; the episode
// escalates to an emergency once it persists past the duration threshold.
package prone

import (
	"context"
	"fmt"
	"math"

	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/domain/track"
	"github.com/crowdex/vigil/internal/vision"
)

// Detection thresholds.
const (
	defaultProneThreshold = 30.0 // seconds lying down before an emergency confirms
	testingProneThreshold = 5.0
	staleEpisodeTimeout   = 5.0 // seconds without a prone observation before an episode drops

	// Primary geometry: a wide, flat keypoint bounding box with shoulders
	// and ankles at similar heights.
	proneAspectRatio     = 1.5
	verticalSpanFactor   = 0.5
	proneBaseConfidence  = 0.5
	proneConfidenceSlope = 0.2
	proneMaxConfidence   = 0.95

	// Fallback geometry: body low in the frame and wider than tall.
	fallbackAspectRatio = 1.2
	groundLineFraction  = 0.8
	fallbackConfidence  = 0.7

	minValidKeypoints = 4

	emergencyRamp          = 100.0 // seconds of lying to reach full confidence
	emergencyMaxConfidence = 0.99
)

// Episode is one continuous lying-down observation for a tracked person.
type Episode struct {
	PersonID   int
	Start      float64
	LastSeen   float64
	Location   model.Point
	Confidence float64 // latest prone-geometry confidence
	Alerted    bool
}

// Detector turns per-frame pose geometry into durable emergency events.
// Not safe for concurrent use; each analysis owns its own instance.
type Detector struct {
	episodes map[int]*Episode

	poseModel vision.PoseEstimator
	tracker   track.Tracker
	restZones []model.Rect

	normalThreshold float64
	threshold       float64
	testingMode     bool
}

// New creates a prone detector backed by the given pose estimator.
func New(poseModel vision.PoseEstimator, opts ...Option) *Detector {
	d := &Detector{
		episodes:        make(map[int]*Episode),
		poseModel:       poseModel,
		tracker:         track.NewPositionTracker(),
		normalThreshold: defaultProneThreshold,
		threshold:       defaultProneThreshold,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Type reports the threat class this detector covers.
func (d *Detector) Type() model.ThreatType { return model.ThreatAccident }

// SetTestingMode rescales the emergency threshold for demos and validation.
func (d *Detector) SetTestingMode(enabled bool) {
	d.testingMode = enabled
	if enabled {
		d.threshold = testingProneThreshold
	} else {
		d.threshold = d.normalThreshold
	}
}

// Reset drops all episode and tracking state.
func (d *Detector) Reset() {
	d.episodes = make(map[int]*Episode)
	d.tracker.Reset()
}

// ProcessFrame feeds one frame's poses through the episode state machine.
func (d *Detector) ProcessFrame(ctx context.Context, frame vision.Frame, ts float64) (model.FrameReport, error) {
	poses, err := d.poseModel.DetectPoses(ctx, frame)
	if err != nil {
		return model.FrameReport{}, fmt.Errorf("pose estimation: %w", err)
	}

	boxes := make([]model.Rect, len(poses))
	for i, pose := range poses {
		boxes[i] = keypointBounds(pose)
	}
	tracks := d.tracker.Update(boxes)

	var events []model.Event
	proneCount := 0
	for i, pose := range poses {
		confidence, isProne := classifyPose(pose, frame.Height)
		center := tracks[i].Center
		if !isProne || d.inRestZone(center) {
			// A non-prone observation ends the episode on the spot; the next
			// lie-down accumulates the full threshold from zero.
			delete(d.episodes, tracks[i].ID)
			continue
		}
		proneCount++

		if ev, ok := d.observeProne(tracks[i].ID, center, confidence, ts); ok {
			events = append(events, ev)
		}
	}

	d.sweepStale(ts)

	return model.FrameReport{
		PersonsDetected: len(poses),
		ProneDetected:   proneCount,
		Events:          events,
		Alerts:          events, // emergency events are always alert-worthy
		Timestamp:       ts,
	}, nil
}

// observeProne refreshes or creates the episode for one person and escalates
// it when the duration threshold is crossed.
func (d *Detector) observeProne(personID int, center model.Point, confidence, ts float64) (model.Event, bool) {
	ep, ok := d.episodes[personID]
	if !ok {
		ep = &Episode{PersonID: personID, Start: ts}
		d.episodes[personID] = ep
	}
	ep.LastSeen = ts
	ep.Location = center
	ep.Confidence = confidence

	elapsed := ts - ep.Start
	if elapsed < d.threshold || ep.Alerted {
		return model.Event{}, false
	}
	ep.Alerted = true

	eventConfidence := math.Min(confidence+elapsed/emergencyRamp, emergencyMaxConfidence)
	return model.Event{
		Type:       model.EventMedicalEmergency,
		Confidence: eventConfidence,
		Persons:    []int{personID},
		Location:   center,
		Timestamp:  ts,
		Metadata: map[string]any{
			"person_id":      personID,
			"prone_duration": elapsed,
		},
	}, true
}

// sweepStale drops episodes for persons who left the frame entirely; a
// person observed standing is deleted immediately in ProcessFrame.
func (d *Detector) sweepStale(ts float64) {
	for id, ep := range d.episodes {
		if ts-ep.LastSeen > staleEpisodeTimeout {
			delete(d.episodes, id)
		}
	}
}

func (d *Detector) inRestZone(p model.Point) bool {
	for _, zone := range d.restZones {
		if zone.Contains(p) {
			return true
		}
	}
	return false
}

// Episodes returns the number of episodes currently tracked.
func (d *Detector) Episodes() int { return len(d.episodes) }

// classifyPose decides whether a keypoint set reads as lying down and with
// what confidence. frameHeight anchors the fallback ground-line check.
func classifyPose(pose model.Pose, frameHeight int) (float64, bool) {
	bounds, validCount := pose.Bounds()
	if validCount < minValidKeypoints {
		return 0, false
	}

	width := bounds.Width()
	height := bounds.Height()
	if height <= 0 {
		return 0, false
	}
	ratio := width / height

	// Wide flat body with shoulders and ankles at similar heights.
	if ratio > proneAspectRatio {
		shoulderY, shouldersOK := averageY(pose, model.KPLeftShoulder, model.KPRightShoulder)
		ankleY, anklesOK := averageY(pose, model.KPLeftAnkle, model.KPRightAnkle)
		if shouldersOK && anklesOK && math.Abs(shoulderY-ankleY) < verticalSpanFactor*height {
			conf := math.Min(proneBaseConfidence+(ratio-proneAspectRatio)*proneConfidenceSlope, proneMaxConfidence)
			return conf, true
		}
	}

	// Body low in the frame, still wider than tall. Catches poses where the
	// ankles are occluded.
	if frameHeight > 0 && ratio > fallbackAspectRatio {
		avgY := (bounds.Y1 + bounds.Y2) / 2
		if avgY > groundLineFraction*float64(frameHeight) {
			return fallbackConfidence, true
		}
	}

	return 0, false
}

// averageY averages the Y of two keypoints when both are confident.
func averageY(pose model.Pose, a, b int) (float64, bool) {
	if !pose[a].Valid() || !pose[b].Valid() {
		return 0, false
	}
	return (pose[a].Y + pose[b].Y) / 2, true
}

// keypointBounds is the association box for the tracker; invalid keypoints
// are excluded so occlusions do not drag the center around.
func keypointBounds(pose model.Pose) model.Rect {
	bounds, _ := pose.Bounds()
	return bounds
}
