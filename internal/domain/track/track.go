// Package track assigns stable integer ids to detections across consecutive
// frames. The default tracker matches on positional proximity only; a richer
// external tracker may be substituted through the same contract.
package track

import (
	"github.com/crowdex/vigil/internal/domain/model"
)

// defaultMatchDistance is the maximum center-to-center distance, in pixels,
// for a detection to reuse a known track id.
const defaultMatchDistance = 100

// Track pairs a stable id with the detection it was matched to this frame.
type Track struct {
	ID     int
	BBox   model.Rect
	Center model.Point
}

// Tracker is the identity-tracking contract shared by all threat detectors.
//
// Implementations are not safe for concurrent use; each analysis owns its
// own tracker instances.
type Tracker interface {
	// Update matches a frame's detections to known tracks and returns
	// (id, box) pairs. Unmatched detections receive fresh ids.
	Update(boxes []model.Rect) []Track

	// Assign resolves a single center position to a track id.
	Assign(center model.Point) int

	// Confirmed reports whether a track is established enough to act on.
	// The positional tracker confirms every track; richer trackers use this
	// to suppress tentative ones.
	Confirmed(id int) bool

	// Reset drops all tracking state and restarts id allocation.
	Reset()
}

// PositionTracker is the default Tracker: nearest known center within a
// fixed distance reuses its id, everything else allocates a new one.
//
// There is no removal policy. Stale ids persist in the position table until
// Reset; ids are cheap and tracking is approximate, but long-running streams
// should reset periodically.
type PositionTracker struct {
	matchDistance float64
	nextID        int
	positions     map[int]model.Point
}

// NewPositionTracker creates a positional tracker with configuration options.
func NewPositionTracker(opts ...Option) *PositionTracker {
	t := &PositionTracker{
		matchDistance: defaultMatchDistance,
		positions:     make(map[int]model.Point),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Update matches each detection to the nearest known track within the match
// distance, updating its stored position, and allocates fresh ids for the rest.
func (t *PositionTracker) Update(boxes []model.Rect) []Track {
	tracks := make([]Track, 0, len(boxes))
	for _, box := range boxes {
		center := box.Center()
		tracks = append(tracks, Track{
			ID:     t.Assign(center),
			BBox:   box,
			Center: center,
		})
	}
	return tracks
}

// Assign resolves a center to the nearest known track within the match
// distance, or to a freshly allocated id.
func (t *PositionTracker) Assign(center model.Point) int {
	bestID := -1
	bestDist := t.matchDistance
	for id, prev := range t.positions {
		if d := center.Distance(prev); d < bestDist {
			bestDist = d
			bestID = id
		}
	}
	if bestID >= 0 {
		t.positions[bestID] = center
		return bestID
	}

	id := t.nextID
	t.nextID++
	t.positions[id] = center
	return id
}

// Confirmed always reports true for positional tracks.
func (t *PositionTracker) Confirmed(id int) bool {
	_, ok := t.positions[id]
	return ok
}

// Reset drops all tracking state and restarts id allocation.
func (t *PositionTracker) Reset() {
	t.positions = make(map[int]model.Point)
	t.nextID = 0
}

// Size returns the number of ids currently in the position table.
func (t *PositionTracker) Size() int {
	return len(t.positions)
}
