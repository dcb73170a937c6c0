// Package abandon implements the unattended-baggage state machine. Per
// tracked object it maintains ownership by the nearest person and an
// abandonment timer, and emits an abandonment event at most once per object.
package abandon

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
	defaultAbandonmentThreshold = 120.0 // seconds before a separated object confirms
	testingAbandonmentThreshold = 5.0
	defaultOwnershipDistance    = 200.0 // px person-object separation
	defaultStationaryDistance   = 30.0  // px movement below which an object is stationary
	minDetectionConfidence      = 0.5

	baseConfidence    = 0.85
	confidenceRamp    = 300.0 // seconds of separation to reach the ramp cap
	confidenceRampCap = 0.14
	maxConfidence     = 0.99
)

// Object is a tracked bag/package and its ownership state. Entries persist
// across frames and are mutated in place; they are removed only on Reset.
type Object struct {
	ID     int
	Class  string
	BBox   model.Rect
	Center model.Point

	Owner         int  // last known owner track id, valid while Owned
	Owned         bool
	LastNearOwner float64 // timestamp the owner was last within ownership distance

	Pending        bool    // abandonment timer running
	AbandonedSince float64 // valid while Pending

	Stationary      bool
	StationarySince float64
}

// Detector runs the abandonment state machine over frame-local detections.
// Not safe for concurrent use; each analysis owns its own instance.
type Detector struct {
	objects   map[int]*Object
	persons   map[int]model.TrackedPerson // rebuilt each frame
	confirmed map[int]struct{}            // object ids that already alerted

	personTracker track.Tracker
	objectTracker track.Tracker
	objModel      vision.ObjectDetector

	ownershipDistance  float64
	stationaryDistance float64
	normalThreshold    float64
	threshold          float64
	testingMode        bool
}

// New creates an abandonment detector backed by the given object detector.
func New(objModel vision.ObjectDetector, opts ...Option) *Detector {
	d := &Detector{
		objects:            make(map[int]*Object),
		persons:            make(map[int]model.TrackedPerson),
		confirmed:          make(map[int]struct{}),
		personTracker:      track.NewPositionTracker(),
		objectTracker:      track.NewPositionTracker(),
		objModel:           objModel,
		ownershipDistance:  defaultOwnershipDistance,
		stationaryDistance: defaultStationaryDistance,
		normalThreshold:    defaultAbandonmentThreshold,
		threshold:          defaultAbandonmentThreshold,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Type reports the threat class this detector covers.
func (d *Detector) Type() model.ThreatType { return model.ThreatAbandonedObject }

// SetTestingMode rescales the abandonment threshold for demos and validation.
// Must not be toggled mid-analysis; running timers keep their old baseline.
func (d *Detector) SetTestingMode(enabled bool) {
	d.testingMode = enabled
	if enabled {
		d.threshold = testingAbandonmentThreshold
	} else {
		d.threshold = d.normalThreshold
	}
}

// Reset drops all tracking and confirmation state.
func (d *Detector) Reset() {
	d.objects = make(map[int]*Object)
	d.persons = make(map[int]model.TrackedPerson)
	d.confirmed = make(map[int]struct{})
	d.personTracker.Reset()
	d.objectTracker.Reset()
}

// ProcessFrame feeds one frame's detections through the state machine.
// Timestamps are seconds relative to the start of the source and must be
// monotonically increasing.
func (d *Detector) ProcessFrame(ctx context.Context, frame vision.Frame, ts float64) (model.FrameReport, error) {
	classes := make([]int, 0, len(model.ObjectClasses)+1)
	classes = append(classes, model.PersonClass)
	for id := range model.ObjectClasses {
		classes = append(classes, id)
	}

	detections, err := d.objModel.DetectObjects(ctx, frame, classes)
	if err != nil {
		return model.FrameReport{}, fmt.Errorf("abandonment detection: %w", err)
	}

	var personBoxes []model.Rect
	var objectBoxes []model.Rect
	var objectClasses []string
	for _, det := range detections {
		if det.Confidence < minDetectionConfidence {
			continue
		}
		switch {
		case det.ClassID == model.PersonClass:
			personBoxes = append(personBoxes, det.BBox)
		default:
			if label, ok := model.ObjectClasses[det.ClassID]; ok {
				objectBoxes = append(objectBoxes, det.BBox)
				objectClasses = append(objectClasses, label)
			}
		}
	}

	personTracks := d.personTracker.Update(personBoxes)
	objectTracks := d.objectTracker.Update(objectBoxes)

	// Persons carry no state beyond the id; rebuild the table every frame.
	d.persons = make(map[int]model.TrackedPerson, len(personTracks))
	for _, t := range personTracks {
		d.persons[t.ID] = model.TrackedPerson{ID: t.ID, BBox: t.BBox, Center: t.Center}
	}

	var events []model.Event
	for i, t := range objectTracks {
		obj := d.observeObject(t, objectClasses[i], ts)
		if ev, ok := d.checkAbandonment(obj, ts); ok {
			events = append(events, ev)
		}
	}

	return model.FrameReport{
		PersonsDetected: len(personTracks),
		ObjectsDetected: len(objectTracks),
		Events:          events,
		Alerts:          events, // abandonment events are always alert-worthy
		Timestamp:       ts,
	}, nil
}

// observeObject updates or creates the persistent state for one object track.
func (d *Detector) observeObject(t track.Track, class string, ts float64) *Object {
	obj, ok := d.objects[t.ID]
	if !ok {
		obj = &Object{ID: t.ID, Class: class, BBox: t.BBox, Center: t.Center}
		d.objects[t.ID] = obj
		return obj
	}

	movement := t.Center.Distance(obj.Center)
	if movement < d.stationaryDistance {
		if !obj.Stationary {
			obj.Stationary = true
			obj.StationarySince = ts
		}
	} else {
		obj.Stationary = false
		obj.StationarySince = 0
	}

	obj.BBox = t.BBox
	obj.Center = t.Center
	return obj
}

// checkAbandonment re-evaluates ownership for one object and advances its
// abandonment timer. Absence of any person counts as owner departure.
func (d *Detector) checkAbandonment(obj *Object, ts float64) (model.Event, bool) {
	ownerID, dist := d.nearestPerson(obj.Center)

	if ownerID >= 0 && dist < d.ownershipDistance {
		// Person near the object; ownership refreshes and any running
		// abandonment timer clears immediately.
		obj.Owner = ownerID
		obj.Owned = true
		obj.LastNearOwner = ts
		obj.Pending = false
		obj.AbandonedSince = 0
		return model.Event{}, false
	}

	if !obj.Owned {
		return model.Event{}, false
	}

	if !obj.Pending {
		obj.Pending = true
		obj.AbandonedSince = ts
	}

	elapsed := ts - obj.AbandonedSince
	if elapsed < d.threshold {
		return model.Event{}, false
	}
	if _, done := d.confirmed[obj.ID]; done {
		return model.Event{}, false
	}
	d.confirmed[obj.ID] = struct{}{}

	confidence := math.Min(baseConfidence+math.Min(elapsed/confidenceRamp, confidenceRampCap), maxConfidence)
	return model.Event{
		Type:       model.EventAbandonedObject,
		Confidence: confidence,
		Persons:    []int{obj.Owner},
		Location:   obj.Center,
		Timestamp:  ts,
		Metadata: map[string]any{
			"object_id":          obj.ID,
			"object_type":        obj.Class,
			"abandoned_duration": elapsed,
			"last_owner_id":      obj.Owner,
			"stationary":         obj.Stationary,
		},
	}, true
}

// nearestPerson returns the closest tracked person to p, or (-1, +Inf) when
// no person is in frame.
func (d *Detector) nearestPerson(p model.Point) (int, float64) {
	nearest := -1
	minDist := math.Inf(1)
	for id, person := range d.persons {
		if dist := p.Distance(person.Center); dist < minDist {
			minDist = dist
			nearest = id
		}
	}
	return nearest, minDist
}

// Objects returns the number of objects currently tracked.
func (d *Detector) Objects() int { return len(d.objects) }

// Confirmed returns the number of objects that have already alerted.
func (d *Detector) Confirmed() int { return len(d.confirmed) }
