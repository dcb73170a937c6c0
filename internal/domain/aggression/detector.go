// Package aggression detects violent motion from pose velocities. Fast limb
// movement reads as punches and kicks, rapid downward head motion as falls,
// an attacker close to any other person reads as a fight, and coordinated
// flight from a group centroid reads as a crowd scatter.
package aggression

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/domain/track"
	"github.com/crowdex/vigil/internal/vision"
)

// Velocity thresholds in px/s and their confidence ramps.
const (
	punchVelocity = 800.0
	punchRamp     = 1000.0
	kickVelocity  = 900.0
	kickRamp      = 1200.0

	attackBaseConfidence = 0.5
	attackMaxConfidence  = 0.95

	fallVelocity       = 600.0
	fallBaseConfidence = 0.6
	fallRamp           = 1000.0
	fallMaxConfidence  = 0.90

	// Testing mode scales every velocity threshold down so scripted clips
	// with modest motion still trigger.
	testingVelocityScale = 0.6

	velocityWindow = 5 // samples for punch/kick velocities
	fallWindow     = 3 // samples for downward nose velocity

	fightPairDistance  = 80.0 // px between attackers to merge into a fight
	fightInvolvedBonus = 0.05
	fightMaxConfidence = 0.99

	scatterMinPersons     = 5
	scatterDistance       = 20.0 // px of outward movement per person
	scatterWindow         = 3    // samples over which the movement is measured
	scatterBaseConfidence = 0.7
	scatterPerPerson      = 0.03
	scatterMaxConfidence  = 0.95

	// Only high-confidence aggression events escalate to alerts; raw
	// punch/kick/fall events remain visible in frame telemetry.
	alertConfidenceGate = 0.95
)

// attack is a frame-local punch or kick candidate prior to fight merging.
type attack struct {
	personID int
	event    model.EventType
	conf     float64
	center   model.Point
}

// Detector turns pose motion into aggression events. Not safe for concurrent
// use; each analysis owns its own instance.
type Detector struct {
	histories map[int]*poseHistory

	poseModel vision.PoseEstimator
	tracker   track.Tracker

	velocityScale float64
	testingMode   bool
}

// New creates an aggression detector backed by the given pose estimator.
func New(poseModel vision.PoseEstimator, opts ...Option) *Detector {
	d := &Detector{
		histories:     make(map[int]*poseHistory),
		poseModel:     poseModel,
		tracker:       track.NewPositionTracker(),
		velocityScale: 1.0,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Type reports the threat class this detector covers.
func (d *Detector) Type() model.ThreatType { return model.ThreatFight }

// SetTestingMode rescales the velocity thresholds for demos and validation.
func (d *Detector) SetTestingMode(enabled bool) {
	d.testingMode = enabled
	if enabled {
		d.velocityScale = testingVelocityScale
	} else {
		d.velocityScale = 1.0
	}
}

// Reset drops all motion history and tracking state.
func (d *Detector) Reset() {
	d.histories = make(map[int]*poseHistory)
	d.tracker.Reset()
}

// ProcessFrame feeds one frame's poses through the motion analysis.
func (d *Detector) ProcessFrame(ctx context.Context, frame vision.Frame, ts float64) (model.FrameReport, error) {
	poses, err := d.poseModel.DetectPoses(ctx, frame)
	if err != nil {
		return model.FrameReport{}, fmt.Errorf("pose estimation: %w", err)
	}

	boxes := make([]model.Rect, len(poses))
	for i, pose := range poses {
		boxes[i], _ = pose.Bounds()
	}
	tracks := d.tracker.Update(boxes)

	centers := make(map[int]model.Point, len(tracks))
	for i, t := range tracks {
		h, ok := d.histories[t.ID]
		if !ok {
			h = &poseHistory{}
			d.histories[t.ID] = h
		}
		h.push(sample{TS: ts, Pose: poses[i], Center: t.Center})
		centers[t.ID] = t.Center
	}

	var events []model.Event
	var attacks []attack

	for id, center := range centers {
		h := d.histories[id]

		if a, ok := d.detectAttack(id, center, h); ok {
			attacks = append(attacks, a)
		}
		if ev, ok := d.detectFall(id, center, h, ts); ok {
			events = append(events, ev)
		}
	}

	events = append(events, d.mergeFights(attacks, centers, ts)...)

	if ev, ok := d.detectScatter(centers, ts); ok {
		events = append(events, ev)
	}

	var alerts []model.Event
	for _, ev := range events {
		if ev.Confidence >= alertConfidenceGate {
			alerts = append(alerts, ev)
		}
	}

	return model.FrameReport{
		PersonsDetected: len(poses),
		Events:          events,
		Alerts:          alerts,
		Timestamp:       ts,
	}, nil
}

// detectAttack checks wrist then ankle velocity for one person. A kick takes
// precedence over a punch only through its higher threshold; whichever limb
// clears its own bar with the higher confidence wins.
func (d *Detector) detectAttack(personID int, center model.Point, h *poseHistory) (attack, bool) {
	best := attack{personID: personID, center: center}

	wristSpeed := math.Max(
		h.maxKeypointSpeed(model.KPLeftWrist, velocityWindow),
		h.maxKeypointSpeed(model.KPRightWrist, velocityWindow),
	)
	if threshold := punchVelocity * d.velocityScale; wristSpeed > threshold {
		best.event = model.EventPunch
		best.conf = math.Min(attackBaseConfidence+(wristSpeed-threshold)/punchRamp, attackMaxConfidence)
	}

	ankleSpeed := math.Max(
		h.maxKeypointSpeed(model.KPLeftAnkle, velocityWindow),
		h.maxKeypointSpeed(model.KPRightAnkle, velocityWindow),
	)
	if threshold := kickVelocity * d.velocityScale; ankleSpeed > threshold {
		conf := math.Min(attackBaseConfidence+(ankleSpeed-threshold)/kickRamp, attackMaxConfidence)
		if conf > best.conf {
			best.event = model.EventKick
			best.conf = conf
		}
	}

	return best, best.event != ""
}

// detectFall checks for sustained downward head motion across the fall
// window.
func (d *Detector) detectFall(personID int, center model.Point, h *poseHistory, ts float64) (model.Event, bool) {
	speed := h.downwardSpeed(model.KPNose, fallWindow)
	threshold := fallVelocity * d.velocityScale
	if speed <= threshold {
		return model.Event{}, false
	}

	return model.Event{
		Type:       model.EventFall,
		Confidence: math.Min(fallBaseConfidence+speed/fallRamp, fallMaxConfidence),
		Persons:    []int{personID},
		Location:   center,
		Timestamp:  ts,
		Velocity:   speed,
		Metadata:   map[string]any{"person_id": personID},
	}, true
}

// mergeFights pairs each attacker with any tracked person inside the fight
// distance; the target does not need to be striking back. All fight pairs on
// a frame merge into a single fight event. Attackers with nobody nearby keep
// their individual punch or kick event.
func (d *Detector) mergeFights(attacks []attack, centers map[int]model.Point, ts float64) []model.Event {
	if len(attacks) == 0 {
		return nil
	}
	sort.Slice(attacks, func(i, j int) bool { return attacks[i].personID < attacks[j].personID })

	attackers := make(map[int]attack, len(attacks))
	for _, a := range attacks {
		attackers[a.personID] = a
	}

	// Deterministic pairing independent of map iteration order.
	ids := make([]int, 0, len(centers))
	for id := range centers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	involved := make(map[int]bool)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			p1, p2 := ids[i], ids[j]
			_, atk1 := attackers[p1]
			_, atk2 := attackers[p2]
			if !atk1 && !atk2 {
				continue
			}
			if centers[p1].Distance(centers[p2]) < fightPairDistance {
				involved[p1] = true
				involved[p2] = true
			}
		}
	}

	var events []model.Event
	for _, a := range attacks {
		if involved[a.personID] {
			continue
		}
		events = append(events, model.Event{
			Type:       a.event,
			Confidence: a.conf,
			Persons:    []int{a.personID},
			Location:   a.center,
			Timestamp:  ts,
			Metadata:   map[string]any{"person_id": a.personID},
		})
	}

	if len(involved) == 0 {
		return events
	}

	persons := make([]int, 0, len(involved))
	for id := range involved {
		persons = append(persons, id)
	}
	sort.Ints(persons)

	var points []model.Point
	maxConf := 0.0
	for _, id := range persons {
		points = append(points, centers[id])
		if a, ok := attackers[id]; ok && a.conf > maxConf {
			maxConf = a.conf
		}
	}
	events = append(events, model.Event{
		Type:       model.EventFight,
		Confidence: math.Min(maxConf+fightInvolvedBonus*float64(len(persons)), fightMaxConfidence),
		Persons:    persons,
		Location:   model.Centroid(points),
		Timestamp:  ts,
		Metadata:   map[string]any{"involved": len(persons)},
	})
	return events
}

// detectScatter looks for a crowd fleeing outward from its own centroid, a
// common signature of a nearby threat the camera cannot see.
func (d *Detector) detectScatter(centers map[int]model.Point, ts float64) (model.Event, bool) {
	if len(centers) < scatterMinPersons {
		return model.Event{}, false
	}

	points := make([]model.Point, 0, len(centers))
	for _, c := range centers {
		points = append(points, c)
	}
	centroid := model.Centroid(points)

	scattering := 0
	for id, now := range centers {
		h := d.histories[id]
		if h.len() < scatterWindow {
			continue
		}
		then, ok := h.centerAt(scatterWindow - 1)
		if !ok {
			continue
		}
		if now.Distance(centroid)-then.Distance(centroid) > scatterDistance {
			scattering++
		}
	}

	if scattering < scatterMinPersons {
		return model.Event{}, false
	}

	return model.Event{
		Type:       model.EventCrowdScatter,
		Confidence: math.Min(scatterBaseConfidence+scatterPerPerson*float64(scattering), scatterMaxConfidence),
		Location:   centroid,
		Timestamp:  ts,
		Metadata:   map[string]any{"person_count": scattering},
	}, true
}

// Tracked returns the number of persons with motion history.
func (d *Detector) Tracked() int { return len(d.histories) }
