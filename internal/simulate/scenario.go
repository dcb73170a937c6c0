package simulate

import (
	"fmt"
	"math"
	"sort"

	"github.com/crowdex/vigil/internal/domain/model"
)

// Synthetic footage dimensions and pacing.
const (
	frameWidth    = 1280
	frameHeight   = 720
	frameInterval = 0.1 // seconds between frames, 10 fps
)

// Detection confidences and classes for scripted actors.
const (
	personConfidence   = 0.9
	bagConfidence      = 0.85
	keypointConfidence = 0.9
	backpackClass      = 24
)

// ScriptFrame is the ground truth for one synthetic frame. The clip encodes
// it into the frame image payload; the scripted vision model decodes it back.
type ScriptFrame struct {
	TS      float64           `json:"ts"`
	Objects []model.Detection `json:"objects,omitempty"`
	Poses   []model.Pose      `json:"poses,omitempty"`
}

// Scenario scripts one incident and names what the pipeline must produce
// from it. Scenarios always run in testing mode so persistence thresholds
// confirm within seconds of footage.
type Scenario struct {
	Name    string
	Threats []model.ThreatType

	// ExpectAlert names the alert type the run must raise; empty for
	// scenarios whose events stay below the alert gate.
	ExpectAlert model.ThreatType
	// ExpectEvent names an event type that must appear among the
	// analysis's recent events.
	ExpectEvent model.EventType

	Frames []ScriptFrame
}

// Scenarios returns the built-in scenarios for the given names, or all of
// them when names is empty.
func Scenarios(names []string) ([]Scenario, error) {
	all := map[string]func() Scenario{
		"abandonment": Abandonment,
		"collapse":    Collapse,
		"brawl":       Brawl,
		"scatter":     Scatter,
	}

	if len(names) == 0 {
		names = make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		build, ok := all[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
		}
		out = append(out, build())
	}
	return out, nil
}

// Abandonment scripts a person who sets a backpack down, lingers beside it
// and then walks off. The bag must confirm as abandoned once the testing
// threshold elapses.
func Abandonment() Scenario {
	const (
		bagX, bagY  = 330.0, 420.0
		ownerStartX = 300.0
		ownerY      = 400.0
		ownerStride = 80.0 // px per frame, under the track match distance
		ownerStopX  = 1140.0
		totalFrames = 71 // 7.1s of footage at 10 fps
		walkStart   = 10 // owner starts leaving at the 1s mark
	)

	frames := make([]ScriptFrame, 0, totalFrames)
	for i := 0; i < totalFrames; i++ {
		ownerX := ownerStartX
		if i >= walkStart {
			ownerX = math.Min(ownerStartX+float64(i-walkStart+1)*ownerStride, ownerStopX)
		}

		frames = append(frames, ScriptFrame{
			TS: float64(i) * frameInterval,
			Objects: []model.Detection{
				personDetection(ownerX, ownerY),
				bagDetection(bagX, bagY),
			},
		})
	}

	return Scenario{
		Name:        "abandonment",
		Threats:     []model.ThreatType{model.ThreatAbandonedObject},
		ExpectAlert: model.ThreatAbandonedObject,
		ExpectEvent: model.EventAbandonedObject,
		Frames:      frames,
	}
}

// Collapse scripts a person who stands for a second and then lies prone for
// longer than the testing threshold.
func Collapse() Scenario {
	const (
		totalFrames   = 66
		collapseFrame = 10
	)

	frames := make([]ScriptFrame, 0, totalFrames)
	for i := 0; i < totalFrames; i++ {
		pose := standingPose(500, 640)
		if i >= collapseFrame {
			pose = lyingPose(420, 615)
		}
		frames = append(frames, ScriptFrame{
			TS:    float64(i) * frameInterval,
			Poses: []model.Pose{pose},
		})
	}

	return Scenario{
		Name:        "collapse",
		Threats:     []model.ThreatType{model.ThreatAccident},
		ExpectAlert: model.ThreatAccident,
		ExpectEvent: model.EventMedicalEmergency,
		Frames:      frames,
	}
}

// Brawl scripts two people within fighting range trading fast vertical
// strikes. The per-person attacks must merge into a high-confidence fight.
func Brawl() Scenario {
	const (
		leftX, rightX = 600.0, 670.0
		wristHigh     = 360.0
		wristLow      = 490.0 // 130px swing per frame, 1300 px/s
		totalFrames   = 21
	)

	frames := make([]ScriptFrame, 0, totalFrames)
	for i := 0; i < totalFrames; i++ {
		wristY := wristHigh
		if i%2 == 1 {
			wristY = wristLow
		}

		left := standingPose(leftX, 520)
		left[model.KPRightWrist] = kp(leftX+30, wristY)
		right := standingPose(rightX, 520)
		right[model.KPLeftWrist] = kp(rightX-30, wristY)

		frames = append(frames, ScriptFrame{
			TS:    float64(i) * frameInterval,
			Poses: []model.Pose{left, right},
		})
	}

	return Scenario{
		Name:        "brawl",
		Threats:     []model.ThreatType{model.ThreatFight},
		ExpectAlert: model.ThreatFight,
		ExpectEvent: model.EventFight,
		Frames:      frames,
	}
}

// Scatter scripts five people fleeing radially from a common point. The
// dispersal registers as a crowd scatter event; its confidence stays below
// the alert gate.
func Scatter() Scenario {
	const (
		centerX, centerY = 640.0, 360.0
		startRadius      = 80.0
		stride           = 12.0 // px per frame away from the center
		people           = 5
		totalFrames      = 13
	)

	frames := make([]ScriptFrame, 0, totalFrames)
	for i := 0; i < totalFrames; i++ {
		radius := startRadius + float64(i)*stride

		poses := make([]model.Pose, 0, people)
		for p := 0; p < people; p++ {
			angle := 2 * math.Pi * float64(p) / people
			x := centerX + radius*math.Cos(angle)
			y := centerY + radius*math.Sin(angle)
			poses = append(poses, standingPose(x, y+110))
		}
		frames = append(frames, ScriptFrame{
			TS:    float64(i) * frameInterval,
			Poses: poses,
		})
	}

	return Scenario{
		Name:        "scatter",
		Threats:     []model.ThreatType{model.ThreatFight},
		ExpectEvent: model.EventCrowdScatter,
		Frames:      frames,
	}
}

func personDetection(cx, cy float64) model.Detection {
	return model.Detection{
		BBox:       model.Rect{X1: cx - 40, Y1: cy - 100, X2: cx + 40, Y2: cy + 100},
		Confidence: personConfidence,
		ClassID:    model.PersonClass,
	}
}

func bagDetection(cx, cy float64) model.Detection {
	return model.Detection{
		BBox:       model.Rect{X1: cx - 25, Y1: cy - 20, X2: cx + 25, Y2: cy + 20},
		Confidence: bagConfidence,
		ClassID:    backpackClass,
	}
}

func kp(x, y float64) model.Keypoint {
	return model.Keypoint{X: x, Y: y, Confidence: keypointConfidence}
}

// standingPose builds an upright figure whose feet rest at feetY.
func standingPose(cx, feetY float64) model.Pose {
	var p model.Pose
	p[model.KPNose] = kp(cx, feetY-220)
	p[model.KPLeftEye] = kp(cx-5, feetY-225)
	p[model.KPRightEye] = kp(cx+5, feetY-225)
	p[model.KPLeftEar] = kp(cx-10, feetY-220)
	p[model.KPRightEar] = kp(cx+10, feetY-220)
	p[model.KPLeftShoulder] = kp(cx-20, feetY-180)
	p[model.KPRightShoulder] = kp(cx+20, feetY-180)
	p[model.KPLeftElbow] = kp(cx-25, feetY-140)
	p[model.KPRightElbow] = kp(cx+25, feetY-140)
	p[model.KPLeftWrist] = kp(cx-30, feetY-100)
	p[model.KPRightWrist] = kp(cx+30, feetY-100)
	p[model.KPLeftHip] = kp(cx-15, feetY-100)
	p[model.KPRightHip] = kp(cx+15, feetY-100)
	p[model.KPLeftKnee] = kp(cx-15, feetY-50)
	p[model.KPRightKnee] = kp(cx+15, feetY-50)
	p[model.KPLeftAnkle] = kp(cx-15, feetY)
	p[model.KPRightAnkle] = kp(cx+15, feetY)
	return p
}

// lyingPose builds a figure stretched along the ground from headX rightward.
func lyingPose(headX, groundY float64) model.Pose {
	var p model.Pose
	p[model.KPNose] = kp(headX, groundY)
	p[model.KPLeftEye] = kp(headX+5, groundY-4)
	p[model.KPRightEye] = kp(headX+5, groundY+4)
	p[model.KPLeftEar] = kp(headX+10, groundY-4)
	p[model.KPRightEar] = kp(headX+10, groundY+4)
	p[model.KPLeftShoulder] = kp(headX+30, groundY-5)
	p[model.KPRightShoulder] = kp(headX+30, groundY+5)
	p[model.KPLeftElbow] = kp(headX+50, groundY-4)
	p[model.KPRightElbow] = kp(headX+50, groundY+4)
	p[model.KPLeftWrist] = kp(headX+70, groundY-3)
	p[model.KPRightWrist] = kp(headX+70, groundY+3)
	p[model.KPLeftHip] = kp(headX+120, groundY-5)
	p[model.KPRightHip] = kp(headX+120, groundY+5)
	p[model.KPLeftKnee] = kp(headX+160, groundY-4)
	p[model.KPRightKnee] = kp(headX+160, groundY+4)
	p[model.KPLeftAnkle] = kp(headX+200, groundY-3)
	p[model.KPRightAnkle] = kp(headX+200, groundY+3)
	return p
}
