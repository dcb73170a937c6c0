package model

// EventType classifies a detected incident before it becomes an alert.
type EventType string

// Event types emitted by the threat detectors.
const (
	EventPunch            EventType = "punch"
	EventKick             EventType = "kick"
	EventFall             EventType = "fall"
	EventFight            EventType = "fight"
	EventCrowdScatter     EventType = "crowd_scatter"
	EventAbandonedObject  EventType = "abandoned_object"
	EventMedicalEmergency EventType = "medical_emergency"
)

// Event is a temporally grounded incident derived from frame-local detections.
// Events below the alert gate are still reported for display and telemetry.
type Event struct {
	Type       EventType      `json:"type"`
	Confidence float64        `json:"confidence"`
	Persons    []int          `json:"persons,omitempty"`
	Location   Point          `json:"location"`
	Timestamp  float64        `json:"timestamp"`
	Velocity   float64        `json:"velocity,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// FrameReport is the per-frame output of a single threat detector.
type FrameReport struct {
	PersonsDetected int     `json:"persons_detected"`
	ObjectsDetected int     `json:"objects_detected,omitempty"`
	ProneDetected   int     `json:"prone_detected,omitempty"`
	Events          []Event `json:"events"`
	Alerts          []Event `json:"alerts"`
	Timestamp       float64 `json:"timestamp"`
}
