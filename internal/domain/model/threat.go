package model

import "fmt"

// ThreatType identifies one of the three monitored incident classes.
type ThreatType string

const (
	ThreatFight           ThreatType = "fight"
	ThreatAbandonedObject ThreatType = "abandoned_object"
	ThreatAccident        ThreatType = "accident"
)

// ParseThreatType validates a caller-supplied threat type string.
func ParseThreatType(s string) (ThreatType, error) {
	switch ThreatType(s) {
	case ThreatFight, ThreatAbandonedObject, ThreatAccident:
		return ThreatType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidThreatType, s)
	}
}

// AlertStatus is the lifecycle state of a persisted alert. Any status may
// follow any other; manual correction by operators is allowed.
type AlertStatus string

const (
	StatusPending       AlertStatus = "pending"
	StatusAcknowledged  AlertStatus = "acknowledged"
	StatusResolved      AlertStatus = "resolved"
	StatusFalsePositive AlertStatus = "false_positive"
)

// ParseAlertStatus validates a caller-supplied status string.
func ParseAlertStatus(s string) (AlertStatus, error) {
	switch AlertStatus(s) {
	case StatusPending, StatusAcknowledged, StatusResolved, StatusFalsePositive:
		return AlertStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAlertStatus, s)
	}
}
