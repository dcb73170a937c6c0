package model

import "errors"

// Sentinel kinds for boundary validation errors.
var (
	ErrInvalidThreatType  = errors.New("invalid threat type")
	ErrInvalidAlertStatus = errors.New("invalid alert status")
)
