package abandon

import "github.com/crowdex/vigil/internal/domain/track"

// Option configures a Detector.
type Option func(*Detector)

// WithAbandonmentThreshold overrides the seconds of separation required
// before an abandonment confirms.
func WithAbandonmentThreshold(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.normalThreshold = seconds
			if !d.testingMode {
				d.threshold = seconds
			}
		}
	}
}

// WithOwnershipDistance overrides the person-object distance in pixels
// within which an object counts as attended.
func WithOwnershipDistance(px float64) Option {
	return func(d *Detector) {
		if px > 0 {
			d.ownershipDistance = px
		}
	}
}

// WithStationaryDistance overrides the per-frame movement in pixels below
// which an object counts as stationary.
func WithStationaryDistance(px float64) Option {
	return func(d *Detector) {
		if px > 0 {
			d.stationaryDistance = px
		}
	}
}

// WithPersonTracker replaces the person association tracker.
func WithPersonTracker(t track.Tracker) Option {
	return func(d *Detector) {
		if t != nil {
			d.personTracker = t
		}
	}
}

// WithObjectTracker replaces the object association tracker.
func WithObjectTracker(t track.Tracker) Option {
	return func(d *Detector) {
		if t != nil {
			d.objectTracker = t
		}
	}
}
