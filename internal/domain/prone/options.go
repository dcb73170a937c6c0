package prone

import (
	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/domain/track"
)

// Option configures a Detector.
type Option func(*Detector)

// WithProneThreshold overrides the seconds of lying down required before an
// emergency confirms.
func WithProneThreshold(seconds float64) Option {
	return func(d *Detector) {
		if seconds > 0 {
			d.normalThreshold = seconds
			if !d.testingMode {
				d.threshold = seconds
			}
		}
	}
}

// WithRestZones registers regions where lying down is expected and never
// escalates, such as benches or designated rest areas.
func WithRestZones(zones ...model.Rect) Option {
	return func(d *Detector) {
		d.restZones = append(d.restZones, zones...)
	}
}

// WithTracker replaces the person association tracker.
func WithTracker(t track.Tracker) Option {
	return func(d *Detector) {
		if t != nil {
			d.tracker = t
		}
	}
}
