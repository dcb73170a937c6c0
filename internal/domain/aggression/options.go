package aggression

import "github.com/crowdex/vigil/internal/domain/track"

// Option configures a Detector.
type Option func(*Detector)

// WithTracker replaces the person association tracker.
func WithTracker(t track.Tracker) Option {
	return func(d *Detector) {
		if t != nil {
			d.tracker = t
		}
	}
}
