// Package track assigns stable integer ids to detections across frames.
package track

// Option applies a configuration option to the PositionTracker.
type Option func(*PositionTracker)

// WithMatchDistance sets the maximum center-to-center distance in pixels for
// a detection to be matched to an existing track.
func WithMatchDistance(distance float64) Option {
	return func(t *PositionTracker) {
		if distance > 0 {
			t.matchDistance = distance
		}
	}
}
