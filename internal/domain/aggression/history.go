package aggression

import "github.com/crowdex/vigil/internal/domain/model"

// historyCapacity bounds the per-person pose buffer. At typical analysis
// rates this covers a few seconds of motion, enough for every velocity
// window used below.
const historyCapacity = 30

// sample is one timestamped pose observation.
type sample struct {
	TS     float64
	Pose   model.Pose
	Center model.Point
}

// poseHistory is a bounded append-only buffer of pose samples for one
// tracked person. Oldest samples are evicted once the capacity is reached.
type poseHistory struct {
	samples []sample
}

func (h *poseHistory) push(s sample) {
	if len(h.samples) == historyCapacity {
		copy(h.samples, h.samples[1:])
		h.samples[len(h.samples)-1] = s
		return
	}
	h.samples = append(h.samples, s)
}

func (h *poseHistory) len() int { return len(h.samples) }

// last returns up to n most recent samples, oldest first.
func (h *poseHistory) last(n int) []sample {
	if len(h.samples) <= n {
		return h.samples
	}
	return h.samples[len(h.samples)-n:]
}

// maxKeypointSpeed returns the fastest movement of one keypoint across
// consecutive sample pairs in the last n samples. Pairs where either side
// fails the confidence gate or time does not advance are skipped.
func (h *poseHistory) maxKeypointSpeed(kp, n int) float64 {
	window := h.last(n)
	var maxSpeed float64
	for i := 1; i < len(window); i++ {
		prev, cur := window[i-1], window[i]
		if !prev.Pose[kp].Valid() || !cur.Pose[kp].Valid() {
			continue
		}
		dt := cur.TS - prev.TS
		if dt <= 0 {
			continue
		}
		speed := cur.Pose[kp].Point().Distance(prev.Pose[kp].Point()) / dt
		if speed > maxSpeed {
			maxSpeed = speed
		}
	}
	return maxSpeed
}

// downwardSpeed returns the net downward (increasing Y) velocity of one
// keypoint across the last n samples, measured endpoint to endpoint so
// up-down jitter inside the window cancels out instead of triggering.
func (h *poseHistory) downwardSpeed(kp, n int) float64 {
	window := h.last(n)
	first, last := -1, -1
	for i, s := range window {
		if !s.Pose[kp].Valid() {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 || last == first {
		return 0
	}
	dt := window[last].TS - window[first].TS
	if dt <= 0 {
		return 0
	}
	speed := (window[last].Pose[kp].Y - window[first].Pose[kp].Y) / dt
	if speed < 0 {
		return 0
	}
	return speed
}

// centerAt returns the center n samples back from the newest, clamped to the
// oldest available sample.
func (h *poseHistory) centerAt(back int) (model.Point, bool) {
	if len(h.samples) == 0 {
		return model.Point{}, false
	}
	idx := len(h.samples) - 1 - back
	if idx < 0 {
		idx = 0
	}
	return h.samples[idx].Center, true
}
