package model

// COCO class id for persons, fixed by the vision model contract.
const PersonClass = 0

// ObjectClasses maps bag/luggage class ids to human-readable labels.
var ObjectClasses = map[int]string{
	24: "backpack",
	26: "handbag",
	28: "suitcase",
}

// MinKeypointConfidence gates keypoints and detections out of all velocity,
// ownership and prone computations.
const MinKeypointConfidence = 0.3

// Detection is a single frame-local bounding-box detection from the vision model.
type Detection struct {
	BBox       Rect    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// Keypoint is a single body keypoint with its detection confidence.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Point returns the keypoint position.
func (k Keypoint) Point() Point { return Point{X: k.X, Y: k.Y} }

// Valid reports whether the keypoint clears the confidence gate.
func (k Keypoint) Valid() bool { return k.Confidence > MinKeypointConfidence }

// PoseKeypoints is the number of keypoints per person in the fixed
// anatomical order of the pose model.
const PoseKeypoints = 17

// Keypoint indices in the pose model's anatomical order.
const (
	KPNose = iota
	KPLeftEye
	KPRightEye
	KPLeftEar
	KPRightEar
	KPLeftShoulder
	KPRightShoulder
	KPLeftElbow
	KPRightElbow
	KPLeftWrist
	KPRightWrist
	KPLeftHip
	KPRightHip
	KPLeftKnee
	KPRightKnee
	KPLeftAnkle
	KPRightAnkle
)

// Pose is one person's keypoint set for a single frame.
type Pose [PoseKeypoints]Keypoint

// BodyCenter returns the midpoint of the valid hip and shoulder keypoints,
// falling back to the nose position when none clear the confidence gate.
func (p Pose) BodyCenter() Point {
	var sx, sy float64
	var n int
	for _, idx := range []int{KPLeftHip, KPRightHip, KPLeftShoulder, KPRightShoulder} {
		if p[idx].Valid() {
			sx += p[idx].X
			sy += p[idx].Y
			n++
		}
	}
	if n > 0 {
		return Point{X: sx / float64(n), Y: sy / float64(n)}
	}
	return p[KPNose].Point()
}

// Bounds returns the bounding box over keypoints that clear the confidence
// gate and the number of such keypoints. The zero Rect is returned when no
// keypoint is valid.
func (p Pose) Bounds() (Rect, int) {
	var r Rect
	n := 0
	for _, kp := range p {
		if !kp.Valid() {
			continue
		}
		if n == 0 {
			r = Rect{X1: kp.X, Y1: kp.Y, X2: kp.X, Y2: kp.Y}
		} else {
			if kp.X < r.X1 {
				r.X1 = kp.X
			}
			if kp.X > r.X2 {
				r.X2 = kp.X
			}
			if kp.Y < r.Y1 {
				r.Y1 = kp.Y
			}
			if kp.Y > r.Y2 {
				r.Y2 = kp.Y
			}
		}
		n++
	}
	return r, n
}

// TrackedPerson is a person detection paired with its stable track id.
// Rebuilt each frame; carries no cross-frame state beyond the id.
type TrackedPerson struct {
	ID     int   `json:"id"`
	BBox   Rect  `json:"bbox"`
	Center Point `json:"center"`
}
