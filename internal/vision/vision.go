// Package vision declares the contract with the external vision model that
// produces frame-local detections. The model itself (weights, inference) is a
// collaborator behind these interfaces; only its per-frame outputs enter the
// temporal decision layer.
package vision

import (
	"context"
	"encoding/base64"

	"github.com/crowdex/vigil/internal/domain/model"
)

// Frame is a single decoded video frame. Image holds encoded JPEG bytes as
// produced by the acquisition layer; the decision layer treats it as opaque
// and only forwards it for screenshots.
type Frame struct {
	Image  []byte
	Width  int
	Height int
}

// ScreenshotB64 returns the frame image as a base64 string for attachment to
// alerts. Empty when the frame carries no image payload.
func (f Frame) ScreenshotB64() string {
	if len(f.Image) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(f.Image)
}

// ObjectDetector produces bounding-box detections for the requested class ids.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, frame Frame, classes []int) ([]model.Detection, error)
}

// PoseEstimator produces per-person keypoint sets in the fixed anatomical order.
type PoseEstimator interface {
	DetectPoses(ctx context.Context, frame Frame) ([]model.Pose, error)
}

// Model is the full vision-model handle. One instance is shared read-only by
// all analyses; per-analysis tracking state lives in the detectors.
type Model interface {
	ObjectDetector
	PoseEstimator
}
