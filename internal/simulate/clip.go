package simulate

import (
	"context"
	"io"

	"github.com/goccy/go-json"

	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/vision"
)

// Clip plays a scripted scenario as a frame source. Each frame's image
// payload is the encoded ground truth so the scripted vision model can
// recover it without shared state.
type Clip struct {
	frames []ScriptFrame
	next   int
}

// NewClip creates a clip over the scenario's frames.
func NewClip(frames []ScriptFrame) *Clip {
	return &Clip{frames: frames}
}

// FrameCount reports the clip length so analyses can expose progress.
func (c *Clip) FrameCount() int { return len(c.frames) }

// Open resets playback to the first frame.
func (c *Clip) Open(_ context.Context, _ string) error {
	c.next = 0
	return nil
}

// Read returns the next scripted frame, io.EOF once the clip is exhausted.
func (c *Clip) Read(ctx context.Context) (vision.Frame, float64, error) {
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, 0, err
	}
	if c.next >= len(c.frames) {
		return vision.Frame{}, 0, io.EOF
	}

	sf := c.frames[c.next]
	c.next++

	payload, err := json.Marshal(sf)
	if err != nil {
		return vision.Frame{}, 0, err
	}
	return vision.Frame{Image: payload, Width: frameWidth, Height: frameHeight}, sf.TS, nil
}

// Close implements capture.Source; a clip holds no resources.
func (c *Clip) Close() error { return nil }

// Model is a vision model that reads detections straight out of the frame
// payload a Clip produced. Stateless, so one instance serves every scenario.
type Model struct{}

// DetectObjects returns the scripted detections matching the requested classes.
func (Model) DetectObjects(_ context.Context, frame vision.Frame, classes []int) ([]model.Detection, error) {
	sf, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}

	wanted := make(map[int]struct{}, len(classes))
	for _, c := range classes {
		wanted[c] = struct{}{}
	}

	var out []model.Detection
	for _, det := range sf.Objects {
		if _, ok := wanted[det.ClassID]; ok {
			out = append(out, det)
		}
	}
	return out, nil
}

// DetectPoses returns the scripted poses.
func (Model) DetectPoses(_ context.Context, frame vision.Frame) ([]model.Pose, error) {
	sf, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}
	return sf.Poses, nil
}

func decodeFrame(frame vision.Frame) (ScriptFrame, error) {
	var sf ScriptFrame
	if len(frame.Image) == 0 {
		return sf, nil
	}
	if err := json.Unmarshal(frame.Image, &sf); err != nil {
		return sf, err
	}
	return sf, nil
}
