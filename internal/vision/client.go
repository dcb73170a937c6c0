package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/crowdex/vigil/internal/domain/model"
)

const defaultRequestTimeout = 30 * time.Second

// Client talks to a remote inference server over HTTP. The server runs the
// actual models and returns plain detections; the client is stateless and
// safe for concurrent use by multiple analyses.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for inference requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpc = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.httpc.Timeout = d
		}
	}
}

// NewClient creates an inference client for the given server base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultRequestTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type detectRequest struct {
	Image   string `json:"image"`
	Classes []int  `json:"classes,omitempty"`
}

type detectResponse struct {
	Detections []model.Detection `json:"detections"`
}

type poseResponse struct {
	Poses []model.Pose `json:"poses"`
}

// DetectObjects requests bounding-box detections for the given class ids.
func (c *Client) DetectObjects(ctx context.Context, frame Frame, classes []int) ([]model.Detection, error) {
	var resp detectResponse
	if err := c.post(ctx, "/v1/detect", detectRequest{
		Image:   base64.StdEncoding.EncodeToString(frame.Image),
		Classes: classes,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Detections, nil
}

// DetectPoses requests per-person keypoint sets.
func (c *Client) DetectPoses(ctx context.Context, frame Frame) ([]model.Pose, error) {
	var resp poseResponse
	if err := c.post(ctx, "/v1/pose", detectRequest{
		Image: base64.StdEncoding.EncodeToString(frame.Image),
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Poses, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: server returned %d: %s", ErrInference, resp.StatusCode, b)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}
	return nil
}
