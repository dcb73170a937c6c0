package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/crowdex/vigil/internal/vision"
)

const defaultPartLimit = 8 << 20 // bytes per frame, oversized parts abort the stream

// MJPEGSource reads frames from a multipart/x-mixed-replace JPEG stream, the
// format most IP cameras publish over HTTP. Frame timestamps are wall time
// since the first open, so they stay monotonic across reconnects.
type MJPEGSource struct {
	client    *http.Client
	partLimit int64

	resp   *http.Response
	reader *multipart.Reader
	start  time.Time
	now    func() time.Time
}

// MJPEGOption applies a configuration option to an MJPEGSource.
type MJPEGOption func(*MJPEGSource)

// WithMJPEGClient overrides the HTTP client used to open streams.
func WithMJPEGClient(c *http.Client) MJPEGOption {
	return func(s *MJPEGSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithPartLimit bounds the size of a single frame part.
func WithPartLimit(n int64) MJPEGOption {
	return func(s *MJPEGSource) {
		if n > 0 {
			s.partLimit = n
		}
	}
}

// NewMJPEGSource creates an unopened MJPEG stream source.
func NewMJPEGSource(opts ...MJPEGOption) *MJPEGSource {
	s := &MJPEGSource{
		// No overall timeout; the stream is long-lived by design.
		client:    &http.Client{},
		partLimit: defaultPartLimit,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open connects to the stream URL and prepares the multipart reader.
func (s *MJPEGSource) Open(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck
		return fmt.Errorf("%w: server returned %d", ErrStreamUnavailable, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close() //nolint:errcheck
		return fmt.Errorf("%w: not an MJPEG stream: %q", ErrStreamUnavailable, resp.Header.Get("Content-Type"))
	}

	s.resp = resp
	s.reader = multipart.NewReader(resp.Body, params["boundary"])
	if s.start.IsZero() {
		s.start = s.now()
	}
	return nil
}

// Read returns the next JPEG frame. The stream ends with io.EOF when the
// server closes the multipart body.
func (s *MJPEGSource) Read(ctx context.Context) (vision.Frame, float64, error) {
	if s.reader == nil {
		return vision.Frame{}, 0, fmt.Errorf("%w: source not open", ErrStreamUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, 0, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		if err == io.EOF {
			return vision.Frame{}, 0, io.EOF
		}
		return vision.Frame{}, 0, fmt.Errorf("read stream part: %w", err)
	}
	defer part.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(part, s.partLimit))
	if err != nil {
		return vision.Frame{}, 0, fmt.Errorf("read frame body: %w", err)
	}

	frame := vision.Frame{Image: data}
	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(data)); err == nil {
		frame.Width = cfg.Width
		frame.Height = cfg.Height
	}

	return frame, s.now().Sub(s.start).Seconds(), nil
}

// Close releases the current connection. The source can be reopened.
func (s *MJPEGSource) Close() error {
	s.reader = nil
	if s.resp != nil {
		err := s.resp.Body.Close()
		s.resp = nil
		return err
	}
	return nil
}
