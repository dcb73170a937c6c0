// Package capture pulls frames from a video stream into a bounded queue.
// The loop survives transient stream failures with a bounded number of
// reconnects and re-resolves the stream URL before each reopen, since many
// streaming providers hand out expiring media URLs.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/crowdex/vigil/internal/vision"
	"github.com/crowdex/vigil/pkg/logger"
	"github.com/crowdex/vigil/pkg/metrics"
)

const (
	defaultMaxReconnects    = 3
	defaultReconnectBackoff = 2 * time.Second
)

// Source delivers frames from one opened video stream.
type Source interface {
	Open(ctx context.Context, url string) error
	// Read blocks until the next frame. ts is seconds from stream start.
	Read(ctx context.Context) (vision.Frame, float64, error)
	Close() error
}

// FrameCounter is implemented by sources with a known finite length.
// Live streams leave it unimplemented.
type FrameCounter interface {
	FrameCount() int
}

// Resolver maps a stream target (page URL, camera id) to a playable media
// URL. Called before every open so expiring URLs stay fresh.
type Resolver interface {
	Resolve(ctx context.Context, target string) (string, error)
}

// Capture runs the read loop for one stream.
type Capture struct {
	source   Source
	resolver Resolver
	queue    *Queue
	target   string

	maxReconnects int
	backoff       time.Duration
	log           logger.Logger
}

// New creates a capture loop feeding the given queue.
func New(source Source, queue *Queue, target string, opts ...Option) *Capture {
	c := &Capture{
		source:        source,
		queue:         queue,
		target:        target,
		maxReconnects: defaultMaxReconnects,
		backoff:       defaultReconnectBackoff,
		log:           logger.Named("capture"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run reads frames until the context ends or the stream is lost for good.
// Blocks; callers run it in its own goroutine.
func (c *Capture) Run(ctx context.Context) error {
	if err := c.open(ctx); err != nil {
		metrics.RecordStreamFailure()
		return err
	}
	defer c.source.Close() //nolint:errcheck

	reconnects := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, ts, err := c.source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Finite sources end here; not a failure.
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			reconnects++
			if reconnects > c.maxReconnects {
				metrics.RecordStreamFailure()
				return fmt.Errorf("stream lost after %d reconnects: %w", c.maxReconnects, err)
			}

			c.log.Warn(ctx, "stream read failed, reconnecting",
				logger.Int("attempt", reconnects),
				logger.Error(err),
			)
			metrics.RecordStreamReconnect()

			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}

			c.source.Close() //nolint:errcheck
			if err := c.open(ctx); err != nil {
				c.log.Warn(ctx, "stream reopen failed", logger.Error(err))
			}
			continue
		}

		reconnects = 0
		c.queue.Push(TimedFrame{Frame: frame, TS: ts})
		metrics.RecordFrameCaptured()
	}
}

// open resolves the target and opens the source on the resolved URL.
func (c *Capture) open(ctx context.Context) error {
	url := c.target
	if c.resolver != nil {
		resolved, err := c.resolver.Resolve(ctx, c.target)
		if err != nil {
			return fmt.Errorf("resolve stream url: %w", err)
		}
		url = resolved
	}
	if err := c.source.Open(ctx, url); err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	return nil
}
