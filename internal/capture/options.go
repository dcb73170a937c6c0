package capture

import (
	"time"

	"github.com/crowdex/vigil/pkg/logger"
)

// Option configures a Capture.
type Option func(*Capture)

// WithResolver enables URL re-resolution before every stream open.
func WithResolver(r Resolver) Option {
	return func(c *Capture) {
		c.resolver = r
	}
}

// WithMaxReconnects bounds consecutive reconnect attempts before the stream
// is declared lost.
func WithMaxReconnects(n int) Option {
	return func(c *Capture) {
		if n >= 0 {
			c.maxReconnects = n
		}
	}
}

// WithReconnectBackoff sets the fixed delay between reconnect attempts.
func WithReconnectBackoff(d time.Duration) Option {
	return func(c *Capture) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithLogger replaces the package logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Capture) {
		if log != nil {
			c.log = log
		}
	}
}
