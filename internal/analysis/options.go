package analysis

import (
	"time"

	"github.com/crowdex/vigil/internal/capture"
	"github.com/crowdex/vigil/internal/domain/dedupe"
	"github.com/crowdex/vigil/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

// WithQueueCapacity sets the per-analysis frame queue depth.
func WithQueueCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueCapacity = n
		}
	}
}

// WithMaxReconnects bounds stream reconnect attempts per analysis.
func WithMaxReconnects(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxReconnects = n
		}
	}
}

// WithReconnectBackoff sets the delay between stream reconnects.
func WithReconnectBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithTargetGuard replaces the guard that keeps one live analysis per
// target. A nil guard disables the check.
func WithTargetGuard(g dedupe.Guard) Option {
	return func(s *Service) {
		s.guard = g
	}
}

// WithRankSink enables severity ranking: every created alert is also fed
// to the sink.
func WithRankSink(sink RankSink) Option {
	return func(s *Service) {
		s.rank = sink
	}
}

// WithResolver enables stream URL re-resolution before every open.
func WithResolver(r capture.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithLogger replaces the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
