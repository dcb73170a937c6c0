package api

import "time"

// Option configures a Server.
type Option func(*Server)

// WithHeartbeatInterval sets the alert feed heartbeat cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.alertFeed.heartbeat = d
		}
	}
}

// WithRankingStore enables the incident severity ranking endpoints.
func WithRankingStore(store RankingStore) Option {
	return func(s *Server) {
		if store != nil {
			s.rankingsHandler = NewRankingsHandler(store)
		}
	}
}

// WithStatusPollInterval sets the analysis stream polling cadence.
func WithStatusPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.analysisStream.poll = d
		}
	}
}
