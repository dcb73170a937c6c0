package alerts

import (
	"time"

	"github.com/crowdex/vigil/pkg/logger"
)

// Option configures a Manager.
type Option func(*Manager)

// WithPersistencePath enables JSON history persistence at the given path.
func WithPersistencePath(path string) Option {
	return func(m *Manager) {
		m.path = path
	}
}

// WithHistoryLimit caps the number of alerts kept in memory and on disk.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.historyLimit = n
		}
	}
}

// WithListenerBuffer sets the per-subscriber channel depth.
func WithListenerBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.bufferSize = n
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger replaces the package logger.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}
