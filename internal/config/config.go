// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and environment layers override them.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// DataDir holds persisted state such as the alert history file.
	DataDir string `koanf:"data_dir"`

	// VisionURL is the base URL of the inference server.
	VisionURL string `koanf:"vision_url"`

	// AlertHistoryLimit caps the persisted alert history.
	AlertHistoryLimit int `koanf:"alert_history_limit"`

	// FrameQueueSize bounds the per-analysis frame queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// StreamMaxReconnects bounds consecutive stream reconnect attempts.
	StreamMaxReconnects int `koanf:"stream_max_reconnects"`

	// StreamBackoffMS is the fixed delay between reconnect attempts.
	StreamBackoffMS int `koanf:"stream_backoff_ms"`

	// AbandonmentThresholdSec overrides the unattended-object timer.
	// Zero keeps the built-in default.
	AbandonmentThresholdSec float64 `koanf:"abandonment_threshold_sec"`

	// ProneThresholdSec overrides the medical-emergency timer. Zero keeps
	// the built-in default.
	ProneThresholdSec float64 `koanf:"prone_threshold_sec"`

	// RestZones lists rectangles (x1,y1,x2,y2) where lying down is expected.
	RestZones [][4]float64 `koanf:"rest_zones"`

	// WSHeartbeatSec is the alert feed heartbeat interval.
	WSHeartbeatSec int `koanf:"ws_heartbeat_sec"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8000",
		DataDir:             "data",
		VisionURL:           "http://localhost:9090",
		AlertHistoryLimit:   500,
		FrameQueueSize:      5,
		StreamMaxReconnects: 3,
		StreamBackoffMS:     2000,
		WSHeartbeatSec:      30,
	}
}
