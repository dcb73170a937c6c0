package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crowdex/vigil/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"VIGIL_CONFIG",
		"VIGIL_ADDR",
		"VIGIL_DATA_DIR",
		"VIGIL_VISION_URL",
		"VIGIL_ALERT_HISTORY_LIMIT",
		"VIGIL_FRAME_QUEUE_SIZE",
		"VIGIL_STREAM_MAX_RECONNECTS",
		"VIGIL_STREAM_BACKOFF_MS",
		"VIGIL_LOG_LEVEL",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.AlertHistoryLimit, convey.ShouldEqual, 500)
				convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("VIGIL_ADDR", ":9000")
			_ = os.Setenv("VIGIL_VISION_URL", "http://vision:9090")
			_ = os.Setenv("VIGIL_ALERT_HISTORY_LIMIT", "100")
			_ = os.Setenv("VIGIL_FRAME_QUEUE_SIZE", "10")
			_ = os.Setenv("VIGIL_STREAM_MAX_RECONNECTS", "5")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9000")
				convey.So(cfg.VisionURL, convey.ShouldEqual, "http://vision:9090")
				convey.So(cfg.AlertHistoryLimit, convey.ShouldEqual, 100)
				convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 10)
				convey.So(cfg.StreamMaxReconnects, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":8100"
data_dir: "/var/lib/vigil"
prone_threshold_sec: 20
rest_zones:
  - [0, 500, 200, 720]
`
			tmpFile := filepath.Join(t.TempDir(), "config.yaml")
			convey.So(os.WriteFile(tmpFile, []byte(yamlContent), 0o644), convey.ShouldBeNil)

			_ = os.Setenv("VIGIL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should layer the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8100")
				convey.So(cfg.DataDir, convey.ShouldEqual, "/var/lib/vigil")
				convey.So(cfg.ProneThresholdSec, convey.ShouldEqual, 20)
				convey.So(cfg.RestZones, convey.ShouldHaveLength, 1)
				convey.So(cfg.VisionURL, convey.ShouldEqual, "http://localhost:9090")
			})
		})

		convey.Convey("When the layered config is invalid", func() {
			_ = os.Setenv("VIGIL_FRAME_QUEUE_SIZE", "0")
			defer clearConfigEnvVars()

			_, err := config.Load()

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})
		})
	})
}
