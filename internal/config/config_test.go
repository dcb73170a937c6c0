package config_test

import (
	"testing"

	"github.com/crowdex/vigil/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.DataDir, convey.ShouldEqual, "data")
			convey.So(cfg.VisionURL, convey.ShouldEqual, "http://localhost:9090")
			convey.So(cfg.AlertHistoryLimit, convey.ShouldEqual, 500)
			convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 5)
			convey.So(cfg.StreamMaxReconnects, convey.ShouldEqual, 3)
			convey.So(cfg.StreamBackoffMS, convey.ShouldEqual, 2000)
			convey.So(cfg.WSHeartbeatSec, convey.ShouldEqual, 30)
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
		})
	})
}
