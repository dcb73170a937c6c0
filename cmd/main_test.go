package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/crowdex/vigil/internal/adapters/http/api"
	"github.com/crowdex/vigil/internal/adapters/http/site"
	"github.com/crowdex/vigil/internal/adapters/http/swagger"
	"github.com/crowdex/vigil/internal/app"
	"github.com/crowdex/vigil/internal/config"
	"github.com/crowdex/vigil/pkg/logger"
	"github.com/crowdex/vigil/pkg/metrics"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			_ = os.Setenv("VIGIL_ADDR", ":8080")
			_ = os.Setenv("VIGIL_FRAME_QUEUE_SIZE", "10")
			_ = os.Setenv("VIGIL_PRONE_THRESHOLD_SEC", "20")
			defer func() {
				_ = os.Unsetenv("VIGIL_ADDR")
				_ = os.Unsetenv("VIGIL_FRAME_QUEUE_SIZE")
				_ = os.Unsetenv("VIGIL_PRONE_THRESHOLD_SEC")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 10)
				convey.So(cfg.ProneThresholdSec, convey.ShouldEqual, 20.0)
			})
		})

		convey.Convey("When the environment is invalid", func() {
			_ = os.Setenv("VIGIL_ADDR", "")
			defer func() { _ = os.Unsetenv("VIGIL_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When converting configured rest zones", func() {
			cfg := config.New()
			cfg.RestZones = [][4]float64{{0, 600, 200, 720}, {900, 0, 1280, 100}}

			zones := restZones(cfg)
			convey.So(zones, convey.ShouldHaveLength, 2)
			convey.So(zones[0].X2, convey.ShouldEqual, 200.0)
			convey.So(zones[1].Y2, convey.ShouldEqual, 100.0)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When running the system metrics updater briefly", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When running the service metrics updater briefly", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When sampling system metrics", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When creating a metrics manager with its own registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the full application wiring", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		svc := app.New(app.WithDataDir(t.TempDir()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("Then the full route surface registers on a fresh mux", func() {
			mux := http.NewServeMux()
			apiServer := api.NewServer(svc.Pipeline(), svc.Registry(), svc.Alerts(),
				api.WithRankingStore(svc.Rankings()),
			)
			convey.So(apiServer, convey.ShouldNotBeNil)
			convey.So(func() { apiServer.Register(ctx, mux) }, convey.ShouldNotPanic)
			convey.So(func() { swagger.Register(ctx, mux) }, convey.ShouldNotPanic)
			convey.So(func() { site.Register(ctx, mux) }, convey.ShouldNotPanic)
		})

		convey.Convey("And service stats reflect the started state", func() {
			stats := svc.GetStats()
			convey.So(stats["started"], convey.ShouldBeTrue)
			convey.So(stats["activeAnalyses"], convey.ShouldEqual, 0)
			convey.So(stats["rankedIncidents"], convey.ShouldEqual, 0)
		})
	})
}
