package app_test

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/crowdex/vigil/internal/app"
	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service with defaults", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		svc := app.New(app.WithDataDir(t.TempDir()))

		Convey("When the service is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then its components are wired", func() {
				So(svc.Alerts(), ShouldNotBeNil)
				So(svc.Registry(), ShouldNotBeNil)
				So(svc.Pipeline(), ShouldNotBeNil)
				So(svc.Rankings(), ShouldNotBeNil)
				So(svc.Rankings().Count(ctx), ShouldEqual, 0)
			})

			Convey("And a second start is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stats report the running state", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["activeAnalyses"], ShouldEqual, 0)
				So(stats["totalAlerts"], ShouldEqual, 0)
			})
		})

		Convey("When the service was never started", func() {
			Convey("Then stats stay minimal and stop is safe", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeFalse)
				So(stats, ShouldNotContainKey, "activeAnalyses")
				So(svc.Stop, ShouldNotPanic)
			})
		})
	})
}

func TestServiceOptions(t *testing.T) {
	Convey("Given configuration options", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When persistence is disabled and thresholds overridden", func() {
			svc := app.New(
				app.WithDataDir(""),
				app.WithHistoryLimit(10),
				app.WithVisionURL("http://inference:9090"),
				app.WithFrameQueueSize(3),
				app.WithStreamRetry(0, time.Millisecond),
				app.WithAbandonmentThreshold(60),
				app.WithProneThreshold(15),
				app.WithRestZones(model.Rect{X1: 0, Y1: 600, X2: 200, Y2: 720}),
				app.WithRankWorkers(2),
				app.WithTypeWeights(map[model.ThreatType]float64{model.ThreatFight: 80}),
			)

			Convey("Then the service still starts cleanly", func() {
				So(svc.Start(ctx), ShouldBeNil)
				svc.Stop()
			})
		})

		Convey("When invalid option values are supplied", func() {
			svc := app.New(
				app.WithHistoryLimit(0),
				app.WithFrameQueueSize(-1),
				app.WithVisionURL(""),
				app.WithDataDir(t.TempDir()),
			)

			Convey("Then defaults hold and the service starts", func() {
				So(svc.Start(ctx), ShouldBeNil)
				svc.Stop()
			})
		})
	})
}
