package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/analysis"
	"github.com/crowdex/vigil/internal/app"
	"github.com/crowdex/vigil/internal/capture"
	"github.com/crowdex/vigil/internal/domain/aggression"
	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/simulate"
)

// scriptedFactories replaces the production vision stack with the simulator's
// scripted clip and model so a full pipeline can run without external services.
func scriptedFactories(sc simulate.Scenario) (analysis.SourceFactory, analysis.DetectorFactory) {
	sources := func(_ context.Context, target string) (capture.Source, error) {
		if target != sc.Name {
			return nil, fmt.Errorf("unknown target %q", target)
		}
		return simulate.NewClip(sc.Frames), nil
	}
	detectors := func(t model.ThreatType) (analysis.Detector, error) {
		if t != model.ThreatFight {
			return nil, fmt.Errorf("unexpected threat type %q", t)
		}
		return aggression.New(simulate.Model{}), nil
	}
	return sources, detectors
}

func TestServiceRunsScriptedIncident(t *testing.T) {
	Convey("Given a started service wired to a scripted brawl", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		sc := simulate.Brawl()
		sources, detectors := scriptedFactories(sc)
		svc := app.New(
			app.WithDataDir(""),
			app.WithSourceFactory(sources),
			app.WithDetectorFactory(detectors),
			app.WithFrameQueueSize(len(sc.Frames)),
			app.WithStreamRetry(0, time.Millisecond),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		feed, unsubscribe := svc.Alerts().Subscribe()
		defer unsubscribe()

		Convey("When the incident is analyzed end to end", func() {
			a, err := svc.Pipeline().Start(analysis.Request{
				Target:      sc.Name,
				Types:       sc.Threats,
				TestingMode: true,
			})
			So(err, ShouldBeNil)

			deadline := time.Now().Add(10 * time.Second)
			state, err := svc.Registry().Get(a.ID)
			So(err, ShouldBeNil)
			for !state.Status.Terminal() && time.Now().Before(deadline) {
				time.Sleep(20 * time.Millisecond)
				state, err = svc.Registry().Get(a.ID)
				So(err, ShouldBeNil)
			}

			Convey("Then the analysis completes with a fight alert", func() {
				So(state.Status, ShouldEqual, analysis.StatusCompleted)
				So(state.FramesProcessed, ShouldEqual, len(sc.Frames))
				So(state.AlertCount, ShouldBeGreaterThan, 0)

				select {
				case alert := <-feed:
					So(alert.Type, ShouldEqual, model.ThreatFight)
					So(alert.AnalysisID, ShouldEqual, a.ID)
					So(alert.Confidence, ShouldBeGreaterThanOrEqualTo, 0.95)
				case <-time.After(2 * time.Second):
					t.Fatal("no alert broadcast received")
				}
			})

			Convey("And the alert is queryable through the store", func() {
				listed := svc.Alerts().List(alerts.ListFilter{Type: model.ThreatFight})
				So(len(listed), ShouldBeGreaterThan, 0)
			})

			Convey("And the incident appears in the severity ranking", func() {
				entry, err := svc.Rankings().Rank(ctx, a.ID)
				for err != nil && time.Now().Before(deadline) {
					time.Sleep(20 * time.Millisecond)
					entry, err = svc.Rankings().Rank(ctx, a.ID)
				}
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Severity, ShouldBeGreaterThanOrEqualTo, 95.0)
				So(entry.Threat, ShouldEqual, string(model.ThreatFight))
			})
		})
	})
}
