package scoring_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/domain/scoring"
)

func TestWeightedScorer(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		scorer := scoring.NewWeightedScorer()

		Convey("When scoring a fully confident fight", func() {
			result, err := scorer.Score(context.Background(), scoring.Input{
				AnalysisID: "a-1",
				Threat:     model.ThreatFight,
				Confidence: 1.0,
			})

			Convey("Then severity reaches the fight ceiling", func() {
				So(err, ShouldBeNil)
				So(result.AnalysisID, ShouldEqual, "a-1")
				So(result.Severity, ShouldEqual, 100.0)
			})
		})

		Convey("When scoring the three categories at equal confidence", func() {
			fight, err := scorer.Score(context.Background(), scoring.Input{Threat: model.ThreatFight, Confidence: 0.8})
			So(err, ShouldBeNil)
			accident, err := scorer.Score(context.Background(), scoring.Input{Threat: model.ThreatAccident, Confidence: 0.8})
			So(err, ShouldBeNil)
			abandoned, err := scorer.Score(context.Background(), scoring.Input{Threat: model.ThreatAbandonedObject, Confidence: 0.8})
			So(err, ShouldBeNil)

			Convey("Then category weight orders them", func() {
				So(fight.Severity, ShouldBeGreaterThan, accident.Severity)
				So(accident.Severity, ShouldBeGreaterThan, abandoned.Severity)
				So(abandoned.Severity, ShouldEqual, 60.0)
			})
		})

		Convey("When scoring an unknown category", func() {
			result, err := scorer.Score(context.Background(), scoring.Input{
				Threat:     model.ThreatType("loitering"),
				Confidence: 0.5,
			})

			Convey("Then the default weight applies", func() {
				So(err, ShouldBeNil)
				So(result.Severity, ShouldEqual, 30.0)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := scorer.Score(ctx, scoring.Input{Threat: model.ThreatFight, Confidence: 0.9})

			Convey("Then scoring fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a scorer with configured weights", t, func() {
		scorer := scoring.NewWeightedScorer(
			scoring.WithTypeWeights(map[model.ThreatType]float64{
				model.ThreatFight:    50,
				model.ThreatAccident: -10, // ignored
			}, 20),
		)

		Convey("When scoring with the overridden map", func() {
			fight, err := scorer.Score(context.Background(), scoring.Input{Threat: model.ThreatFight, Confidence: 1.0})
			So(err, ShouldBeNil)
			accident, err := scorer.Score(context.Background(), scoring.Input{Threat: model.ThreatAccident, Confidence: 1.0})
			So(err, ShouldBeNil)

			Convey("Then valid weights apply and invalid ones fall back", func() {
				So(fight.Severity, ShouldEqual, 50.0)
				So(accident.Severity, ShouldEqual, 20.0)
			})
		})
	})

	Convey("Given a scorer with a single weight override", t, func() {
		scorer := scoring.NewWeightedScorer(
			scoring.WithTypeWeight(model.ThreatAbandonedObject, 95),
		)

		Convey("When scoring that category", func() {
			result, err := scorer.Score(context.Background(), scoring.Input{
				Threat:     model.ThreatAbandonedObject,
				Confidence: 1.0,
			})

			Convey("Then the override applies and severity stays capped", func() {
				So(err, ShouldBeNil)
				So(result.Severity, ShouldEqual, 95.0)
			})
		})
	})
}
