package model_test

import (
	"errors"
	"testing"

	model "github.com/crowdex/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGeometry(t *testing.T) {
	Convey("Given points and rects", t, func() {
		Convey("When computing distance", func() {
			a := model.Point{X: 0, Y: 0}
			b := model.Point{X: 3, Y: 4}

			Convey("Then it should be Euclidean", func() {
				So(a.Distance(b), ShouldEqual, 5)
				So(b.Distance(a), ShouldEqual, 5)
				So(a.Distance(a), ShouldEqual, 0)
			})
		})

		Convey("When working with a rect", func() {
			r := model.Rect{X1: 10, Y1: 20, X2: 30, Y2: 60}

			Convey("Then center, width and height follow the corners", func() {
				So(r.Center(), ShouldResemble, model.Point{X: 20, Y: 40})
				So(r.Width(), ShouldEqual, 20)
				So(r.Height(), ShouldEqual, 40)
			})

			Convey("Then containment includes the borders", func() {
				So(r.Contains(model.Point{X: 10, Y: 20}), ShouldBeTrue)
				So(r.Contains(model.Point{X: 20, Y: 40}), ShouldBeTrue)
				So(r.Contains(model.Point{X: 9, Y: 40}), ShouldBeFalse)
			})
		})

		Convey("When computing a centroid", func() {
			points := []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 15}}

			Convey("Then it should be the mean position", func() {
				So(model.Centroid(points), ShouldResemble, model.Point{X: 5, Y: 5})
			})

			Convey("And an empty slice yields the zero point", func() {
				So(model.Centroid(nil), ShouldResemble, model.Point{})
			})
		})
	})
}

func TestPose(t *testing.T) {
	Convey("Given a pose", t, func() {
		Convey("When hips and shoulders are confident", func() {
			var p model.Pose
			p[model.KPLeftHip] = model.Keypoint{X: 10, Y: 100, Confidence: 0.9}
			p[model.KPRightHip] = model.Keypoint{X: 30, Y: 100, Confidence: 0.9}
			p[model.KPLeftShoulder] = model.Keypoint{X: 10, Y: 40, Confidence: 0.9}
			p[model.KPRightShoulder] = model.Keypoint{X: 30, Y: 40, Confidence: 0.9}

			Convey("Then body center is their midpoint", func() {
				So(p.BodyCenter(), ShouldResemble, model.Point{X: 20, Y: 70})
			})
		})

		Convey("When no torso keypoint clears the gate", func() {
			var p model.Pose
			p[model.KPNose] = model.Keypoint{X: 55, Y: 20, Confidence: 0.8}
			p[model.KPLeftHip] = model.Keypoint{X: 10, Y: 100, Confidence: 0.1}

			Convey("Then the center falls back to the nose", func() {
				So(p.BodyCenter(), ShouldResemble, model.Point{X: 55, Y: 20})
			})
		})

		Convey("When checking keypoint validity", func() {
			So(model.Keypoint{Confidence: 0.31}.Valid(), ShouldBeTrue)
			So(model.Keypoint{Confidence: 0.3}.Valid(), ShouldBeFalse)
			So(model.Keypoint{Confidence: 0}.Valid(), ShouldBeFalse)
		})
	})
}

func TestParseThreatType(t *testing.T) {
	Convey("Given caller-supplied threat type strings", t, func() {
		Convey("When the value is known", func() {
			for _, s := range []string{"fight", "abandoned_object", "accident"} {
				tt, err := model.ParseThreatType(s)
				So(err, ShouldBeNil)
				So(string(tt), ShouldEqual, s)
			}
		})

		Convey("When the value is unknown", func() {
			_, err := model.ParseThreatType("arson")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, model.ErrInvalidThreatType), ShouldBeTrue)
		})
	})
}

func TestParseAlertStatus(t *testing.T) {
	Convey("Given caller-supplied status strings", t, func() {
		Convey("When the value is known", func() {
			for _, s := range []string{"pending", "acknowledged", "resolved", "false_positive"} {
				st, err := model.ParseAlertStatus(s)
				So(err, ShouldBeNil)
				So(string(st), ShouldEqual, s)
			}
		})

		Convey("When the value is unknown", func() {
			_, err := model.ParseAlertStatus("dismissed")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, model.ErrInvalidAlertStatus), ShouldBeTrue)
		})
	})
}
