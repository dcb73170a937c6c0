package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/crowdex/vigil/internal/domain/dedupe"
)

func TestGuardClaims(t *testing.T) {
	Convey("Given an in-memory guard", t, func() {
		g := dedupe.New()
		ctx := context.Background()

		Convey("When claiming a free target", func() {
			claimed := g.Claim(ctx, "rtsp://cam-1/stream")

			Convey("Then the claim succeeds and is counted", func() {
				So(claimed, ShouldBeTrue)
				So(g.Size(), ShouldEqual, 1)
			})

			Convey("And a second claim on the same target fails", func() {
				So(g.Claim(ctx, "rtsp://cam-1/stream"), ShouldBeFalse)
				So(g.Size(), ShouldEqual, 1)
			})

			Convey("And releasing it frees the target for a new claim", func() {
				g.Release(ctx, "rtsp://cam-1/stream")
				So(g.Size(), ShouldEqual, 0)
				So(g.Claim(ctx, "rtsp://cam-1/stream"), ShouldBeTrue)
			})
		})

		Convey("When releasing a target that was never claimed", func() {
			g.Release(ctx, "rtsp://cam-9/stream")

			Convey("Then nothing changes", func() {
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When many goroutines race for the same target", func() {
			const racers = 32
			var wg sync.WaitGroup
			wins := make(chan bool, racers)
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					wins <- g.Claim(ctx, "rtsp://cam-2/stream")
				}()
			}
			wg.Wait()
			close(wins)

			won := 0
			for w := range wins {
				if w {
					won++
				}
			}

			Convey("Then exactly one wins", func() {
				So(won, ShouldEqual, 1)
				So(g.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestGuardBoundedEviction(t *testing.T) {
	Convey("Given a guard bounded to three claims", t, func() {
		g := dedupe.New(dedupe.WithMaxSize(3))
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			So(g.Claim(ctx, fmt.Sprintf("cam-%d", i)), ShouldBeTrue)
		}

		Convey("When a fourth claim arrives", func() {
			So(g.Claim(ctx, "cam-3"), ShouldBeTrue)

			Convey("Then the oldest claim was evicted to make room", func() {
				So(g.Size(), ShouldEqual, 3)
				So(g.Claim(ctx, "cam-0"), ShouldBeTrue)
				So(g.Claim(ctx, "cam-3"), ShouldBeFalse)
			})
		})

		Convey("When a middle claim is released and reclaimed", func() {
			g.Release(ctx, "cam-1")
			So(g.Size(), ShouldEqual, 2)
			So(g.Claim(ctx, "cam-1"), ShouldBeTrue)

			Convey("Then the other claims are untouched", func() {
				So(g.Claim(ctx, "cam-0"), ShouldBeFalse)
				So(g.Claim(ctx, "cam-2"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded guard", t, func() {
		g := dedupe.New(dedupe.WithMaxSize(0))
		ctx := context.Background()

		Convey("When claims exceed any bound", func() {
			for i := 0; i < 100; i++ {
				So(g.Claim(ctx, fmt.Sprintf("cam-%d", i)), ShouldBeTrue)
			}

			Convey("Then nothing is evicted", func() {
				So(g.Size(), ShouldEqual, 100)
				So(g.Claim(ctx, "cam-0"), ShouldBeFalse)
			})
		})
	})
}
