package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConsoleHandler(t *testing.T) {
	Convey("Given the operator console routes", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()
		Register(ctx, mux)

		Convey("Then GET / serves the console index", func() {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "Vigil")
		})

		Convey("And GET /index.html serves the same page", func() {
			req := httptest.NewRequest("GET", "/index.html", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			// FileServer redirects index.html to ./
			So(w.Code, ShouldBeIn, []int{http.StatusOK, http.StatusMovedPermanently})
		})

		Convey("And a missing asset returns 404", func() {
			req := httptest.NewRequest("GET", "/no-such-asset.js", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestConsoleHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		Convey("Then registration panics", func() {
			So(func() {
				Register(context.Background(), nil)
			}, ShouldPanic)
		})
	})
}

func TestConsoleErrors(t *testing.T) {
	Convey("Given the site error constants", t, func() {
		So(ErrServe, ShouldNotBeNil)
		So(ErrServe.Error(), ShouldEqual, "operator console serve failed")
	})
}
