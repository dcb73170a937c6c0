package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/crowdex/vigil/internal/adapters/http/api"
	"github.com/crowdex/vigil/internal/adapters/repository"
	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/analysis"
	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// stubService fulfills analysis starts straight from the registry.
type stubService struct {
	registry *analysis.Registry
	err      error
}

func (s *stubService) Start(req analysis.Request) (analysis.Analysis, error) {
	if s.err != nil {
		return analysis.Analysis{}, s.err
	}
	if len(req.Types) == 0 {
		return analysis.Analysis{}, analysis.ErrNoThreatTypes
	}
	return s.registry.Create(req), nil
}

type fixture struct {
	registry *analysis.Registry
	store    *alerts.Manager
	ranking  *repository.TreapStore
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := analysis.NewRegistry()
	store, err := alerts.New()
	if err != nil {
		t.Fatalf("alerts.New: %v", err)
	}
	ranking := repository.NewTreapStore(repository.WithPrioritySeed(5))

	srv := api.NewServer(&stubService{registry: registry}, registry, store,
		api.WithHeartbeatInterval(50*time.Millisecond),
		api.WithStatusPollInterval(10*time.Millisecond),
		api.WithRankingStore(ranking),
	)
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &fixture{registry: registry, store: store, ranking: ranking, server: ts}
}

func (f *fixture) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAnalyzeEndpoint(t *testing.T) {
	Convey("Given the API server", t, func() {
		f := newFixture(t)

		Convey("When a valid analysis is submitted", func() {
			resp := f.postJSON(t, "/analyze", `{"target":"rtsp://cam","types":["fight","accident"]}`)

			Convey("Then it is accepted and queued", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				a := decodeBody[analysis.Analysis](t, resp)
				So(a.ID, ShouldNotBeEmpty)
				So(a.Status, ShouldEqual, analysis.StatusQueued)
				So(a.Types, ShouldHaveLength, 2)
			})
		})

		Convey("When the body is not JSON", func() {
			resp := f.postJSON(t, "/analyze", `{"target":`)
			defer resp.Body.Close() //nolint:errcheck

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the threat type is unknown", func() {
			resp := f.postJSON(t, "/analyze", `{"target":"rtsp://cam","types":["earthquake"]}`)
			defer resp.Body.Close() //nolint:errcheck

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service is shutting down", func() {
			mux := http.NewServeMux()
			api.NewServer(&stubService{err: analysis.ErrShuttingDown}, f.registry, f.store).
				Register(context.Background(), mux)
			down := httptest.NewServer(mux)
			defer down.Close()

			resp, err := http.Post(down.URL+"/analyze", "application/json",
				strings.NewReader(`{"target":"rtsp://cam","types":["fight"]}`))
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck

			Convey("Then 503 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the target is missing", func() {
			resp := f.postJSON(t, "/analyze", `{"types":["fight"]}`)
			defer resp.Body.Close() //nolint:errcheck

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestStatusEndpoint(t *testing.T) {
	Convey("Given a queued analysis", t, func() {
		f := newFixture(t)
		a := f.registry.Create(analysis.Request{Target: "clip.mp4", Types: []model.ThreatType{model.ThreatFight}})

		Convey("When its status is fetched", func() {
			resp, err := http.Get(f.server.URL + "/status/" + a.ID)
			So(err, ShouldBeNil)

			Convey("Then the snapshot is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decodeBody[analysis.Analysis](t, resp)
				So(got.ID, ShouldEqual, a.ID)
				So(got.Target, ShouldEqual, "clip.mp4")
			})
		})

		Convey("When an unknown id is fetched", func() {
			resp, err := http.Get(f.server.URL + "/status/nope")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck

			Convey("Then 404 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the bare list is fetched", func() {
			resp, err := http.Get(f.server.URL + "/status/")
			So(err, ShouldBeNil)

			Convey("Then all analyses are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decodeBody[[]analysis.Analysis](t, resp)
				So(got, ShouldHaveLength, 1)
			})
		})
	})
}

func TestAlertsEndpoint(t *testing.T) {
	Convey("Given a populated alert store", t, func() {
		f := newFixture(t)
		fight, err := f.store.Create(context.Background(), alerts.Alert{Type: model.ThreatFight, Confidence: 0.97})
		So(err, ShouldBeNil)
		_, err = f.store.Create(context.Background(), alerts.Alert{Type: model.ThreatAccident, Confidence: 0.9})
		So(err, ShouldBeNil)

		Convey("When alerts are listed", func() {
			resp, err := http.Get(f.server.URL + "/alerts")
			So(err, ShouldBeNil)

			Convey("Then all alerts come back newest first", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decodeBody[[]alerts.Alert](t, resp)
				So(got, ShouldHaveLength, 2)
				So(got[0].Type, ShouldEqual, model.ThreatAccident)
			})
		})

		Convey("When the list is filtered by type", func() {
			resp, err := http.Get(f.server.URL + "/alerts?type=fight")
			So(err, ShouldBeNil)

			Convey("Then only matching alerts come back", func() {
				got := decodeBody[[]alerts.Alert](t, resp)
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, fight.ID)
			})
		})

		Convey("When a bad filter is supplied", func() {
			resp, err := http.Get(f.server.URL + "/alerts?status=archived")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When an alert status is patched", func() {
			req, err := http.NewRequest(http.MethodPatch, f.server.URL+"/alerts/"+fight.ID,
				strings.NewReader(`{"status":"acknowledged"}`))
			So(err, ShouldBeNil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)

			Convey("Then the updated alert is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decodeBody[alerts.Alert](t, resp)
				So(got.Status, ShouldEqual, model.StatusAcknowledged)
			})
		})

		Convey("When an unknown alert is patched", func() {
			req, err := http.NewRequest(http.MethodPatch, f.server.URL+"/alerts/nope",
				strings.NewReader(`{"status":"resolved"}`))
			So(err, ShouldBeNil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck

			Convey("Then 404 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given alerts and an active analysis", t, func() {
		f := newFixture(t)
		_, err := f.store.Create(context.Background(), alerts.Alert{Type: model.ThreatFight})
		So(err, ShouldBeNil)
		f.registry.Create(analysis.Request{Target: "x", Types: []model.ThreatType{model.ThreatFight}})

		Convey("When stats are fetched", func() {
			resp, err := http.Get(f.server.URL + "/stats")
			So(err, ShouldBeNil)

			Convey("Then the aggregate shape is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decodeBody[map[string]any](t, resp)
				alertsPart, ok := got["alerts"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(alertsPart["total"], ShouldEqual, 1.0)
				So(alertsPart["pending"], ShouldEqual, 1.0)
				So(got["active_analyses"], ShouldEqual, 1.0)
			})
		})
	})
}

func TestRankingsEndpoint(t *testing.T) {
	Convey("Given a seeded severity ranking", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		_, err := f.ranking.UpdateBestWithMeta(ctx, "a-1", 99, "al-1", "fight", 0.99)
		So(err, ShouldBeNil)
		_, err = f.ranking.UpdateBestWithMeta(ctx, "a-2", 37.5, "al-2", "abandoned_object", 0.5)
		So(err, ShouldBeNil)

		Convey("When the ranking is listed", func() {
			resp, err := http.Get(f.server.URL + "/rankings")
			So(err, ShouldBeNil)

			Convey("Then incidents come back most severe first", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decodeBody[map[string]any](t, resp)
				So(got["total"], ShouldEqual, 2.0)

				entries, ok := got["entries"].([]any)
				So(ok, ShouldBeTrue)
				So(entries, ShouldHaveLength, 2)
				first, ok := entries[0].(map[string]any)
				So(ok, ShouldBeTrue)
				So(first["analysis_id"], ShouldEqual, "a-1")
				So(first["rank"], ShouldEqual, 1.0)
				So(first["severity"], ShouldEqual, 99.0)
			})
		})

		Convey("When the limit is invalid", func() {
			resp, err := http.Get(f.server.URL + "/rankings?limit=zero")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When one incident is fetched", func() {
			resp, err := http.Get(f.server.URL + "/rankings/a-2")
			So(err, ShouldBeNil)

			Convey("Then its rank and alert metadata are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				entry := decodeBody[repository.Entry](t, resp)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.Severity, ShouldEqual, 37.5)
				So(entry.AlertID, ShouldEqual, "al-2")
				So(entry.Threat, ShouldEqual, "abandoned_object")
			})
		})

		Convey("When an unranked incident is fetched", func() {
			resp, err := http.Get(f.server.URL + "/rankings/a-9")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func wsURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func TestAlertFeedSocket(t *testing.T) {
	Convey("Given a connected alert feed client", t, func() {
		f := newFixture(t)
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL, "/ws/alerts"), nil)
		So(err, ShouldBeNil)
		defer conn.Close() //nolint:errcheck

		readMessage := func() map[string]any {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
			_, payload, err := conn.ReadMessage()
			So(err, ShouldBeNil)
			var msg map[string]any
			So(json.Unmarshal(payload, &msg), ShouldBeNil)
			return msg
		}

		Convey("When the client sends ping", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte("ping")), ShouldBeNil)

			Convey("Then pong comes back", func() {
				msg := readMessage()
				So(msg["type"], ShouldEqual, "pong")
			})
		})

		Convey("When an alert is created", func() {
			created, err := f.store.Create(context.Background(), alerts.Alert{Type: model.ThreatFight, Confidence: 0.97})
			So(err, ShouldBeNil)

			Convey("Then the alert arrives on the socket", func() {
				msg := readMessage()
				So(msg["type"], ShouldEqual, "alert")
				alertPart, ok := msg["alert"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(alertPart["id"], ShouldEqual, created.ID)
			})
		})

		Convey("When nothing happens for a while", func() {
			Convey("Then heartbeats keep the socket warm", func() {
				msg := readMessage()
				So(msg["type"], ShouldEqual, "heartbeat")
			})
		})
	})
}

func TestAnalysisStreamSocket(t *testing.T) {
	Convey("Given a queued analysis", t, func() {
		f := newFixture(t)
		a := f.registry.Create(analysis.Request{Target: "clip.mp4", Types: []model.ThreatType{model.ThreatFight}})

		Convey("When a client subscribes to its stream", func() {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL, "/ws/analysis/"+a.ID), nil)
			So(err, ShouldBeNil)
			defer conn.Close() //nolint:errcheck

			conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
			_, payload, err := conn.ReadMessage()
			So(err, ShouldBeNil)

			Convey("Then lifecycle snapshots are pushed", func() {
				var msg map[string]any
				So(json.Unmarshal(payload, &msg), ShouldBeNil)
				So(msg["type"], ShouldEqual, "analysis")
				statePart, ok := msg["state"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(statePart["id"], ShouldEqual, a.ID)
			})
		})

		Convey("When the id is unknown", func() {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(f.server.URL, "/ws/analysis/nope"), nil)

			Convey("Then the upgrade is refused with 404", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
