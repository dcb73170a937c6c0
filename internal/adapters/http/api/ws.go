// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/analysis"
	"github.com/crowdex/vigil/pkg/logger"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultStatusPoll        = 500 * time.Millisecond
	writeTimeout             = 10 * time.Second
)

// wsMessage is the envelope for every frame sent over the sockets.
type wsMessage struct {
	Type  string             `json:"type"`
	Alert *alerts.Alert      `json:"alert,omitempty"`
	State *analysis.Analysis `json:"state,omitempty"`
	TS    int64              `json:"ts,omitempty"`
}

// AlertFeedHandler streams alert creations and status changes.
type AlertFeedHandler struct {
	store     AlertStore
	upgrader  websocket.Upgrader
	heartbeat time.Duration
	log       logger.Logger
}

// NewAlertFeedHandler creates a new alert feed handler.
func NewAlertFeedHandler(store AlertStore) *AlertFeedHandler {
	return &AlertFeedHandler{
		store: store,
		upgrader: websocket.Upgrader{
			// The operator dashboard is served from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		heartbeat: defaultHeartbeatInterval,
		log:       logger.Named("ws.alerts"),
	}
}

// HandleAlertFeed handles GET /ws/alerts. The client may send "ping" text
// frames and receives "pong" answers; heartbeats flow regardless.
func (h *AlertFeedHandler) HandleAlertFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "alert feed upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	feed, cancel := h.store.Subscribe()
	defer cancel()

	// Reader goroutine: answers pings through the writer loop and signals
	// when the peer goes away.
	pings := make(chan struct{}, 1)
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.TextMessage && strings.TrimSpace(string(payload)) == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case alert, ok := <-feed:
			if !ok {
				// Dropped by the store for not draining fast enough.
				return
			}
			if err := h.send(conn, wsMessage{Type: "alert", Alert: &alert}); err != nil {
				return
			}
		case <-pings:
			if err := h.send(conn, wsMessage{Type: "pong"}); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := h.send(conn, wsMessage{Type: "heartbeat", TS: time.Now().Unix()}); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *AlertFeedHandler) send(conn *websocket.Conn, msg wsMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// AnalysisStreamHandler streams one analysis's lifecycle state.
type AnalysisStreamHandler struct {
	reader   AnalysisReader
	upgrader websocket.Upgrader
	poll     time.Duration
	log      logger.Logger
}

// NewAnalysisStreamHandler creates a new analysis stream handler.
func NewAnalysisStreamHandler(reader AnalysisReader) *AnalysisStreamHandler {
	return &AnalysisStreamHandler{
		reader: reader,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		poll: defaultStatusPoll,
		log:  logger.Named("ws.analysis"),
	}
}

// HandleAnalysisStream handles GET /ws/analysis/{id}. Snapshots are pushed
// on every poll tick; the socket closes after the terminal snapshot.
func (h *AnalysisStreamHandler) HandleAnalysisStream(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/ws/analysis/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if _, err := h.reader.Get(id); err != nil {
		if errors.Is(err, analysis.ErrAnalysisNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "status_failed", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "analysis stream upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			state, err := h.reader.Get(id)
			if err != nil {
				return
			}
			if err := h.send(conn, wsMessage{Type: "analysis", State: &state}); err != nil {
				return
			}
			if state.Status.Terminal() {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(state.Status))
				conn.WriteMessage(websocket.CloseMessage, msg) //nolint:errcheck
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *AnalysisStreamHandler) send(conn *websocket.Conn, msg wsMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	return conn.WriteMessage(websocket.TextMessage, payload)
}
