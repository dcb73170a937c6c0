// Package alerts is the durable alert store and fan-out hub. Alerts are held
// in memory, persisted as a bounded JSON history, and broadcast to
// subscribers on creation and status change.
package alerts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/pkg/logger"
	"github.com/crowdex/vigil/pkg/metrics"
)

const (
	defaultHistoryLimit   = 500
	defaultListenerBuffer = 16
)

// Alert is one confirmed threat, durable across the alert lifecycle.
type Alert struct {
	ID         string            `json:"id"`
	AnalysisID string            `json:"analysis_id,omitempty"`
	Type       model.ThreatType  `json:"type"`
	Confidence float64           `json:"confidence"`
	Status     model.AlertStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	VideoTime  float64           `json:"video_timestamp"`
	Location   *model.Point      `json:"location,omitempty"`
	Persons    []int             `json:"persons,omitempty"`
	Screenshot string            `json:"screenshot,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// Stats summarizes the alert history for the dashboard.
type Stats struct {
	Total    int                       `json:"total"`
	Pending  int                       `json:"pending"`
	ByType   map[model.ThreatType]int  `json:"by_type"`
	ByStatus map[model.AlertStatus]int `json:"by_status"`
}

// Manager owns the in-memory alert list, its file persistence and the
// subscriber fan-out. Safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	alerts    []*Alert
	listeners map[int]chan Alert
	nextSub   int

	path         string // empty disables persistence
	historyLimit int
	bufferSize   int
	now          func() time.Time
	log          logger.Logger
}

// New creates a Manager and loads any persisted history from the configured
// path. A missing history file is not an error.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		listeners:    make(map[int]chan Alert),
		historyLimit: defaultHistoryLimit,
		bufferSize:   defaultListenerBuffer,
		now:          time.Now,
		log:          logger.Named("alerts"),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.load()
	return m, nil
}

// Create records a new pending alert, persists it and fans it out.
func (m *Manager) Create(ctx context.Context, alert Alert) (Alert, error) {
	if _, err := model.ParseThreatType(string(alert.Type)); err != nil {
		return Alert{}, err
	}

	alert.ID = uuid.NewString()
	alert.Status = model.StatusPending
	alert.CreatedAt = m.now().UTC()

	m.mu.Lock()
	m.alerts = append(m.alerts, &alert)
	if len(m.alerts) > m.historyLimit {
		m.alerts = m.alerts[len(m.alerts)-m.historyLimit:]
	}
	m.persistLocked(ctx)
	m.mu.Unlock()

	metrics.RecordAlertCreated(string(alert.Type))
	m.log.Info(ctx, "alert created",
		logger.String("id", alert.ID),
		logger.String("type", string(alert.Type)),
		logger.Float64("confidence", alert.Confidence),
	)

	m.broadcast(alert)
	return alert, nil
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	Type   model.ThreatType
	Status model.AlertStatus
	Limit  int
}

// List returns alerts ordered by video timestamp descending, optionally
// filtered. Concurrent analyses create alerts out of footage order, so the
// sort cannot rely on insertion order.
func (m *Manager) List(filter ListFilter) []Alert {
	m.mu.RLock()
	out := make([]Alert, 0, len(m.alerts))
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	m.mu.RUnlock()

	// Stable over the reverse-insertion collection above, so equal
	// timestamps stay newest-created first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].VideoTime > out[j].VideoTime })

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// Get returns one alert by id.
func (m *Manager) Get(id string) (Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.alerts {
		if a.ID == id {
			return *a, nil
		}
	}
	return Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
}

// UpdateStatus moves an alert to a new lifecycle status. Any status may
// follow any other; operators correct mislabeled alerts freely.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status model.AlertStatus) (Alert, error) {
	if _, err := model.ParseAlertStatus(string(status)); err != nil {
		return Alert{}, err
	}

	m.mu.Lock()
	var updated *Alert
	for _, a := range m.alerts {
		if a.ID == id {
			a.Status = status
			updated = a
			break
		}
	}
	if updated == nil {
		m.mu.Unlock()
		return Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	snapshot := *updated
	m.persistLocked(ctx)
	m.mu.Unlock()

	metrics.RecordAlertStatusUpdate(string(status))
	m.broadcast(snapshot)
	return snapshot, nil
}

// Stats aggregates the current history.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		Total:    len(m.alerts),
		ByType:   make(map[model.ThreatType]int),
		ByStatus: make(map[model.AlertStatus]int),
	}
	for _, a := range m.alerts {
		s.ByType[a.Type]++
		s.ByStatus[a.Status]++
		if a.Status == model.StatusPending {
			s.Pending++
		}
	}
	return s
}

// Subscribe registers a listener for alert creations and status changes.
// The returned cancel func must be called when the listener goes away; a
// listener that stops draining is dropped on the next full buffer.
func (m *Manager) Subscribe() (<-chan Alert, func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan Alert, m.bufferSize)
	m.listeners[id] = ch
	n := len(m.listeners)
	m.mu.Unlock()

	metrics.UpdateAlertListeners(n)
	return ch, func() { m.unsubscribe(id) }
}

func (m *Manager) unsubscribe(id int) {
	m.mu.Lock()
	if ch, ok := m.listeners[id]; ok {
		delete(m.listeners, id)
		close(ch)
	}
	n := len(m.listeners)
	m.mu.Unlock()
	metrics.UpdateAlertListeners(n)
}

// broadcast delivers without blocking; a listener with a full buffer is
// dropped so one stuck consumer cannot stall the pipeline.
func (m *Manager) broadcast(alert Alert) {
	m.mu.Lock()
	var stuck []int
	for id, ch := range m.listeners {
		select {
		case ch <- alert:
			metrics.RecordBroadcastSent()
		default:
			stuck = append(stuck, id)
		}
	}
	for _, id := range stuck {
		ch := m.listeners[id]
		delete(m.listeners, id)
		close(ch)
		metrics.RecordBroadcastDropped()
	}
	n := len(m.listeners)
	m.mu.Unlock()

	if len(stuck) > 0 {
		metrics.UpdateAlertListeners(n)
		m.log.Warn(context.Background(), "dropped stuck alert listeners",
			logger.Int("count", len(stuck)),
		)
	}
}

// persistLocked writes the history file. Callers hold m.mu. Persistence
// failures are logged and counted but never fail the alert operation.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.path == "" {
		return
	}

	data, err := json.MarshalIndent(m.alerts, "", "  ")
	if err != nil {
		metrics.RecordPersistError()
		m.log.Error(ctx, "marshal alert history", logger.Error(err))
		return
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		metrics.RecordPersistError()
		m.log.Error(ctx, "write alert history", logger.Error(err))
		return
	}
	if err := os.Rename(tmp, m.path); err != nil {
		metrics.RecordPersistError()
		m.log.Error(ctx, "replace alert history", logger.Error(err))
	}
}

// load restores the persisted history, trimming to the configured limit.
// An unreadable or corrupt history file is logged and skipped: the process
// starts with an empty history and in-memory state stays the source of
// truth.
func (m *Manager) load() {
	if m.path == "" {
		return
	}
	ctx := context.Background()
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		metrics.RecordPersistError()
		m.log.Error(ctx, "create alert history dir", logger.Error(err))
		return
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		metrics.RecordPersistError()
		m.log.Error(ctx, "read alert history", logger.Error(err))
		return
	}

	var restored []*Alert
	if err := json.Unmarshal(data, &restored); err != nil {
		metrics.RecordPersistError()
		m.log.Error(ctx, "decode alert history", logger.Error(err))
		return
	}
	if len(restored) > m.historyLimit {
		restored = restored[len(restored)-m.historyLimit:]
	}
	m.alerts = restored
}
