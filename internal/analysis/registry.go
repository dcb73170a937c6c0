package analysis

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowdex/vigil/internal/domain/model"
)

// Analysis is a point-in-time snapshot of one analysis lifecycle.
type Analysis struct {
	ID          string             `json:"id"`
	Target      string             `json:"target"`
	Types       []model.ThreatType `json:"types"`
	Status      Status             `json:"status"`
	TestingMode bool               `json:"testing_mode"`
	FrameSkip   int                `json:"frame_skip"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	FramesProcessed int           `json:"frames_processed"`
	EventsTotal     int           `json:"events_total"`
	AlertCount      int           `json:"alert_count"`
	RecentEvents    []model.Event `json:"recent_events,omitempty"`

	// TotalFrames is the source length in frames, -1 for live streams.
	TotalFrames int `json:"total_frames"`
	// FPS is the processing throughput; set on completion.
	FPS float64 `json:"fps,omitempty"`

	// ProcessingSeconds is wall time spent processing; set on completion.
	ProcessingSeconds float64 `json:"processing_seconds,omitempty"`
	Error             string  `json:"error,omitempty"`
}

// Registry holds the lifecycle state of every analysis. Safe for concurrent
// use; readers get copies, only the owning pipeline mutates.
type Registry struct {
	mu       sync.RWMutex
	analyses map[string]*Analysis
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		analyses: make(map[string]*Analysis),
		now:      time.Now,
	}
}

// Create registers a new queued analysis and returns its snapshot.
func (r *Registry) Create(req Request) Analysis {
	a := &Analysis{
		ID:          uuid.NewString(),
		Target:      req.Target,
		Types:       append([]model.ThreatType(nil), req.Types...),
		Status:      StatusQueued,
		TestingMode: req.TestingMode,
		FrameSkip:   req.FrameSkip,
		TotalFrames: -1,
		CreatedAt:   r.now().UTC(),
	}

	r.mu.Lock()
	r.analyses[a.ID] = a
	r.mu.Unlock()
	return snapshot(a)
}

// Get returns the snapshot for one analysis.
func (r *Registry) Get(id string) (Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.analyses[id]
	if !ok {
		return Analysis{}, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
	}
	return snapshot(a), nil
}

// List returns all analyses, newest first.
func (r *Registry) List() []Analysis {
	r.mu.RLock()
	out := make([]Analysis, 0, len(r.analyses))
	for _, a := range r.analyses {
		out = append(out, snapshot(a))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Active returns the number of analyses in a non-terminal state.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.analyses {
		if !a.Status.Terminal() {
			n++
		}
	}
	return n
}

func (r *Registry) markProcessing(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.analyses[id]; ok {
		now := r.now().UTC()
		a.Status = StatusProcessing
		a.StartedAt = &now
	}
}

func (r *Registry) setTotalFrames(id string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.analyses[id]; ok {
		a.TotalFrames = n
	}
}

func (r *Registry) recordFrame(id string, events []model.Event, alertCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return
	}
	a.FramesProcessed++
	a.EventsTotal += len(events)
	a.AlertCount += alertCount
	a.RecentEvents = append(a.RecentEvents, events...)
	if len(a.RecentEvents) > recentEventsTail {
		a.RecentEvents = a.RecentEvents[len(a.RecentEvents)-recentEventsTail:]
	}
}

func (r *Registry) finish(id string, runErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return
	}
	now := r.now().UTC()
	a.CompletedAt = &now
	if a.StartedAt != nil {
		a.ProcessingSeconds = now.Sub(*a.StartedAt).Seconds()
		if a.ProcessingSeconds > 0 {
			a.FPS = float64(a.FramesProcessed) / a.ProcessingSeconds
		}
	}
	if runErr != nil {
		a.Status = StatusError
		a.Error = runErr.Error()
		return
	}
	a.Status = StatusCompleted
}

// snapshot copies the record so callers never alias registry state.
func snapshot(a *Analysis) Analysis {
	out := *a
	out.Types = append([]model.ThreatType(nil), a.Types...)
	out.RecentEvents = append([]model.Event(nil), a.RecentEvents...)
	return out
}
