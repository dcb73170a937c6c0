// Package app wires the alert store and the analysis pipeline into one
// startable service providing the dependencies required by the HTTP API.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/crowdex/vigil/internal/adapters/mq/queue"
	"github.com/crowdex/vigil/internal/adapters/mq/worker"
	"github.com/crowdex/vigil/internal/adapters/repository"
	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/analysis"
	"github.com/crowdex/vigil/internal/capture"
	"github.com/crowdex/vigil/internal/domain/abandon"
	"github.com/crowdex/vigil/internal/domain/aggression"
	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/domain/prone"
	"github.com/crowdex/vigil/internal/domain/scoring"
	"github.com/crowdex/vigil/internal/vision"
	"github.com/crowdex/vigil/pkg/logger"
	"github.com/crowdex/vigil/pkg/metrics"
)

const (
	defaultVisionURL    = "http://localhost:9090"
	defaultHistoryLimit = 500
	defaultQueueSize    = 5
	defaultReconnects   = 3
	defaultBackoff      = 2 * time.Second
	stopTimeout         = 30 * time.Second
	alertHistoryFile    = "alerts.json"
)

// Service owns the long-lived components of the monitoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	alerts   *alerts.Manager
	registry *analysis.Registry
	pipeline *analysis.Service

	// Severity ranking
	ranking    *repository.TreapStore
	rankQueue  *queue.InMemoryQueue
	rankPool   *worker.Pool
	rankCancel context.CancelFunc

	// Configuration
	dataDir       string
	historyLimit  int
	visionURL     string
	queueSize     int
	maxReconnects int
	backoff       time.Duration
	abandonSec    float64
	proneSec      float64
	restZones     []model.Rect
	rankWorkers   int
	typeWeights   map[model.ThreatType]float64

	// Factory overrides, nil means the production defaults.
	sources   analysis.SourceFactory
	detectors analysis.DetectorFactory

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the directory for persisted state. Empty disables
// persistence.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		s.dataDir = dir
	}
}

// WithHistoryLimit caps the persisted alert history.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithVisionURL sets the inference server base URL.
func WithVisionURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.visionURL = url
		}
	}
}

// WithFrameQueueSize bounds the per-analysis frame queue.
func WithFrameQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithStreamRetry sets the reconnect budget and backoff for lost streams.
func WithStreamRetry(maxReconnects int, backoff time.Duration) Option {
	return func(s *Service) {
		if maxReconnects >= 0 {
			s.maxReconnects = maxReconnects
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// WithAbandonmentThreshold overrides the unattended-object timer in seconds.
func WithAbandonmentThreshold(seconds float64) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.abandonSec = seconds
		}
	}
}

// WithProneThreshold overrides the medical-emergency timer in seconds.
func WithProneThreshold(seconds float64) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.proneSec = seconds
		}
	}
}

// WithRestZones registers regions where lying down is expected.
func WithRestZones(zones ...model.Rect) Option {
	return func(s *Service) {
		s.restZones = append(s.restZones, zones...)
	}
}

// WithRankWorkers sets the number of severity ranking workers. Zero or
// negative keeps the pool default of one worker per CPU.
func WithRankWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rankWorkers = n
		}
	}
}

// WithTypeWeights overrides the per-threat severity weights used when
// ranking incidents.
func WithTypeWeights(weights map[model.ThreatType]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.typeWeights = weights
		}
	}
}

// WithSourceFactory replaces the production frame source factory.
func WithSourceFactory(f analysis.SourceFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.sources = f
		}
	}
}

// WithDetectorFactory replaces the production detector factory.
func WithDetectorFactory(f analysis.DetectorFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.detectors = f
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataDir:       "data",
		historyLimit:  defaultHistoryLimit,
		visionURL:     defaultVisionURL,
		queueSize:     defaultQueueSize,
		maxReconnects: defaultReconnects,
		backoff:       defaultBackoff,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting monitoring service...")

	var alertOpts []alerts.Option
	if s.dataDir != "" {
		alertOpts = append(alertOpts,
			alerts.WithPersistencePath(filepath.Join(s.dataDir, alertHistoryFile)),
		)
	}
	alertOpts = append(alertOpts, alerts.WithHistoryLimit(s.historyLimit))

	manager, err := alerts.New(alertOpts...)
	if err != nil {
		return fmt.Errorf("alert store: %w", err)
	}
	s.alerts = manager
	s.registry = analysis.NewRegistry()

	detectors := s.detectors
	if detectors == nil {
		detectors = s.defaultDetectorFactory(vision.NewClient(s.visionURL))
	}
	sources := s.sources
	if sources == nil {
		sources = func(_ context.Context, _ string) (capture.Source, error) {
			return capture.NewMJPEGSource(), nil
		}
	}

	s.ranking = repository.NewTreapStore()
	s.rankQueue = queue.NewInMemoryQueue()

	var scorerOpts []scoring.Option
	if len(s.typeWeights) > 0 {
		scorerOpts = append(scorerOpts, scoring.WithTypeWeights(s.typeWeights, 0))
	}
	s.rankPool = worker.NewPool(s.rankWorkers, s.rankQueue,
		scoring.NewWeightedScorer(scorerOpts...), s.ranking)

	rankCtx, rankCancel := context.WithCancel(context.Background())
	s.rankCancel = rankCancel
	s.rankPool.Start(rankCtx)

	s.pipeline = analysis.NewService(s.registry, s.alerts, detectors, sources,
		analysis.WithQueueCapacity(s.queueSize),
		analysis.WithMaxReconnects(s.maxReconnects),
		analysis.WithReconnectBackoff(s.backoff),
		analysis.WithRankSink(s.rankQueue),
		analysis.WithLogger(s.logger),
	)

	s.started = true
	s.logger.Info(ctx, "monitoring service started",
		logger.String("visionURL", s.visionURL),
		logger.Int("frameQueueSize", s.queueSize),
		logger.Int("historyLimit", s.historyLimit),
	)

	return nil
}

// Stop gracefully shuts down the service, draining running analyses.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping monitoring service...")

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.pipeline.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "pipeline shutdown failed", logger.Error(err))
	}

	if err := s.rankPool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "ranking pool shutdown failed", logger.Error(err))
	}
	s.rankCancel()

	s.started = false
	s.logger.Info(context.Background(), "monitoring service stopped")
}

// Alerts returns the alert store.
func (s *Service) Alerts() *alerts.Manager { return s.alerts }

// Registry returns the analysis state registry.
func (s *Service) Registry() *analysis.Registry { return s.registry }

// Pipeline returns the analysis pipeline.
func (s *Service) Pipeline() *analysis.Service { return s.pipeline }

// Rankings returns the incident severity ranking store.
func (s *Service) Rankings() *repository.TreapStore { return s.ranking }

// GetStats returns service statistics for monitoring and refreshes the
// gauges derived from them.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}

	if s.started {
		active := s.registry.Active()
		alertStats := s.alerts.Stats()

		stats["activeAnalyses"] = active
		stats["totalAlerts"] = alertStats.Total
		stats["pendingAlerts"] = alertStats.Pending
		stats["rankedIncidents"] = s.ranking.Count(context.Background())

		metrics.UpdateActiveAnalyses(active)
	}

	return stats
}

// defaultDetectorFactory builds per-analysis detectors against the shared
// vision model, applying configured threshold overrides.
func (s *Service) defaultDetectorFactory(vm vision.Model) analysis.DetectorFactory {
	abandonSec := s.abandonSec
	proneSec := s.proneSec
	zones := append([]model.Rect(nil), s.restZones...)

	return func(t model.ThreatType) (analysis.Detector, error) {
		switch t {
		case model.ThreatAbandonedObject:
			return abandon.New(vm, abandon.WithAbandonmentThreshold(abandonSec)), nil
		case model.ThreatAccident:
			return prone.New(vm, prone.WithProneThreshold(proneSec), prone.WithRestZones(zones...)), nil
		case model.ThreatFight:
			return aggression.New(vm), nil
		default:
			return nil, fmt.Errorf("no detector for threat type %q", t)
		}
	}
}
