package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/capture"
	"github.com/crowdex/vigil/internal/domain/dedupe"
	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/pkg/logger"
	"github.com/crowdex/vigil/pkg/metrics"
)

// AlertSink receives confirmed threats from running pipelines.
type AlertSink interface {
	Create(ctx context.Context, alert alerts.Alert) (alerts.Alert, error)
}

// SourceFactory opens a frame source for one analysis target.
type SourceFactory func(ctx context.Context, target string) (capture.Source, error)

// RankSink receives severity samples for created alerts. Enqueue must not
// block; a dropped sample only delays the incident ranking.
type RankSink interface {
	Enqueue(ctx context.Context, sample model.RankSample) bool
}

// Service starts and supervises analyses. One pipeline goroutine per
// analysis; all of them share the registry and the alert sink.
type Service struct {
	registry  *Registry
	sink      AlertSink
	detectors DetectorFactory
	sources   SourceFactory
	resolver  capture.Resolver
	guard     dedupe.Guard
	rank      RankSink

	queueCapacity int
	maxReconnects int
	backoff       time.Duration
	log           logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewService wires a Service. The factories are required; everything else
// has defaults.
func NewService(registry *Registry, sink AlertSink, detectors DetectorFactory, sources SourceFactory, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		registry:      registry,
		sink:          sink,
		detectors:     detectors,
		sources:       sources,
		guard:         dedupe.New(),
		maxReconnects: -1, // capture default applies
		log:           logger.Named("analysis"),
		ctx:           ctx,
		cancel:        cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start validates the request, registers a queued analysis and launches its
// pipeline. Returns immediately with the queued snapshot.
func (s *Service) Start(req Request) (Analysis, error) {
	if s.closed.Load() {
		return Analysis{}, ErrShuttingDown
	}
	if len(req.Types) == 0 {
		return Analysis{}, ErrNoThreatTypes
	}
	for _, t := range req.Types {
		if _, err := model.ParseThreatType(string(t)); err != nil {
			return Analysis{}, err
		}
	}
	if req.FrameSkip < 0 {
		return Analysis{}, fmt.Errorf("%w: negative frame skip", ErrInvalidRequest)
	}
	if s.guard != nil && !s.guard.Claim(s.ctx, req.Target) {
		return Analysis{}, fmt.Errorf("%w: %s", ErrTargetBusy, req.Target)
	}

	a := s.registry.Create(req)
	s.wg.Add(1)
	go s.run(a.ID, req)
	return a, nil
}

// Shutdown stops accepting work, cancels running pipelines and waits for
// them to drain.
func (s *Service) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the pipeline for one analysis: capture loop feeding a bounded
// queue, sequential frame processing across this analysis's detectors.
func (s *Service) run(id string, req Request) {
	defer s.wg.Done()

	s.registry.markProcessing(id)
	metrics.RecordAnalysisStarted()
	metrics.UpdateActiveAnalyses(s.registry.Active())
	defer func() { metrics.UpdateActiveAnalyses(s.registry.Active()) }()

	finish := func(err error) {
		if s.guard != nil {
			s.guard.Release(s.ctx, req.Target)
		}
		s.registry.finish(id, err)
		if err != nil {
			metrics.RecordAnalysisFailed()
			s.log.Error(s.ctx, "analysis failed", logger.String("id", id), logger.Error(err))
			return
		}
		metrics.RecordAnalysisCompleted()
		s.log.Info(s.ctx, "analysis finished", logger.String("id", id))
	}

	detectors, err := s.buildDetectors(req)
	if err != nil {
		finish(err)
		return
	}

	source, err := s.sources(s.ctx, req.Target)
	if err != nil {
		finish(fmt.Errorf("open source: %w", err))
		return
	}
	if fc, ok := source.(capture.FrameCounter); ok {
		s.registry.setTotalFrames(id, fc.FrameCount())
	}

	queue := capture.NewQueue(s.queueCapacity)
	captureOpts := []capture.Option{capture.WithLogger(s.log)}
	if s.resolver != nil {
		captureOpts = append(captureOpts, capture.WithResolver(s.resolver))
	}
	if s.maxReconnects >= 0 {
		captureOpts = append(captureOpts, capture.WithMaxReconnects(s.maxReconnects))
	}
	if s.backoff > 0 {
		captureOpts = append(captureOpts, capture.WithReconnectBackoff(s.backoff))
	}
	loop := capture.New(source, queue, req.Target, captureOpts...)

	capCtx, capCancel := context.WithCancel(s.ctx)
	defer capCancel()
	captureErr := make(chan error, 1)
	go func() {
		err := loop.Run(capCtx)
		queue.Close()
		captureErr <- err
	}()

	skip := req.FrameSkip
	if skip < 1 {
		skip = 1
	}

	frameIdx := 0
	var runErr error
	for {
		tf, err := queue.Pop(s.ctx)
		if err != nil {
			if errors.Is(err, capture.ErrQueueClosed) {
				// Stream ended; surface a real capture failure, but a
				// cancelled capture is a normal stop.
				if cerr := <-captureErr; cerr != nil && !errors.Is(cerr, context.Canceled) {
					runErr = cerr
				}
			}
			break
		}

		frameIdx++
		if (frameIdx-1)%skip != 0 {
			continue
		}
		s.processFrame(id, detectors, tf)
	}

	finish(runErr)
}

// processFrame runs every detector over one frame. A failing detector is
// isolated: it is logged and counted, the others still run.
func (s *Service) processFrame(id string, detectors []Detector, tf capture.TimedFrame) {
	start := time.Now()

	var events []model.Event
	alertCount := 0
	for _, det := range detectors {
		report, err := det.ProcessFrame(s.ctx, tf.Frame, tf.TS)
		if err != nil {
			metrics.RecordDetectorError(string(det.Type()))
			s.log.Warn(s.ctx, "detector failed on frame",
				logger.String("id", id),
				logger.String("detector", string(det.Type())),
				logger.Error(err),
			)
			continue
		}

		events = append(events, report.Events...)
		metrics.UpdateTrackedPersons(report.PersonsDetected)
		metrics.UpdateTrackedObjects(report.ObjectsDetected)

		for _, ev := range report.Alerts {
			if s.createAlert(id, det.Type(), ev, tf) {
				alertCount++
			}
		}
	}

	for _, ev := range events {
		metrics.RecordEventDetected(string(ev.Type))
	}
	metrics.RecordFrameProcessed()
	metrics.RecordFrameLatency(float64(time.Since(start).Microseconds()) / 1000.0)

	s.registry.recordFrame(id, events, alertCount)
}

// createAlert persists one alert-worthy event. Alert failures never stop
// the pipeline.
func (s *Service) createAlert(id string, threat model.ThreatType, ev model.Event, tf capture.TimedFrame) bool {
	meta := make(map[string]any, len(ev.Metadata)+1)
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	meta["event"] = string(ev.Type)

	loc := ev.Location
	alert := alerts.Alert{
		AnalysisID: id,
		Type:       threat,
		Confidence: ev.Confidence,
		VideoTime:  ev.Timestamp,
		Location:   &loc,
		Persons:    append([]int(nil), ev.Persons...),
		Screenshot: tf.Frame.ScreenshotB64(),
		Metadata:   meta,
	}

	created, err := s.sink.Create(s.ctx, alert)
	if err != nil {
		s.log.Error(s.ctx, "alert creation failed",
			logger.String("id", id),
			logger.String("type", string(threat)),
			logger.Error(err),
		)
		return false
	}

	if s.rank != nil {
		sample := model.RankSample{
			AnalysisID: id,
			AlertID:    created.ID,
			Threat:     threat,
			Confidence: ev.Confidence,
			VideoTime:  ev.Timestamp,
		}
		if !s.rank.Enqueue(s.ctx, sample) {
			metrics.RecordRankSampleDropped()
			s.log.Warn(s.ctx, "ranking queue full, sample dropped",
				logger.String("id", id),
			)
		}
	}
	return true
}

// buildDetectors constructs one fresh detector per requested type.
func (s *Service) buildDetectors(req Request) ([]Detector, error) {
	detectors := make([]Detector, 0, len(req.Types))
	for _, t := range req.Types {
		det, err := s.detectors(t)
		if err != nil {
			return nil, fmt.Errorf("build %s detector: %w", t, err)
		}
		det.SetTestingMode(req.TestingMode)
		detectors = append(detectors, det)
	}
	return detectors, nil
}
