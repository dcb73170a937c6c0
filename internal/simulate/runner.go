package simulate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/crowdex/vigil/internal/alerts"
	"github.com/crowdex/vigil/internal/analysis"
	"github.com/crowdex/vigil/internal/capture"
	"github.com/crowdex/vigil/internal/domain/abandon"
	"github.com/crowdex/vigil/internal/domain/aggression"
	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/internal/domain/prone"
	"github.com/crowdex/vigil/pkg/logger"
)

const (
	pollInterval        = 50 * time.Millisecond
	shutdownGrace       = 5 * time.Second
	outputFilePerm      = 0o644
	outputDirPermission = 0o750
)

// detectorFactory builds detectors backed by the scripted vision model.
func detectorFactory(t model.ThreatType) (analysis.Detector, error) {
	switch t {
	case model.ThreatAbandonedObject:
		return abandon.New(Model{}), nil
	case model.ThreatAccident:
		return prone.New(Model{}), nil
	case model.ThreatFight:
		return aggression.New(Model{}), nil
	default:
		return nil, fmt.Errorf("no detector for threat type %q", t)
	}
}

// Run executes the selected scenarios through a real analysis pipeline and
// verifies each one produced what its script promises.
func Run(ctx context.Context, config *Config) error {
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	scenarios, err := Scenarios(config.Scenarios)
	if err != nil {
		return err
	}

	byName := make(map[string]Scenario, len(scenarios))
	longest := 0
	for _, sc := range scenarios {
		byName[sc.Name] = sc
		if len(sc.Frames) > longest {
			longest = len(sc.Frames)
		}
	}

	manager, err := alerts.New()
	if err != nil {
		return fmt.Errorf("alert manager: %w", err)
	}

	registry := analysis.NewRegistry()
	sources := func(_ context.Context, target string) (capture.Source, error) {
		sc, ok := byName[target]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, target)
		}
		return NewClip(sc.Frames), nil
	}

	// The queue holds a full clip so scripted frames are never dropped and
	// every run is deterministic.
	service := analysis.NewService(registry, manager, detectorFactory, sources,
		analysis.WithQueueCapacity(longest),
		analysis.WithMaxReconnects(0),
	)

	raised := collectAlerts(manager)

	ids := make(map[string]string, len(scenarios))
	for _, sc := range scenarios {
		a, err := service.Start(analysis.Request{
			Target:      sc.Name,
			Types:       sc.Threats,
			TestingMode: true,
			FrameSkip:   config.FrameSkip,
		})
		if err != nil {
			return fmt.Errorf("start scenario %s: %w", sc.Name, err)
		}
		ids[sc.Name] = a.ID
		log.Info(ctx, "scenario started",
			logger.String("scenario", sc.Name),
			logger.String("id", a.ID),
			logger.Int("frames", len(sc.Frames)),
		)
	}

	if err := waitForCompletion(ctx, registry, ids); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("pipeline shutdown: %w", err)
	}

	alertList := raised()
	results := verify(ctx, scenarios, ids, registry, alertList, stats)

	if config.OutputFile != "" {
		if err := saveAlerts(ctx, config.OutputFile, alertList); err != nil {
			log.Warn(ctx, "failed to save alerts", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	var failed []string
	for _, r := range results {
		if !r.Verified {
			failed = append(failed, r.Scenario)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrVerification, strings.Join(failed, ", "))
	}
	return nil
}

// collectAlerts subscribes to the alert stream and returns a func that stops
// collection and hands back everything raised so far.
func collectAlerts(manager *alerts.Manager) func() []alerts.Alert {
	feed, cancel := manager.Subscribe()

	var mu sync.Mutex
	var collected []alerts.Alert
	done := make(chan struct{})
	go func() {
		defer close(done)
		for alert := range feed {
			if alert.Status != model.StatusPending {
				continue // status updates re-broadcast; count creations once
			}
			mu.Lock()
			collected = append(collected, alert)
			mu.Unlock()
		}
	}()

	return func() []alerts.Alert {
		cancel()
		<-done
		mu.Lock()
		defer mu.Unlock()
		return collected
	}
}

// waitForCompletion polls the registry until every scenario reaches a
// terminal state.
func waitForCompletion(ctx context.Context, registry *analysis.Registry, ids map[string]string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("simulation timed out: %w", ctx.Err())
		case <-ticker.C:
			remaining := 0
			for _, id := range ids {
				state, err := registry.Get(id)
				if err != nil {
					return err
				}
				if !state.Status.Terminal() {
					remaining++
				}
			}
			if remaining == 0 {
				return nil
			}
		}
	}
}

// verify grades each scenario against its expected events and alerts.
func verify(ctx context.Context, scenarios []Scenario, ids map[string]string, registry *analysis.Registry, raised []alerts.Alert, stats *Stats) []Result {
	log := logger.Named("simulate")

	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		id := ids[sc.Name]
		state, err := registry.Get(id)
		if err != nil {
			results = append(results, Result{Scenario: sc.Name, AnalysisID: id, Error: err.Error()})
			continue
		}

		r := Result{
			Scenario:   sc.Name,
			AnalysisID: id,
			Status:     string(state.Status),
			Frames:     state.FramesProcessed,
			Events:     state.EventsTotal,
			Alerts:     state.AlertCount,
			Seconds:    state.ProcessingSeconds,
			Error:      state.Error,
		}

		r.Verified = state.Status == analysis.StatusCompleted &&
			hasEvent(state.RecentEvents, sc.ExpectEvent) &&
			(sc.ExpectAlert == "" || hasAlert(raised, id, sc.ExpectAlert))

		stats.ScenariosRun++
		stats.EventsDetected += state.EventsTotal
		if r.Verified {
			stats.ScenariosPassed++
		}

		log.Info(ctx, "scenario finished",
			logger.String("scenario", r.Scenario),
			logger.String("status", r.Status),
			logger.Int("frames", r.Frames),
			logger.Int("events", r.Events),
			logger.Int("alerts", r.Alerts),
			logger.Bool("verified", r.Verified),
		)

		results = append(results, r)
	}

	stats.AlertsRaised = len(raised)
	return results
}

func hasEvent(events []model.Event, want model.EventType) bool {
	if want == "" {
		return true
	}
	for _, ev := range events {
		if ev.Type == want {
			return true
		}
	}
	return false
}

func hasAlert(raised []alerts.Alert, analysisID string, want model.ThreatType) bool {
	for _, a := range raised {
		if a.AnalysisID == analysisID && a.Type == want {
			return true
		}
	}
	return false
}

// saveAlerts writes every raised alert to a JSON file for inspection.
func saveAlerts(ctx context.Context, filename string, raised []alerts.Alert) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, outputDirPermission); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(raised, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}
	if err := os.WriteFile(filename, data, outputFilePerm); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}

	logger.Named("simulate").Info(ctx, "alerts saved", logger.String("filename", filename), logger.Int("count", len(raised)))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	logger.Named("simulate").Info(context.Background(), "simulation finished",
		logger.Int("scenariosRun", stats.ScenariosRun),
		logger.Int("scenariosPassed", stats.ScenariosPassed),
		logger.Int("eventsDetected", stats.EventsDetected),
		logger.Int("alertsRaised", stats.AlertsRaised),
		logger.String("duration", stats.Duration.String()),
	)
}
