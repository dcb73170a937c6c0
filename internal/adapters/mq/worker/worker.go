// Package worker drains the ranking queue: each sample is scored and folded
// into the incident severity ranking off the analysis hot path.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/crowdex/vigil/internal/adapters/mq/queue"
	"github.com/crowdex/vigil/internal/domain/scoring"
	"github.com/crowdex/vigil/pkg/logger"
	"github.com/crowdex/vigil/pkg/metrics"
)

const workerShutdownTimeout = 5 * time.Second

// Scorer computes a severity for one sample.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)
}

// Updater records a new peak severity for an analysis.
type Updater interface {
	UpdateBestWithMeta(ctx context.Context, analysisID string, severity float64, alertID string, threat string, confidence float64) (bool, error)
}

// Queue defines how workers receive samples.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Sample
}

// Worker processes ranking samples until its queue closes.
type Worker struct {
	queue   Queue
	scorer  Scorer
	updater Updater
	name    string

	done chan struct{}
	log  logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, scorer Scorer, updater Updater, opts ...Option) *Worker {
	w := &Worker{
		queue:   q,
		scorer:  scorer,
		updater: updater,
		name:    "rank-worker",
		done:    make(chan struct{}),
		log:     logger.Named("rank-worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run drains the queue until it closes or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	samples := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.log.Error(ctx, "ranking sample failed", logger.Error(err))
			}
		}
	}
}

// process scores one sample and folds it into the ranking.
func (w *Worker) process(ctx context.Context, s queue.Sample) error {
	result, err := w.scorer.Score(ctx, scoring.Input{
		AnalysisID: s.AnalysisID,
		Threat:     s.Threat,
		Confidence: s.Confidence,
	})
	if err != nil {
		metrics.RecordRankUpdateError()
		return fmt.Errorf("score sample %s: %w", s.AlertID, err)
	}

	updated, err := w.updater.UpdateBestWithMeta(ctx, s.AnalysisID, result.Severity, s.AlertID, string(s.Threat), s.Confidence)
	if err != nil {
		metrics.RecordRankUpdateError()
		return fmt.Errorf("rank update for %s: %w", s.AnalysisID, err)
	}

	metrics.RecordRankSampleScored()
	if updated {
		w.log.Debug(ctx, "incident severity escalated",
			logger.String("analysis", s.AnalysisID),
			logger.Float64("severity", result.Severity),
		)
	}
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
	queue   Queue
	log     logger.Logger
}

// NewPool creates a pool. A workerCount below one defaults to the CPU
// count; ranking updates are cheap, more workers only help when scoring
// calls out to an external model.
func NewPool(workerCount int, q Queue, scorer Scorer, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		log:     logger.Named("rank-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, scorer, updater, WithName("rank-worker-"+strconv.Itoa(i)))
	}

	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	metrics.UpdateRankWorkers(len(p.workers))
}

// Shutdown closes the queue, lets the workers drain it and waits for them
// to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.log.Error(ctx, "closing ranking queue", logger.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(workerShutdownTimeout):
		p.log.Warn(ctx, "ranking workers did not drain in time")
	case <-ctx.Done():
		metrics.UpdateRankWorkers(0)
		return fmt.Errorf("ranking pool shutdown: %w", ctx.Err())
	}

	metrics.UpdateRankWorkers(0)
	return nil
}
