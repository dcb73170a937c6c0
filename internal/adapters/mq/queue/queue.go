// Package queue is the buffer between alert creation and severity ranking.
// Enqueue never blocks the analysis pipeline; when the buffer is full the
// sample is refused and the ranking simply lags.
package queue

import (
	"context"
	"sync"

	"github.com/crowdex/vigil/internal/domain/model"
	"github.com/crowdex/vigil/pkg/metrics"
)

// defaultCapacity bounds buffered samples. Alerts are rare relative to
// frames; the buffer only fills when ranking workers stall.
const defaultCapacity = 4096

// Sample is the payload type flowing through the queue.
type Sample = model.RankSample

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a sample to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, s Sample) bool

	// Dequeue returns a channel receiving samples as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Sample

	// Len returns the current number of buffered samples.
	Len(ctx context.Context) int

	// Close shuts the queue down. After closing, Enqueue refuses samples
	// and the dequeue channel drains then closes.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue over a buffered channel.
type InMemoryQueue struct {
	samples  chan Sample
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates an in-memory sample queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.samples = make(chan Sample, q.capacity)
	metrics.UpdateRankQueueDepth(0)
	return q
}

// Enqueue adds a sample without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Sample) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		return false
	}

	select {
	case q.samples <- s:
		metrics.UpdateRankQueueDepth(len(q.samples))
		return true
	default:
		return false
	}
}

// Dequeue returns a channel receiving buffered samples.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Sample {
	out := make(chan Sample)
	go func() {
		defer close(out)
		for s := range q.samples {
			select {
			case out <- s:
				metrics.UpdateRankQueueDepth(len(q.samples))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered samples.
func (q *InMemoryQueue) Len(context.Context) int {
	return len(q.samples)
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.samples)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
