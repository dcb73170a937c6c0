package capture

import (
	"context"

	"github.com/crowdex/vigil/internal/vision"
	"github.com/crowdex/vigil/pkg/metrics"
)

// defaultQueueCapacity keeps the analysis working on recent frames; capture
// never waits for a slow consumer.
const defaultQueueCapacity = 5

// TimedFrame is a frame paired with its stream-relative timestamp in seconds.
type TimedFrame struct {
	Frame vision.Frame
	TS    float64
}

// Queue is a bounded frame buffer. When full, the oldest frame is discarded
// to make room, so consumers always see the freshest footage.
type Queue struct {
	ch chan TimedFrame
}

// NewQueue creates a queue with the given capacity; non-positive values fall
// back to the default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Queue{ch: make(chan TimedFrame, capacity)}
}

// Push enqueues a frame, evicting the oldest entry when the queue is full.
func (q *Queue) Push(f TimedFrame) {
	for {
		select {
		case q.ch <- f:
			metrics.UpdateCaptureQueueDepth(len(q.ch))
			return
		default:
		}
		select {
		case <-q.ch:
			metrics.RecordFrameDropped()
		default:
		}
	}
}

// Pop blocks until a frame is available or the context ends. Returns
// ErrQueueClosed once the queue is closed and drained.
func (q *Queue) Pop(ctx context.Context) (TimedFrame, error) {
	select {
	case f, ok := <-q.ch:
		if !ok {
			return TimedFrame{}, ErrQueueClosed
		}
		metrics.UpdateCaptureQueueDepth(len(q.ch))
		return f, nil
	case <-ctx.Done():
		return TimedFrame{}, ctx.Err()
	}
}

// TryPop returns the next frame without blocking.
func (q *Queue) TryPop() (TimedFrame, bool) {
	select {
	case f, ok := <-q.ch:
		if !ok {
			return TimedFrame{}, false
		}
		metrics.UpdateCaptureQueueDepth(len(q.ch))
		return f, true
	default:
		return TimedFrame{}, false
	}
}

// Close marks the end of the stream. Only the producer may call it; Push
// after Close is a programming error.
func (q *Queue) Close() { close(q.ch) }

// Len returns the number of buffered frames.
func (q *Queue) Len() int { return len(q.ch) }
