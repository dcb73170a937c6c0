package capture

import "errors"

var (
	// ErrQueueClosed is returned by Pop when the stream has ended and every
	// buffered frame has been consumed.
	ErrQueueClosed = errors.New("frame queue closed")
	// ErrStreamUnavailable is returned when a stream cannot be opened or is
	// not in a supported format.
	ErrStreamUnavailable = errors.New("stream unavailable")
)
