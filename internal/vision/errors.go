package vision

import "errors"

// Sentinel kinds for vision-model errors.
var (
	ErrInference = errors.New("inference request failed")
)
