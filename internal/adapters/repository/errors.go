package repository

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound     = errors.New("incident not ranked")
	ErrInvalidLimit = errors.New("invalid ranking limit")
)
