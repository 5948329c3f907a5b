package pipeline

import "errors"

var (
	// ErrDestroyed is returned when the engine was torn down while an
	// operation was in progress.
	ErrDestroyed = errors.New("pipeline destroyed")

	// ErrNoSource is returned by Initialize when given a nil stream.
	ErrNoSource = errors.New("no source stream")
)
