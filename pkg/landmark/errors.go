package landmark

import "errors"

var (
	// ErrDetectorUnavailable is returned when a detector cannot be built.
	ErrDetectorUnavailable = errors.New("landmark: detector unavailable")

	// ErrNotReady is returned when submitting to a faulted adapter.
	ErrNotReady = errors.New("landmark: detector not ready")

	// ErrClosed is returned by detectors after Close.
	ErrClosed = errors.New("landmark: detector closed")
)
