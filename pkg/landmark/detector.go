package landmark

import (
	"context"
	"image"
)

// Result is one detector callback payload: zero or one face.
type Result struct {
	Faces []*Set
}

// Face returns the tracked face, or nil when none was found.
func (r Result) Face() *Set {
	if len(r.Faces) == 0 {
		return nil
	}
	return r.Faces[0]
}

// ResultFunc receives detector results.
type ResultFunc func(Result)

// Detector is the external landmark detector contract. Results are not
// returned from Send; they are delivered to the registered callback, which
// may run before Send returns.
type Detector interface {
	// OnResults registers the result callback. Called once before Send.
	OnResults(fn ResultFunc)

	// Send submits one frame for detection.
	Send(ctx context.Context, frame image.Image) error

	// Close releases the detector runtime.
	Close() error
}

// Config holds detector configuration shared by all backends.
type Config struct {
	MaxFaces               int     // Faces to track (always 1 here)
	MinDetectionConfidence float64 // Minimum detection confidence (0-1)
	MinTrackingConfidence  float64 // Minimum tracking confidence (0-1)
}

// DefaultConfig returns the single-face configuration used by the pipeline.
func DefaultConfig() Config {
	return Config{
		MaxFaces:               1,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string
	if c.MaxFaces != 1 {
		errs = append(errs, "max_faces must be 1")
	}
	if c.MinDetectionConfidence <= 0 || c.MinDetectionConfidence > 1 {
		errs = append(errs, "min_detection_confidence must be in (0, 1]")
	}
	if c.MinTrackingConfidence <= 0 || c.MinTrackingConfidence > 1 {
		errs = append(errs, "min_tracking_confidence must be in (0, 1]")
	}
	return errs
}

// Factory constructs a detector. The engine calls it at most once per
// lifetime.
type Factory func(ctx context.Context, cfg Config) (Detector, error)
