package pipeline

import (
	"time"

	"github.com/teslashibe/go-facefilter/pkg/landmark"
	"github.com/teslashibe/go-facefilter/pkg/media"
)

// Config holds engine configuration.
type Config struct {
	// Detector is passed to the landmark detector factory.
	Detector landmark.Config

	// CaptureRate is the output stream frame rate.
	CaptureRate float64

	// RefreshRate drives the default DisplayClock.
	RefreshRate float64

	// DetectTimeout bounds a single detector call. Zero means no limit.
	DetectTimeout time.Duration
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Detector:      landmark.DefaultConfig(),
		CaptureRate:   media.DefaultCaptureRate,
		RefreshRate:   DefaultRefreshRate,
		DetectTimeout: 2 * time.Second,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	errs := c.Detector.Validate()
	if c.CaptureRate <= 0 || c.CaptureRate > 120 {
		errs = append(errs, "capture_rate must be in (0, 120]")
	}
	if c.RefreshRate <= 0 || c.RefreshRate > 240 {
		errs = append(errs, "refresh_rate must be in (0, 240]")
	}
	if c.DetectTimeout < 0 {
		errs = append(errs, "detect_timeout must be >= 0")
	}
	return errs
}
