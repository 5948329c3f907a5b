// Package camera provides runtime-configurable camera settings and the
// sources that turn a camera into a media.Stream.
package camera

import "strings"

// PatternDevice selects the built-in synthetic source.
const PatternDevice = "pattern"

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// Device is a capture index ("0"), a device path, a stream URL, or
	// "pattern" for the synthetic source.
	Device string `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// Mirror flips frames horizontally (selfie view).
	Mirror bool `json:"mirror"`

	// Audio attaches a microphone-like audio track. Capture devices have no
	// audio path, so the track carries silence.
	Audio bool `json:"audio"`
}

// Capture limits
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the VGA configuration the canvas defaults to.
func DefaultConfig() Config {
	return Config{
		Device:    "0",
		Width:     640,
		Height:    480,
		Framerate: 30,
		Mirror:    true,
		Audio:     true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if strings.TrimSpace(c.Device) == "" {
		errors = append(errors, "device is required")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}

	return errors
}

// IsPattern reports whether the config selects the synthetic source.
func (c *Config) IsPattern() bool {
	return c.Device == PatternDevice
}

// Capabilities returns the supported camera ranges.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"presets":       PresetNames(),
	}
}
