package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/teslashibe/go-facefilter/internal/log"
	"github.com/teslashibe/go-facefilter/pkg/media"
)

// Manager holds the current camera configuration and the open source.
// Changing the configuration while running reopens the camera and hands the
// new stream to OnStreamChange before the old one is closed.
type Manager struct {
	open   Opener
	logger *slog.Logger

	mu     sync.RWMutex
	config Config
	source Source

	// OnStreamChange is called with the new stream after a reopen.
	OnStreamChange func(ctx context.Context, s *media.Stream) error
}

// NewManager creates a manager with the default config.
func NewManager(open Opener, logger *slog.Logger) *Manager {
	if open == nil {
		open = OpenPattern
	}
	if logger == nil {
		logger = log.Component("camera")
	}
	return &Manager{
		open:   open,
		logger: logger,
		config: DefaultConfig(),
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Stream returns the current camera stream, or nil when stopped.
func (m *Manager) Stream() *media.Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.source == nil {
		return nil
	}
	return m.source.Stream()
}

// Start opens the camera with cfg.
func (m *Manager) Start(ctx context.Context, cfg Config) (*media.Stream, error) {
	if errors := cfg.Validate(); len(errors) > 0 {
		return nil, fmt.Errorf("validation failed: %v", errors)
	}

	src, err := m.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", cfg.Device, err)
	}

	m.mu.Lock()
	old := m.source
	m.config = cfg
	m.source = src
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			m.logger.Warn("closing previous camera failed", "error", err)
		}
	}

	if v, ok := src.Stream().Video(); ok {
		st, _ := v.Settings()
		m.logger.Info("camera opened", "device", cfg.Device, "width", st.Width, "height", st.Height)
	}
	return src.Stream(), nil
}

// SetConfig updates the camera configuration. A running camera is reopened.
func (m *Manager) SetConfig(ctx context.Context, cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.RLock()
	running := m.source != nil
	callback := m.OnStreamChange
	m.mu.RUnlock()

	if !running {
		m.mu.Lock()
		m.config = cfg
		m.mu.Unlock()
		return nil
	}

	src, err := m.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to apply config: %w", err)
	}

	if callback != nil {
		if err := callback(ctx, src.Stream()); err != nil {
			return multierr.Append(fmt.Errorf("failed to apply config: %w", err), src.Close())
		}
	}

	m.mu.Lock()
	old := m.source
	m.config = cfg
	m.source = src
	m.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values.
func (m *Manager) UpdateConfig(ctx context.Context, params map[string]interface{}) error {
	cfg := m.GetConfig()

	// Check for preset first
	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		cfg = *preset
		delete(params, "preset")
	}

	for key, value := range params {
		switch key {
		case "device":
			if v, ok := value.(string); ok {
				cfg.Device = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "mirror":
			if v, ok := value.(bool); ok {
				cfg.Mirror = v
			}
		case "audio":
			if v, ok := value.(bool); ok {
				cfg.Audio = v
			}
		}
	}

	return m.SetConfig(ctx, cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	return result
}

// Close stops the camera.
func (m *Manager) Close() error {
	m.mu.Lock()
	src := m.source
	m.source = nil
	m.mu.Unlock()

	if src == nil {
		return nil
	}
	return src.Close()
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
