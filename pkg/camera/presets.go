package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetQVGA    = "qvga"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetPattern = "pattern"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetQVGA:    QVGAConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		PresetPattern: PatternConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetQVGA,
		Preset720p,
		Preset1080p,
		PresetPattern,
	}
}

// GetPreset returns a preset configuration by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// QVGAConfig trades resolution for detector throughput.
func QVGAConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	return cfg
}

// HD720Config returns 1280x720 at 30fps.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1920x1080 at 30fps.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// PatternConfig returns the synthetic source at VGA.
func PatternConfig() Config {
	cfg := DefaultConfig()
	cfg.Device = PatternDevice
	return cfg
}
