// Package config holds the frontend settings file: window and presentation
// options, timing, input tuning and per-platform quirks. Settings live in a
// TOML file; command-line flags override loaded values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the persisted frontend configuration.
type Config struct {
	WindowWidth  int  `toml:"window_width"`
	WindowHeight int  `toml:"window_height"`
	Fullscreen   bool `toml:"fullscreen"`
	VSync        bool `toml:"vsync"`

	// Prescale selects the integer prescale factor; 0 picks it from the
	// display/frame size ratio.
	Prescale           int    `toml:"prescale"`
	PreprocessShader   string `toml:"preprocess_shader"` // none, blur, antidither
	Scanlines          string `toml:"scanlines"`         // none, dim, black
	Filter             string `toml:"filter"`            // nearest, linear
	ForceIntegerHeight bool   `toml:"force_integer_height"`

	FastForwardMultiplier int   `toml:"fast_forward_multiplier"`
	RewindBufferSeconds   int   `toml:"rewind_buffer_seconds"`
	AxisDeadzone          int16 `toml:"axis_deadzone"`

	// Per-platform options.
	TimingMode        string `toml:"timing_mode"` // ntsc, pal
	RemoveSpriteLimit bool   `toml:"remove_sprite_limit"`
	ControllerType    string `toml:"controller_type"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		WindowWidth:           1024,
		WindowHeight:          768,
		VSync:                 true,
		Prescale:              0,
		PreprocessShader:      "none",
		Scanlines:             "none",
		Filter:                "linear",
		FastForwardMultiplier: 4,
		RewindBufferSeconds:   30,
		AxisDeadzone:          8000,
		TimingMode:            "ntsc",
		ControllerType:        "standard",
	}
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "tetra-core", "settings.toml")
}

// Load reads the configuration, returning defaults when the file does not
// exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Default(), fmt.Errorf("failed to parse settings: %w", err)
	}
	return cfg.validated(), nil
}

// Save writes the configuration.
func Save(path string, cfg Config) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}

// validated clamps out-of-range values back to usable ones.
func (c Config) validated() Config {
	if c.WindowWidth < 160 {
		c.WindowWidth = Default().WindowWidth
	}
	if c.WindowHeight < 144 {
		c.WindowHeight = Default().WindowHeight
	}
	if c.Prescale < 0 || c.Prescale > 8 {
		c.Prescale = 0
	}
	if c.FastForwardMultiplier < 1 {
		c.FastForwardMultiplier = 1
	}
	if c.RewindBufferSeconds < 0 {
		c.RewindBufferSeconds = 0
	}
	switch c.PreprocessShader {
	case "none", "blur", "antidither":
	default:
		c.PreprocessShader = "none"
	}
	switch c.Scanlines {
	case "none", "dim", "black":
	default:
		c.Scanlines = "none"
	}
	switch c.Filter {
	case "nearest", "linear":
	default:
		c.Filter = "linear"
	}
	switch c.TimingMode {
	case "ntsc", "pal":
	default:
		c.TimingMode = "ntsc"
	}
	return c
}
