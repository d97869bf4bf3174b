package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ViewerConfig describes the panorama to show and the initial viewport.
type ViewerConfig struct {
	Metadata       string  `yaml:"metadata"`        // path to the metadata JSON (north_xposition, pano_url, objects)
	ViewportWidth  float64 `yaml:"viewport_width"`  // drawing surface width in px
	ViewportHeight float64 `yaml:"viewport_height"` // drawing surface height in px
}

// NavigationConfig holds the step sizes used by keyboard and animation input.
type NavigationConfig struct {
	KeyStep        float64 `yaml:"key_step"`         // image units moved per arrow key press
	ZoomStep       float64 `yaml:"zoom_step"`        // zoom change per +/- key press
	TickIntervalMs int     `yaml:"tick_interval_ms"` // animation tick cadence
	StepAccel      float64 `yaml:"step_accel"`       // speed change per animation tick
}

// DisplayConfig controls what the reference renderer draws on top of the panorama.
type DisplayConfig struct {
	ShowCompass      bool    `yaml:"show_compass"`
	CompassMargin    float64 `yaml:"compass_margin"`      // distance of the compass centre from the top-right corner
	DrawAllAreas     bool    `yaml:"draw_all_areas"`      // outline every hotspot area on each frame
	DrawAreasOnHover bool    `yaml:"draw_areas_on_hover"` // outline the hovered hotspot only
	Interpolator     string  `yaml:"interpolator"`        // nearest, approx_bilinear, bilinear, catmull_rom
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	WebPort    int `yaml:"web_port"`    // 0 = headless (render a single frame)
}

// Config aggregates all application configuration.
type Config struct {
	Viewer     ViewerConfig     `yaml:"viewer"`
	Navigation NavigationConfig `yaml:"navigation"`
	Display    *DisplayConfig   `yaml:"display,omitempty"` // optional, defaults apply when missing
	Defaults   DefaultsConfig   `yaml:"defaults"`
}

// Interpolators lists the accepted values of display.interpolator.
var Interpolators = []string{"nearest", "approx_bilinear", "bilinear", "catmull_rom"}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, applies defaults and validates ranges.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if cfg.Viewer.Metadata == "" {
		return nil, fmt.Errorf("viewer.metadata is required")
	}
	if cfg.Viewer.ViewportWidth < 0 || cfg.Viewer.ViewportHeight < 0 {
		return nil, fmt.Errorf("viewport dimensions must be > 0, got %gx%g", cfg.Viewer.ViewportWidth, cfg.Viewer.ViewportHeight)
	}
	if cfg.Viewer.ViewportWidth == 0 {
		cfg.Viewer.ViewportWidth = 1280
	}
	if cfg.Viewer.ViewportHeight == 0 {
		cfg.Viewer.ViewportHeight = 600
	}

	if cfg.Navigation.KeyStep <= 0 {
		cfg.Navigation.KeyStep = 10
	}
	if cfg.Navigation.ZoomStep <= 0 {
		cfg.Navigation.ZoomStep = 0.01
	}
	if cfg.Navigation.ZoomStep > 1 {
		return nil, fmt.Errorf("navigation.zoom_step must be <= 1, got %g", cfg.Navigation.ZoomStep)
	}
	if cfg.Navigation.TickIntervalMs <= 0 {
		cfg.Navigation.TickIntervalMs = 50
	}
	if cfg.Navigation.StepAccel <= 0 {
		cfg.Navigation.StepAccel = 20
	}

	if cfg.Display == nil {
		cfg.Display = &DisplayConfig{ShowCompass: true, DrawAreasOnHover: true}
	}
	if cfg.Display.CompassMargin <= 0 {
		cfg.Display.CompassMargin = 75
	}
	if cfg.Display.Interpolator == "" {
		cfg.Display.Interpolator = "approx_bilinear"
	}
	if !validInterpolator(cfg.Display.Interpolator) {
		return nil, fmt.Errorf("display.interpolator must be one of %s, got %q", strings.Join(Interpolators, ", "), cfg.Display.Interpolator)
	}

	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	if cfg.Defaults.WebPort < 0 || cfg.Defaults.WebPort > 65535 {
		return nil, fmt.Errorf("web_port must be 0-65535, got %d", cfg.Defaults.WebPort)
	}

	return &cfg, nil
}

// ValidateConfigPath rejects config paths that are not .yaml files inside a
// configs/ directory, or that climb out of it.
func ValidateConfigPath(path string) error {
	clean := filepath.Clean(path)
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path must not contain '..': %s", path)
	}
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path must end in .yaml: %s", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config file must live in a configs/ directory: %s", path)
	}
	return nil
}

func validInterpolator(name string) bool {
	for _, n := range Interpolators {
		if n == name {
			return true
		}
	}
	return false
}

// TickInterval returns the animation tick cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Navigation.TickIntervalMs) * time.Millisecond
}
