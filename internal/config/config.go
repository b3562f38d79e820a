package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig describes how the live source is acquired.
// Mode selects the source kind: "local" (attached webcam) or
// "remote" (phone acting as an IP camera over HTTP).
type CameraConfig struct {
	Mode     string `yaml:"mode"`      // "local" or "remote"
	DeviceID int    `yaml:"device_id"` // local webcam index (v4l2 / AVFoundation)

	// Ideal constraints for local acquisition. On negotiation failure the
	// manager retries once with no hints at all.
	IdealWidth  int `yaml:"ideal_width"`  // e.g. 1920
	IdealHeight int `yaml:"ideal_height"` // e.g. 1080
	MaxWidth    int `yaml:"max_width"`    // e.g. 2560
	MaxHeight   int `yaml:"max_height"`   // e.g. 1440
	IdealFPS    int `yaml:"ideal_fps"`    // e.g. 60
	MinFPS      int `yaml:"min_fps"`      // e.g. 30

	Mirror          *bool  `yaml:"mirror,omitempty"` // mirror local captures; default true
	WarmupTimeoutMs int    `yaml:"warmup_timeout_ms"`
	RemoteBaseURL   string `yaml:"remote_base_url"` // e.g. "http://192.168.1.50:8080"
}

// FramesConfig locates the decorative overlay assets.
// Assets live under <dir>/<category>/<name>.png.
type FramesConfig struct {
	Dir             string `yaml:"dir"`
	DefaultCategory string `yaml:"default_category"`
}

// StorageConfig describes the local record store.
type StorageConfig struct {
	Path       string `yaml:"path"`        // bbolt database file
	ThumbWidth int    `yaml:"thumb_width"` // gallery thumbnail width in px
}

// ButtonConfig describes the optional physical shutter button.
type ButtonConfig struct {
	Enabled    bool `yaml:"enabled"`
	Pin        int  `yaml:"pin"`         // BCM pin, pulled high, pressed = LOW
	PollMs     int  `yaml:"poll_ms"`     // polling interval
	DebounceMs int  `yaml:"debounce_ms"` // ignore repeat presses within this window
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	CountdownSec   int     `yaml:"countdown_sec"`  // countdown before a button-triggered shot
	MaxZoom        float64 `yaml:"max_zoom"`       // upper bound for the digital zoom factor
	FallbackWidth  int     `yaml:"fallback_width"` // target size when neither frame nor source report one
	FallbackHeight int     `yaml:"fallback_height"`
	DebugLevel     int     `yaml:"debug_level"` // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO       bool    `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Frames   FramesConfig   `yaml:"frames"`
	Storage  StorageConfig  `yaml:"storage"`
	Button   ButtonConfig   `yaml:"button"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	switch cfg.Camera.Mode {
	case "":
		cfg.Camera.Mode = "local"
	case "local", "remote":
	default:
		return nil, fmt.Errorf("camera.mode must be \"local\" or \"remote\", got %q", cfg.Camera.Mode)
	}
	if cfg.Camera.Mode == "remote" {
		if cfg.Camera.RemoteBaseURL == "" {
			return nil, fmt.Errorf("camera.remote_base_url is required in remote mode")
		}
		if !strings.HasPrefix(cfg.Camera.RemoteBaseURL, "http://") &&
			!strings.HasPrefix(cfg.Camera.RemoteBaseURL, "https://") {
			return nil, fmt.Errorf("camera.remote_base_url must be an http(s) URL, got %q", cfg.Camera.RemoteBaseURL)
		}
		cfg.Camera.RemoteBaseURL = strings.TrimRight(cfg.Camera.RemoteBaseURL, "/")
	}

	// Constraint defaults
	if cfg.Camera.IdealWidth <= 0 {
		cfg.Camera.IdealWidth = 1920
	}
	if cfg.Camera.IdealHeight <= 0 {
		cfg.Camera.IdealHeight = 1080
	}
	if cfg.Camera.MaxWidth <= 0 {
		cfg.Camera.MaxWidth = 2560
	}
	if cfg.Camera.MaxHeight <= 0 {
		cfg.Camera.MaxHeight = 1440
	}
	if cfg.Camera.IdealFPS <= 0 {
		cfg.Camera.IdealFPS = 60
	}
	if cfg.Camera.MinFPS <= 0 {
		cfg.Camera.MinFPS = 30
	}
	if cfg.Camera.MaxWidth < cfg.Camera.IdealWidth || cfg.Camera.MaxHeight < cfg.Camera.IdealHeight {
		return nil, fmt.Errorf("camera max resolution (%dx%d) must not be below ideal (%dx%d)",
			cfg.Camera.MaxWidth, cfg.Camera.MaxHeight, cfg.Camera.IdealWidth, cfg.Camera.IdealHeight)
	}
	if cfg.Camera.WarmupTimeoutMs <= 0 {
		cfg.Camera.WarmupTimeoutMs = 8000
	}

	if cfg.Frames.Dir == "" {
		cfg.Frames.Dir = "./assets/frames"
	}
	if cfg.Frames.DefaultCategory == "" {
		cfg.Frames.DefaultCategory = "children"
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./selfiebooth.db"
	}
	if cfg.Storage.ThumbWidth <= 0 {
		cfg.Storage.ThumbWidth = 320
	}

	if cfg.Button.Enabled {
		if cfg.Button.Pin <= 0 {
			return nil, fmt.Errorf("button.pin is required when the button is enabled")
		}
	}
	if cfg.Button.PollMs <= 0 {
		cfg.Button.PollMs = 20
	}
	if cfg.Button.DebounceMs <= 0 {
		cfg.Button.DebounceMs = 500
	}

	if cfg.Defaults.CountdownSec <= 0 {
		cfg.Defaults.CountdownSec = 3
	}
	if cfg.Defaults.MaxZoom <= 1 {
		cfg.Defaults.MaxZoom = 4
	}
	if cfg.Defaults.MaxZoom > 10 {
		return nil, fmt.Errorf("defaults.max_zoom must be <= 10, got %.2f", cfg.Defaults.MaxZoom)
	}
	if cfg.Defaults.FallbackWidth <= 0 {
		cfg.Defaults.FallbackWidth = 1280
	}
	if cfg.Defaults.FallbackHeight <= 0 {
		cfg.Defaults.FallbackHeight = 720
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("defaults.debug_level must be 0-4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

// MirrorLocal reports whether local captures should be horizontally mirrored.
// Defaults to true: a self-facing booth camera should behave like a mirror.
func (c *Config) MirrorLocal() bool {
	if c.Camera.Mirror == nil {
		return true
	}
	return *c.Camera.Mirror
}

// RemoteMode reports whether the booth consumes a phone/IP camera.
func (c *Config) RemoteMode() bool {
	return c.Camera.Mode == "remote"
}

// PreviewURL returns the continuously-refreshing remote preview endpoint.
func (c *Config) PreviewURL() string {
	return c.Camera.RemoteBaseURL + "/video"
}

// SnapshotURL returns the fetch-per-shot remote still endpoint.
func (c *Config) SnapshotURL() string {
	return c.Camera.RemoteBaseURL + "/shot.jpg"
}

// WarmupTimeout returns how long to wait for the first decodable frame.
func (c *Config) WarmupTimeout() time.Duration {
	return time.Duration(c.Camera.WarmupTimeoutMs) * time.Millisecond
}

// ButtonPoll returns the shutter button polling interval.
func (c *Config) ButtonPoll() time.Duration {
	return time.Duration(c.Button.PollMs) * time.Millisecond
}

// ButtonDebounce returns the shutter button debounce window.
func (c *Config) ButtonDebounce() time.Duration {
	return time.Duration(c.Button.DebounceMs) * time.Millisecond
}

// Countdown returns the countdown length before a button-triggered shot.
func (c *Config) Countdown() time.Duration {
	return time.Duration(c.Defaults.CountdownSec) * time.Second
}
