// Package config loads engine settings from a TOML file.
//
//	backend = "wgpu"
//	throttle = "250ms"
//	clear_color = [0.1, 0.1, 0.1, 1.0]
//	compile_cache_size = 128
//	width = 1280
//	height = 720
//
//	[watch]
//	debounce = "150ms"
//
// Keys that are absent keep their defaults; unknown keys are an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/shaded"
	"github.com/gogpu/shaded/pipecache"
	"github.com/gogpu/shaded/watch"
)

// DefaultFile is the configuration file looked up in a project directory.
const DefaultFile = "shaded.toml"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid value")

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Watch configures the shader file watcher.
type Watch struct {
	Debounce Duration `toml:"debounce"`
}

// Config holds the engine and CLI settings.
type Config struct {
	// Backend is the gpucore registry name of the device.
	Backend string `toml:"backend"`

	// Throttle is the pipeline cache re-check interval.
	Throttle Duration `toml:"throttle"`

	// ClearColor is RGBA in [0, 1].
	ClearColor [4]float64 `toml:"clear_color"`

	// CompileCacheSize is the number of compiled shader modules kept.
	CompileCacheSize int `toml:"compile_cache_size"`

	// Width and Height are the default frame size.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	Watch Watch `toml:"watch"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Backend:          "wgpu",
		Throttle:         Duration(pipecache.DefaultThrottle),
		ClearColor:       [4]float64{0, 0, 0, 1},
		CompileCacheSize: 64,
		Width:            1280,
		Height:           720,
		Watch:            Watch{Debounce: Duration(watch.DefaultDebounce)},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: config is not secret
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	switch {
	case c.Backend == "":
		return fmt.Errorf("%w: backend is empty", ErrInvalid)
	case c.Throttle <= 0:
		return fmt.Errorf("%w: throttle %s must be positive", ErrInvalid, time.Duration(c.Throttle))
	case c.CompileCacheSize < 0:
		return fmt.Errorf("%w: compile_cache_size %d is negative", ErrInvalid, c.CompileCacheSize)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalid, c.Width, c.Height)
	case c.Watch.Debounce < 0:
		return fmt.Errorf("%w: watch.debounce is negative", ErrInvalid)
	}
	for _, v := range c.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: clear_color component %g outside [0,1]", ErrInvalid, v)
		}
	}
	return nil
}

// Color returns ClearColor as a gputypes.Color.
func (c Config) Color() gputypes.Color {
	return gputypes.Color{R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3]}
}

// Options converts the settings into engine options.
func (c Config) Options() []shaded.Option {
	return []shaded.Option{
		shaded.WithThrottleInterval(time.Duration(c.Throttle)),
		shaded.WithClearColor(c.Color()),
		shaded.WithCompileCacheSize(c.CompileCacheSize),
	}
}
