package shaded

import (
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/pipecache"
	"github.com/gogpu/shaded/shader"
)

// Option configures an Engine during creation.
//
// Example:
//
//	eng, err := shaded.New(dev, store, proj,
//	    shaded.WithThrottleInterval(250*time.Millisecond),
//	    shaded.WithClearColor(gputypes.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}),
//	)
type Option func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	throttle         time.Duration
	clock            pipecache.Clock
	compiler         shader.Compiler
	compileCacheSize int
	clearColor       gputypes.Color
	format           gputypes.TextureFormat
	logger           *slog.Logger
}

// defaultOptions returns the default engine options.
func defaultOptions() engineOptions {
	return engineOptions{
		throttle:   pipecache.DefaultThrottle,
		clock:      pipecache.SystemClock{},
		clearColor: gputypes.Color{A: 1},
		format:     gputypes.TextureFormatRGBA8Unorm,
	}
}

// WithThrottleInterval sets how often the cache re-checks the pipeline when
// the number of passes has not changed. Non-positive values keep the
// default of 500ms.
func WithThrottleInterval(d time.Duration) Option {
	return func(o *engineOptions) {
		if d > 0 {
			o.throttle = d
		}
	}
}

// WithClock sets the clock driving the throttle timer and the time system
// value. Tests use pipecache.ManualClock.
func WithClock(c pipecache.Clock) Option {
	return func(o *engineOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithCompiler replaces the WGSL compiler.
func WithCompiler(c shader.Compiler) Option {
	return func(o *engineOptions) {
		o.compiler = c
	}
}

// WithCompileCacheSize sets how many compiled modules the default compiler
// keeps. Ignored when WithCompiler is used.
func WithCompileCacheSize(n int) Option {
	return func(o *engineOptions) {
		o.compileCacheSize = n
	}
}

// WithClearColor sets the color the offscreen target is cleared to.
func WithClearColor(c gputypes.Color) Option {
	return func(o *engineOptions) {
		o.clearColor = c
	}
}

// WithTargetFormat sets the color format of the offscreen target.
func WithTargetFormat(f gputypes.TextureFormat) Option {
	return func(o *engineOptions) {
		if f != gputypes.TextureFormatUndefined {
			o.format = f
		}
	}
}

// WithLogger calls SetLogger with l when the engine is created.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = l
	}
}
