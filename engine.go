package shaded

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/diag"
	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/pipecache"
	"github.com/gogpu/shaded/render"
	"github.com/gogpu/shaded/shader"
	"github.com/gogpu/shaded/sysvar"
)

// Engine errors.
var (
	// ErrClosed is returned by operations on a closed Engine.
	ErrClosed = errors.New("shaded: engine is closed")

	// ErrNilDevice is returned when an Engine is created without a device.
	ErrNilDevice = errors.New("shaded: device is nil")
)

// Engine renders a pipeline of shader passes every frame and keeps its
// compiled stages in step with the pipeline.
//
// Engine is not safe for concurrent use. Render, Recompile, FlushCache and
// Close must be called from the same goroutine.
type Engine struct {
	dev        gpucore.Device
	ownsDevice bool

	items    render.ItemSource
	vars     *sysvar.Registry
	msgs     *diag.Stack
	cache    *pipecache.Cache
	renderer *render.FrameRenderer

	clock pipecache.Clock
	start time.Time

	closed bool
}

// New creates an engine rendering items through dev. Shader sources are
// loaded from source by the paths the passes name.
//
// The engine does not take ownership of dev; Close leaves it open.
func New(dev gpucore.Device, items render.ItemSource, source pipecache.Source, opts ...Option) (*Engine, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if items == nil || source == nil {
		return nil, errors.New("shaded: items and source are required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}
	compiler := o.compiler
	if compiler == nil {
		compiler = shader.NewNagaCompiler(o.compileCacheSize)
	}

	e := &Engine{
		dev:   dev,
		items: items,
		vars:  sysvar.New(),
		msgs:  diag.NewStack(),
		clock: o.clock,
		start: o.clock.Now(),
	}
	e.cache = pipecache.New(pipecache.Config{
		Device:   dev,
		Compiler: compiler,
		Source:   source,
		Sink:     e.msgs,
		Clock:    o.clock,
		Throttle: o.throttle,
	})
	e.renderer = render.New(render.Config{
		Device:     dev,
		Cache:      e.cache,
		Items:      items,
		Vars:       e.vars,
		ClearColor: o.clearColor,
		Format:     o.format,
	})

	propagateLogger(dev, Logger())
	Logger().Info("shaded: engine created", "backend", dev.Name(), "throttle", o.throttle)
	return e, nil
}

// Open opens the named backend from the gpucore registry and creates an
// engine that owns the device: Close also closes it.
func Open(backend string, items render.ItemSource, source pipecache.Source, opts ...Option) (*Engine, error) {
	dev, err := gpucore.Open(backend)
	if err != nil {
		return nil, err
	}
	e, err := New(dev, items, source, opts...)
	if err != nil {
		dev.Close()
		return nil, err
	}
	e.ownsDevice = true
	return e, nil
}

// Render draws one frame at width x height into the offscreen target.
//
// The time system value is the clock time since the engine was created. Shader
// compile failures do not fail the frame; see Diagnostics.
func (e *Engine) Render(width, height int) error {
	if e.closed {
		return ErrClosed
	}
	e.vars.SetTime(float32(e.clock.Now().Sub(e.start).Seconds()))
	err := e.renderer.RenderFrame(width, height)
	e.vars.NextFrame()
	if err != nil {
		return fmt.Errorf("shaded: render %dx%d: %w", width, height, err)
	}
	return nil
}

// Recompile reloads and recompiles the first cached pass named name in
// place. It reports whether such a pass exists.
func (e *Engine) Recompile(name string) bool {
	if e.closed {
		return false
	}
	return e.cache.Recompile(name)
}

// FlushCache destroys every cached stage. The next frame compiles the
// pipeline from scratch.
func (e *Engine) FlushCache() {
	if e.closed {
		return
	}
	e.cache.Flush()
}

// Capture reads the last rendered frame back from the GPU.
func (e *Engine) Capture() (*image.RGBA, error) {
	if e.closed {
		return nil, ErrClosed
	}
	return e.renderer.Capture()
}

// SetClearColor changes the clear color from the next frame on.
func (e *Engine) SetClearColor(c gputypes.Color) { e.renderer.SetClearColor(c) }

// Close flushes the cache and releases the offscreen target. A device opened
// by Open is closed as well. Close is idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.cache.Flush()
	e.renderer.Release()
	if e.ownsDevice {
		e.dev.Close()
	}
	e.closed = true
	Logger().Info("shaded: engine closed", "frames", e.renderer.Frames())
}

// Diagnostics returns the compile diagnostics, grouped by pass name.
func (e *Engine) Diagnostics() *diag.Stack { return e.msgs }

// Stats returns the cache work counters.
func (e *Engine) Stats() pipecache.Stats { return e.cache.Stats() }

// Cache returns the pipeline cache.
func (e *Engine) Cache() *pipecache.Cache { return e.cache }

// Vars returns the system variable registry fed to constant buffers.
func (e *Engine) Vars() *sysvar.Registry { return e.vars }

// Device returns the device the engine renders through.
func (e *Engine) Device() gpucore.Device { return e.dev }

// Frames returns the number of frames rendered.
func (e *Engine) Frames() uint64 { return e.renderer.Frames() }
