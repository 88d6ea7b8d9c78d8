// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/pipecache"
	"github.com/gogpu/shaded/pipeline"
	"github.com/gogpu/shaded/sysvar"
)

// ItemSource provides the ordered top-level pipeline list. *pipeline.Store
// implements it.
type ItemSource interface {
	List() []*pipeline.Item
}

// Config configures a FrameRenderer. Device, Cache and Items are required.
type Config struct {
	Device gpucore.Device
	Cache  *pipecache.Cache
	Items  ItemSource

	// Vars receives the viewport size and geometry transforms and feeds
	// constant buffers. Nil creates a private registry.
	Vars *sysvar.Registry

	// ClearColor is the color the target is cleared to every frame.
	ClearColor gputypes.Color

	// Format is the color format of the offscreen target. Undefined selects
	// RGBA8Unorm.
	Format gputypes.TextureFormat
}

// FrameRenderer draws the cached shader passes into an offscreen target.
//
// FrameRenderer is driven from the render goroutine only and is not safe for
// concurrent use.
type FrameRenderer struct {
	dev    gpucore.Device
	cache  *pipecache.Cache
	items  ItemSource
	vars   *sysvar.Registry
	target *Target
	state  StateBlock
	clear  gputypes.Color

	frames uint64
}

// New creates a frame renderer. The offscreen target is allocated by the
// first RenderFrame.
func New(cfg Config) *FrameRenderer {
	vars := cfg.Vars
	if vars == nil {
		vars = sysvar.New()
	}
	return &FrameRenderer{
		dev:    cfg.Device,
		cache:  cfg.Cache,
		items:  cfg.Items,
		vars:   vars,
		target: NewTarget(cfg.Device, cfg.Format),
		state:  DefaultState(),
		clear:  cfg.ClearColor,
	}
}

// RenderFrame reconciles the cache and draws every cached pass into the
// offscreen target at width x height, then binds the primary target again.
//
// Shader compile failures are not errors here; they are reported through the
// cache's diagnostics sink and the pass draws with whatever stages it has.
// Failures to create or upload GPU resources are returned, joined, after the
// frame has finished and the primary target is bound again.
func (r *FrameRenderer) RenderFrame(width, height int) error {
	recreated, err := r.target.Ensure(width, height)
	if err != nil {
		return err
	}
	if recreated {
		slogger().Debug("render: target created", "width", width, "height", height, "id", r.target.ID())
	}

	r.vars.SetViewportSize(width, height)
	r.cache.Reconcile(r.items.List())

	r.target.Bind()
	r.dev.ClearColor(r.clear)
	r.dev.ClearDepthStencil(1, 0)
	r.dev.SetViewport(gpucore.FullViewport(width, height))

	var errs []error
	entries := r.cache.Entries()
	for _, e := range entries {
		if err := r.drawPass(e); err != nil {
			errs = append(errs, fmt.Errorf("render: pass %q: %w", e.Item.Name, err))
		}
	}

	if err := r.dev.BindPrimary(); err != nil {
		errs = append(errs, fmt.Errorf("render: restore primary target: %w", err))
	}
	r.frames++

	if len(errs) > 0 {
		err := errors.Join(errs...)
		slogger().Warn("render: frame finished with errors", "frame", r.frames, "err", err)
		return err
	}
	slogger().Debug("render: frame done", "frame", r.frames, "passes", len(entries))
	return nil
}

func (r *FrameRenderer) drawPass(e *pipecache.Entry) error {
	pass := e.Pass()
	dev := r.dev

	if err := pass.VSVariables.Allocate(dev, r.vars); err != nil {
		return err
	}
	if err := pass.PSVariables.Allocate(dev, r.vars); err != nil {
		return err
	}

	dev.SetInputLayout(pass.VSInputLayout)
	pass.VSVariables.Bind(dev, gpucore.StageVertex)
	pass.PSVariables.Bind(dev, gpucore.StagePixel)
	e.Vertex.Bind()
	e.Pixel.Bind()

	r.state.Bind(dev)

	var errs []error
	for _, it := range pass.Items {
		switch data := it.Data.(type) {
		case *pipeline.GeometryItem:
			r.vars.SetGeometryTransform(data)
			if err := pass.VSVariables.UpdateBuffers(dev, r.vars); err != nil {
				errs = append(errs, err)
			}
			if err := pass.PSVariables.UpdateBuffers(dev, r.vars); err != nil {
				errs = append(errs, err)
			}
			if err := data.Draw(dev); err != nil {
				errs = append(errs, fmt.Errorf("draw %q: %w", it.Name, err))
			}
		case *pipeline.BlendState:
			data.Bind(dev)
		case *pipeline.DepthStencilState:
			data.Bind(dev)
		}
	}
	return errors.Join(errs...)
}

// Capture reads the last frame back from the offscreen target.
func (r *FrameRenderer) Capture() (*image.RGBA, error) {
	return r.target.Read()
}

// SetClearColor changes the clear color used from the next frame on.
func (r *FrameRenderer) SetClearColor(c gputypes.Color) { r.clear = c }

// Target returns the offscreen target.
func (r *FrameRenderer) Target() *Target { return r.target }

// Vars returns the system variable registry the renderer publishes to.
func (r *FrameRenderer) Vars() *sysvar.Registry { return r.vars }

// Frames returns the number of frames rendered.
func (r *FrameRenderer) Frames() uint64 { return r.frames }

// Release destroys the offscreen target.
func (r *FrameRenderer) Release() {
	r.target.Release()
}
