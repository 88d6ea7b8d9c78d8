// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
)

// Target errors.
var (
	// ErrInvalidSize is returned for a frame size that is not positive.
	ErrInvalidSize = errors.New("render: invalid frame size")

	// ErrNoTarget is returned when reading back before the first frame.
	ErrNoTarget = errors.New("render: no render target")
)

// Target is the offscreen color and depth/stencil target frames are drawn
// into.
//
// A size change replaces the device target instead of resizing it: the new
// target is created first and the old one released once that succeeded.
type Target struct {
	dev    gpucore.Device
	format gputypes.TextureFormat

	id     gpucore.RenderTargetID
	width  int
	height int
}

// NewTarget creates an empty target. Nothing is allocated until Ensure.
// An undefined format selects RGBA8Unorm.
func NewTarget(dev gpucore.Device, format gputypes.TextureFormat) *Target {
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	return &Target{dev: dev, format: format}
}

// Ensure makes the target width x height. It reports whether a new device
// target was created.
func (t *Target) Ensure(width, height int) (bool, error) {
	if width <= 0 || height <= 0 {
		return false, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if t.id != gpucore.InvalidID && t.width == width && t.height == height {
		return false, nil
	}

	id, err := t.dev.CreateRenderTarget(width, height, t.format)
	if err != nil {
		return false, fmt.Errorf("render: create %dx%d target: %w", width, height, err)
	}
	if t.id != gpucore.InvalidID {
		t.dev.DestroyRenderTarget(t.id)
	}
	t.id = id
	t.width = width
	t.height = height
	return true, nil
}

// Bind makes the target the output of later draws.
func (t *Target) Bind() {
	t.dev.BindRenderTarget(t.id)
}

// Read copies the color attachment back to the CPU.
func (t *Target) Read() (*image.RGBA, error) {
	if t.id == gpucore.InvalidID {
		return nil, ErrNoTarget
	}
	return t.dev.ReadRenderTarget(t.id)
}

// Release destroys the device target. The next Ensure allocates again.
func (t *Target) Release() {
	if t.id != gpucore.InvalidID {
		t.dev.DestroyRenderTarget(t.id)
	}
	t.id = gpucore.InvalidID
	t.width, t.height = 0, 0
}

// ID returns the device target, or gpucore.InvalidID before the first Ensure.
func (t *Target) ID() gpucore.RenderTargetID { return t.id }

// Width returns the target width in pixels.
func (t *Target) Width() int { return t.width }

// Height returns the target height in pixels.
func (t *Target) Height() int { return t.height }

// Format returns the color format.
func (t *Target) Format() gputypes.TextureFormat { return t.format }
