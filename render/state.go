// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
)

// StateBlock is the fixed-function state bound at the start of every shader
// pass, before its nested items run.
type StateBlock struct {
	Blend        gputypes.BlendState
	DepthStencil gpucore.DepthStencilDesc
	StencilRef   uint32
	Rasterizer   gpucore.RasterizerDesc
	Topology     gputypes.PrimitiveTopology
}

// DefaultState returns opaque blending, depth test Less with writes and no
// stencil (reference 0), back-face culling and a triangle list.
func DefaultState() StateBlock {
	return StateBlock{
		Blend:        gpucore.OpaqueBlend(),
		DepthStencil: gpucore.DefaultDepthStencil(),
		Rasterizer:   gpucore.DefaultRasterizer(),
		Topology:     gputypes.PrimitiveTopologyTriangleList,
	}
}

// Bind binds every piece of the block.
func (s StateBlock) Bind(dev gpucore.Device) {
	dev.SetBlendState(s.Blend)
	dev.SetDepthStencilState(s.DepthStencil, s.StencilRef)
	dev.SetRasterizerState(s.Rasterizer)
	dev.SetTopology(s.Topology)
}
