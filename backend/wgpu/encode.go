//go:build !nogpu

package wgpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shaded/gpucore"
)

var stencilOps = [...]hal.StencilOperation{
	gpucore.StencilOpKeep:           hal.StencilOperationKeep,
	gpucore.StencilOpZero:           hal.StencilOperationZero,
	gpucore.StencilOpReplace:        hal.StencilOperationReplace,
	gpucore.StencilOpInvert:         hal.StencilOperationInvert,
	gpucore.StencilOpIncrementClamp: hal.StencilOperationIncrementClamp,
	gpucore.StencilOpDecrementClamp: hal.StencilOperationDecrementClamp,
	gpucore.StencilOpIncrementWrap:  hal.StencilOperationIncrementWrap,
	gpucore.StencilOpDecrementWrap:  hal.StencilOperationDecrementWrap,
}

func stencilOp(op gpucore.StencilOp) hal.StencilOperation {
	if int(op) < len(stencilOps) {
		return stencilOps[op]
	}
	return hal.StencilOperationKeep
}

func stencilFace(f gpucore.StencilFace, enabled bool) hal.StencilFaceState {
	if !enabled {
		return hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
	}
	return hal.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      stencilOp(f.FailOp),
		DepthFailOp: stencilOp(f.DepthFailOp),
		PassOp:      stencilOp(f.PassOp),
	}
}

func depthStencilState(d *gpucore.DepthStencilDesc) *hal.DepthStencilState {
	s := &hal.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: d.DepthEnable && d.DepthWrite,
		DepthCompare:      gputypes.CompareFunctionAlways,
		StencilFront:      stencilFace(d.Front, d.StencilEnable),
		StencilBack:       stencilFace(d.Back, d.StencilEnable),
	}
	if d.DepthEnable {
		s.DepthCompare = d.DepthCompare
	}
	if d.StencilEnable {
		s.StencilReadMask = d.StencilReadMask
		s.StencilWriteMask = d.StencilWriteMask
	}
	return s
}

// flushBound submits the work queued on the bound target.
func (d *Device) flushBound() error {
	t := d.boundTarget()
	if t == nil {
		return nil
	}
	return d.flushTarget(t)
}

// flushUsing submits every target with a queued draw matching uses.
func (d *Device) flushUsing(uses func(op *drawOp) bool) {
	for id, t := range d.targets {
		for i := range t.pending {
			if uses(&t.pending[i]) {
				if err := d.flushTarget(t); err != nil {
					d.log.Warn("wgpu: flush failed", "target", id, "err", err)
				}
				break
			}
		}
	}
}

// flushTarget encodes the pending clears and draws of t into one render
// pass and submits it. Draws that cannot be built are skipped and logged.
func (d *Device) flushTarget(t *renderTarget) error {
	if len(t.pending) == 0 && t.clearColor == nil && t.clearDepth == nil {
		return nil
	}
	ops := t.pending
	t.pending = nil

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "shaded_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("shaded_pass"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	var groups []hal.BindGroup
	defer func() {
		for _, g := range groups {
			d.device.DestroyBindGroup(g)
		}
	}()

	rp := encoder.BeginRenderPass(d.passDescriptor(t))
	for i := range ops {
		g, err := d.encodeDraw(rp, t, &ops[i])
		groups = append(groups, g...)
		if err != nil {
			d.log.Warn("wgpu: draw skipped", "err", err)
		}
	}
	rp.End()

	t.clearColor = nil
	t.clearDepth = nil
	return d.submit(encoder, nil)
}

func (d *Device) passDescriptor(t *renderTarget) *hal.RenderPassDescriptor {
	color := hal.RenderPassColorAttachment{
		View:    t.colorView,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if t.clearColor != nil {
		color.LoadOp = gputypes.LoadOpClear
		color.ClearValue = *t.clearColor
	}
	ds := &hal.RenderPassDepthStencilAttachment{
		View:           t.depthView,
		DepthLoadOp:    gputypes.LoadOpLoad,
		DepthStoreOp:   gputypes.StoreOpStore,
		StencilLoadOp:  gputypes.LoadOpLoad,
		StencilStoreOp: gputypes.StoreOpStore,
	}
	if t.clearDepth != nil {
		ds.DepthLoadOp = gputypes.LoadOpClear
		ds.DepthClearValue = t.clearDepth.depth
		ds.StencilLoadOp = gputypes.LoadOpClear
		ds.StencilClearValue = t.clearDepth.stencil
	}
	return &hal.RenderPassDescriptor{
		Label:                  "shaded_pass",
		ColorAttachments:       []hal.RenderPassColorAttachment{color},
		DepthStencilAttachment: ds,
	}
}

// encodeDraw records one draw. It returns the bind groups it created, which
// live until the pass is submitted.
func (d *Device) encodeDraw(rp hal.RenderPassEncoder, t *renderTarget, op *drawOp) ([]hal.BindGroup, error) {
	vb := d.buffers[op.vertices]
	if vb == nil {
		return nil, fmt.Errorf("vertex buffer #%d destroyed", op.vertices)
	}
	pipeline, key, err := d.pipelineFor(&op.state, t.format)
	if err != nil {
		return nil, err
	}

	masks := [2]uint32{key.vsSlots, key.psSlots}
	groups := make([]hal.BindGroup, 0, 2)
	for stage := 0; stage < groupCount(masks); stage++ {
		mask := masks[stage]
		g, err := d.bindGroup(gpucore.Stage(stage), mask, &op.state.buffers[stage]) //nolint:gosec // G115: stage is 0 or 1
		if err != nil {
			return groups, err
		}
		groups = append(groups, g)
	}

	rp.SetPipeline(pipeline)
	for i, g := range groups {
		rp.SetBindGroup(uint32(i), g, nil) //nolint:gosec // G115: at most two groups
	}
	v := op.state.viewport
	if v.Width <= 0 || v.Height <= 0 {
		v = gpucore.FullViewport(int(t.width), int(t.height))
	}
	rp.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	if op.state.depth.StencilEnable {
		rp.SetStencilReference(op.state.stencilRef)
	}
	rp.SetVertexBuffer(0, vb.buf, 0)
	rp.Draw(op.vertexCount, 1, op.firstVertex, 0)
	return groups, nil
}

// pipelineFor returns the cached pipeline for state on a target of format.
func (d *Device) pipelineFor(state *drawState, format gputypes.TextureFormat) (hal.RenderPipeline, pipelineKey, error) {
	vs, ps := d.shaders[state.vs], d.shaders[state.ps]
	if vs == nil || ps == nil {
		return nil, pipelineKey{}, fmt.Errorf("shader #%d or #%d destroyed", state.vs, state.ps)
	}
	layout := state.layout
	if layout == nil {
		layout = vs.layout
	}
	key := pipelineKey{
		vs:       state.vs,
		ps:       state.ps,
		layout:   layout.String(),
		blend:    state.blend,
		depth:    state.depth,
		raster:   state.raster,
		topology: state.topology,
		format:   format,
		vsSlots:  slotMask(&state.buffers[gpucore.StageVertex]),
		psSlots:  slotMask(&state.buffers[gpucore.StagePixel]),
	}
	p, err := d.pipelines.getOrCreate(key, func() (hal.RenderPipeline, error) {
		return d.createPipeline(&key, vs, ps, layout)
	})
	return p, key, err
}

func (d *Device) createPipeline(key *pipelineKey, vs, ps *shaderModule, layout *gpucore.InputLayout) (hal.RenderPipeline, error) {
	pl, err := d.pipelineLayout(key.vsSlots, key.psSlots)
	if err != nil {
		return nil, err
	}
	blend := key.blend
	p, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "shaded_pipeline",
		Layout: pl,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entry,
			Buffers:    layout.VertexBufferLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     ps.module,
			EntryPoint: ps.entry,
			Targets: []gputypes.ColorTargetState{{
				Format:    key.format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		DepthStencil: depthStencilState(&key.depth),
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  key.topology,
			FrontFace: key.raster.FrontFace,
			CullMode:  key.raster.CullMode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	d.log.Debug("wgpu: pipeline created", "vs", key.vs, "ps", key.ps, "layout", key.layout)
	return p, nil
}

// groupLayout returns the bind group layout for the slots in mask.
func (d *Device) groupLayout(stage gpucore.Stage, mask uint32) (hal.BindGroupLayout, error) {
	k := layoutKey{stage: stage, mask: mask}
	if l, ok := d.groupLayouts[k]; ok {
		return l, nil
	}
	var entries []gputypes.BindGroupLayoutEntry
	for slot := uint32(0); slot < maxSlots; slot++ {
		if mask&(1<<slot) == 0 {
			continue
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    slot,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	l, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   fmt.Sprintf("shaded_%s_slots_%#x", stage, mask),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	d.groupLayouts[k] = l
	return l, nil
}

// groupCount returns the number of bind groups a pipeline with the given
// vertex and pixel slot masks uses. Pixel constants always live in group 1,
// so a pixel-only pipeline gets an empty group 0.
func groupCount(masks [2]uint32) int {
	switch {
	case masks[1] != 0:
		return 2
	case masks[0] != 0:
		return 1
	default:
		return 0
	}
}

// pipelineLayout returns the layout with the vertex slots in group 0 and the
// pixel slots in group 1.
func (d *Device) pipelineLayout(vsMask, psMask uint32) (hal.PipelineLayout, error) {
	k := [2]uint32{vsMask, psMask}
	if l, ok := d.pipeLayouts[k]; ok {
		return l, nil
	}
	var groups []hal.BindGroupLayout
	for stage := 0; stage < groupCount(k); stage++ {
		mask := k[stage]
		g, err := d.groupLayout(gpucore.Stage(stage), mask) //nolint:gosec // G115: stage is 0 or 1
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	l, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "shaded_pipeline_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	d.pipeLayouts[k] = l
	return l, nil
}

func (d *Device) bindGroup(stage gpucore.Stage, mask uint32, slots *[maxSlots]gpucore.BufferID) (hal.BindGroup, error) {
	layout, err := d.groupLayout(stage, mask)
	if err != nil {
		return nil, err
	}
	var entries []gputypes.BindGroupEntry
	for slot, id := range slots {
		if id == gpucore.InvalidID {
			continue
		}
		b := d.buffers[id]
		if b == nil {
			return nil, fmt.Errorf("%s constant buffer #%d destroyed", stage, id)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: uint32(slot), //nolint:gosec // G115: slot < maxSlots
			Resource: gputypes.BufferBinding{
				Buffer: b.buf.NativeHandle(),
				Offset: 0,
				Size:   uint64(b.size),
			},
		})
	}
	g, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "shaded_constants",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	return g, nil
}

// submit ends encoding, submits and waits for the GPU. When after is set it
// runs once the work completed, before the command buffer is freed.
func (d *Device) submit(encoder hal.CommandEncoder, after func() error) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wgpu: wait for GPU: ok=%v err=%w", ok, err)
	}
	if after != nil {
		return after()
	}
	return nil
}

// readback copies the color attachment of t into an RGBA image.
func (d *Device) readback(t *renderTarget) (*image.RGBA, error) {
	pitch := rowPitch(t.width)
	size := uint64(pitch) * uint64(t.height)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "shaded_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "shaded_readback"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("shaded_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.color,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.color, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: pitch, RowsPerImage: t.height},
		TextureBase:  hal.ImageCopyTexture{Texture: t.color, MipLevel: 0},
		Size:         hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.color,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	raw := make([]byte, size)
	err = d.submit(encoder, func() error {
		if err := d.queue.ReadBuffer(staging, 0, raw); err != nil {
			return fmt.Errorf("wgpu: readback: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, int(t.width), int(t.height)))
	bgra := t.format == gputypes.TextureFormatBGRA8Unorm || t.format == gputypes.TextureFormatBGRA8UnormSrgb
	unpackRows(img.Pix, raw, t.width, t.height, pitch, bgra)
	return img, nil
}
