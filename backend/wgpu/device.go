//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shaded/gpucore"
)

// BackendName is the registry name of the wgpu backend.
const BackendName = "wgpu"

// depthFormat is the depth-stencil format of every render target.
const depthFormat = gputypes.TextureFormatDepth24PlusStencil8

// fenceTimeout bounds every wait for submitted work.
const fenceTimeout = 5 * time.Second

// Device errors.
var (
	// ErrClosed is returned by resource creation on a closed device.
	ErrClosed = errors.New("wgpu: device is closed")

	// ErrInvalidSize is returned for zero or negative buffer/target sizes.
	ErrInvalidSize = errors.New("wgpu: size must be positive")

	// ErrUnknownTarget is returned when reading back a target that does not exist.
	ErrUnknownTarget = errors.New("wgpu: unknown render target")

	// ErrEmptyShader is returned for shader creation without SPIR-V words.
	ErrEmptyShader = errors.New("wgpu: empty SPIR-V module")
)

type shaderModule struct {
	module hal.ShaderModule
	stage  gpucore.Stage
	entry  string
	layout *gpucore.InputLayout
}

type bufferObject struct {
	buf  hal.Buffer
	size int
}

type renderTarget struct {
	width, height uint32
	format        gputypes.TextureFormat

	color     hal.Texture
	colorView hal.TextureView
	depth     hal.Texture
	depthView hal.TextureView

	clearColor *gputypes.Color
	clearDepth *depthClear
	pending    []drawOp
}

type depthClear struct {
	depth   float32
	stencil uint32
}

// drawState is the binding state a Draw captures.
type drawState struct {
	vs, ps     gpucore.ShaderID
	layout     *gpucore.InputLayout
	buffers    [2][maxSlots]gpucore.BufferID
	blend      gputypes.BlendState
	depth      gpucore.DepthStencilDesc
	stencilRef uint32
	raster     gpucore.RasterizerDesc
	topology   gputypes.PrimitiveTopology
	viewport   gpucore.Viewport
}

type drawOp struct {
	state       drawState
	vertices    gpucore.BufferID
	vertexCount uint32
	firstVertex uint32
}

type layoutKey struct {
	stage gpucore.Stage
	mask  uint32
}

// Device is a gpucore.Device on a gogpu/wgpu HAL device.
//
// Device is not safe for concurrent use.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	owned    bool
	surface  gputypes.TextureFormat
	log      *slog.Logger

	nextID  uint64
	shaders map[gpucore.ShaderID]*shaderModule
	buffers map[gpucore.BufferID]*bufferObject
	targets map[gpucore.RenderTargetID]*renderTarget

	groupLayouts map[layoutKey]hal.BindGroupLayout
	pipeLayouts  map[[2]uint32]hal.PipelineLayout
	pipelines    *keyedCache[hal.RenderPipeline]

	state  drawState
	bound  gpucore.RenderTargetID
	closed bool
}

var _ gpucore.Device = (*Device)(nil)

func newDevice(device hal.Device, queue hal.Queue, instance hal.Instance, owned bool) *Device {
	return &Device{
		device:       device,
		queue:        queue,
		instance:     instance,
		owned:        owned,
		surface:      gputypes.TextureFormatBGRA8Unorm,
		log:          slogger(),
		nextID:       1,
		shaders:      make(map[gpucore.ShaderID]*shaderModule),
		buffers:      make(map[gpucore.BufferID]*bufferObject),
		targets:      make(map[gpucore.RenderTargetID]*renderTarget),
		groupLayouts: make(map[layoutKey]hal.BindGroupLayout),
		pipeLayouts:  make(map[[2]uint32]hal.PipelineLayout),
		pipelines:    newKeyedCache[hal.RenderPipeline](),
		state: drawState{
			blend:    gpucore.OpaqueBlend(),
			depth:    gpucore.DefaultDepthStencil(),
			raster:   gpucore.DefaultRasterizer(),
			topology: gputypes.PrimitiveTopologyTriangleList,
		},
	}
}

// Name implements gpucore.Device.
func (d *Device) Name() string { return BackendName }

// SetLogger sets the logger for this device. Nil restores the package
// logger.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slogger()
	}
	d.log = l
}

// SurfaceFormat returns the preferred color format: the host surface format
// for shared devices, BGRA8Unorm otherwise.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.surface }

// PipelineStats returns the render-pipeline cache hits and misses.
func (d *Device) PipelineStats() (hits, misses uint64) { return d.pipelines.stats() }

func (d *Device) allocID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// CreateShader implements gpucore.Device.
func (d *Device) CreateShader(stage gpucore.Stage, spirv []uint32, entryPoint string, layout *gpucore.InputLayout, label string) (gpucore.ShaderID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if len(spirv) == 0 {
		return gpucore.InvalidID, ErrEmptyShader
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create %s shader %q: %w", stage, label, err)
	}
	id := gpucore.ShaderID(d.allocID())
	d.shaders[id] = &shaderModule{module: module, stage: stage, entry: entryPoint, layout: layout}
	return id, nil
}

// DestroyShader implements gpucore.Device. Pipelines built from the shader
// are released with it.
func (d *Device) DestroyShader(id gpucore.ShaderID) {
	s, ok := d.shaders[id]
	if !ok {
		return
	}
	d.flushUsing(func(op *drawOp) bool { return op.state.vs == id || op.state.ps == id })
	n := d.pipelines.drop(
		func(k *pipelineKey) bool { return k.vs == id || k.ps == id },
		d.device.DestroyRenderPipeline,
	)
	d.device.DestroyShaderModule(s.module)
	delete(d.shaders, id)
	if d.state.vs == id {
		d.state.vs = gpucore.InvalidID
	}
	if d.state.ps == id {
		d.state.ps = gpucore.InvalidID
	}
	d.log.Debug("wgpu: shader destroyed", "id", id, "pipelines", n)
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, usage gputypes.BufferUsage, label string) (gpucore.BufferID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if size <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q size %d", ErrInvalidSize, label, size)
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", label, err)
	}
	id := gpucore.BufferID(d.allocID())
	d.buffers[id] = &bufferObject{buf: buf, size: size}
	return id, nil
}

// WriteBuffer implements gpucore.Device. Queued draws that read the buffer
// are submitted first so they see the old contents.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	b, ok := d.buffers[id]
	if !ok || len(data) == 0 {
		return
	}
	if offset+uint64(len(data)) > uint64(b.size) {
		d.log.Warn("wgpu: buffer write out of bounds", "id", id, "offset", offset, "len", len(data), "size", b.size)
		return
	}
	d.flushUsing(func(op *drawOp) bool { return op.uses(id) })
	d.queue.WriteBuffer(b.buf, offset, data)
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	b, ok := d.buffers[id]
	if !ok {
		return
	}
	d.flushUsing(func(op *drawOp) bool { return op.uses(id) })
	d.device.DestroyBuffer(b.buf)
	delete(d.buffers, id)
	for s := range d.state.buffers {
		for slot, bound := range d.state.buffers[s] {
			if bound == id {
				d.state.buffers[s][slot] = gpucore.InvalidID
			}
		}
	}
}

func (op *drawOp) uses(id gpucore.BufferID) bool {
	if op.vertices == id {
		return true
	}
	for _, stage := range op.state.buffers {
		for _, b := range stage {
			if b == id {
				return true
			}
		}
	}
	return false
}

// CreateRenderTarget implements gpucore.Device. Every target carries a
// Depth24PlusStencil8 attachment of the same size.
func (d *Device) CreateRenderTarget(width, height int, format gputypes.TextureFormat) (gpucore.RenderTargetID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: render target %dx%d", ErrInvalidSize, width, height)
	}
	if format == gputypes.TextureFormatUndefined {
		format = d.surface
	}
	t := &renderTarget{width: uint32(width), height: uint32(height), format: format} //nolint:gosec // G115: checked positive
	if err := d.allocTarget(t); err != nil {
		d.releaseTarget(t)
		return gpucore.InvalidID, err
	}
	id := gpucore.RenderTargetID(d.allocID())
	d.targets[id] = t
	d.log.Debug("wgpu: render target created", "id", id, "width", width, "height", height)
	return id, nil
}

func (d *Device) allocTarget(t *renderTarget) error {
	size := hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1}

	color, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "shaded_target_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create color texture: %w", err)
	}
	t.color = color
	if t.colorView, err = d.device.CreateTextureView(color, &hal.TextureViewDescriptor{Label: "shaded_target_color_view"}); err != nil {
		return fmt.Errorf("wgpu: create color view: %w", err)
	}

	depth, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "shaded_target_depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create depth texture: %w", err)
	}
	t.depth = depth
	if t.depthView, err = d.device.CreateTextureView(depth, &hal.TextureViewDescriptor{Label: "shaded_target_depth_view"}); err != nil {
		return fmt.Errorf("wgpu: create depth view: %w", err)
	}
	return nil
}

func (d *Device) releaseTarget(t *renderTarget) {
	if t.depthView != nil {
		d.device.DestroyTextureView(t.depthView)
	}
	if t.depth != nil {
		d.device.DestroyTexture(t.depth)
	}
	if t.colorView != nil {
		d.device.DestroyTextureView(t.colorView)
	}
	if t.color != nil {
		d.device.DestroyTexture(t.color)
	}
	*t = renderTarget{}
}

// DestroyRenderTarget implements gpucore.Device. Queued draws are dropped.
func (d *Device) DestroyRenderTarget(id gpucore.RenderTargetID) {
	t, ok := d.targets[id]
	if !ok {
		return
	}
	d.releaseTarget(t)
	delete(d.targets, id)
	if d.bound == id {
		d.bound = gpucore.InvalidID
	}
}

// BindRenderTarget implements gpucore.Device. Work queued for the previous
// target is submitted.
func (d *Device) BindRenderTarget(id gpucore.RenderTargetID) {
	if d.bound == id {
		return
	}
	if err := d.flushBound(); err != nil {
		d.log.Warn("wgpu: flush failed", "target", d.bound, "err", err)
	}
	d.bound = id
}

// BindPrimary implements gpucore.Device. The device has no surface of its
// own; binding the primary target submits the frame.
func (d *Device) BindPrimary() error {
	err := d.flushBound()
	d.bound = gpucore.InvalidID
	return err
}

// ClearColor implements gpucore.Device.
func (d *Device) ClearColor(c gputypes.Color) {
	t := d.boundTarget()
	if t == nil {
		return
	}
	if len(t.pending) > 0 {
		d.flushPending(t)
	}
	t.clearColor = &c
}

// ClearDepthStencil implements gpucore.Device.
func (d *Device) ClearDepthStencil(depth float32, stencil uint32) {
	t := d.boundTarget()
	if t == nil {
		return
	}
	if len(t.pending) > 0 {
		d.flushPending(t)
	}
	t.clearDepth = &depthClear{depth: depth, stencil: stencil}
}

// SetViewport implements gpucore.Device.
func (d *Device) SetViewport(v gpucore.Viewport) { d.state.viewport = v }

// SetInputLayout implements gpucore.Device.
func (d *Device) SetInputLayout(layout *gpucore.InputLayout) { d.state.layout = layout }

// BindConstantBuffer implements gpucore.Device.
func (d *Device) BindConstantBuffer(stage gpucore.Stage, slot int, id gpucore.BufferID) {
	if slot < 0 || slot >= maxSlots || int(stage) > 1 {
		d.log.Warn("wgpu: constant buffer slot out of range", "stage", stage, "slot", slot)
		return
	}
	d.state.buffers[stage][slot] = id
}

// BindShader implements gpucore.Device.
func (d *Device) BindShader(id gpucore.ShaderID) {
	s, ok := d.shaders[id]
	if !ok {
		return
	}
	if s.stage == gpucore.StageVertex {
		d.state.vs = id
		return
	}
	d.state.ps = id
}

// SetBlendState implements gpucore.Device.
func (d *Device) SetBlendState(desc gputypes.BlendState) { d.state.blend = desc }

// SetDepthStencilState implements gpucore.Device.
func (d *Device) SetDepthStencilState(desc gpucore.DepthStencilDesc, stencilRef uint32) {
	d.state.depth = desc
	d.state.stencilRef = stencilRef
}

// SetRasterizerState implements gpucore.Device.
func (d *Device) SetRasterizerState(desc gpucore.RasterizerDesc) { d.state.raster = desc }

// SetTopology implements gpucore.Device.
func (d *Device) SetTopology(t gputypes.PrimitiveTopology) { d.state.topology = t }

// Draw implements gpucore.Device. Draws without a bound target, without
// both shader stages or with an unknown vertex buffer are skipped.
func (d *Device) Draw(vertexBuffer gpucore.BufferID, vertexCount, firstVertex uint32) {
	t := d.boundTarget()
	switch {
	case t == nil:
		d.log.Debug("wgpu: draw without render target skipped")
		return
	case d.state.vs == gpucore.InvalidID || d.state.ps == gpucore.InvalidID:
		d.log.Debug("wgpu: draw without shaders skipped")
		return
	case d.buffers[vertexBuffer] == nil:
		d.log.Warn("wgpu: draw with unknown vertex buffer skipped", "id", vertexBuffer)
		return
	}
	t.pending = append(t.pending, drawOp{
		state:       d.state,
		vertices:    vertexBuffer,
		vertexCount: vertexCount,
		firstVertex: firstVertex,
	})
}

// ReadRenderTarget implements gpucore.Device.
func (d *Device) ReadRenderTarget(id gpucore.RenderTargetID) (*image.RGBA, error) {
	t, ok := d.targets[id]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownTarget, id)
	}
	if err := d.flushTarget(t); err != nil {
		return nil, err
	}
	return d.readback(t)
}

// Close implements gpucore.Device. A device opened by Open also releases
// the HAL device and instance; a shared device leaves them to the host.
func (d *Device) Close() {
	if d.closed {
		return
	}
	if err := d.flushBound(); err != nil {
		d.log.Warn("wgpu: flush on close failed", "err", err)
	}
	d.pipelines.clear(d.device.DestroyRenderPipeline)
	for k, l := range d.pipeLayouts {
		d.device.DestroyPipelineLayout(l)
		delete(d.pipeLayouts, k)
	}
	for k, l := range d.groupLayouts {
		d.device.DestroyBindGroupLayout(l)
		delete(d.groupLayouts, k)
	}
	for id, t := range d.targets {
		d.releaseTarget(t)
		delete(d.targets, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	for id, s := range d.shaders {
		d.device.DestroyShaderModule(s.module)
		delete(d.shaders, id)
	}
	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.closed = true
	d.log.Info("wgpu: device closed", "shared", !d.owned)
}

func (d *Device) flushPending(t *renderTarget) {
	if err := d.flushTarget(t); err != nil {
		d.log.Warn("wgpu: flush failed", "err", err)
	}
}

func (d *Device) boundTarget() *renderTarget {
	if d.bound == gpucore.InvalidID {
		return nil
	}
	return d.targets[d.bound]
}
