// Package recorder provides a gpucore.Device that records every call as a
// typed command instead of talking to a GPU.
//
// The recorder is the headless backend: it validates what it is given
// (SPIR-V magic, live resource IDs, buffer bounds), keeps an inspectable
// command log, and tracks live resources so callers can check that
// everything they created was released.
//
//	dev := recorder.New()
//	id, _ := dev.CreateShader(gpucore.StageVertex, spirv, "vs_main", nil, "pass")
//	dev.BindShader(id)
//	fmt.Print(dev.Trace())
//
// Render targets read back as a solid image of their last clear color; the
// recorder does not rasterize.
package recorder

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
)

// BackendName is the registry name of the recorder backend.
const BackendName = "recorder"

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// Recorder errors.
var (
	// ErrInvalidSPIRV is returned when shader code does not start with the SPIR-V magic word.
	ErrInvalidSPIRV = errors.New("recorder: code is not SPIR-V")

	// ErrMissingEntryPoint is returned when a shader is created without an entry point.
	ErrMissingEntryPoint = errors.New("recorder: entry point is empty")

	// ErrInvalidSize is returned for zero or negative buffer/target sizes.
	ErrInvalidSize = errors.New("recorder: size must be positive")

	// ErrUnknownTarget is returned when reading back a target that does not exist.
	ErrUnknownTarget = errors.New("recorder: unknown render target")
)

func init() {
	gpucore.Register(BackendName, func() (gpucore.Device, error) {
		return New(), nil
	})
}

// ShaderInfo describes a live shader stage.
type ShaderInfo struct {
	Stage      gpucore.Stage
	EntryPoint string
	Label      string
	Words      int
}

type targetInfo struct {
	width, height int
	clear         gputypes.Color
}

// Recorder is a gpucore.Device that records commands.
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	commands []Command

	nextID uint64

	shaders map[gpucore.ShaderID]ShaderInfo
	buffers map[gpucore.BufferID][]byte
	targets map[gpucore.RenderTargetID]*targetInfo

	// Bound state snapshot used to annotate draws.
	boundTarget gpucore.RenderTargetID
	boundVS     gpucore.ShaderID
	boundPS     gpucore.ShaderID

	closed bool
}

var _ gpucore.Device = (*Recorder)(nil)

// New creates an empty recorder.
func New() *Recorder {
	return &Recorder{
		commands: make([]Command, 0, 256),
		shaders:  make(map[gpucore.ShaderID]ShaderInfo),
		buffers:  make(map[gpucore.BufferID][]byte),
		targets:  make(map[gpucore.RenderTargetID]*targetInfo),
	}
}

// Name implements gpucore.Device.
func (r *Recorder) Name() string { return BackendName }

func (r *Recorder) record(c Command) {
	r.commands = append(r.commands, c)
}

func (r *Recorder) allocID() uint64 {
	r.nextID++
	return r.nextID
}

// CreateShader implements gpucore.Device.
func (r *Recorder) CreateShader(stage gpucore.Stage, spirv []uint32, entryPoint string, layout *gpucore.InputLayout, label string) (gpucore.ShaderID, error) {
	if len(spirv) == 0 || spirv[0] != spirvMagic {
		return gpucore.InvalidID, ErrInvalidSPIRV
	}
	if entryPoint == "" {
		return gpucore.InvalidID, ErrMissingEntryPoint
	}
	id := gpucore.ShaderID(r.allocID())
	r.shaders[id] = ShaderInfo{Stage: stage, EntryPoint: entryPoint, Label: label, Words: len(spirv)}
	r.record(CreateShaderCommand{ID: id, Stage: stage, EntryPoint: entryPoint, Layout: layout.String(), Label: label})
	return id, nil
}

// DestroyShader implements gpucore.Device.
func (r *Recorder) DestroyShader(id gpucore.ShaderID) {
	if _, ok := r.shaders[id]; !ok {
		return
	}
	delete(r.shaders, id)
	r.record(DestroyShaderCommand{ID: id})
}

// CreateBuffer implements gpucore.Device.
func (r *Recorder) CreateBuffer(size int, _ gputypes.BufferUsage, label string) (gpucore.BufferID, error) {
	if size <= 0 {
		return gpucore.InvalidID, ErrInvalidSize
	}
	id := gpucore.BufferID(r.allocID())
	r.buffers[id] = make([]byte, size)
	r.record(CreateBufferCommand{ID: id, Size: size, Label: label})
	return id, nil
}

// WriteBuffer implements gpucore.Device. Writes past the end are truncated.
func (r *Recorder) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	buf, ok := r.buffers[id]
	if !ok || offset >= uint64(len(buf)) {
		return
	}
	n := copy(buf[offset:], data)
	r.record(WriteBufferCommand{ID: id, Offset: offset, Size: n})
}

// DestroyBuffer implements gpucore.Device.
func (r *Recorder) DestroyBuffer(id gpucore.BufferID) {
	if _, ok := r.buffers[id]; !ok {
		return
	}
	delete(r.buffers, id)
	r.record(DestroyBufferCommand{ID: id})
}

// CreateRenderTarget implements gpucore.Device.
func (r *Recorder) CreateRenderTarget(width, height int, _ gputypes.TextureFormat) (gpucore.RenderTargetID, error) {
	if width <= 0 || height <= 0 {
		return gpucore.InvalidID, ErrInvalidSize
	}
	id := gpucore.RenderTargetID(r.allocID())
	r.targets[id] = &targetInfo{width: width, height: height}
	r.record(CreateRenderTargetCommand{ID: id, Width: width, Height: height})
	return id, nil
}

// DestroyRenderTarget implements gpucore.Device.
func (r *Recorder) DestroyRenderTarget(id gpucore.RenderTargetID) {
	if _, ok := r.targets[id]; !ok {
		return
	}
	delete(r.targets, id)
	if r.boundTarget == id {
		r.boundTarget = gpucore.InvalidID
	}
	r.record(DestroyRenderTargetCommand{ID: id})
}

// ReadRenderTarget implements gpucore.Device.
func (r *Recorder) ReadRenderTarget(id gpucore.RenderTargetID) (*image.RGBA, error) {
	t, ok := r.targets[id]
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownTarget, id)
	}
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	c := color.RGBA{
		R: toByte(t.clear.R),
		G: toByte(t.clear.G),
		B: toByte(t.clear.B),
		A: toByte(t.clear.A),
	}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img, nil
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// BindRenderTarget implements gpucore.Device.
func (r *Recorder) BindRenderTarget(id gpucore.RenderTargetID) {
	r.boundTarget = id
	r.record(BindRenderTargetCommand{ID: id})
}

// BindPrimary implements gpucore.Device.
func (r *Recorder) BindPrimary() error {
	r.boundTarget = gpucore.InvalidID
	r.record(BindPrimaryCommand{})
	return nil
}

// ClearColor implements gpucore.Device.
func (r *Recorder) ClearColor(c gputypes.Color) {
	if t, ok := r.targets[r.boundTarget]; ok {
		t.clear = c
	}
	r.record(ClearColorCommand{Color: c})
}

// ClearDepthStencil implements gpucore.Device.
func (r *Recorder) ClearDepthStencil(depth float32, stencil uint32) {
	r.record(ClearDepthStencilCommand{Depth: depth, Stencil: stencil})
}

// SetViewport implements gpucore.Device.
func (r *Recorder) SetViewport(v gpucore.Viewport) {
	r.record(SetViewportCommand{Viewport: v})
}

// SetInputLayout implements gpucore.Device.
func (r *Recorder) SetInputLayout(layout *gpucore.InputLayout) {
	r.record(SetInputLayoutCommand{Layout: layout.String()})
}

// BindConstantBuffer implements gpucore.Device.
func (r *Recorder) BindConstantBuffer(stage gpucore.Stage, slot int, id gpucore.BufferID) {
	r.record(BindConstantBufferCommand{Stage: stage, Slot: slot, Buffer: id})
}

// BindShader implements gpucore.Device. Unknown IDs are ignored.
func (r *Recorder) BindShader(id gpucore.ShaderID) {
	info, ok := r.shaders[id]
	if !ok {
		return
	}
	switch info.Stage {
	case gpucore.StageVertex:
		r.boundVS = id
	case gpucore.StagePixel:
		r.boundPS = id
	}
	r.record(BindShaderCommand{ID: id, Stage: info.Stage})
}

// SetBlendState implements gpucore.Device.
func (r *Recorder) SetBlendState(desc gputypes.BlendState) {
	r.record(SetBlendStateCommand{Blend: desc})
}

// SetDepthStencilState implements gpucore.Device.
func (r *Recorder) SetDepthStencilState(desc gpucore.DepthStencilDesc, stencilRef uint32) {
	r.record(SetDepthStencilStateCommand{State: desc, StencilRef: stencilRef})
}

// SetRasterizerState implements gpucore.Device.
func (r *Recorder) SetRasterizerState(desc gpucore.RasterizerDesc) {
	r.record(SetRasterizerStateCommand{State: desc})
}

// SetTopology implements gpucore.Device.
func (r *Recorder) SetTopology(t gputypes.PrimitiveTopology) {
	r.record(SetTopologyCommand{Topology: t})
}

// Draw implements gpucore.Device.
func (r *Recorder) Draw(vertexBuffer gpucore.BufferID, vertexCount, firstVertex uint32) {
	r.record(DrawCommand{
		Buffer:      vertexBuffer,
		VertexCount: vertexCount,
		FirstVertex: firstVertex,
		Vertex:      r.boundVS,
		Pixel:       r.boundPS,
		Target:      r.boundTarget,
	})
}

// Close implements gpucore.Device. Live resources are dropped without
// recording destroy commands so leak checks still see them via Live*.
func (r *Recorder) Close() {
	r.closed = true
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []Command {
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Count returns how many commands of the given type were recorded.
func (r *Recorder) Count(t CommandType) int {
	n := 0
	for _, c := range r.commands {
		if c.Type() == t {
			n++
		}
	}
	return n
}

// Reset clears the command log. Live resources are kept.
func (r *Recorder) Reset() {
	r.commands = r.commands[:0]
}

// Trace renders the command log, one command per line.
func (r *Recorder) Trace() string {
	var sb strings.Builder
	for _, c := range r.commands {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// LiveShaders returns the number of shader stages not yet destroyed.
func (r *Recorder) LiveShaders() int { return len(r.shaders) }

// LiveBuffers returns the number of buffers not yet destroyed.
func (r *Recorder) LiveBuffers() int { return len(r.buffers) }

// LiveRenderTargets returns the number of render targets not yet destroyed.
func (r *Recorder) LiveRenderTargets() int { return len(r.targets) }

// Shader returns information about a live shader stage.
func (r *Recorder) Shader(id gpucore.ShaderID) (ShaderInfo, bool) {
	info, ok := r.shaders[id]
	return info, ok
}

// BufferData returns the current contents of a live buffer.
func (r *Recorder) BufferData(id gpucore.BufferID) ([]byte, bool) {
	buf, ok := r.buffers[id]
	return buf, ok
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool { return r.closed }
