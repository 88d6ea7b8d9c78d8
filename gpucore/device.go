package gpucore

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Device is the bind / draw / compile contract the engine renders through.
//
// A Device combines resource creation with an immediate binding context.
// It is driven from a single rendering goroutine; implementations are not
// required to be safe for concurrent use.
//
// Binding order within a frame is significant: every Set/Bind call replaces
// the previous value of that piece of state, and Draw captures the state in
// effect at the time of the call.
type Device interface {
	// Name returns the backend name the device was opened with.
	Name() string

	// === Shader stages ===

	// CreateShader creates a shader stage from SPIR-V words. For vertex
	// stages, layout describes the vertex input (nil when the stage reads no
	// vertex attributes). The entry point must exist in the module.
	CreateShader(stage Stage, spirv []uint32, entryPoint string, layout *InputLayout, label string) (ShaderID, error)

	// DestroyShader releases a shader stage.
	DestroyShader(id ShaderID)

	// === Buffers ===

	// CreateBuffer creates a GPU buffer of size bytes.
	CreateBuffer(size int, usage gputypes.BufferUsage, label string) (BufferID, error)

	// WriteBuffer uploads data into a buffer at offset.
	WriteBuffer(id BufferID, offset uint64, data []byte)

	// DestroyBuffer releases a buffer.
	DestroyBuffer(id BufferID)

	// === Render targets ===

	// CreateRenderTarget creates an offscreen color target with a
	// depth/stencil attachment of the same size.
	CreateRenderTarget(width, height int, format gputypes.TextureFormat) (RenderTargetID, error)

	// DestroyRenderTarget releases a render target and its views.
	DestroyRenderTarget(id RenderTargetID)

	// ReadRenderTarget copies the color attachment back to the CPU.
	ReadRenderTarget(id RenderTargetID) (*image.RGBA, error)

	// === Immediate context ===

	// BindRenderTarget makes an offscreen target the output of later draws.
	BindRenderTarget(id RenderTargetID)

	// BindPrimary restores the on-screen (primary) target. Work recorded
	// against an offscreen target is submitted before this returns.
	BindPrimary() error

	// ClearColor clears the bound target's color attachment.
	ClearColor(c gputypes.Color)

	// ClearDepthStencil clears the bound target's depth/stencil attachment.
	ClearDepthStencil(depth float32, stencil uint32)

	// SetViewport sets the rasterizer viewport.
	SetViewport(v Viewport)

	// SetInputLayout sets the vertex input layout; nil means no vertex input.
	SetInputLayout(layout *InputLayout)

	// BindConstantBuffer binds a uniform buffer to a stage slot.
	BindConstantBuffer(stage Stage, slot int, id BufferID)

	// BindShader binds a shader stage to the stage it was created for.
	BindShader(id ShaderID)

	// SetBlendState sets color blending.
	SetBlendState(desc gputypes.BlendState)

	// SetDepthStencilState sets depth/stencil testing and the stencil reference.
	SetDepthStencilState(desc DepthStencilDesc, stencilRef uint32)

	// SetRasterizerState sets culling and winding.
	SetRasterizerState(desc RasterizerDesc)

	// SetTopology sets the primitive topology for later draws.
	SetTopology(t gputypes.PrimitiveTopology)

	// Draw draws vertexCount vertices from an interleaved vertex buffer.
	Draw(vertexBuffer BufferID, vertexCount, firstVertex uint32)

	// Close releases the device and everything it still owns.
	Close()
}
