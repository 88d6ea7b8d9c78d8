package recorder

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
)

// CommandType identifies the type of a recorded device call.
type CommandType uint8

const (
	// Resource commands
	CmdCreateShader CommandType = iota
	CmdDestroyShader
	CmdCreateBuffer
	CmdWriteBuffer
	CmdDestroyBuffer
	CmdCreateRenderTarget
	CmdDestroyRenderTarget

	// Target commands
	CmdBindRenderTarget
	CmdBindPrimary
	CmdClearColor
	CmdClearDepthStencil
	CmdSetViewport

	// State commands
	CmdSetInputLayout
	CmdBindConstantBuffer
	CmdBindShader
	CmdSetBlendState
	CmdSetDepthStencilState
	CmdSetRasterizerState
	CmdSetTopology

	// Drawing commands
	CmdDraw
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdCreateShader:         "CreateShader",
	CmdDestroyShader:        "DestroyShader",
	CmdCreateBuffer:         "CreateBuffer",
	CmdWriteBuffer:          "WriteBuffer",
	CmdDestroyBuffer:        "DestroyBuffer",
	CmdCreateRenderTarget:   "CreateRenderTarget",
	CmdDestroyRenderTarget:  "DestroyRenderTarget",
	CmdBindRenderTarget:     "BindRenderTarget",
	CmdBindPrimary:          "BindPrimary",
	CmdClearColor:           "ClearColor",
	CmdClearDepthStencil:    "ClearDepthStencil",
	CmdSetViewport:          "SetViewport",
	CmdSetInputLayout:       "SetInputLayout",
	CmdBindConstantBuffer:   "BindConstantBuffer",
	CmdBindShader:           "BindShader",
	CmdSetBlendState:        "SetBlendState",
	CmdSetDepthStencilState: "SetDepthStencilState",
	CmdSetRasterizerState:   "SetRasterizerState",
	CmdSetTopology:          "SetTopology",
	CmdDraw:                 "Draw",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all recorded commands.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType

	// String renders the command as one trace line.
	String() string
}

// --------------------------------------------------------------------------
// Resource Commands
// --------------------------------------------------------------------------

// CreateShaderCommand records a shader stage creation.
type CreateShaderCommand struct {
	ID         gpucore.ShaderID
	Stage      gpucore.Stage
	EntryPoint string
	Layout     string
	Label      string
}

// Type implements Command.
func (CreateShaderCommand) Type() CommandType { return CmdCreateShader }

func (c CreateShaderCommand) String() string {
	return fmt.Sprintf("CreateShader #%d %s %s layout=%s label=%q", c.ID, c.Stage, c.EntryPoint, c.Layout, c.Label)
}

// DestroyShaderCommand records a shader stage release.
type DestroyShaderCommand struct {
	ID gpucore.ShaderID
}

// Type implements Command.
func (DestroyShaderCommand) Type() CommandType { return CmdDestroyShader }

func (c DestroyShaderCommand) String() string { return fmt.Sprintf("DestroyShader #%d", c.ID) }

// CreateBufferCommand records a buffer creation.
type CreateBufferCommand struct {
	ID    gpucore.BufferID
	Size  int
	Label string
}

// Type implements Command.
func (CreateBufferCommand) Type() CommandType { return CmdCreateBuffer }

func (c CreateBufferCommand) String() string {
	return fmt.Sprintf("CreateBuffer #%d size=%d label=%q", c.ID, c.Size, c.Label)
}

// WriteBufferCommand records a buffer upload.
type WriteBufferCommand struct {
	ID     gpucore.BufferID
	Offset uint64
	Size   int
}

// Type implements Command.
func (WriteBufferCommand) Type() CommandType { return CmdWriteBuffer }

func (c WriteBufferCommand) String() string {
	return fmt.Sprintf("WriteBuffer #%d offset=%d size=%d", c.ID, c.Offset, c.Size)
}

// DestroyBufferCommand records a buffer release.
type DestroyBufferCommand struct {
	ID gpucore.BufferID
}

// Type implements Command.
func (DestroyBufferCommand) Type() CommandType { return CmdDestroyBuffer }

func (c DestroyBufferCommand) String() string { return fmt.Sprintf("DestroyBuffer #%d", c.ID) }

// CreateRenderTargetCommand records a render target creation.
type CreateRenderTargetCommand struct {
	ID            gpucore.RenderTargetID
	Width, Height int
}

// Type implements Command.
func (CreateRenderTargetCommand) Type() CommandType { return CmdCreateRenderTarget }

func (c CreateRenderTargetCommand) String() string {
	return fmt.Sprintf("CreateRenderTarget #%d %dx%d", c.ID, c.Width, c.Height)
}

// DestroyRenderTargetCommand records a render target release.
type DestroyRenderTargetCommand struct {
	ID gpucore.RenderTargetID
}

// Type implements Command.
func (DestroyRenderTargetCommand) Type() CommandType { return CmdDestroyRenderTarget }

func (c DestroyRenderTargetCommand) String() string {
	return fmt.Sprintf("DestroyRenderTarget #%d", c.ID)
}

// --------------------------------------------------------------------------
// Target Commands
// --------------------------------------------------------------------------

// BindRenderTargetCommand records an offscreen target bind.
type BindRenderTargetCommand struct {
	ID gpucore.RenderTargetID
}

// Type implements Command.
func (BindRenderTargetCommand) Type() CommandType { return CmdBindRenderTarget }

func (c BindRenderTargetCommand) String() string { return fmt.Sprintf("BindRenderTarget #%d", c.ID) }

// BindPrimaryCommand records the primary target being restored.
type BindPrimaryCommand struct{}

// Type implements Command.
func (BindPrimaryCommand) Type() CommandType { return CmdBindPrimary }

func (BindPrimaryCommand) String() string { return "BindPrimary" }

// ClearColorCommand records a color clear.
type ClearColorCommand struct {
	Color gputypes.Color
}

// Type implements Command.
func (ClearColorCommand) Type() CommandType { return CmdClearColor }

func (c ClearColorCommand) String() string {
	return fmt.Sprintf("ClearColor %.3g %.3g %.3g %.3g", c.Color.R, c.Color.G, c.Color.B, c.Color.A)
}

// ClearDepthStencilCommand records a depth/stencil clear.
type ClearDepthStencilCommand struct {
	Depth   float32
	Stencil uint32
}

// Type implements Command.
func (ClearDepthStencilCommand) Type() CommandType { return CmdClearDepthStencil }

func (c ClearDepthStencilCommand) String() string {
	return fmt.Sprintf("ClearDepthStencil depth=%g stencil=%d", c.Depth, c.Stencil)
}

// SetViewportCommand records a viewport change.
type SetViewportCommand struct {
	Viewport gpucore.Viewport
}

// Type implements Command.
func (SetViewportCommand) Type() CommandType { return CmdSetViewport }

func (c SetViewportCommand) String() string {
	v := c.Viewport
	return fmt.Sprintf("SetViewport %g,%g %gx%g depth=[%g,%g]", v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
}

// --------------------------------------------------------------------------
// State Commands
// --------------------------------------------------------------------------

// SetInputLayoutCommand records an input layout change.
type SetInputLayoutCommand struct {
	Layout string
}

// Type implements Command.
func (SetInputLayoutCommand) Type() CommandType { return CmdSetInputLayout }

func (c SetInputLayoutCommand) String() string { return "SetInputLayout " + c.Layout }

// BindConstantBufferCommand records a uniform buffer bind.
type BindConstantBufferCommand struct {
	Stage  gpucore.Stage
	Slot   int
	Buffer gpucore.BufferID
}

// Type implements Command.
func (BindConstantBufferCommand) Type() CommandType { return CmdBindConstantBuffer }

func (c BindConstantBufferCommand) String() string {
	return fmt.Sprintf("BindConstantBuffer %s slot=%d #%d", c.Stage, c.Slot, c.Buffer)
}

// BindShaderCommand records a shader stage bind.
type BindShaderCommand struct {
	ID    gpucore.ShaderID
	Stage gpucore.Stage
}

// Type implements Command.
func (BindShaderCommand) Type() CommandType { return CmdBindShader }

func (c BindShaderCommand) String() string { return fmt.Sprintf("BindShader %s #%d", c.Stage, c.ID) }

// SetBlendStateCommand records a blend state change.
type SetBlendStateCommand struct {
	Blend gputypes.BlendState
}

// Type implements Command.
func (SetBlendStateCommand) Type() CommandType { return CmdSetBlendState }

func (c SetBlendStateCommand) String() string {
	return fmt.Sprintf("SetBlendState color=%s alpha=%s", blendComponent(c.Blend.Color), blendComponent(c.Blend.Alpha))
}

// SetDepthStencilStateCommand records a depth/stencil state change.
type SetDepthStencilStateCommand struct {
	State      gpucore.DepthStencilDesc
	StencilRef uint32
}

// Type implements Command.
func (SetDepthStencilStateCommand) Type() CommandType { return CmdSetDepthStencilState }

func (c SetDepthStencilStateCommand) String() string {
	return fmt.Sprintf("SetDepthStencilState depth=%t write=%t stencil=%t ref=%d",
		c.State.DepthEnable, c.State.DepthWrite, c.State.StencilEnable, c.StencilRef)
}

// SetRasterizerStateCommand records a rasterizer state change.
type SetRasterizerStateCommand struct {
	State gpucore.RasterizerDesc
}

// Type implements Command.
func (SetRasterizerStateCommand) Type() CommandType { return CmdSetRasterizerState }

func (c SetRasterizerStateCommand) String() string {
	return fmt.Sprintf("SetRasterizerState cull=%s front=%s", cullModeName(c.State.CullMode), frontFaceName(c.State.FrontFace))
}

// SetTopologyCommand records a topology change.
type SetTopologyCommand struct {
	Topology gputypes.PrimitiveTopology
}

// Type implements Command.
func (SetTopologyCommand) Type() CommandType { return CmdSetTopology }

func (c SetTopologyCommand) String() string { return "SetTopology " + topologyName(c.Topology) }

// --------------------------------------------------------------------------
// Drawing Commands
// --------------------------------------------------------------------------

// DrawCommand records a draw together with the shader stages bound when it
// was issued.
type DrawCommand struct {
	Buffer      gpucore.BufferID
	VertexCount uint32
	FirstVertex uint32
	Vertex      gpucore.ShaderID
	Pixel       gpucore.ShaderID
	Target      gpucore.RenderTargetID
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

func (c DrawCommand) String() string {
	return fmt.Sprintf("Draw #%d count=%d first=%d vs=#%d ps=#%d target=#%d",
		c.Buffer, c.VertexCount, c.FirstVertex, c.Vertex, c.Pixel, c.Target)
}

// --------------------------------------------------------------------------
// Trace names
// --------------------------------------------------------------------------

func blendComponent(b gputypes.BlendComponent) string {
	return blendFactorName(b.SrcFactor) + "/" + blendFactorName(b.DstFactor) + "/" + blendOperationName(b.Operation)
}

func blendFactorName(f gputypes.BlendFactor) string {
	switch f {
	case gputypes.BlendFactorZero:
		return "zero"
	case gputypes.BlendFactorOne:
		return "one"
	case gputypes.BlendFactorSrcAlpha:
		return "src-alpha"
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return "one-minus-src-alpha"
	default:
		return fmt.Sprintf("factor(%d)", f)
	}
}

func blendOperationName(op gputypes.BlendOperation) string {
	if op == gputypes.BlendOperationAdd {
		return "add"
	}
	return fmt.Sprintf("op(%d)", op)
}

func topologyName(t gputypes.PrimitiveTopology) string {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return "point-list"
	case gputypes.PrimitiveTopologyLineList:
		return "line-list"
	case gputypes.PrimitiveTopologyLineStrip:
		return "line-strip"
	case gputypes.PrimitiveTopologyTriangleList:
		return "triangle-list"
	case gputypes.PrimitiveTopologyTriangleStrip:
		return "triangle-strip"
	default:
		return fmt.Sprintf("topology(%d)", t)
	}
}

func cullModeName(m gputypes.CullMode) string {
	switch m {
	case gputypes.CullModeNone:
		return "none"
	case gputypes.CullModeFront:
		return "front"
	case gputypes.CullModeBack:
		return "back"
	default:
		return fmt.Sprintf("cull(%d)", m)
	}
}

func frontFaceName(f gputypes.FrontFace) string {
	switch f {
	case gputypes.FrontFaceCCW:
		return "ccw"
	case gputypes.FrontFaceCW:
		return "cw"
	default:
		return fmt.Sprintf("front(%d)", f)
	}
}
