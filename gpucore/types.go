package gpucore

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Resource IDs
//
// These opaque IDs represent GPU resources. Each backend maintains a mapping
// between IDs and actual backend objects.

// ShaderID is an opaque handle to a compiled shader stage.
type ShaderID uint64

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// RenderTargetID is an opaque handle to an offscreen color+depth/stencil target.
type RenderTargetID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Stage identifies a programmable shader stage.
type Stage uint8

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = iota
	// StagePixel is the pixel (fragment) stage.
	StagePixel
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StagePixel:
		return "pixel"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// Viewport describes the rasterizer viewport.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// FullViewport returns a viewport covering width x height with depth range [0, 1].
func FullViewport(width, height int) Viewport {
	return Viewport{
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

// StencilOp is the operation applied to a stencil value.
type StencilOp uint8

// Stencil operations.
const (
	StencilOpKeep StencilOp = iota
	StencilOpZero
	StencilOpReplace
	StencilOpInvert
	StencilOpIncrementClamp
	StencilOpDecrementClamp
	StencilOpIncrementWrap
	StencilOpDecrementWrap
)

var stencilOpNames = [...]string{
	StencilOpKeep:           "keep",
	StencilOpZero:           "zero",
	StencilOpReplace:        "replace",
	StencilOpInvert:         "invert",
	StencilOpIncrementClamp: "incr-clamp",
	StencilOpDecrementClamp: "decr-clamp",
	StencilOpIncrementWrap:  "incr-wrap",
	StencilOpDecrementWrap:  "decr-wrap",
}

// String returns the operation name.
func (op StencilOp) String() string {
	if int(op) < len(stencilOpNames) {
		return stencilOpNames[op]
	}
	return fmt.Sprintf("StencilOp(%d)", op)
}

// ParseStencilOp converts a name produced by [StencilOp.String] back to a StencilOp.
func ParseStencilOp(name string) (StencilOp, error) {
	for i, n := range stencilOpNames {
		if n == name {
			return StencilOp(i), nil //nolint:gosec // G115: bounded by table size
		}
	}
	return StencilOpKeep, fmt.Errorf("gpucore: unknown stencil op %q", name)
}

// StencilFace describes stencil behavior for one face orientation.
type StencilFace struct {
	Compare     gputypes.CompareFunction
	FailOp      StencilOp
	DepthFailOp StencilOp
	PassOp      StencilOp
}

// DepthStencilDesc describes depth testing and stencil state.
type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWrite       bool
	DepthCompare     gputypes.CompareFunction
	StencilEnable    bool
	StencilReadMask  uint32
	StencilWriteMask uint32
	Front            StencilFace
	Back             StencilFace
}

// DefaultDepthStencil returns depth test Less with writes on and stencil off.
func DefaultDepthStencil() DepthStencilDesc {
	keep := StencilFace{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      StencilOpKeep,
		DepthFailOp: StencilOpKeep,
		PassOp:      StencilOpKeep,
	}
	return DepthStencilDesc{
		DepthEnable:      true,
		DepthWrite:       true,
		DepthCompare:     gputypes.CompareFunctionLess,
		StencilReadMask:  0xFF,
		StencilWriteMask: 0xFF,
		Front:            keep,
		Back:             keep,
	}
}

// RasterizerDesc describes fixed-function rasterizer state.
type RasterizerDesc struct {
	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace
}

// DefaultRasterizer returns back-face culling with counter-clockwise front faces.
func DefaultRasterizer() RasterizerDesc {
	return RasterizerDesc{
		CullMode:  gputypes.CullModeBack,
		FrontFace: gputypes.FrontFaceCCW,
	}
}

// OpaqueBlend returns a blend state where the source replaces the destination.
func OpaqueBlend() gputypes.BlendState {
	replace := gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorZero,
		Operation: gputypes.BlendOperationAdd,
	}
	return gputypes.BlendState{Color: replace, Alpha: replace}
}
