// Package pipeline describes the user-edited render pipeline: an ordered
// list of shader passes, each with nested geometry and state items.
//
// Items are owned by a [Store]. The store assigns every item a generational
// [Handle] when it is added; the handle, not the item's name or position,
// is the item's identity for caches built on top of the store.
package pipeline

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/pipeline/geometry"
	"github.com/gogpu/shaded/sysvar"
)

// ItemType tags the payload of an Item.
type ItemType uint8

// Item types.
const (
	ItemShaderPass ItemType = iota
	ItemGeometry
	ItemBlendState
	ItemDepthStencilState
)

var itemTypeNames = [...]string{
	ItemShaderPass:        "ShaderPass",
	ItemGeometry:          "Geometry",
	ItemBlendState:        "BlendState",
	ItemDepthStencilState: "DepthStencilState",
}

// String returns the type name.
func (t ItemType) String() string {
	if int(t) < len(itemTypeNames) {
		return itemTypeNames[t]
	}
	return fmt.Sprintf("ItemType(%d)", t)
}

// Handle identifies an item registered with a Store.
//
// Handles are generational: when an item is removed its slot's generation
// is bumped, so a handle never aliases a later item that reuses the slot.
// The zero Handle is invalid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsValid reports whether h was issued by a store.
func (h Handle) IsValid() bool { return h.Generation != 0 }

// String returns "index:generation".
func (h Handle) String() string { return fmt.Sprintf("%d:%d", h.Index, h.Generation) }

// Item is one entry of the pipeline.
type Item struct {
	// Name is the display name. Names are not required to be unique.
	Name string

	// Type tags Data.
	Type ItemType

	// Data is the payload: *ShaderPass, *GeometryItem, *BlendState or
	// *DepthStencilState, matching Type.
	Data any

	handle Handle
}

// Handle returns the identity assigned by the store, or the zero Handle if
// the item was never added.
func (it *Item) Handle() Handle { return it.handle }

// Pass returns the shader pass payload, or nil if the item is not a pass.
func (it *Item) Pass() *ShaderPass {
	p, _ := it.Data.(*ShaderPass)
	return p
}

// NewShaderPass creates a shader pass item.
func NewShaderPass(name string, pass *ShaderPass) *Item {
	return &Item{Name: name, Type: ItemShaderPass, Data: pass}
}

// NewGeometry creates a geometry item.
func NewGeometry(name string, geo *GeometryItem) *Item {
	return &Item{Name: name, Type: ItemGeometry, Data: geo}
}

// NewBlendState creates a blend state item.
func NewBlendState(name string, bs *BlendState) *Item {
	return &Item{Name: name, Type: ItemBlendState, Data: bs}
}

// NewDepthStencilState creates a depth/stencil state item.
func NewDepthStencilState(name string, ds *DepthStencilState) *Item {
	return &Item{Name: name, Type: ItemDepthStencilState, Data: ds}
}

// ShaderPass is a vertex and pixel shader pair together with the nested
// items it draws.
type ShaderPass struct {
	VSPath  string
	VSEntry string
	PSPath  string
	PSEntry string

	// VSInputLayout is the vertex input the vertex stage is compiled
	// against. An empty layout means the stage reads no vertex attributes.
	VSInputLayout *gpucore.InputLayout

	VSVariables VariableSlots
	PSVariables VariableSlots

	// Items are the nested Geometry, BlendState and DepthStencilState items
	// executed in order while this pass is bound.
	Items []*Item
}

// GeometryItem draws a mesh with a placement.
type GeometryItem struct {
	Mesh      *geometry.Mesh
	Topology  gputypes.PrimitiveTopology
	Transform sysvar.Transform
}

// NewGeometryItem creates a geometry payload with an identity transform and
// triangle-list topology.
func NewGeometryItem(mesh *geometry.Mesh) *GeometryItem {
	return &GeometryItem{
		Mesh:      mesh,
		Topology:  gputypes.PrimitiveTopologyTriangleList,
		Transform: sysvar.IdentityTransform(),
	}
}

// Placement implements sysvar.Placed.
func (g *GeometryItem) Placement() sysvar.Transform { return g.Transform }

// Draw sets the topology and draws the mesh.
func (g *GeometryItem) Draw(dev gpucore.Device) error {
	if g.Mesh == nil {
		return nil
	}
	dev.SetTopology(g.Topology)
	return g.Mesh.Draw(dev)
}

// BlendState changes color blending for the following draws.
type BlendState struct {
	Desc gputypes.BlendState
}

// Bind binds the blend state.
func (b *BlendState) Bind(dev gpucore.Device) { dev.SetBlendState(b.Desc) }

// AlphaBlend returns conventional non-premultiplied alpha blending.
func AlphaBlend() gputypes.BlendState {
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// AdditiveBlend returns src + dst blending.
func AdditiveBlend() gputypes.BlendState {
	add := gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorOne,
		Operation: gputypes.BlendOperationAdd,
	}
	return gputypes.BlendState{Color: add, Alpha: add}
}

// DepthStencilState changes depth testing and stencil for the following
// draws.
type DepthStencilState struct {
	Desc             gpucore.DepthStencilDesc
	StencilReference uint32
}

// Bind binds the state with its stencil reference value.
func (d *DepthStencilState) Bind(dev gpucore.Device) {
	dev.SetDepthStencilState(d.Desc, d.StencilReference)
}
