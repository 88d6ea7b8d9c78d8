package gpucore

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// InputElement describes one per-vertex attribute consumed by a vertex stage.
type InputElement struct {
	// Semantic names the attribute (POSITION, NORMAL, TEXCOORD, ...).
	Semantic string

	// SemanticIndex distinguishes repeated semantics (TEXCOORD0, TEXCOORD1).
	SemanticIndex uint32

	// Format is the attribute data format.
	Format gputypes.VertexFormat
}

// InputLayout describes the vertex buffer layout a vertex stage expects.
//
// The packed attribute offsets and stride are derived lazily from the element
// list. Reset discards the derived data so the next Attributes/Stride call
// rebuilds it; callers reset before compiling a vertex stage against a layout
// that may have been edited.
type InputLayout struct {
	elements []InputElement

	built      bool
	attributes []gputypes.VertexAttribute
	stride     uint64
	version    uint64
}

// NewInputLayout creates a layout from the given elements.
func NewInputLayout(elements ...InputElement) *InputLayout {
	l := &InputLayout{}
	l.elements = append(l.elements, elements...)
	return l
}

// Elements returns a copy of the layout elements.
func (l *InputLayout) Elements() []InputElement {
	if l == nil {
		return nil
	}
	out := make([]InputElement, len(l.elements))
	copy(out, l.elements)
	return out
}

// Len returns the number of elements.
func (l *InputLayout) Len() int {
	if l == nil {
		return 0
	}
	return len(l.elements)
}

// Add appends an element. The derived layout is invalidated.
func (l *InputLayout) Add(e InputElement) {
	l.elements = append(l.elements, e)
	l.built = false
}

// SetElements replaces all elements. The derived layout is invalidated.
func (l *InputLayout) SetElements(elements []InputElement) {
	l.elements = append(l.elements[:0], elements...)
	l.built = false
}

// Reset discards the derived attribute table and bumps the layout version.
func (l *InputLayout) Reset() {
	l.built = false
	l.attributes = nil
	l.stride = 0
	l.version++
}

// Version increases every time Reset is called.
func (l *InputLayout) Version() uint64 {
	if l == nil {
		return 0
	}
	return l.version
}

// Attributes returns the vertex attributes with packed offsets. Shader
// locations follow element order.
func (l *InputLayout) Attributes() []gputypes.VertexAttribute {
	if l == nil {
		return nil
	}
	l.build()
	return l.attributes
}

// Stride returns the byte size of one vertex.
func (l *InputLayout) Stride() uint64 {
	if l == nil {
		return 0
	}
	l.build()
	return l.stride
}

// VertexBufferLayout returns the single interleaved buffer layout described
// by the elements, or nil when the layout is empty.
func (l *InputLayout) VertexBufferLayout() []gputypes.VertexBufferLayout {
	if l.Len() == 0 {
		return nil
	}
	return []gputypes.VertexBufferLayout{{
		ArrayStride: l.Stride(),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  l.Attributes(),
	}}
}

// String returns a compact description such as "POSITION0:float32x3,NORMAL0:float32x3".
func (l *InputLayout) String() string {
	if l.Len() == 0 {
		return "<empty>"
	}
	parts := make([]string, len(l.elements))
	for i, e := range l.elements {
		parts[i] = fmt.Sprintf("%s%d:%s", e.Semantic, e.SemanticIndex, VertexFormatName(e.Format))
	}
	return strings.Join(parts, ",")
}

func (l *InputLayout) build() {
	if l.built {
		return
	}
	l.attributes = make([]gputypes.VertexAttribute, len(l.elements))
	var offset uint64
	for i, e := range l.elements {
		l.attributes[i] = gputypes.VertexAttribute{
			Format:         e.Format,
			Offset:         offset,
			ShaderLocation: uint32(i), //nolint:gosec // G115: attribute count is bounded by GPU limits (< 32)
		}
		offset += VertexFormatSize(e.Format)
	}
	l.stride = offset
	l.built = true
}

var vertexFormats = []struct {
	format gputypes.VertexFormat
	name   string
	size   uint64
}{
	{gputypes.VertexFormatFloat32, "float32", 4},
	{gputypes.VertexFormatFloat32x2, "float32x2", 8},
	{gputypes.VertexFormatFloat32x3, "float32x3", 12},
	{gputypes.VertexFormatFloat32x4, "float32x4", 16},
	{gputypes.VertexFormatUint32, "uint32", 4},
	{gputypes.VertexFormatSint32, "sint32", 4},
}

// VertexFormatSize returns the byte size of a vertex format, or 0 if unknown.
func VertexFormatSize(f gputypes.VertexFormat) uint64 {
	for _, vf := range vertexFormats {
		if vf.format == f {
			return vf.size
		}
	}
	return 0
}

// VertexFormatName returns the lowercase WebGPU name of a vertex format.
func VertexFormatName(f gputypes.VertexFormat) string {
	for _, vf := range vertexFormats {
		if vf.format == f {
			return vf.name
		}
	}
	return fmt.Sprintf("format(%d)", f)
}

// ParseVertexFormat converts a WebGPU vertex format name to its value.
func ParseVertexFormat(name string) (gputypes.VertexFormat, error) {
	for _, vf := range vertexFormats {
		if vf.name == name {
			return vf.format, nil
		}
	}
	return 0, fmt.Errorf("gpucore: unknown vertex format %q", name)
}
