package sysvar

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
)

// Placed is implemented by geometry payloads that carry a world placement.
type Placed interface {
	Placement() Transform
}

// Default camera parameters.
const (
	DefaultFieldOfView = math32.Pi / 4
	DefaultNear        = 0.1
	DefaultFar         = 1000
)

// Registry holds the current system values.
//
// The zero value is not ready for use; create registries with New.
// A Registry is written and read on the render goroutine only.
type Registry struct {
	viewportW, viewportH float32

	geometry   Mat4
	view       Mat4
	projection Mat4

	fieldOfView float32
	time        float32
	frame       uint32
}

// New creates a registry with identity matrices and a camera five units
// back from the origin.
func New() *Registry {
	return &Registry{
		geometry:    Identity(),
		view:        Translation(Vec3{0, 0, -5}),
		projection:  Identity(),
		fieldOfView: DefaultFieldOfView,
	}
}

// SetViewportSize records the render target size and rebuilds the
// projection matrix for its aspect ratio.
func (r *Registry) SetViewportSize(width, height int) {
	r.viewportW = float32(width)
	r.viewportH = float32(height)
	if width > 0 && height > 0 {
		r.projection = Perspective(r.fieldOfView, r.viewportW/r.viewportH, DefaultNear, DefaultFar)
	}
}

// ViewportSize returns the last size passed to SetViewportSize.
func (r *Registry) ViewportSize() (width, height float32) {
	return r.viewportW, r.viewportH
}

// SetGeometryTransform records the world matrix of the geometry about to be
// drawn. A nil payload resets it to identity.
func (r *Registry) SetGeometryTransform(p Placed) {
	if p == nil {
		r.geometry = Identity()
		return
	}
	r.geometry = p.Placement().Matrix()
}

// GeometryTransform returns the current world matrix.
func (r *Registry) GeometryTransform() Mat4 { return r.geometry }

// SetTime sets the elapsed time in seconds.
func (r *Registry) SetTime(seconds float32) { r.time = seconds }

// Time returns the elapsed time in seconds.
func (r *Registry) Time() float32 { return r.time }

// NextFrame increments the frame index.
func (r *Registry) NextFrame() { r.frame++ }

// FrameIndex returns the number of NextFrame calls.
func (r *Registry) FrameIndex() uint32 { return r.frame }

// SetFieldOfView sets the vertical field of view in radians used for the
// projection matrix from the next SetViewportSize on.
func (r *Registry) SetFieldOfView(radians float32) { r.fieldOfView = radians }

// SetView sets the camera view matrix.
func (r *Registry) SetView(m Mat4) { r.view = m }

// View returns the camera view matrix.
func (r *Registry) View() Mat4 { return r.view }

// Projection returns the camera projection matrix.
func (r *Registry) Projection() Mat4 { return r.projection }

// ViewProjection returns projection * view.
func (r *Registry) ViewProjection() Mat4 { return r.projection.Mul(r.view) }

// Bytes returns the little-endian encoding of a system value. SemanticNone
// and unknown semantics return nil.
func (r *Registry) Bytes(s Semantic) []byte {
	switch s {
	case SemanticViewportSize:
		return floatBytes(r.viewportW, r.viewportH)
	case SemanticGeometryTransform:
		return floatBytes(r.geometry[:]...)
	case SemanticTime:
		return floatBytes(r.time)
	case SemanticFrameIndex:
		return binary.LittleEndian.AppendUint32(nil, r.frame)
	case SemanticView:
		return floatBytes(r.view[:]...)
	case SemanticProjection:
		return floatBytes(r.projection[:]...)
	case SemanticViewProjection:
		vp := r.ViewProjection()
		return floatBytes(vp[:]...)
	default:
		return nil
	}
}

func floatBytes(values ...float32) []byte {
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}
