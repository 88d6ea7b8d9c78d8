// Package geometry generates the drawable meshes a geometry pipeline item
// can reference.
//
// Every mesh uses the same interleaved vertex format: position (float3),
// normal (float3) and texture coordinate (float2), 32 bytes per vertex.
// [Layout] returns the matching input layout for shader passes.
package geometry

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
)

// FloatsPerVertex is the number of float32 values in one vertex.
const FloatsPerVertex = 8

// Stride is the byte size of one vertex.
const Stride = FloatsPerVertex * 4

// Shape names a built-in mesh generator.
type Shape string

// Built-in shapes.
const (
	ShapeTriangle   Shape = "triangle"
	ShapeScreenQuad Shape = "screen-quad"
	ShapePlane      Shape = "plane"
	ShapeCube       Shape = "cube"
	ShapeSphere     Shape = "sphere"
)

// Layout returns the input layout shared by all generated meshes.
func Layout() *gpucore.InputLayout {
	return gpucore.NewInputLayout(
		gpucore.InputElement{Semantic: "POSITION", Format: gputypes.VertexFormatFloat32x3},
		gpucore.InputElement{Semantic: "NORMAL", Format: gputypes.VertexFormatFloat32x3},
		gpucore.InputElement{Semantic: "TEXCOORD", Format: gputypes.VertexFormatFloat32x2},
	)
}

// Mesh is a triangle list in the shared vertex format.
//
// The vertex buffer is uploaded on the first Draw and reused afterwards.
type Mesh struct {
	Shape    Shape
	Vertices []float32

	buffer gpucore.BufferID
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() uint32 {
	return uint32(len(m.Vertices) / FloatsPerVertex) //nolint:gosec // G115: meshes are far below 2^32 vertices
}

// Bytes returns the little-endian vertex data.
func (m *Mesh) Bytes() []byte {
	out := make([]byte, 0, len(m.Vertices)*4)
	for _, v := range m.Vertices {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// Draw uploads the vertex buffer if needed and issues the draw. The
// topology must already be set on dev.
func (m *Mesh) Draw(dev gpucore.Device) error {
	if len(m.Vertices) == 0 {
		return nil
	}
	if m.buffer == gpucore.InvalidID {
		data := m.Bytes()
		id, err := dev.CreateBuffer(len(data), gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst, string(m.Shape))
		if err != nil {
			return fmt.Errorf("geometry: upload %s: %w", m.Shape, err)
		}
		dev.WriteBuffer(id, 0, data)
		m.buffer = id
	}
	dev.Draw(m.buffer, m.VertexCount(), 0)
	return nil
}

// Release frees the uploaded vertex buffer. The next Draw uploads again.
func (m *Mesh) Release(dev gpucore.Device) {
	if m.buffer != gpucore.InvalidID {
		dev.DestroyBuffer(m.buffer)
		m.buffer = gpucore.InvalidID
	}
}

// New builds a mesh for a named shape with its default proportions.
func New(shape Shape) (*Mesh, error) {
	switch shape {
	case ShapeTriangle:
		return Triangle(1), nil
	case ShapeScreenQuad:
		return ScreenQuad(), nil
	case ShapePlane:
		return Plane(1, 1), nil
	case ShapeCube:
		return Cube(1), nil
	case ShapeSphere:
		return Sphere(0.5, 16, 24), nil
	default:
		return nil, fmt.Errorf("geometry: unknown shape %q", shape)
	}
}

type vertex struct {
	px, py, pz float32
	nx, ny, nz float32
	u, v       float32
}

func build(shape Shape, verts []vertex) *Mesh {
	m := &Mesh{Shape: shape, Vertices: make([]float32, 0, len(verts)*FloatsPerVertex)}
	for _, v := range verts {
		m.Vertices = append(m.Vertices, v.px, v.py, v.pz, v.nx, v.ny, v.nz, v.u, v.v)
	}
	return m
}

// quad appends two counter-clockwise triangles for the quad a-b-c-d.
func quad(out []vertex, a, b, c, d vertex) []vertex {
	return append(out, a, b, c, a, c, d)
}

// Triangle returns a single triangle of the given size facing +Z.
func Triangle(size float32) *Mesh {
	h := size / 2
	return build(ShapeTriangle, []vertex{
		{-h, -h, 0, 0, 0, 1, 0, 1},
		{h, -h, 0, 0, 0, 1, 1, 1},
		{0, h, 0, 0, 0, 1, 0.5, 0},
	})
}

// ScreenQuad returns a quad covering clip space, for full-screen passes.
func ScreenQuad() *Mesh {
	return build(ShapeScreenQuad, quad(nil,
		vertex{-1, -1, 0, 0, 0, 1, 0, 1},
		vertex{1, -1, 0, 0, 0, 1, 1, 1},
		vertex{1, 1, 0, 0, 0, 1, 1, 0},
		vertex{-1, 1, 0, 0, 0, 1, 0, 0},
	))
}

// Plane returns a width x depth plane on the XZ plane facing +Y.
func Plane(width, depth float32) *Mesh {
	w, d := width/2, depth/2
	return build(ShapePlane, quad(nil,
		vertex{-w, 0, d, 0, 1, 0, 0, 1},
		vertex{w, 0, d, 0, 1, 0, 1, 1},
		vertex{w, 0, -d, 0, 1, 0, 1, 0},
		vertex{-w, 0, -d, 0, 1, 0, 0, 0},
	))
}

// Cube returns an axis-aligned cube with the given edge length.
func Cube(size float32) *Mesh {
	h := size / 2
	faces := []struct {
		n, u, v [3]float32
	}{
		{[3]float32{0, 0, 1}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{0, 0, -1}, [3]float32{-1, 0, 0}, [3]float32{0, 1, 0}},
		{[3]float32{1, 0, 0}, [3]float32{0, 0, -1}, [3]float32{0, 1, 0}},
		{[3]float32{-1, 0, 0}, [3]float32{0, 0, 1}, [3]float32{0, 1, 0}},
		{[3]float32{0, 1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, -1}},
		{[3]float32{0, -1, 0}, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	}

	verts := make([]vertex, 0, 36)
	for _, f := range faces {
		corner := func(su, sv, tu, tv float32) vertex {
			return vertex{
				px: (f.n[0] + su*f.u[0] + sv*f.v[0]) * h,
				py: (f.n[1] + su*f.u[1] + sv*f.v[1]) * h,
				pz: (f.n[2] + su*f.u[2] + sv*f.v[2]) * h,
				nx: f.n[0], ny: f.n[1], nz: f.n[2],
				u: tu, v: tv,
			}
		}
		verts = quad(verts,
			corner(-1, -1, 0, 1),
			corner(1, -1, 1, 1),
			corner(1, 1, 1, 0),
			corner(-1, 1, 0, 0),
		)
	}
	return build(ShapeCube, verts)
}

// Sphere returns a UV sphere. rings is the number of latitude bands and
// segments the number of longitude bands; both are clamped to at least 3.
func Sphere(radius float32, rings, segments int) *Mesh {
	rings = max(rings, 3)
	segments = max(segments, 3)

	point := func(ring, seg int) vertex {
		theta := float32(ring) / float32(rings) * math32.Pi
		phi := float32(seg) / float32(segments) * 2 * math32.Pi
		st, ct := math32.Sincos(theta)
		sp, cp := math32.Sincos(phi)
		nx, ny, nz := st*cp, ct, st*sp
		return vertex{
			px: nx * radius, py: ny * radius, pz: nz * radius,
			nx: nx, ny: ny, nz: nz,
			u: float32(seg) / float32(segments),
			v: float32(ring) / float32(rings),
		}
	}

	verts := make([]vertex, 0, rings*segments*6)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			verts = quad(verts, point(r, s), point(r, s+1), point(r+1, s+1), point(r+1, s))
		}
	}
	return build(ShapeSphere, verts)
}
