package sysvar

import "fmt"

// Semantic names a system value a constant-buffer variable can bind to.
type Semantic uint8

// System value semantics.
const (
	// SemanticNone marks a user-supplied value.
	SemanticNone Semantic = iota
	// SemanticViewportSize is the render target size in pixels (float2).
	SemanticViewportSize
	// SemanticGeometryTransform is the world matrix of the geometry being drawn (float4x4).
	SemanticGeometryTransform
	// SemanticTime is the elapsed time in seconds (float).
	SemanticTime
	// SemanticFrameIndex is the number of frames rendered so far (int).
	SemanticFrameIndex
	// SemanticView is the camera view matrix (float4x4).
	SemanticView
	// SemanticProjection is the camera projection matrix (float4x4).
	SemanticProjection
	// SemanticViewProjection is projection * view (float4x4).
	SemanticViewProjection
)

var semanticNames = [...]string{
	SemanticNone:              "none",
	SemanticViewportSize:      "viewport_size",
	SemanticGeometryTransform: "geometry_transform",
	SemanticTime:              "time",
	SemanticFrameIndex:        "frame_index",
	SemanticView:              "view",
	SemanticProjection:        "projection",
	SemanticViewProjection:    "view_projection",
}

// String returns the semantic name used in project files.
func (s Semantic) String() string {
	if int(s) < len(semanticNames) {
		return semanticNames[s]
	}
	return fmt.Sprintf("Semantic(%d)", s)
}

// ParseSemantic converts a name produced by [Semantic.String] back to a
// Semantic. The empty string parses as SemanticNone.
func ParseSemantic(name string) (Semantic, error) {
	if name == "" {
		return SemanticNone, nil
	}
	for i, n := range semanticNames {
		if n == name {
			return Semantic(i), nil //nolint:gosec // G115: bounded by table size
		}
	}
	return SemanticNone, fmt.Errorf("sysvar: unknown semantic %q", name)
}
