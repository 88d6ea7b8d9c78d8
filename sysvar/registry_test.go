package sysvar

import (
	"encoding/binary"
	"math"
	"testing"
)

type placed Transform

func (p placed) Placement() Transform { return Transform(p) }

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestMat4Mul(t *testing.T) {
	a := Translation(Vec3{1, 2, 3})
	b := Scaling(Vec3{2, 2, 2})
	m := a.Mul(b)

	// Scale then translate: the diagonal is scaled and the translation kept.
	if m[0] != 2 || m[5] != 2 || m[10] != 2 {
		t.Errorf("unexpected diagonal %v", m)
	}
	if m[12] != 1 || m[13] != 2 || m[14] != 3 {
		t.Errorf("unexpected translation %v", m[12:15])
	}
	if Identity().Mul(a) != a {
		t.Error("identity should be neutral")
	}
}

func TestRotationZQuarterTurn(t *testing.T) {
	m := RotationZ(math.Pi / 2)
	// (1,0,0) rotates to (0,1,0): first column is the image of X.
	if !approx(m[0], 0) || !approx(m[1], 1) {
		t.Errorf("expected X axis to map to Y, got (%v, %v)", m[0], m[1])
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(math.Pi/2, 2, 1, 10)
	if !approx(m[5], 1) {
		t.Errorf("expected f=1 for 90 degrees, got %v", m[5])
	}
	if !approx(m[0], 0.5) {
		t.Errorf("expected f/aspect=0.5, got %v", m[0])
	}
	if m[11] != -1 {
		t.Errorf("expected -1 in w row, got %v", m[11])
	}
}

func TestRegistryViewportSize(t *testing.T) {
	r := New()
	r.SetViewportSize(800, 600)
	w, h := r.ViewportSize()
	if w != 800 || h != 600 {
		t.Errorf("expected 800x600, got %vx%v", w, h)
	}
	b := r.Bytes(SemanticViewportSize)
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[4:])); got != 600 {
		t.Errorf("expected height 600, got %v", got)
	}
	if r.Projection() == Identity() {
		t.Error("expected projection to be rebuilt")
	}
}

func TestRegistryGeometryTransform(t *testing.T) {
	r := New()
	tr := IdentityTransform()
	tr.Position = Vec3{4, 5, 6}
	r.SetGeometryTransform(placed(tr))

	m := r.GeometryTransform()
	if m[12] != 4 || m[13] != 5 || m[14] != 6 {
		t.Errorf("unexpected translation %v", m[12:15])
	}

	r.SetGeometryTransform(nil)
	if r.GeometryTransform() != Identity() {
		t.Error("expected nil payload to reset to identity")
	}
}

func TestRegistryBytes(t *testing.T) {
	r := New()
	r.SetTime(1.5)
	r.NextFrame()
	r.NextFrame()

	tests := []struct {
		sem  Semantic
		size int
	}{
		{SemanticNone, 0},
		{SemanticViewportSize, 8},
		{SemanticGeometryTransform, 64},
		{SemanticTime, 4},
		{SemanticFrameIndex, 4},
		{SemanticView, 64},
		{SemanticProjection, 64},
		{SemanticViewProjection, 64},
	}
	for _, tt := range tests {
		if got := len(r.Bytes(tt.sem)); got != tt.size {
			t.Errorf("%s: expected %d bytes, got %d", tt.sem, tt.size, got)
		}
	}

	if got := binary.LittleEndian.Uint32(r.Bytes(SemanticFrameIndex)); got != 2 {
		t.Errorf("expected frame 2, got %d", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(r.Bytes(SemanticTime))); got != 1.5 {
		t.Errorf("expected time 1.5, got %v", got)
	}
}

func TestParseSemantic(t *testing.T) {
	for s := SemanticNone; s <= SemanticViewProjection; s++ {
		got, err := ParseSemantic(s.String())
		if err != nil || got != s {
			t.Errorf("round trip %s: got %v, %v", s, got, err)
		}
	}
	if s, err := ParseSemantic(""); err != nil || s != SemanticNone {
		t.Errorf("expected empty name to parse as none, got %v, %v", s, err)
	}
	if _, err := ParseSemantic("bogus"); err == nil {
		t.Error("expected error for unknown semantic")
	}
}
