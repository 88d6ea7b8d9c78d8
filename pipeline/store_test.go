package pipeline

import (
	"errors"
	"testing"

	"github.com/gogpu/shaded/pipeline/geometry"
)

func names(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func equalNames(a []*Item, want ...string) bool {
	got := names(a)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStoreAddAndGet(t *testing.T) {
	s := NewStore()
	a := NewShaderPass("A", &ShaderPass{})
	h, err := s.Add(a)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !h.IsValid() || a.Handle() != h {
		t.Errorf("expected valid handle assigned to item, got %v / %v", h, a.Handle())
	}
	got, ok := s.Get(h)
	if !ok || got != a {
		t.Error("Get did not resolve the handle")
	}
	if _, err := s.Add(a); !errors.Is(err, ErrAlreadyAdded) {
		t.Errorf("expected ErrAlreadyAdded, got %v", err)
	}
	if _, ok := s.Get(Handle{}); ok {
		t.Error("zero handle must not resolve")
	}
}

func TestStoreHandleGenerations(t *testing.T) {
	s := NewStore()
	a := NewShaderPass("A", &ShaderPass{})
	ha, _ := s.Add(a)
	if err := s.Remove(ha); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	b := NewShaderPass("B", &ShaderPass{})
	hb, _ := s.Add(b)
	if hb.Index != ha.Index {
		t.Fatalf("expected slot reuse, got %v after %v", hb, ha)
	}
	if hb == ha {
		t.Error("reused slot must get a new generation")
	}
	if _, ok := s.Get(ha); ok {
		t.Error("stale handle resolved")
	}
	if err := s.Remove(ha); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	if a.Handle().IsValid() {
		t.Error("removed item should lose its handle")
	}
}

func TestStoreInsertMoveOrder(t *testing.T) {
	s := NewStore()
	a := NewShaderPass("A", &ShaderPass{})
	b := NewShaderPass("B", &ShaderPass{})
	c := NewShaderPass("C", &ShaderPass{})
	s.Add(a)
	s.Add(c)
	s.Insert(1, b)

	if !equalNames(s.List(), "A", "B", "C") {
		t.Fatalf("expected [A B C], got %v", names(s.List()))
	}

	if err := s.Move(c.Handle(), 0); err != nil {
		t.Fatal(err)
	}
	if !equalNames(s.List(), "C", "A", "B") {
		t.Errorf("expected [C A B], got %v", names(s.List()))
	}

	if err := s.Move(c.Handle(), 99); err != nil {
		t.Fatal(err)
	}
	if !equalNames(s.List(), "A", "B", "C") {
		t.Errorf("expected [A B C], got %v", names(s.List()))
	}
}

func TestStoreChildren(t *testing.T) {
	s := NewStore()
	pass := &ShaderPass{}
	p := NewShaderPass("P", pass)
	hp, _ := s.Add(p)

	geo := NewGeometry("Box", NewGeometryItem(geometry.Cube(1)))
	hg, err := s.AddChild(hp, geo)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if len(pass.Items) != 1 || pass.Items[0] != geo {
		t.Fatal("child not attached to pass")
	}
	if _, err := s.AddChild(hg, NewGeometry("x", nil)); !errors.Is(err, ErrNotPass) {
		t.Errorf("expected ErrNotPass, got %v", err)
	}
	if err := s.Move(hg, 0); !errors.Is(err, ErrTopLevelOnly) {
		t.Errorf("expected ErrTopLevelOnly, got %v", err)
	}

	// Removing the pass invalidates the child as well.
	if err := s.Remove(hp); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get(hg); ok {
		t.Error("child handle should be stale after parent removal")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty list, got %d", s.Len())
	}
}

func TestStoreRemoveChild(t *testing.T) {
	s := NewStore()
	pass := &ShaderPass{
		Items: []*Item{
			NewBlendState("Blend", &BlendState{Desc: AlphaBlend()}),
			NewGeometry("Quad", NewGeometryItem(geometry.ScreenQuad())),
		},
	}
	s.Add(NewShaderPass("P", pass))

	blend := pass.Items[0]
	if !blend.Handle().IsValid() {
		t.Fatal("pre-attached children should be registered on Add")
	}
	if err := s.Remove(blend.Handle()); err != nil {
		t.Fatal(err)
	}
	if !equalNames(pass.Items, "Quad") {
		t.Errorf("expected [Quad], got %v", names(pass.Items))
	}
}

func TestStoreInsertRollsBackOnChildError(t *testing.T) {
	s := NewStore()
	shared := NewGeometry("Shared", NewGeometryItem(geometry.Triangle(1)))
	first := &ShaderPass{Items: []*Item{shared}}
	s.Add(NewShaderPass("First", first))
	sharedHandle := shared.Handle()

	second := &ShaderPass{Items: []*Item{NewGeometry("Own", nil), shared}}
	if _, err := s.Add(NewShaderPass("Second", second)); !errors.Is(err, ErrAlreadyAdded) {
		t.Fatalf("expected ErrAlreadyAdded, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("failed insert must not change the list, len=%d", s.Len())
	}
	if second.Items[0].Handle().IsValid() {
		t.Error("children registered before the failure should be released")
	}
	if shared.Handle() != sharedHandle {
		t.Error("the other pass's child must keep its handle")
	}
}

func TestStoreFindAndPasses(t *testing.T) {
	s := NewStore()
	s.Add(NewShaderPass("A", &ShaderPass{}))
	s.Add(NewGeometry("Loose", nil))
	s.Add(NewShaderPass("A", &ShaderPass{VSEntry: "second"}))

	it, ok := s.Find("A")
	if !ok || it.Pass().VSEntry != "" {
		t.Error("Find should return the first match")
	}
	if got := len(s.Passes()); got != 2 {
		t.Errorf("expected 2 passes, got %d", got)
	}
}
