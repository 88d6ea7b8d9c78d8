package pipeline

import (
	"errors"
	"fmt"
	"slices"
)

// Store errors.
var (
	// ErrAlreadyAdded is returned when an item is added to a store twice.
	ErrAlreadyAdded = errors.New("pipeline: item already added")

	// ErrStaleHandle is returned for handles of removed items.
	ErrStaleHandle = errors.New("pipeline: stale handle")

	// ErrNotPass is returned when a child is added to a non-pass item.
	ErrNotPass = errors.New("pipeline: item is not a shader pass")

	// ErrTopLevelOnly is returned when an operation needs a top-level item.
	ErrTopLevelOnly = errors.New("pipeline: item is not top-level")
)

type slot struct {
	item       *Item
	generation uint32
	parent     Handle
}

// Store is the authoritative pipeline: an ordered list of top-level items
// plus every nested item, each identified by a Handle.
//
// The store is mutated by the editing side between frames and read by the
// renderer during a frame; it is not safe for concurrent use.
type Store struct {
	slots []slot
	free  []uint32
	list  []*Item
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) register(it *Item, parent Handle) (Handle, error) {
	if it.handle.IsValid() {
		if cur, ok := s.Get(it.handle); ok && cur == it {
			return Handle{}, fmt.Errorf("%w: %q", ErrAlreadyAdded, it.Name)
		}
	}
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots)) //nolint:gosec // G115: item counts are far below 2^32
		s.slots = append(s.slots, slot{})
	}
	sl := &s.slots[idx]
	sl.generation++
	sl.item = it
	sl.parent = parent
	it.handle = Handle{Index: idx, Generation: sl.generation}
	return it.handle, nil
}

// release frees h and the handles of the items nested in it.
func (s *Store) release(h Handle) {
	if p := s.slots[h.Index].item.Pass(); p != nil {
		for _, child := range p.Items {
			if child.handle.IsValid() && s.slots[child.handle.Index].parent == h {
				s.releaseOne(child.handle)
			}
		}
	}
	s.releaseOne(h)
}

func (s *Store) releaseOne(h Handle) {
	sl := &s.slots[h.Index]
	sl.item.handle = Handle{}
	sl.item = nil
	sl.parent = Handle{}
	sl.generation++
	s.free = append(s.free, h.Index)
}

// Add appends a top-level item. Nested items already attached to a pass
// payload are registered too.
func (s *Store) Add(it *Item) (Handle, error) {
	return s.Insert(len(s.list), it)
}

// Insert places a top-level item at index i, clamped to the list bounds.
func (s *Store) Insert(i int, it *Item) (Handle, error) {
	h, err := s.register(it, Handle{})
	if err != nil {
		return Handle{}, err
	}
	if p := it.Pass(); p != nil {
		for i, child := range p.Items {
			if _, err := s.register(child, h); err != nil {
				for _, done := range p.Items[:i] {
					s.releaseOne(done.handle)
				}
				s.releaseOne(h)
				return Handle{}, err
			}
		}
	}
	i = min(max(i, 0), len(s.list))
	s.list = slices.Insert(s.list, i, it)
	return h, nil
}

// AddChild appends a nested item to the pass identified by pass.
func (s *Store) AddChild(pass Handle, child *Item) (Handle, error) {
	parent, ok := s.Get(pass)
	if !ok {
		return Handle{}, ErrStaleHandle
	}
	p := parent.Pass()
	if p == nil {
		return Handle{}, fmt.Errorf("%w: %q", ErrNotPass, parent.Name)
	}
	h, err := s.register(child, pass)
	if err != nil {
		return Handle{}, err
	}
	p.Items = append(p.Items, child)
	return h, nil
}

// Remove removes an item (top-level or nested) and everything nested in
// it. Their handles become stale.
func (s *Store) Remove(h Handle) error {
	it, ok := s.Get(h)
	if !ok {
		return ErrStaleHandle
	}
	parent := s.slots[h.Index].parent
	if parent.IsValid() {
		if p := s.slots[parent.Index].item.Pass(); p != nil {
			p.Items = slices.DeleteFunc(p.Items, func(c *Item) bool { return c == it })
		}
	} else {
		s.list = slices.DeleteFunc(s.list, func(c *Item) bool { return c == it })
	}
	s.release(h)
	return nil
}

// Move moves a top-level item to index to, clamped to the list bounds.
func (s *Store) Move(h Handle, to int) error {
	it, ok := s.Get(h)
	if !ok {
		return ErrStaleHandle
	}
	from := slices.Index(s.list, it)
	if from < 0 {
		return ErrTopLevelOnly
	}
	s.list = slices.Delete(s.list, from, from+1)
	to = min(max(to, 0), len(s.list))
	s.list = slices.Insert(s.list, to, it)
	return nil
}

// Get resolves a handle. It fails for zero and stale handles.
func (s *Store) Get(h Handle) (*Item, bool) {
	if !h.IsValid() || int(h.Index) >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[h.Index]
	if sl.generation != h.Generation || sl.item == nil {
		return nil, false
	}
	return sl.item, true
}

// Find returns the first top-level item named name.
func (s *Store) Find(name string) (*Item, bool) {
	for _, it := range s.list {
		if it.Name == name {
			return it, true
		}
	}
	return nil, false
}

// List returns the top-level items in order. The slice is a copy; the items
// are shared.
func (s *Store) List() []*Item {
	return slices.Clone(s.list)
}

// Len returns the number of top-level items.
func (s *Store) Len() int { return len(s.list) }

// Passes returns the shader pass payloads of the top-level items.
func (s *Store) Passes() []*ShaderPass {
	out := make([]*ShaderPass, 0, len(s.list))
	for _, it := range s.list {
		if p := it.Pass(); p != nil {
			out = append(out, p)
		}
	}
	return out
}
