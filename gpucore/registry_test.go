package gpucore

import (
	"errors"
	"strings"
	"testing"
)

// resetRegistry clears all registered backends for test isolation.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends = make(map[string]BackendFactory)
}

func TestRegisterAndOpen(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	calls := 0
	Register("test", func() (Device, error) {
		calls++
		return nil, nil
	})

	if !IsRegistered("test") {
		t.Fatal("expected backend to be registered")
	}
	if _, err := Open("test"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected factory to be called once, got %d", calls)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	_, err := Open("missing")
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "forgotten import") {
		t.Errorf("expected import hint in error, got %q", err)
	}
}

func TestOpenFactoryError(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	boom := errors.New("no adapter")
	Register("broken", func() (Device, error) { return nil, boom })

	_, err := Open("broken")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped factory error, got %v", err)
	}
}

func TestRegisterPanics(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	t.Run("nil factory", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic for nil factory")
			}
		}()
		Register("nil", nil)
	})

	t.Run("duplicate", func(t *testing.T) {
		Register("dup", func() (Device, error) { return nil, nil })
		defer func() {
			if recover() == nil {
				t.Error("expected panic for duplicate registration")
			}
		}()
		Register("dup", func() (Device, error) { return nil, nil })
	})
}

func TestBackendsSorted(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	for _, name := range []string{"wgpu", "recorder", "null"} {
		Register(name, func() (Device, error) { return nil, nil })
	}
	got := Backends()
	want := []string{"null", "recorder", "wgpu"}
	if len(got) != len(want) {
		t.Fatalf("expected %d backends, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Backends()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	Unregister("null")
	if IsRegistered("null") {
		t.Error("expected null to be unregistered")
	}
}
