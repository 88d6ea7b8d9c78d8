package gpucore

import (
	"fmt"
	"sort"
	"sync"
)

// BackendFactory opens a new device. Factories are registered via Register
// and called by Open.
type BackendFactory func() (Device, error)

// Registry state - protected by mutex for thread-safe access.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

// Register registers a backend factory with the given name.
// This function is typically called from init() in backend packages:
//
//	func init() {
//	    gpucore.Register("recorder", func() (gpucore.Device, error) {
//	        return New(), nil
//	    })
//	}
//
// Register panics if factory is nil or the name is already registered.
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("gpucore: Register factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("gpucore: Register called twice for " + name)
	}
	backends[name] = factory
}

// Unregister removes a backend from the registry. Primarily for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Open opens a device using the named backend.
// The error message includes a hint about forgotten imports.
func Open(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("gpucore: unknown backend %q (forgotten import?)", name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("gpucore: open %s: %w", name, err)
	}
	return dev, nil
}

// Backends returns a sorted list of registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}
