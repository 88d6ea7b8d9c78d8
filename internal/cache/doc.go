// Package cache provides the bounded LRU cache used for compiled shader
// modules.
//
// Compiling WGSL to SPIR-V is the most expensive step of loading a shader
// stage, and an editing session recompiles the same sources many times
// (undo, reload, identical passes). The cache keys compiled words by a
// source digest so repeated loads skip the compiler.
//
//	c := cache.New[uint64, []uint32](64)
//	words, err := c.GetOrCreate(key, func() ([]uint32, error) {
//		return compile(src)
//	})
//
// Failed creations are not stored: the next lookup calls create again.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
