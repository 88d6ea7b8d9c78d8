// Package shader holds the per-stage shader programs a pipeline cache owns.
//
// A [Program] wraps one compiled stage (vertex or pixel) on a
// [gpucore.Device]. Programs compile from source text through a [Compiler];
// the default [NagaCompiler] translates WGSL to SPIR-V with gogpu/naga and
// keeps recently compiled modules in an LRU cache.
//
// A failed LoadFromMemory leaves the previously compiled stage in place, so
// a pass whose source is broken keeps drawing with its last good shader.
package shader
