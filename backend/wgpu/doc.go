// Package wgpu implements gpucore.Device on the gogpu/wgpu hardware
// abstraction layer.
//
// The device keeps the immediate-mode contract of gpucore: binding calls
// replace a piece of state and Draw captures the state in effect. Draws are
// queued per render target and encoded into a single render pass when the
// target changes, is read back, or a resource a queued draw uses is about
// to be written or destroyed.
//
// Render pipelines are built lazily from the captured state and cached by a
// hash of everything baked into them: shader stages, vertex layout, blend,
// depth-stencil and rasterizer state, topology and target format.
//
// Constant buffers bound to the vertex stage are exposed to shaders as
// @group(0) @binding(slot); pixel stage buffers as @group(1) @binding(slot).
//
// Importing the package registers the "wgpu" backend with gpucore. Build
// with the nogpu tag to leave it out; the package then only carries the
// state hashing used by the cache.
//
//	dev, err := gpucore.Open("wgpu")
//
// A host application that already owns a device can share it:
//
//	dev, err := wgpu.NewFromProvider(provider)
package wgpu
