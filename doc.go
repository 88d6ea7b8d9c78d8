// Package shaded is the runtime of a live shader authoring tool: it keeps a
// user-edited pipeline of shader passes compiled on the GPU and renders it
// into an offscreen target every frame.
//
// # Overview
//
// A pipeline is an ordered list of shader passes held by a
// [pipeline.Store]. Each pass names a vertex and a pixel shader, its vertex
// input layout and constant buffers, and a nested list of geometry draws and
// state changes. The [Engine] mirrors that list in a pipeline cache: passes
// that appear are compiled, passes that disappear release their stages, and
// passes that move keep their compiled stages. Nothing still present is
// recompiled.
//
// # Quick Start
//
//	proj, _ := project.Open("myproject")
//	manifest, _ := proj.LoadManifest(project.DefaultManifest)
//	store, _ := manifest.Build()
//
//	eng, err := shaded.Open("recorder", store, proj)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	for frame := 0; frame < 60; frame++ {
//	    if err := eng.Render(1280, 720); err != nil {
//	        log.Print(err)
//	    }
//	}
//	img, _ := eng.Capture()
//
// # Shader edits
//
// When a shader file is saved, call [Engine.Recompile] with the pass name on
// the render goroutine. The watch package turns file system events into pass
// names for exactly that purpose. Compile failures never fail a frame; they
// are listed by [Engine.Diagnostics] under the pass name until a later
// compile of that pass succeeds.
//
// # Backends
//
// Devices are opened by name from the gpucore registry. Import a backend for
// its side effect:
//
//	import _ "github.com/gogpu/shaded/backend/wgpu"     // Vulkan via gogpu/wgpu
//	import _ "github.com/gogpu/shaded/backend/recorder" // headless command log
//
// # Logging
//
// shaded is silent by default. [SetLogger] enables structured logging for
// the engine and its sub-packages.
//
// # Concurrency
//
// An Engine is driven from one goroutine. Only the watcher produces events
// on its own goroutine; all cache and GPU work stays on the caller's.
package shaded
