// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render draws one frame of a shader pipeline into an offscreen
// target.
//
// # Frame sequence
//
// [FrameRenderer.RenderFrame] runs the same sequence every frame:
//
//  1. Recreate the offscreen [Target] if the output size changed.
//  2. Publish the viewport size to the system variable registry.
//  3. Reconcile the pipeline cache with the current item list.
//  4. Bind the target, clear color and depth/stencil, set the viewport.
//  5. For every cached shader pass, in cache order: bind the input layout,
//     the occupied constant buffer slots of both stages and the compiled
//     stages, then the default state block, and execute the nested items.
//  6. Bind the primary target again.
//
// Nested geometry items update the geometry transform, upload the pass's
// constant buffers and draw. Blend and depth/stencil items change state for
// the draws that follow them in the same pass. The next pass starts from the
// default state block again.
//
// # State
//
// GPU state is left as the last pass set it. Callers must not assume the
// default state after RenderFrame returns.
//
// # Usage
//
//	fr := render.New(render.Config{
//	    Device: dev,
//	    Cache:  cache,
//	    Items:  store,
//	    Vars:   sysvar.New(),
//	})
//	if err := fr.RenderFrame(1280, 720); err != nil {
//	    log.Printf("frame failed: %v", err)
//	}
//	img, _ := fr.Capture()
package render
