// Package sysvar holds the system variables constant buffers can bind to.
//
// A [Registry] is created by the frame driver and passed to the renderer;
// it is written once per frame (viewport, time, frame index, camera) and
// once per draw (geometry transform), then read when constant buffers are
// packed for upload.
package sysvar
