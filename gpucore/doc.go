// Package gpucore defines the GPU contract the shaded engine renders through.
//
// The engine never talks to a graphics API directly. Everything it needs is
// expressed by the [Device] interface: create and destroy shader stages,
// buffers and render targets, then bind state and issue draws in the order the
// frame renderer dictates. Binds are immediate: a later bind overrides an
// earlier one, and state persists until something else replaces it.
//
//	             +-------------------+
//	             |  render / pipecache |
//	             +---------+---------+
//	                       |
//	                 gpucore.Device
//	                       |
//	        +--------------+--------------+
//	        |                             |
//	+-------v--------+           +--------v-------+
//	| backend/wgpu   |           | backend/recorder|
//	| (gogpu/wgpu)   |           | (command log)  |
//	+----------------+           +----------------+
//
// # Backends
//
// Backends register a factory under a name, following the database/sql
// driver pattern:
//
//	import _ "github.com/gogpu/shaded/backend/recorder"
//
//	dev, err := gpucore.Open("recorder")
//
// # Resource lifecycle
//
//   - Resources are created via Create* methods and identified by opaque IDs
//   - Resources must be released via the matching Destroy* method
//   - IDs are never reused by a backend after destruction
//   - [InvalidID] is never returned for a successfully created resource
package gpucore
