package wgpu

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
)

// maxSlots is the number of constant-buffer slots per stage.
const maxSlots = 8

// pipelineKey is the state baked into one render pipeline.
type pipelineKey struct {
	vs, ps   gpucore.ShaderID
	layout   string
	blend    gputypes.BlendState
	depth    gpucore.DepthStencilDesc
	raster   gpucore.RasterizerDesc
	topology gputypes.PrimitiveTopology
	format   gputypes.TextureFormat

	// vsSlots and psSlots are bitmasks of the bound constant-buffer slots;
	// they select the bind group layouts.
	vsSlots, psSlots uint32
}

// hash returns the FNV-1a hash of the key.
func (k *pipelineKey) hash() uint64 {
	h := fnv.New64a()
	writeU64(h, uint64(k.vs))
	writeU64(h, uint64(k.ps))
	_, _ = h.Write([]byte(k.layout))
	hashBlendComponent(h, k.blend.Color)
	hashBlendComponent(h, k.blend.Alpha)
	hashDepthStencil(h, &k.depth)
	writeU32(h, uint32(k.raster.CullMode))
	writeU32(h, uint32(k.raster.FrontFace))
	writeU32(h, uint32(k.topology))
	writeU32(h, uint32(k.format))
	writeU32(h, k.vsSlots)
	writeU32(h, k.psSlots)
	return h.Sum64()
}

func hashBlendComponent(h hash.Hash64, c gputypes.BlendComponent) {
	writeU32(h, uint32(c.SrcFactor))
	writeU32(h, uint32(c.DstFactor))
	writeU32(h, uint32(c.Operation))
}

func hashDepthStencil(h hash.Hash64, d *gpucore.DepthStencilDesc) {
	writeBool(h, d.DepthEnable)
	writeBool(h, d.DepthWrite)
	writeU32(h, uint32(d.DepthCompare))
	writeBool(h, d.StencilEnable)
	writeU32(h, d.StencilReadMask)
	writeU32(h, d.StencilWriteMask)
	for _, f := range [2]gpucore.StencilFace{d.Front, d.Back} {
		writeU32(h, uint32(f.Compare))
		writeU32(h, uint32(f.FailOp))
		writeU32(h, uint32(f.DepthFailOp))
		writeU32(h, uint32(f.PassOp))
	}
}

func writeU32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeU64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
		return
	}
	_, _ = h.Write([]byte{0})
}

// slotMask returns the bitmask of the non-invalid buffers in slots.
func slotMask(slots *[maxSlots]gpucore.BufferID) uint32 {
	var m uint32
	for i, id := range slots {
		if id != gpucore.InvalidID {
			m |= 1 << i
		}
	}
	return m
}

// keyedCache maps key hashes to values built on first use.
type keyedCache[V any] struct {
	entries map[uint64]keyedEntry[V]
	hits    uint64
	misses  uint64
}

type keyedEntry[V any] struct {
	key   pipelineKey
	value V
}

func newKeyedCache[V any]() *keyedCache[V] {
	return &keyedCache[V]{entries: make(map[uint64]keyedEntry[V])}
}

// getOrCreate returns the value for key, calling create on a miss.
func (c *keyedCache[V]) getOrCreate(key pipelineKey, create func() (V, error)) (V, error) {
	h := key.hash()
	if e, ok := c.entries[h]; ok && e.key == key {
		c.hits++
		return e.value, nil
	}
	v, err := create()
	if err != nil {
		return v, err
	}
	c.misses++
	c.entries[h] = keyedEntry[V]{key: key, value: v}
	return v, nil
}

// drop removes every entry whose key matches and passes its value to
// release.
func (c *keyedCache[V]) drop(match func(*pipelineKey) bool, release func(V)) int {
	n := 0
	for h, e := range c.entries {
		if match(&e.key) {
			release(e.value)
			delete(c.entries, h)
			n++
		}
	}
	return n
}

// clear releases every entry.
func (c *keyedCache[V]) clear(release func(V)) {
	c.drop(func(*pipelineKey) bool { return true }, release)
}

func (c *keyedCache[V]) len() int { return len(c.entries) }

// stats returns the hit and miss counts.
func (c *keyedCache[V]) stats() (hits, misses uint64) { return c.hits, c.misses }

// rowPitch returns the bytes per row of a w-pixel RGBA8 texture copy,
// aligned to the 256-byte copy pitch.
func rowPitch(w uint32) uint32 {
	const copyPitchAlignment = 256
	return (w*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// unpackRows copies w x h pixels from a pitched readback into dst, swapping
// red and blue when bgra is set.
func unpackRows(dst, src []byte, w, h, pitch uint32, bgra bool) {
	tight := w * 4
	for y := uint32(0); y < h; y++ {
		row := src[y*pitch : y*pitch+tight]
		out := dst[y*tight : (y+1)*tight]
		copy(out, row)
		if bgra {
			for i := 0; i < len(out); i += 4 {
				out[i], out[i+2] = out[i+2], out[i]
			}
		}
	}
}
