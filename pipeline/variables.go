package pipeline

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/sysvar"
)

// ConstantBufferSlots is the number of constant buffer slots per stage.
const ConstantBufferSlots = 14

// VariableType is the shader type of a constant buffer variable.
type VariableType uint8

// Variable types.
const (
	TypeFloat VariableType = iota
	TypeFloat2
	TypeFloat3
	TypeFloat4
	TypeFloat4x4
	TypeInt
)

var variableTypes = [...]struct {
	name string
	size int
}{
	TypeFloat:    {"float", 4},
	TypeFloat2:   {"float2", 8},
	TypeFloat3:   {"float3", 12},
	TypeFloat4:   {"float4", 16},
	TypeFloat4x4: {"float4x4", 64},
	TypeInt:      {"int", 4},
}

// Size returns the byte size of the type.
func (t VariableType) Size() int {
	if int(t) < len(variableTypes) {
		return variableTypes[t].size
	}
	return 0
}

// String returns the type name.
func (t VariableType) String() string {
	if int(t) < len(variableTypes) {
		return variableTypes[t].name
	}
	return fmt.Sprintf("VariableType(%d)", t)
}

// ParseVariableType converts a type name back to a VariableType.
func ParseVariableType(name string) (VariableType, error) {
	for i, vt := range variableTypes {
		if vt.name == name {
			return VariableType(i), nil //nolint:gosec // G115: bounded by table size
		}
	}
	return 0, fmt.Errorf("pipeline: unknown variable type %q", name)
}

// Variable is one value in a constant buffer.
type Variable struct {
	Name string
	Type VariableType

	// System binds the variable to a system value. SemanticNone uses Value.
	System sysvar.Semantic

	// Value holds the user value as floats; TypeInt values are truncated.
	Value []float32
}

func (v *Variable) bytes(vars *sysvar.Registry) []byte {
	size := v.Type.Size()
	out := make([]byte, size)
	if v.System != sysvar.SemanticNone {
		if vars != nil {
			copy(out, vars.Bytes(v.System))
		}
		return out
	}
	for i, f := range v.Value {
		off := i * 4
		if off+4 > size {
			break
		}
		bits := math.Float32bits(f)
		if v.Type == TypeInt {
			bits = uint32(int32(f))
		}
		binary.LittleEndian.PutUint32(out[off:], bits)
	}
	return out
}

// ConstantBuffer is an ordered set of variables uploaded as one uniform
// buffer.
type ConstantBuffer struct {
	Variables []*Variable

	buffer gpucore.BufferID
	size   int
}

// Pack lays the variables out with 16-byte register packing: a variable
// never straddles a 16-byte boundary and matrices start on one. The result
// is padded to a multiple of 16 bytes.
func (cb *ConstantBuffer) Pack(vars *sysvar.Registry) []byte {
	var out []byte
	for _, v := range cb.Variables {
		size := v.Type.Size()
		if rem := len(out) % 16; rem != 0 && (rem+size > 16 || size >= 16) {
			out = append(out, make([]byte, 16-rem)...)
		}
		out = append(out, v.bytes(vars)...)
	}
	if rem := len(out) % 16; rem != 0 || len(out) == 0 {
		out = append(out, make([]byte, 16-rem)...)
	}
	return out
}

// Update packs the variables and writes them to the GPU buffer, creating
// or resizing the buffer when needed.
func (cb *ConstantBuffer) Update(dev gpucore.Device, vars *sysvar.Registry) error {
	data := cb.Pack(vars)
	if cb.buffer != gpucore.InvalidID && cb.size != len(data) {
		cb.Release(dev)
	}
	if cb.buffer == gpucore.InvalidID {
		id, err := dev.CreateBuffer(len(data), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst, "cbuffer")
		if err != nil {
			return fmt.Errorf("pipeline: create constant buffer: %w", err)
		}
		cb.buffer = id
		cb.size = len(data)
	}
	dev.WriteBuffer(cb.buffer, 0, data)
	return nil
}

// Bind binds the buffer to a stage slot. It does nothing before the first
// Update.
func (cb *ConstantBuffer) Bind(dev gpucore.Device, stage gpucore.Stage, slot int) {
	if cb.buffer == gpucore.InvalidID {
		return
	}
	dev.BindConstantBuffer(stage, slot, cb.buffer)
}

// Release frees the GPU buffer.
func (cb *ConstantBuffer) Release(dev gpucore.Device) {
	if cb.buffer != gpucore.InvalidID {
		dev.DestroyBuffer(cb.buffer)
	}
	cb.buffer = gpucore.InvalidID
	cb.size = 0
}

// VariableSlots holds the constant buffers of one shader stage.
type VariableSlots struct {
	slots [ConstantBufferSlots]*ConstantBuffer
}

// IsSlotUsed reports whether slot holds a constant buffer.
func (vs *VariableSlots) IsSlotUsed(slot int) bool {
	return slot >= 0 && slot < ConstantBufferSlots && vs.slots[slot] != nil
}

// Slot returns the constant buffer at slot, or nil.
func (vs *VariableSlots) Slot(slot int) *ConstantBuffer {
	if slot < 0 || slot >= ConstantBufferSlots {
		return nil
	}
	return vs.slots[slot]
}

// SetSlot places cb at slot; nil empties the slot.
func (vs *VariableSlots) SetSlot(slot int, cb *ConstantBuffer) error {
	if slot < 0 || slot >= ConstantBufferSlots {
		return fmt.Errorf("pipeline: constant buffer slot %d out of range [0,%d)", slot, ConstantBufferSlots)
	}
	vs.slots[slot] = cb
	return nil
}

// UpdateBuffers uploads every occupied slot.
func (vs *VariableSlots) UpdateBuffers(dev gpucore.Device, vars *sysvar.Registry) error {
	for _, cb := range vs.slots {
		if cb == nil {
			continue
		}
		if err := cb.Update(dev, vars); err != nil {
			return err
		}
	}
	return nil
}

// Allocate uploads the occupied slots that have no GPU buffer yet or whose
// packed size changed since the last upload. Once it returns, the updates
// between draws of the frame write the bound buffers in place.
func (vs *VariableSlots) Allocate(dev gpucore.Device, vars *sysvar.Registry) error {
	for _, cb := range vs.slots {
		if cb == nil || (cb.buffer != gpucore.InvalidID && cb.size == len(cb.Pack(vars))) {
			continue
		}
		if err := cb.Update(dev, vars); err != nil {
			return err
		}
	}
	return nil
}

// Bind binds every occupied slot for stage.
func (vs *VariableSlots) Bind(dev gpucore.Device, stage gpucore.Stage) {
	for slot, cb := range vs.slots {
		if cb != nil {
			cb.Bind(dev, stage, slot)
		}
	}
}

// Release frees the GPU buffers of every occupied slot.
func (vs *VariableSlots) Release(dev gpucore.Device) {
	for _, cb := range vs.slots {
		if cb != nil {
			cb.Release(dev)
		}
	}
}
