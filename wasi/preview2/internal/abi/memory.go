package abi

import (
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/plugin-reactor/errors"
)

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// Allocator allocates memory in WASM linear memory
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
}

// WrapMemory wraps a wazero api.Memory to implement Memory.
func WrapMemory(mem api.Memory) Memory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// WrapAllocator wraps a wazero api.Function to implement Allocator.
func WrapAllocator(ctx context.Context, fn api.Function) Allocator {
	if fn == nil {
		return nil
	}
	return &AllocatorWrapper{Ctx: ctx, Fn: fn}
}

// Guest returns the memory and cabi_realloc of the calling module.
func Guest(ctx context.Context, mod api.Module) (Memory, Allocator) {
	return WrapMemory(mod.Memory()), WrapAllocator(ctx, mod.ExportedFunction("cabi_realloc"))
}

// Wrapper adapts wazero api.Memory to the Memory interface.
type Wrapper struct {
	Mem api.Memory
}

func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, outOfBounds(offset, length)
	}
	return data, nil
}

func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return outOfBounds(offset, uint32(len(data)))
	}
	return nil
}

func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return outOfBounds(offset, 1)
	}
	return nil
}

func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return outOfBounds(offset, 4)
	}
	return nil
}

func (m *Wrapper) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return outOfBounds(offset, 8)
	}
	return nil
}

// AllocatorWrapper adapts wazero api.Function (cabi_realloc) to Allocator.
type AllocatorWrapper struct {
	Ctx context.Context
	Fn  api.Function
}

// Alloc allocates memory using cabi_realloc.
func (a *AllocatorWrapper) Alloc(size, align uint32) (uint32, error) {
	results, err := a.Fn.Call(a.Ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseHost, errors.KindInternal, err, "cabi_realloc")
	}
	if len(results) == 0 {
		return 0, errors.New(errors.PhaseHost, errors.KindInternal).Detail("cabi_realloc returned no result").Build()
	}
	return uint32(results[0]), nil
}

func outOfBounds(offset, length uint32) error {
	return errors.New(errors.PhaseHost, errors.KindInvalidInput).
		Detail("memory access out of bounds: offset=%d, length=%d", offset, length).
		Build()
}

// ReadU32List reads n little-endian u32 values starting at ptr.
func ReadU32List(mem Memory, ptr, n uint32) ([]uint32, error) {
	size, ok := mulU32(n, 4)
	if !ok {
		return nil, outOfBounds(ptr, n)
	}
	data, err := mem.Read(ptr, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out, nil
}

// WriteU32List copies vals into guest memory and returns the list pointer.
func WriteU32List(mem Memory, alloc Allocator, vals []uint32) (uint32, error) {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return WriteBytes(mem, alloc, buf, 4)
}

// WriteBytes copies data into a fresh guest allocation.
func WriteBytes(mem Memory, alloc Allocator, data []byte, align uint32) (uint32, error) {
	if len(data) == 0 {
		return align, nil
	}
	if alloc == nil {
		return 0, errors.New(errors.PhaseHost, errors.KindInternal).Detail("guest exports no cabi_realloc").Build()
	}
	ptr, err := alloc.Alloc(uint32(len(data)), align)
	if err != nil {
		return 0, err
	}
	if err := mem.Write(ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

func mulU32(a, b uint32) (uint32, bool) {
	r := uint64(a) * uint64(b)
	return uint32(r), r <= 0xFFFFFFFF
}
