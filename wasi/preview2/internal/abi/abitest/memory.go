// Package abitest provides an in-process linear memory for exercising
// canonical ABI host functions without a guest module.
package abitest

import (
	"encoding/binary"
	"fmt"
)

// Memory is a fixed-size linear memory with a bump allocator.
type Memory struct {
	Data   []byte
	next   uint32
	Allocs int
}

// New returns a memory of size bytes. Allocations start at 1024 so low
// addresses stay free for hand-placed arguments.
func New(size int) *Memory {
	return &Memory{Data: make([]byte, size), next: 1024}
}

func (m *Memory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.Data)) {
		return fmt.Errorf("out of bounds: offset=%d, length=%d", offset, length)
	}
	return nil
}

func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.Data[offset : offset+length], nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.Data[offset:], data)
	return nil
}

func (m *Memory) WriteU8(offset uint32, v uint8) error {
	return m.Write(offset, []byte{v})
}

func (m *Memory) WriteU32(offset uint32, v uint32) error {
	return m.Write(offset, binary.LittleEndian.AppendUint32(nil, v))
}

func (m *Memory) WriteU64(offset uint32, v uint64) error {
	return m.Write(offset, binary.LittleEndian.AppendUint64(nil, v))
}

// Alloc hands out aligned space from the end of previous allocations.
func (m *Memory) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	ptr := (m.next + align - 1) &^ (align - 1)
	if err := m.check(ptr, size); err != nil {
		return 0, err
	}
	m.next = ptr + size
	m.Allocs++
	return ptr, nil
}

// U8 reads a byte.
func (m *Memory) U8(offset uint32) uint8 {
	return m.Data[offset]
}

// U32 reads a little-endian u32.
func (m *Memory) U32(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(m.Data[offset:])
}

// U64 reads a little-endian u64.
func (m *Memory) U64(offset uint32) uint64 {
	return binary.LittleEndian.Uint64(m.Data[offset:])
}

// PutU32s writes vals at offset.
func (m *Memory) PutU32s(offset uint32, vals ...uint32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(m.Data[offset+uint32(i)*4:], v)
	}
}

// U32s reads n little-endian u32 values from offset.
func (m *Memory) U32s(offset, n uint32) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = m.U32(offset + uint32(i)*4)
	}
	return out
}
