package store

// MemoryPageSizeInBits is the Wasm-defined page size exponent; a page
// is 64KiB.
const MemoryPageSizeInBits = 16

// MemoryPageSize is one linear-memory page in bytes.
const MemoryPageSize = uint32(1) << MemoryPageSizeInBits

// MemoryMaxPages is the Wasm 1.0 hard ceiling on a memory's page
// count (2^16 pages = 4GiB of address space).
const MemoryMaxPages = uint32(1) << 16

// MemoryPagesToBytesNum converts a page count to its byte length.
func MemoryPagesToBytesNum(pages uint32) uint64 {
	return uint64(pages) << MemoryPageSizeInBits
}

// MemoryInstance is one store-owned linear memory. Buffer's length is
// always an exact multiple of MemoryPageSize; the executor's mem0
// cache holds a pointer to the current frame's memory-0
// MemoryInstance, so a Grow that reallocates Buffer needs no refresh.
type MemoryInstance struct {
	Min    uint32
	Max    *uint32
	Buffer []byte
}

// NewMemoryInstance allocates a MemoryInstance with min pages already
// committed.
func NewMemoryInstance(min uint32, max *uint32) *MemoryInstance {
	return &MemoryInstance{Min: min, Max: max, Buffer: make([]byte, MemoryPagesToBytesNum(min))}
}

// PageSize returns the current page count.
func (m *MemoryInstance) PageSize() uint32 {
	return uint32(uint64(len(m.Buffer)) >> MemoryPageSizeInBits)
}

// max returns the effective maximum page count, defaulting to the
// Wasm-wide ceiling when the memory declares none.
func (m *MemoryInstance) max() uint32 {
	if m.Max != nil {
		return *m.Max
	}
	return MemoryMaxPages
}

// Grow attempts to add delta pages, consulting limiter first.
// It returns the previous page count on success, or ^uint32(0) (i.e.
// -1 reinterpreted, matching the Wasm memory.grow result convention)
// without mutating Buffer on failure — growth never traps.
func (m *MemoryInstance) Grow(delta uint32, limiter ResourceLimiter) uint32 {
	cur := m.PageSize()
	if delta == 0 {
		return cur
	}
	desired := cur + delta
	if desired < cur || desired > m.max() {
		return ^uint32(0)
	}
	if limiter != nil && !limiter.CanGrowMemory(cur, desired) {
		return ^uint32(0)
	}
	m.Buffer = append(m.Buffer, make([]byte, MemoryPagesToBytesNum(delta))...)
	return cur
}

// ReadByte reads one byte at offset, reporting false if out of bounds.
func (m *MemoryInstance) ReadByte(offset uint32) (byte, bool) {
	if offset >= uint32(len(m.Buffer)) {
		return 0, false
	}
	return m.Buffer[offset], true
}

// ReadUint32Le reads a little-endian uint32 at offset.
func (m *MemoryInstance) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.hasSize(offset, 4) {
		return 0, false
	}
	b := m.Buffer[offset : offset+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}

// ReadUint64Le reads a little-endian uint64 at offset.
func (m *MemoryInstance) ReadUint64Le(offset uint32) (uint64, bool) {
	if !m.hasSize(offset, 8) {
		return 0, false
	}
	lo, _ := m.ReadUint32Le(offset)
	hi, _ := m.ReadUint32Le(offset + 4)
	return uint64(lo) | uint64(hi)<<32, true
}

// WriteUint32Le writes a little-endian uint32 at offset.
func (m *MemoryInstance) WriteUint32Le(offset uint32, v uint32) bool {
	if !m.hasSize(offset, 4) {
		return false
	}
	b := m.Buffer[offset : offset+4]
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	return true
}

// WriteUint64Le writes a little-endian uint64 at offset.
func (m *MemoryInstance) WriteUint64Le(offset uint32, v uint64) bool {
	if !m.hasSize(offset, 8) {
		return false
	}
	m.WriteUint32Le(offset, uint32(v))
	m.WriteUint32Le(offset+4, uint32(v>>32))
	return true
}

func (m *MemoryInstance) hasSize(offset uint32, size uint32) bool {
	end := uint64(offset) + uint64(size)
	return end <= uint64(len(m.Buffer))
}
