package interpreter

import (
	"github.com/wasmregvm/core/store"
)

// memoryAt resolves a memory index against the current frame's
// instance, using the cached mem0 for the (overwhelmingly common)
// index-0 case rather than a slice+handle round trip.
func (vs *vmState) memoryAt(f *frame, idx uint32) *store.MemoryInstance {
	if idx == 0 && vs.mem0 != nil {
		return vs.mem0
	}
	return vs.st.Memory(f.instance.Memories[idx])
}

func (vs *vmState) tableAt(f *frame, idx uint32) *store.TableInstance {
	return vs.st.Table(f.instance.Tables[idx])
}

// funcAt resolves an instance-local function index (OpCallInternal/
// OpCallImported's Imm32) to its FuncInstance.
func (vs *vmState) funcAt(f *frame, idx uint32) *store.FuncInstance {
	return vs.st.Func(f.instance.Funcs[idx])
}

// effectiveAddr combines a dynamic base address operand with a load
// or store's static Offset immediate, trapping on the 32-bit overflow
// the Wasm spec treats as an out-of-bounds access rather than wrapping.
func effectiveAddr(base uint64, offset int32) (uint64, bool) {
	addr := uint64(uint32(base)) + uint64(uint32(offset))
	if addr > 0xFFFFFFFF {
		return 0, false
	}
	return addr, true
}

func (vs *vmState) execLoad(f *frame, widthBits uint32, signed bool, addrSlotBits uint64, offset int32, memIndex uint32) (uint64, bool) {
	addr, ok := effectiveAddr(addrSlotBits, offset)
	if !ok {
		return 0, false
	}
	mem := vs.memoryAt(f, memIndex)
	switch widthBits {
	case 8:
		b, ok := mem.ReadByte(uint32(addr))
		if !ok {
			return 0, false
		}
		if signed {
			return uint64(int64(int8(b))), true
		}
		return uint64(b), true
	case 16:
		lo, ok := mem.ReadByte(uint32(addr))
		if !ok {
			return 0, false
		}
		hi, ok := mem.ReadByte(uint32(addr) + 1)
		if !ok {
			return 0, false
		}
		v := uint16(lo) | uint16(hi)<<8
		if signed {
			return uint64(int64(int16(v))), true
		}
		return uint64(v), true
	case 32:
		v, ok := mem.ReadUint32Le(uint32(addr))
		if !ok {
			return 0, false
		}
		if signed {
			return uint64(int64(int32(v))), true
		}
		return uint64(v), true
	default: // 64
		v, ok := mem.ReadUint64Le(uint32(addr))
		return v, ok
	}
}

func (vs *vmState) execStore(f *frame, widthBits uint32, addr uint64, offset int32, memIndex uint32, val uint64) bool {
	a, ok := effectiveAddr(addr, offset)
	if !ok {
		return false
	}
	mem := vs.memoryAt(f, memIndex)
	switch widthBits {
	case 8:
		if uint32(a) >= uint32(len(mem.Buffer)) {
			return false
		}
		mem.Buffer[uint32(a)] = byte(val)
		return true
	case 16:
		if uint64(a)+2 > uint64(len(mem.Buffer)) {
			return false
		}
		mem.Buffer[a] = byte(val)
		mem.Buffer[a+1] = byte(val >> 8)
		return true
	case 32:
		return mem.WriteUint32Le(uint32(a), uint32(val))
	default:
		return mem.WriteUint64Le(uint32(a), val)
	}
}

// memoryCopy/Fill/Init share the overlap-safe/bounds-checked shape
// describes for the bulk-memory family: the full range is
// validated before any byte moves, so a failing copy never partially
// applies.
func memoryCopy(dst *store.MemoryInstance, src *store.MemoryInstance, dstOff, srcOff, n uint32) bool {
	if uint64(dstOff)+uint64(n) > uint64(len(dst.Buffer)) || uint64(srcOff)+uint64(n) > uint64(len(src.Buffer)) {
		return false
	}
	if n == 0 {
		return true
	}
	copy(dst.Buffer[dstOff:dstOff+n], src.Buffer[srcOff:srcOff+n])
	return true
}

func memoryFill(mem *store.MemoryInstance, off uint32, val byte, n uint32) bool {
	if uint64(off)+uint64(n) > uint64(len(mem.Buffer)) {
		return false
	}
	target := mem.Buffer[off : off+n]
	for i := range target {
		target[i] = val
	}
	return true
}

func memoryInit(mem *store.MemoryInstance, data []byte, dstOff, srcOff, n uint32) bool {
	if uint64(dstOff)+uint64(n) > uint64(len(mem.Buffer)) || uint64(srcOff)+uint64(n) > uint64(len(data)) {
		return false
	}
	if n == 0 {
		return true
	}
	copy(mem.Buffer[dstOff:dstOff+n], data[srcOff:srcOff+n])
	return true
}

func tableCopy(dst, src *store.TableInstance, dstOff, srcOff, n uint32) bool {
	if uint64(dstOff)+uint64(n) > uint64(len(dst.Elements)) || uint64(srcOff)+uint64(n) > uint64(len(src.Elements)) {
		return false
	}
	if n == 0 {
		return true
	}
	copy(dst.Elements[dstOff:dstOff+n], src.Elements[srcOff:srcOff+n])
	return true
}

func tableFill(t *store.TableInstance, off uint32, val uint64, n uint32) bool {
	if uint64(off)+uint64(n) > uint64(len(t.Elements)) {
		return false
	}
	target := t.Elements[off : off+n]
	for i := range target {
		target[i] = val
	}
	return true
}

func tableInit(t *store.TableInstance, elems []uint64, dstOff, srcOff, n uint32) bool {
	if uint64(dstOff)+uint64(n) > uint64(len(t.Elements)) || uint64(srcOff)+uint64(n) > uint64(len(elems)) {
		return false
	}
	if n == 0 {
		return true
	}
	copy(t.Elements[dstOff:dstOff+n], elems[srcOff:srcOff+n])
	return true
}
