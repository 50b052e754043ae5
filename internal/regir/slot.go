// Package regir implements the register-based intermediate
// representation produced by the translator and consumed by the
// interpreter: Slot/SlotSpan addressing, the per-function constant
// pool, the opcode set, and the stack-to-register translation pass
// itself.
package regir

import "fmt"

// Slot is a 16-bit signed index into a function's runtime slot window.
//
// A non-negative Slot addresses a live cell at that offset from the
// current frame's base. A negative Slot addresses an entry of the
// owning function's ConstantPool: Slot -1 is pool index 0, Slot -2 is
// pool index 1, and so on. This lets every operand field in an
// Instruction carry either a register or an immediate without
// widening the encoding (see compiler.go's immediate-operand
// selection pass).
type Slot int16

// NoSlot is the zero value used where an operand field is unused by a
// given opcode.
const NoSlot Slot = 0

// IsConst reports whether s addresses the constant pool rather than a
// live frame slot.
func (s Slot) IsConst() bool { return s < 0 }

// ConstIndex returns the constant-pool index s addresses. Only valid
// when IsConst() is true.
func (s Slot) ConstIndex() int { return int(-s) - 1 }

// FromConstIndex encodes a constant-pool index i as the Slot that
// addresses it.
func FromConstIndex(i int) Slot { return Slot(-(i + 1)) }

// Next returns the next live slot after s. Only meaningful for
// non-negative slots.
func (s Slot) Next() Slot { return s + 1 }

func (s Slot) String() string {
	if s.IsConst() {
		return fmt.Sprintf("const[%d]", s.ConstIndex())
	}
	return fmt.Sprintf("s%d", int16(s))
}

// MaxSlot is the largest live slot index representable: slot indices
// share their 16-bit signed field with constant-pool references, so a
// frame may address at most MaxSlot+1 live cells.
const MaxSlot = Slot(1<<15 - 1)

// MaxConstIndex is the largest constant-pool index representable in a
// single Slot field.
const MaxConstIndex = 1<<15 - 1

// SlotSpan is a contiguous range of live slots [Head, Head+Len).
// Spans are used wherever an instruction's operand or result is a
// consecutive run of registers: call parameters, multi-value returns,
// branch-table parameter transfers.
type SlotSpan struct {
	Head Slot
	Len  uint16
}

// NewSlotSpan constructs a span. It panics if head is a constant-pool
// reference, since spans only ever address live frame slots.
func NewSlotSpan(head Slot, length uint16) SlotSpan {
	if head.IsConst() {
		panic("regir: span head cannot be a constant-pool reference")
	}
	return SlotSpan{Head: head, Len: length}
}

// End returns the exclusive upper bound of the span.
func (s SlotSpan) End() Slot { return s.Head + Slot(s.Len) }

// IsEmpty reports whether the span has zero length.
func (s SlotSpan) IsEmpty() bool { return s.Len == 0 }

// At returns the i-th slot of the span, in insertion order.
func (s SlotSpan) At(i int) Slot { return s.Head + Slot(i) }

// Iter calls fn for every slot in the span, in insertion order.
func (s SlotSpan) Iter(fn func(Slot)) {
	for i := uint16(0); i < s.Len; i++ {
		fn(s.Head + Slot(i))
	}
}

// Slots materializes the span as a slice. Prefer Iter in hot paths;
// Slots exists for tests and debug formatting.
func (s SlotSpan) Slots() []Slot {
	out := make([]Slot, s.Len)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

func (s SlotSpan) String() string {
	return fmt.Sprintf("[%d,+%d)", s.Head, s.Len)
}
