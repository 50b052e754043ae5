package regir

import "github.com/wasmregvm/core/api"

// ValueKind is the runtime type an Instruction's operands/result are
// interpreted as. It mirrors api.ValueType but stays a distinct,
// zero-based type so it can index dispatch tables directly.
type ValueKind uint8

const (
	KindI32 ValueKind = iota
	KindI64
	KindF32
	KindF64
)

func (k ValueKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	}
	return "?"
}

// KindFromValueType converts the validator's api.ValueType into the
// ValueKind the IR operates on.
func KindFromValueType(t api.ValueType) ValueKind {
	switch t {
	case api.ValueTypeI32:
		return KindI32
	case api.ValueTypeI64:
		return KindI64
	case api.ValueTypeF32:
		return KindF32
	case api.ValueTypeF64:
		return KindF64
	default:
		return KindI64 // externref/funcref travel as opaque 64-bit cells
	}
}

// Op is the opcode tag of one Instruction. Rather than emitting one
// opcode constant per (type x operand-mode) combination — hundreds of
// opcodes including suffix variants — this implementation factors the
// "which type" and "which operand is an immediate" axes out of the
// opcode tag entirely:
//
//   - operand-mode is already resolved transparently by Slot's sign
//     bit (see slot.go): every operand field is a Slot whether it is
//     a register or an immediate, so the executor never needs a
//     different opcode to read one versus the other.
//   - the numeric type is carried as a ValueKind field on the
//     Instruction rather than baked into the Op tag, and
//     signed/unsigned is carried by the BinOp/UnOp/CmpOp sub-enum.
//
// This keeps the opcode category list small while every named family
// below still has a direct, dispatchable opcode. See DESIGN.md for
// the rationale recorded against open questions.
type Op uint16

const (
	OpTrap Op = iota

	// Control.
	OpReturn
	OpReturnValue
	OpReturnSpan
	OpBranch
	OpBranchIfEqz
	OpBranchIfNez
	OpBranchCmp
	OpBranchTable

	// Data movement.
	OpCopy
	OpCopySpan
	OpGlobalGet
	OpGlobalSet

	// Call.
	OpCallInternal
	OpCallImported
	OpCallIndirect
	OpReturnCallInternal
	OpReturnCallImported
	OpReturnCallIndirect

	// Arithmetic / comparison / conversion.
	OpBinary
	OpUnary
	OpSelect
	OpSelectCmp

	// Memory.
	OpLoad
	OpStore
	OpMemorySize
	OpMemoryGrow
	OpMemoryCopy
	OpMemoryFill
	OpMemoryInit
	OpDataDrop

	// Table.
	OpTableGet
	OpTableSet
	OpTableSize
	OpTableGrow
	OpTableCopy
	OpTableFill
	OpTableInit
	OpElemDrop

	// Misc.
	OpConsumeFuel
	OpRefFunc
	OpRefNull
	OpRefIsNull
	OpI64Add128
	OpI64Sub128
	OpI64MulWide
	OpU64MulWide
)

// BinOp is the sub-operation of an OpBinary instruction.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDivS
	BinDivU
	BinRemS
	BinRemU
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShrS
	BinShrU
	BinRotl
	BinRotr
	BinEq
	BinNe
	BinLtS
	BinLtU
	BinLeS
	BinLeU
	BinGtS
	BinGtU
	BinGeS
	BinGeU
	BinMin
	BinMax
	BinCopysign
	BinDiv // plain float division
)

// UnOp is the sub-operation of an OpUnary instruction.
type UnOp uint8

const (
	UnClz UnOp = iota
	UnCtz
	UnPopcnt
	UnEqz
	UnNeg
	UnAbs
	UnSqrt
	UnCeil
	UnFloor
	UnTrunc
	UnNearest
	UnWrapI64ToI32
	UnExtendI32ToI64S
	UnExtendI32ToI64U
	UnExtend8S
	UnExtend16S
	UnExtend32S
	UnTruncF32ToI32S
	UnTruncF32ToI32U
	UnTruncF32ToI64S
	UnTruncF32ToI64U
	UnTruncF64ToI32S
	UnTruncF64ToI32U
	UnTruncF64ToI64S
	UnTruncF64ToI64U
	UnTruncSatF32ToI32S
	UnTruncSatF32ToI32U
	UnTruncSatF32ToI64S
	UnTruncSatF32ToI64U
	UnTruncSatF64ToI32S
	UnTruncSatF64ToI32U
	UnTruncSatF64ToI64S
	UnTruncSatF64ToI64U
	UnConvertI32ToF32S
	UnConvertI32ToF32U
	UnConvertI32ToF64S
	UnConvertI32ToF64U
	UnConvertI64ToF32S
	UnConvertI64ToF32U
	UnConvertI64ToF64S
	UnConvertI64ToF64U
	UnDemoteF64ToF32
	UnPromoteF32ToF64
	UnReinterpretF32AsI32
	UnReinterpretI32AsF32
	UnReinterpretF64AsI64
	UnReinterpretI64AsF64
)

// CmpOp mirrors the comparison half of BinOp but is used standalone by
// OpBranchCmp / OpSelectCmp so those instructions don't need the full
// arithmetic BinOp surface.
type CmpOp = BinOp

// BranchTarget describes one entry of a BranchTable's jump table: a
// relative opcode offset and the copy-list moving branch parameters
// into the target's expected slots.
type BranchTarget struct {
	Offset    int32
	CopyFrom  SlotSpan
	CopyTo    SlotSpan
}

// Instruction is one register-IR opcode. Not every field is
// meaningful for every Op; see the per-category handler in the
// executor for which fields a given Op reads.
type Instruction struct {
	Op Op

	Kind ValueKind
	Bin  BinOp
	Un   UnOp

	Result Slot
	X1     Slot
	X2     Slot

	ResultSpan SlotSpan
	Span1      SlotSpan
	Span2      SlotSpan

	// Offset is a relative opcode-index branch displacement for
	// control-flow ops, or a byte offset for memory ops.
	Offset int32

	// Imm32 carries small auxiliary data: memory/table/global/func
	// index, BranchTable target-table index, load/store width, fuel
	// cost, and so on, depending on Op.
	Imm32 uint32
	// Imm32b carries a second auxiliary index (e.g. CallIndirect's
	// table index alongside its type index).
	Imm32b uint32

	// Signed/Asc are small per-Op boolean flags (load/store
	// sign-extension, CopySpan direction).
	Signed bool
	Asc    bool

	// AssignToX1 marks an OpBinary/OpUnary instruction whose Result
	// slot has been relinked to
	// alias X1. Handlers must read X1 before writing Result when this
	// is set, even though Result == X1 structurally makes this
	// automatic for a single read-then-write — the flag exists so
	// tests can assert the relinking pass fired.
	AssignToX1 bool
}
