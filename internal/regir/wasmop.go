package regir

import "github.com/wasmregvm/core/api"

// WasmOpKind enumerates the shapes of operator the translator accepts
// from its upstream collaborator. Wasm binary parsing and validation
// are out of this core's scope: a validator is assumed to hand the
// translator an already-type-checked stream. This package defines
// that handoff contract as a typed slice of WasmOp rather than
// re-deriving the raw byte-level Wasm opcode encoding, since
// re-deriving that encoding would mean reimplementing the excluded
// decoder.
type WasmOpKind uint8

const (
	WasmUnreachable WasmOpKind = iota
	WasmNop
	WasmBlock
	WasmLoop
	WasmIf
	WasmElse
	WasmEnd
	WasmBr
	WasmBrIf
	WasmBrTable
	WasmReturn
	WasmCall
	WasmCallIndirect
	WasmDrop
	WasmSelect
	WasmTypedSelect
	WasmLocalGet
	WasmLocalSet
	WasmLocalTee
	WasmGlobalGet
	WasmGlobalSet
	WasmConst
	WasmBinary
	WasmUnary
	WasmLoad
	WasmStore
	WasmMemorySize
	WasmMemoryGrow
	WasmMemoryCopy
	WasmMemoryFill
	WasmMemoryInit
	WasmDataDrop
	WasmTableGet
	WasmTableSet
	WasmTableSize
	WasmTableGrow
	WasmTableCopy
	WasmTableFill
	WasmTableInit
	WasmElemDrop
	WasmRefFunc
	WasmRefNull
	WasmRefIsNull
)

// BlockKind distinguishes the three structured-control-flow forms.
type BlockKind uint8

const (
	BlockBlock BlockKind = iota
	BlockLoop
	BlockIf
)

// BlockSignature is a block/loop/if's parameter and result types, as
// the validator would have resolved them (inline or via a module
// type index — already flattened to the concrete type lists here).
type BlockSignature struct {
	Params  []api.ValueType
	Results []api.ValueType
}

// WasmOp is one validated Wasm operator as handed to the translator.
type WasmOp struct {
	Kind WasmOpKind

	// Structured control flow.
	Block      BlockKind
	Signature  BlockSignature
	// RelativeDepth is the label depth br/br_if/br_table targets.
	RelativeDepth uint32
	// TableDepths holds br_table's per-case label depths; TableDefault
	// is its default-case depth.
	TableDepths  []uint32
	TableDefault uint32

	// Constant / local / global immediates.
	ConstKind ValueKind
	ConstBits uint64
	Index     uint32 // local/global index, reused for Call's func index

	// Call. CallParams/CallResults are the callee's signature as the
	// validator already resolved it (from the module's type section,
	// out of this core's scope); the translator
	// needs the arity to size its operand-stack traffic but never
	// resolves a type index itself.
	TypeIndex   uint32
	TableIndex  uint32
	CallParams  []ValueKind
	CallResults []ValueKind
	// TailCall marks a Call/CallIndirect immediately followed by
	// return as a tail call,
	// as the validator recognizes the return_call/return_call_indirect
	// encoding.
	TailCall bool
	// CallImported distinguishes a call to a host-provided function
	// from a call to
	// another Wasm function compiled into the same CodeMap.
	CallImported bool

	// Binary/unary op immediates (shared vocabulary with the IR, see
	// operations.go).
	OpKind ValueKind
	Bin    BinOp
	Un     UnOp

	// Memory/table access.
	MemIndex  uint32
	Offset    uint32
	Width     uint8 // 8, 16, 32, or 64
	Signed    bool
	DataIndex uint32
	ElemIndex uint32
	SrcTable  uint32
	DstTable  uint32

	// Select with explicit result type (post-reference-types typed select).
	SelectType api.ValueType
}
