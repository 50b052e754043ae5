package store

import (
	"context"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/regir"
)

// HostFunc is an embedder-provided callback backing an imported
// function. It runs synchronously on the
// executor's goroutine and may itself call back into the store.
type HostFunc struct {
	Def  api.FunctionDefinition
	Func func(ctx context.Context, params []uint64) (results []uint64, err error)
}

// FuncInstance is one store-owned function: either a translated Wasm
// function living in a CodeMap, or a HostFunc. Exactly one of Code*
// and Host is set.
type FuncInstance struct {
	Def api.FunctionDefinition

	// CodeMap/LocalIndex locate this function's CompiledFunc for the
	// internal case; nil/0 for a host function.
	CodeMap    *regir.CodeMap
	LocalIndex uint32

	// Locals/Body are the already-validated declared-local types and
	// operator sequence the embedder produced by parsing the Wasm
	// binary: exactly
	// the input regir.Translate expects. Unused for a host function.
	Locals []api.ValueType
	Body   []regir.WasmOp

	Host *HostFunc

	// Owner is the module instance this function closes over: its
	// Memories/Tables/Globals/Funcs/Data/Elems namespace resolves the
	// instance-local indices OpGlobalGet, OpCallInternal, OpMemoryInit
	// and similar instructions carry. Every translated function belongs
	// to exactly one instance (Wasm's function-instance/module-instance
	// relationship); a host function leaves this unset.
	Owner InstanceHandle
}

// IsHost reports whether this function is embedder-provided.
func (f *FuncInstance) IsHost() bool { return f.Host != nil }

// Translate lowers this function's body into its CompiledFunc slot,
// the CodeMap.Get callback driving the lazy Uncompiled->Compiled
// transition the first time a call reaches it.
func (f *FuncInstance) Translate(target *regir.CompiledFunc) error {
	return regir.Translate(f.LocalIndex, f.Def.ParamTypes, f.Def.ResultTypes, f.Locals, f.Body, target)
}

// FuncType is the signature CallIndirect checks a resolved table
// element's FuncInstance.Def against, comparing it to the expected
// signature and trapping with BadSignature on mismatch. It is
// supplied by the embedder at instantiation time; binary decoding of
// a type section is out of this core's scope, but the check it feeds
// is not.
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

func (t FuncType) equalSignature(params, results []api.ValueType) bool {
	return valueTypesEqual(t.Params, params) && valueTypesEqual(t.Results, results)
}

func valueTypesEqual(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Instance is one instantiated module's view into the store: which
// arena slots its own memories/tables/globals/functions/segments
// occupy. Module linking and import resolution (matching one
// instance's imports to another's exports) are out of this core's
// scope; Instance only holds the already-resolved
// handle lists an embedder's linker would have produced.
type Instance struct {
	handle

	Name string

	Funcs    []FuncHandle
	Memories []MemoryHandle
	Tables   []TableHandle
	Globals  []GlobalHandle
	Data     []DataSegmentHandle
	Elems    []ElemSegmentHandle

	// Types indexes CallIndirect's Instruction.Imm32b (a type index);
	// populated from the embedder's (out of scope) type section.
	Types []FuncType

	// Memory0 caches Memories[0] (if any) as the store index the
	// executor's mem0_ptr/mem0_len cache refreshes from,
	// avoiding a slice lookup on every memory instruction.
	hasMemory0 bool
	memory0    MemoryHandle
}

// CheckSignature reports whether the function resolved for a
// CallIndirect matches the instruction's declared type index.
func (inst *Instance) CheckSignature(typeIndex uint32, fn *FuncInstance) bool {
	if int(typeIndex) >= len(inst.Types) {
		return false
	}
	return inst.Types[typeIndex].equalSignature(fn.Def.ParamTypes, fn.Def.ResultTypes)
}

// NewInstance builds an Instance from its already-resolved handle
// lists, caching Memories[0] as Memory0 if present.
func NewInstance(name string, funcs []FuncHandle, memories []MemoryHandle, tables []TableHandle,
	globals []GlobalHandle, data []DataSegmentHandle, elems []ElemSegmentHandle, types []FuncType) *Instance {
	inst := &Instance{
		Name: name, Funcs: funcs, Memories: memories, Tables: tables,
		Globals: globals, Data: data, Elems: elems, Types: types,
	}
	if len(memories) > 0 {
		inst.hasMemory0 = true
		inst.memory0 = memories[0]
	}
	return inst
}

// Memory0 returns this instance's memory 0 handle, if it has one.
func (inst *Instance) Memory0() (MemoryHandle, bool) {
	return inst.memory0, inst.hasMemory0
}
