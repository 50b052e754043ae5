// Package api includes constants and interfaces shared by the
// translator, the executor, and the store. Only the subset of the
// teacher's public api package relevant to this core is kept here:
// the binary's wasm binary parser/validator and module-instantiation
// layer (which would define api.Module, api.Function, api.Memory as
// host-facing interfaces) are external collaborators per this
// project's scope, so those interfaces are not reproduced — only the
// value-type vocabulary and host-function signature metadata that the
// executor and the call-hook subsystem actually consume.
package api

import (
	"fmt"
	"math"
	"reflect"
)

// ExternType classifies imports and exports with their respective types.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#external-types%E2%91%A0
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// The below are exported to consolidate parsing behavior for external types.
const (
	ExternTypeFuncName   = "func"
	ExternTypeTableName  = "table"
	ExternTypeMemoryName = "memory"
	ExternTypeGlobalName = "global"
)

// ExternTypeName returns the name of the WebAssembly 1.0 (20191205) Text Format field of the given type.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return ExternTypeFuncName
	case ExternTypeTable:
		return ExternTypeTableName
	case ExternTypeMemory:
		return ExternTypeMemoryName
	case ExternTypeGlobal:
		return ExternTypeGlobalName
	}
	return fmt.Sprintf("%#x", et)
}

// ValueType describes a numeric type used in Web Assembly 1.0 (20191205).
//
// The following describes how to convert between Wasm and Golang types:
//
//   - ValueTypeI32 - uint64(uint32,int32)
//   - ValueTypeI64 - uint64(int64)
//   - ValueTypeF32 - EncodeF32 DecodeF32 from float32
//   - ValueTypeF64 - EncodeF64 DecodeF64 from float64
//   - ValueTypeExternref - uintptr(unsafe.Pointer(p)) where p is any pointer type in Go
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit floating point number.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit floating point number.
	ValueTypeF64 ValueType = 0x7c
	// ValueTypeExternref is an opaque external reference.
	ValueTypeExternref ValueType = 0x6f
	// ValueTypeFuncref is an opaque reference to a function.
	ValueTypeFuncref ValueType = 0x70
)

// ValueTypeName returns the type name of the given ValueType as a string.
//
// Note: This returns "unknown", if an undefined ValueType value is passed.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeExternref:
		return "externref"
	case ValueTypeFuncref:
		return "funcref"
	}
	return "unknown"
}

// FunctionDefinition is the signature metadata of one Wasm-exported or
// host function, independent of any particular instance. The executor
// consults it when type-checking CallIndirect targets and the
// call-hook subsystem passes it to CallHook.Before/After.
type FunctionDefinition struct {
	// ModuleName is the possibly empty name of the module defining this function.
	ModuleName string
	// Name is the module-defined name of the function.
	Name string
	// Index is the position in the module's function index namespace, imports first.
	Index uint32
	// ParamTypes are the possibly empty sequence of value types accepted by this function.
	ParamTypes []ValueType
	// ResultTypes are the result types of this function.
	ResultTypes []ValueType
	// GoFunc is set when the function is implemented by the embedder instead
	// of compiled Wasm bytecode rather than by translated Wasm bytecode.
	GoFunc *reflect.Value
}

// DebugName identifies this function for traps and stack traces.
func (f *FunctionDefinition) DebugName() string {
	if f.Name != "" {
		return f.ModuleName + "." + f.Name
	}
	return fmt.Sprintf("function[%d]", f.Index)
}

// EncodeExternref encodes the input as a ValueTypeExternref.
func EncodeExternref(input uintptr) uint64 { return uint64(input) }

// DecodeExternref decodes the input as a ValueTypeExternref.
func DecodeExternref(input uint64) uintptr { return uintptr(input) }

// EncodeI32 encodes the input as a ValueTypeI32.
func EncodeI32(input int32) uint64 { return uint64(uint32(input)) }

// EncodeI64 encodes the input as a ValueTypeI64.
func EncodeI64(input int64) uint64 { return uint64(input) }

// EncodeF32 encodes the input as a ValueTypeF32.
func EncodeF32(input float32) uint64 { return uint64(math.Float32bits(input)) }

// DecodeF32 decodes the input as a ValueTypeF32.
func DecodeF32(input uint64) float32 { return math.Float32frombits(uint32(input)) }

// EncodeF64 encodes the input as a ValueTypeF64.
func EncodeF64(input float64) uint64 { return math.Float64bits(input) }

// DecodeF64 decodes the input as a ValueTypeF64.
func DecodeF64(input uint64) float64 { return math.Float64frombits(input) }
