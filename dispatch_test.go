package wasmregvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/regir"
	"github.com/wasmregvm/core/store"
)

// TestEngine_CallIndirect exercises OpCallIndirect's dispatch path: a
// table holding one function reference, resolved by a dynamic index
// and checked against the instance's declared type section.
func TestEngine_CallIndirect(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(2)

	calleeBody := []regir.WasmOp{
		{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 42},
		{Kind: regir.WasmReturn},
	}
	calleeHandle := e.DefineFunc(i64Def("callee", 0, 1), nil, calleeBody, codeMap, 0)

	callerBody := []regir.WasmOp{
		{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 0},
		{Kind: regir.WasmCallIndirect, TypeIndex: 0, TableIndex: 0, CallResults: []regir.ValueKind{regir.KindI64}},
		{Kind: regir.WasmReturn},
	}
	callerHandle := e.DefineFunc(i64Def("caller", 0, 1), nil, callerBody, codeMap, 1)

	tableHandle, ok := e.AllocTable(1, nil)
	require.True(t, ok)
	table := e.Store.Table(tableHandle)
	require.True(t, table.Set(0, uint64(calleeHandle.Index())+1))

	types := []store.FuncType{{Results: []api.ValueType{api.ValueTypeI64}}}
	_, ok = e.NewInstance("test", []store.FuncHandle{calleeHandle, callerHandle},
		nil, []store.TableHandle{tableHandle}, nil, nil, nil, types)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), callerHandle, nil)
	require.NoError(t, err)
	require.Nil(t, paused)
	require.Equal(t, []uint64{42}, results)
}

// TestEngine_CallIndirect_BadSignatureTraps checks that a table
// element whose signature disagrees with the call site's declared
// type index traps rather than silently running.
func TestEngine_CallIndirect_BadSignatureTraps(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(2)

	// callee actually takes one i64 param, but the call site below
	// declares (via Types[0]) a signature with none.
	calleeBody := []regir.WasmOp{
		{Kind: regir.WasmLocalGet, Index: 0},
		{Kind: regir.WasmReturn},
	}
	calleeHandle := e.DefineFunc(i64Def("callee", 1, 1), nil, calleeBody, codeMap, 0)

	callerBody := []regir.WasmOp{
		{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 0},
		{Kind: regir.WasmCallIndirect, TypeIndex: 0, TableIndex: 0, CallResults: []regir.ValueKind{regir.KindI64}},
		{Kind: regir.WasmReturn},
	}
	callerHandle := e.DefineFunc(i64Def("caller", 0, 1), nil, callerBody, codeMap, 1)

	tableHandle, ok := e.AllocTable(1, nil)
	require.True(t, ok)
	table := e.Store.Table(tableHandle)
	require.True(t, table.Set(0, uint64(calleeHandle.Index())+1))

	types := []store.FuncType{{Results: []api.ValueType{api.ValueTypeI64}}}
	_, ok = e.NewInstance("test", []store.FuncHandle{calleeHandle, callerHandle},
		nil, []store.TableHandle{tableHandle}, nil, nil, nil, types)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), callerHandle, nil)
	require.Nil(t, results)
	require.Nil(t, paused)
	var trapErr *api.TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, api.TrapBadSignature, trapErr.Code)
}

// TestEngine_TailCallInternal exercises OpReturnCallInternal's
// in-place frame reuse: caller(n) tail-calls double(n) instead of
// returning from its own frame.
func TestEngine_TailCallInternal(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(2)

	doubleBody := []regir.WasmOp{
		{Kind: regir.WasmLocalGet, Index: 0},
		{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 2},
		{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinMul},
		{Kind: regir.WasmReturn},
	}
	doubleHandle := e.DefineFunc(i64Def("double", 1, 1), nil, doubleBody, codeMap, 0)

	callerBody := []regir.WasmOp{
		{Kind: regir.WasmLocalGet, Index: 0},
		{Kind: regir.WasmCall, Index: 0, TailCall: true,
			CallParams: []regir.ValueKind{regir.KindI64}, CallResults: []regir.ValueKind{regir.KindI64}},
		{Kind: regir.WasmEnd},
	}
	callerHandle := e.DefineFunc(i64Def("caller", 1, 1), nil, callerBody, codeMap, 1)

	_, ok := e.NewInstance("test", []store.FuncHandle{doubleHandle, callerHandle}, nil, nil, nil, nil, nil, nil)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), callerHandle, []uint64{21})
	require.NoError(t, err)
	require.Nil(t, paused)
	require.Equal(t, []uint64{42}, results)
}

// TestEngine_TailCallImported exercises OpReturnCallImported: a tail
// call straight into a host function.
func TestEngine_TailCallImported(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(1)

	hostHandle := e.DefineHostFunc(i64Def("double", 1, 1), func(_ context.Context, params []uint64) ([]uint64, error) {
		return []uint64{params[0] * 2}, nil
	})

	callerBody := []regir.WasmOp{
		{Kind: regir.WasmLocalGet, Index: 0},
		{Kind: regir.WasmCall, Index: 0, TailCall: true, CallImported: true,
			CallParams: []regir.ValueKind{regir.KindI64}, CallResults: []regir.ValueKind{regir.KindI64}},
		{Kind: regir.WasmEnd},
	}
	callerHandle := e.DefineFunc(i64Def("caller", 1, 1), nil, callerBody, codeMap, 0)

	_, ok := e.NewInstance("test", []store.FuncHandle{hostHandle, callerHandle}, nil, nil, nil, nil, nil, nil)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), callerHandle, []uint64{21})
	require.NoError(t, err)
	require.Nil(t, paused)
	require.Equal(t, []uint64{42}, results)
}

// TestEngine_TailCallIndirect exercises OpReturnCallIndirect: the
// table-resolution and tail-reuse paths combined.
func TestEngine_TailCallIndirect(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(2)

	calleeBody := []regir.WasmOp{
		{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 99},
		{Kind: regir.WasmReturn},
	}
	calleeHandle := e.DefineFunc(i64Def("callee", 0, 1), nil, calleeBody, codeMap, 0)

	callerBody := []regir.WasmOp{
		{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 0},
		{Kind: regir.WasmCallIndirect, TailCall: true, TypeIndex: 0, TableIndex: 0,
			CallResults: []regir.ValueKind{regir.KindI64}},
		{Kind: regir.WasmEnd},
	}
	callerHandle := e.DefineFunc(i64Def("caller", 0, 1), nil, callerBody, codeMap, 1)

	tableHandle, ok := e.AllocTable(1, nil)
	require.True(t, ok)
	table := e.Store.Table(tableHandle)
	require.True(t, table.Set(0, uint64(calleeHandle.Index())+1))

	types := []store.FuncType{{Results: []api.ValueType{api.ValueTypeI64}}}
	_, ok = e.NewInstance("test", []store.FuncHandle{calleeHandle, callerHandle},
		nil, []store.TableHandle{tableHandle}, nil, nil, nil, types)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), callerHandle, nil)
	require.NoError(t, err)
	require.Nil(t, paused)
	require.Equal(t, []uint64{99}, results)
}
