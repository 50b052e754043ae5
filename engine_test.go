package wasmregvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/regir"
	"github.com/wasmregvm/core/store"
)

func i64Def(name string, params, results int) api.FunctionDefinition {
	p := make([]api.ValueType, params)
	r := make([]api.ValueType, results)
	for i := range p {
		p[i] = api.ValueTypeI64
	}
	for i := range r {
		r[i] = api.ValueTypeI64
	}
	return api.FunctionDefinition{Name: name, ParamTypes: p, ResultTypes: r}
}

// TestEngine_AddTwoLocals builds a function `(i64,i64)->i64` computing
// `a+b` directly from register-IR WasmOp, the same shape a validator
// would hand the translator, and runs it end to end through Invoke.
func TestEngine_AddTwoLocals(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(1)

	body := []regir.WasmOp{
		{Kind: regir.WasmLocalGet, Index: 0},
		{Kind: regir.WasmLocalGet, Index: 1},
		{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinAdd},
		{Kind: regir.WasmReturn},
	}

	def := i64Def("add", 2, 1)
	fh := e.DefineFunc(def, nil, body, codeMap, 0)

	_, ok := e.NewInstance("test", []store.FuncHandle{fh}, nil, nil, nil, nil, nil, nil)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), fh, []uint64{3, 4})
	require.NoError(t, err)
	require.Nil(t, paused)
	require.Equal(t, []uint64{7}, results)
}

// TestEngine_HostCallBounce runs a function that calls a host-provided
// decrement once, exercising OpCallImported and the synchronous host
// call path, single iteration.
func TestEngine_HostCallBounce(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(1)

	var hookCalls int
	hostDef := i64Def("decrement", 1, 1)
	hostHandle := e.DefineHostFunc(hostDef, func(_ context.Context, params []uint64) ([]uint64, error) {
		hookCalls++
		return []uint64{params[0] - 1}, nil
	})

	body := []regir.WasmOp{
		{Kind: regir.WasmLocalGet, Index: 0},
		{Kind: regir.WasmCall, Index: 0, CallImported: true,
			CallParams: []regir.ValueKind{regir.KindI64}, CallResults: []regir.ValueKind{regir.KindI64}},
		{Kind: regir.WasmReturn},
	}
	callerDef := i64Def("caller", 1, 1)
	callerHandle := e.DefineFunc(callerDef, nil, body, codeMap, 0)

	_, ok := e.NewInstance("test", []store.FuncHandle{hostHandle, callerHandle}, nil, nil, nil, nil, nil, nil)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), callerHandle, []uint64{10})
	require.NoError(t, err)
	require.Nil(t, paused)
	require.Equal(t, []uint64{9}, results)
	require.Equal(t, 1, hookCalls)
}

// TestEngine_UnreachableTraps exercises the fatal-trap path end to end.
func TestEngine_UnreachableTraps(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(1)

	body := []regir.WasmOp{{Kind: regir.WasmUnreachable}}
	def := api.FunctionDefinition{Name: "boom"}
	fh := e.DefineFunc(def, nil, body, codeMap, 0)

	_, ok := e.NewInstance("test", []store.FuncHandle{fh}, nil, nil, nil, nil, nil, nil)
	require.True(t, ok)

	results, paused, err := e.Invoke(context.Background(), fh, nil)
	require.Nil(t, results)
	require.Nil(t, paused)
	require.Error(t, err)

	var trapErr *api.TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, api.TrapUnreachableCodeReached, trapErr.Code)
}

// TestEngine_FuelExhaustionSuspendsAndResumes exercises the
// suspend/resume boundary directly, without a host call: fuel runs
// out mid-function, the embedder replenishes it, and Resume finishes
// the same invocation.
func TestEngine_FuelExhaustionSuspendsAndResumes(t *testing.T) {
	e := NewEngine()
	codeMap := e.NewCodeMap(1)

	body := []regir.WasmOp{
		{Kind: regir.WasmLocalGet, Index: 0},
		{Kind: regir.WasmLocalGet, Index: 1},
		{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinAdd},
		{Kind: regir.WasmReturn},
	}
	def := i64Def("add", 2, 1)
	fh := e.DefineFunc(def, nil, body, codeMap, 0)
	_, ok := e.NewInstance("test", []store.FuncHandle{fh}, nil, nil, nil, nil, nil, nil)
	require.True(t, ok)

	// 4 units pay for compiling the 4-op body (Compile costs 1 per op),
	// leaving only enough fuel for the first dispatched instruction.
	e.EnableFuel(store.DefaultFuelCosts, 5)

	results, paused, err := e.Invoke(context.Background(), fh, []uint64{3, 4})
	require.Nil(t, results)
	require.Error(t, err)
	var trapErr *api.TrapError
	require.ErrorAs(t, err, &trapErr)
	require.True(t, trapErr.Code.Resumable())
	require.NotNil(t, paused)
	require.Equal(t, api.TrapOutOfFuel, paused.Code())

	e.SetFuelRemaining(100)
	results, paused, err = e.Resume(context.Background(), paused, nil)
	require.NoError(t, err)
	require.Nil(t, paused)
	require.Equal(t, []uint64{7}, results)
}

// TestEngine_SeedScenarios runs the six literal-I/O end-to-end programs
// used as this core's baseline correctness fixture, each a minimal
// hand-built register-IR body standing in for what a real decoder
// would hand the translator.
func TestEngine_SeedScenarios(t *testing.T) {
	// 1. Recursive factorial: fac(n) = n<=1 ? 1 : n*fac(n-1).
	// fac(25) wraps around 64-bit multiplication to 7034535277573963776.
	t.Run("RecursiveFactorial", func(t *testing.T) {
		e := NewEngine()
		codeMap := e.NewCodeMap(1)

		body := []regir.WasmOp{
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 1},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinLeS},
			{Kind: regir.WasmIf, Signature: regir.BlockSignature{Results: []api.ValueType{api.ValueTypeI64}}},
			{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 1},
			{Kind: regir.WasmElse},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 1},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinSub},
			{Kind: regir.WasmCall, Index: 0,
				CallParams: []regir.ValueKind{regir.KindI64}, CallResults: []regir.ValueKind{regir.KindI64}},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinMul},
			{Kind: regir.WasmEnd},
			{Kind: regir.WasmReturn},
		}
		fh := e.DefineFunc(i64Def("fac", 1, 1), nil, body, codeMap, 0)
		_, ok := e.NewInstance("test", []store.FuncHandle{fh}, nil, nil, nil, nil, nil, nil)
		require.True(t, ok)

		results, paused, err := e.Invoke(context.Background(), fh, []uint64{25})
		require.NoError(t, err)
		require.Nil(t, paused)
		require.Equal(t, []uint64{7034535277573963776}, results)
	})

	// 2. Iterative count-up: a loop incrementing an i32 local from 0 to
	// 100000, returning the counter.
	t.Run("IterativeCountUp", func(t *testing.T) {
		e := NewEngine()
		codeMap := e.NewCodeMap(1)

		body := []regir.WasmOp{
			{Kind: regir.WasmLoop},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 1},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinAdd},
			{Kind: regir.WasmLocalSet, Index: 0},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 100000},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinLtS},
			{Kind: regir.WasmBrIf, RelativeDepth: 0},
			{Kind: regir.WasmEnd},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmReturn},
		}
		def := api.FunctionDefinition{Name: "countUp", ResultTypes: []api.ValueType{api.ValueTypeI32}}
		fh := e.DefineFunc(def, []api.ValueType{api.ValueTypeI32}, body, codeMap, 0)
		_, ok := e.NewInstance("test", []store.FuncHandle{fh}, nil, nil, nil, nil, nil, nil)
		require.True(t, ok)

		results, paused, err := e.Invoke(context.Background(), fh, nil)
		require.NoError(t, err)
		require.Nil(t, paused)
		require.Equal(t, []uint64{100000}, results)
	})

	// 3. Deep recursion with trap: a function that recurses 1000 times
	// before hitting `unreachable`.
	t.Run("DeepRecursionTrap", func(t *testing.T) {
		e := NewEngine()
		codeMap := e.NewCodeMap(1)

		body := []regir.WasmOp{
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 1000},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinGeS},
			{Kind: regir.WasmIf},
			{Kind: regir.WasmUnreachable},
			{Kind: regir.WasmElse},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 1},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinAdd},
			{Kind: regir.WasmCall, Index: 0,
				CallParams: []regir.ValueKind{regir.KindI64}, CallResults: []regir.ValueKind{regir.KindI64}},
			{Kind: regir.WasmReturn},
			{Kind: regir.WasmEnd},
		}
		fh := e.DefineFunc(i64Def("deep", 1, 1), nil, body, codeMap, 0)
		_, ok := e.NewInstance("test", []store.FuncHandle{fh}, nil, nil, nil, nil, nil, nil)
		require.True(t, ok)

		results, paused, err := e.Invoke(context.Background(), fh, []uint64{0})
		require.Nil(t, results)
		require.Nil(t, paused)
		require.Error(t, err)
		var trapErr *api.TrapError
		require.ErrorAs(t, err, &trapErr)
		require.Equal(t, api.TrapUnreachableCodeReached, trapErr.Code)
	})

	// 4. Host-call bounce, 1000 iterations: a Wasm loop decrementing its
	// argument via a host function each pass, counted by a hook.
	t.Run("HostCallBounce1000", func(t *testing.T) {
		e := NewEngine()
		codeMap := e.NewCodeMap(1)

		var hookCalls int
		hostHandle := e.DefineHostFunc(i64Def("decrement", 1, 1),
			func(_ context.Context, params []uint64) ([]uint64, error) {
				hookCalls++
				return []uint64{params[0] - 1}, nil
			})

		body := []regir.WasmOp{
			{Kind: regir.WasmLoop},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmCall, Index: 0, CallImported: true,
				CallParams: []regir.ValueKind{regir.KindI64}, CallResults: []regir.ValueKind{regir.KindI64}},
			{Kind: regir.WasmLocalSet, Index: 0},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI64, ConstBits: 0},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinGtS},
			{Kind: regir.WasmBrIf, RelativeDepth: 0},
			{Kind: regir.WasmEnd},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmReturn},
		}
		callerHandle := e.DefineFunc(i64Def("caller", 1, 1), nil, body, codeMap, 0)
		_, ok := e.NewInstance("test", []store.FuncHandle{hostHandle, callerHandle}, nil, nil, nil, nil, nil, nil)
		require.True(t, ok)

		results, paused, err := e.Invoke(context.Background(), callerHandle, []uint64{1000})
		require.NoError(t, err)
		require.Nil(t, paused)
		require.Equal(t, []uint64{0}, results)
		require.Equal(t, 1000, hookCalls)
	})

	// 5. Memory sum: mem[i] = i mod 256 for i in [0, 100000), summed as
	// i64. sum_{i=0}^{99999} (i mod 256) = 12742320.
	t.Run("MemorySum", func(t *testing.T) {
		e := NewEngine()
		codeMap := e.NewCodeMap(1)

		memHandle, ok := e.AllocMemory(2, nil) // 100000 bytes needs 2 pages
		require.True(t, ok)
		mem := e.Store.Memory(memHandle)
		for i := 0; i < 100000; i++ {
			mem.Buffer[i] = byte(i % 256)
		}

		body := []regir.WasmOp{
			{Kind: regir.WasmLoop},
			{Kind: regir.WasmLocalGet, Index: 1},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmLoad, OpKind: regir.KindI64, Width: 8, Signed: false},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinAdd},
			{Kind: regir.WasmLocalSet, Index: 1},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 1},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinAdd},
			{Kind: regir.WasmLocalSet, Index: 0},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 100000},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinLtS},
			{Kind: regir.WasmBrIf, RelativeDepth: 0},
			{Kind: regir.WasmEnd},
			{Kind: regir.WasmLocalGet, Index: 1},
			{Kind: regir.WasmReturn},
		}
		def := api.FunctionDefinition{Name: "memSum", ResultTypes: []api.ValueType{api.ValueTypeI64}}
		fh := e.DefineFunc(def, []api.ValueType{api.ValueTypeI32, api.ValueTypeI64}, body, codeMap, 0)
		_, ok = e.NewInstance("test", []store.FuncHandle{fh}, []store.MemoryHandle{memHandle}, nil, nil, nil, nil, nil)
		require.True(t, ok)

		results, paused, err := e.Invoke(context.Background(), fh, nil)
		require.NoError(t, err)
		require.Nil(t, paused)
		require.Equal(t, []uint64{12742320}, results)
	})

	// 6. Vector add: two i32 input arrays of 100000 elements, pairwise
	// added with a 64-bit accumulator into an i64 output buffer.
	t.Run("VectorAdd", func(t *testing.T) {
		const n = 100000
		const aOff, bOff, outOff = 0, n * 4, n*4*2

		e := NewEngine()
		codeMap := e.NewCodeMap(1)

		memPages := uint32((outOff+n*8)/int(store.MemoryPageSize)) + 1
		memHandle, ok := e.AllocMemory(memPages, nil)
		require.True(t, ok)
		mem := e.Store.Memory(memHandle)
		for i := 0; i < n; i++ {
			mem.WriteUint32Le(uint32(aOff+i*4), uint32(i))
			mem.WriteUint32Le(uint32(bOff+i*4), uint32(i*2))
		}

		body := []regir.WasmOp{
			{Kind: regir.WasmLoop},
			// addr_out = i*8 (Store's Offset immediate adds outOff)
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 8},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinMul},
			// a_i, sign-extended into i64 (Load's Offset immediate adds aOff)
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 4},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinMul},
			{Kind: regir.WasmLoad, OpKind: regir.KindI64, Width: 32, Signed: true, Offset: aOff},
			// b_i, sign-extended into i64 (Load's Offset immediate adds bOff)
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 4},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinMul},
			{Kind: regir.WasmLoad, OpKind: regir.KindI64, Width: 32, Signed: true, Offset: bOff},
			{Kind: regir.WasmBinary, OpKind: regir.KindI64, Bin: regir.BinAdd},
			{Kind: regir.WasmStore, OpKind: regir.KindI64, Width: 64, Offset: outOff},
			// i += 1; loop while i < n
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: 1},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinAdd},
			{Kind: regir.WasmLocalSet, Index: 0},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmConst, ConstKind: regir.KindI32, ConstBits: n},
			{Kind: regir.WasmBinary, OpKind: regir.KindI32, Bin: regir.BinLtS},
			{Kind: regir.WasmBrIf, RelativeDepth: 0},
			{Kind: regir.WasmEnd},
			{Kind: regir.WasmLocalGet, Index: 0},
			{Kind: regir.WasmReturn},
		}
		def := api.FunctionDefinition{Name: "vectorAdd", ResultTypes: []api.ValueType{api.ValueTypeI32}}
		fh := e.DefineFunc(def, []api.ValueType{api.ValueTypeI32}, body, codeMap, 0)
		_, ok = e.NewInstance("test", []store.FuncHandle{fh}, []store.MemoryHandle{memHandle}, nil, nil, nil, nil, nil)
		require.True(t, ok)

		results, paused, err := e.Invoke(context.Background(), fh, nil)
		require.NoError(t, err)
		require.Nil(t, paused)
		require.Equal(t, []uint64{n}, results)

		for i := 0; i < n; i++ {
			got, ok := mem.ReadUint64Le(uint32(outOff + i*8))
			require.True(t, ok)
			want := uint64(int64(i) + int64(i*2))
			require.Equal(t, want, got, "element %d", i)
		}
	})
}
