package interpreter

import (
	"context"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/regir"
	"github.com/wasmregvm/core/store"
)

// compiled fetches fn's translated form, triggering lazy translation
// on first access and charging st's fuel meter for it, proportional
// to the body's op count. A malformed body is this core's contract
// violation, not a Wasm runtime trap, so a translation failure panics
// rather than threading a second error return through every dispatch
// case; running out of fuel mid-compile panics the same way, since
// translation is atomic and there is no partial-compile state to
// resume into.
func compiled(st *store.Store, fn *store.FuncInstance) *regir.CompiledFunc {
	cost := st.Fuel.Costs.Compile * uint64(len(fn.Body))
	code, err := fn.CodeMap.Get(fn.LocalIndex, st.Fuel, cost, fn.Translate)
	if err != nil {
		panic(err)
	}
	return code
}

// enterInternal pushes a new frame for a translated callee, aliasing
// its parameters directly onto the caller's already-materialized
// argument span: calleeBase = callerBase + argSpan.Head, so the
// callee's params are the same physical cells the caller just wrote,
// with no copy at call entry. Returning out of the new frame copies results back
// into resultSpan, which is also relative to the CALLER's base,
// computed before the push.
func (vs *vmState) enterInternal(f *frame, fn *store.FuncInstance, argSpan, resultSpan regir.SlotSpan) {
	code := compiled(vs.st, fn)
	calleeBase := f.base + int(argSpan.Head)
	resultBase := f.base + int(resultSpan.Head)
	vs.pushFrame(calleeBase, int(code.SlotCount), code, fn, vs.instanceOf(fn, f), resultBase)
}

// tailEnterInternal replaces the current frame in place rather than
// pushing a new one: a tail call never grows the call stack. The
// callee's arguments are copied down to the frame's own base, so a
// chain of tail calls keeps reusing the same slot window. The
// frame keeps its own resultBase (still relative to whatever called
// *it*) since the tail callee's result is this frame's result.
func (vs *vmState) tailEnterInternal(f *frame, fn *store.FuncInstance, argSpan regir.SlotSpan) {
	code := compiled(vs.st, fn)
	args := vs.readSpan(f, argSpan)
	need := f.base + int(code.SlotCount)
	if need > len(vs.slots) {
		grown := make([]uint64, need)
		copy(grown, vs.slots)
		vs.slots = grown
	}
	copy(vs.slots[f.base:], args)
	f.code = code
	f.fn = fn
	f.instance = vs.instanceOf(fn, f)
	f.ip = 0
	if f.instance != nil {
		if m0, ok := f.instance.Memory0(); ok {
			vs.mem0 = vs.st.Memory(m0)
		} else {
			vs.mem0 = nil
		}
	}
}

// instanceOf resolves fn's owning instance: almost always the same
// instance as the caller's (a function only ever calls within its own
// module by local index), but resolved from fn.Owner rather than
// assumed from f.instance so a function reached through a foreign
// table (CallIndirect across instances) still closes over its own
// Memories/Tables/Globals/Data/Elems namespace, not the caller's.
func (vs *vmState) instanceOf(fn *store.FuncInstance, f *frame) *store.Instance {
	if fn.Owner == (store.InstanceHandle{}) {
		return f.instance
	}
	return vs.st.Instance(fn.Owner)
}

// doReturn pops the current frame, depositing vals into the caller's
// reserved result span, or recording them as the invocation's final
// results if the popped frame was the outermost one.
func (vs *vmState) doReturn(vals []uint64) {
	f := vs.curFrame()
	resultBase := f.resultBase
	vs.popFrame()
	if len(vs.frames) == 0 {
		vs.finalResults = vals
		return
	}
	for i, v := range vals {
		vs.slots[resultBase+i] = v
	}
}

// callHostSync invokes a host function inline on the dispatch loop's
// own goroutine, the common/fast path ('s "host trap"
// wording describes the failure path only; a synchronously successful
// host call never suspends, see DESIGN.md). It fires the
// EnterHostFromWasm/ReturnHostToWasm CallHook pair; a veto from
// EnterHostFromWasm (the only one of the pair that can return an
// error) is a fatal TrapCallHookVetoed, never a resumable suspension.
func (vs *vmState) callHostSync(ctx context.Context, f *frame, host *store.HostFunc, argSpan, resultSpan regir.SlotSpan) context.Context {
	params := vs.readSpan(f, argSpan)
	ctx, err := vs.st.Hook.EnterHostFromWasm(ctx, host.Def, params)
	if err != nil {
		vs.trapWithCause(api.TrapCallHookVetoed, err)
	}
	results, callErr := host.Func(ctx, params)
	ctx = vs.st.Hook.ReturnHostToWasm(ctx, host.Def, results, callErr)
	if callErr != nil {
		vs.suspendHostTrap(resultSpan, callErr)
	}
	vs.writeSpan(f, resultSpan, results)
	return ctx
}

// tailCallHost is ReturnCallImported's host path: the callee's result
// IS the current frame's result, so a synchronous success propagates
// straight into doReturn instead of a local resultSpan. A callback
// error suspends with pendingTailReturn set so Resume knows to finish
// the propagation with the embedder-supplied results rather than
// resuming mid-frame.
func (vs *vmState) tailCallHost(ctx context.Context, f *frame, host *store.HostFunc, argSpan regir.SlotSpan) {
	params := vs.readSpan(f, argSpan)
	ctx, err := vs.st.Hook.EnterHostFromWasm(ctx, host.Def, params)
	if err != nil {
		vs.trapWithCause(api.TrapCallHookVetoed, err)
	}
	results, callErr := host.Func(ctx, params)
	vs.st.Hook.ReturnHostToWasm(ctx, host.Def, results, callErr)
	if callErr != nil {
		vs.pendingTailReturn = true
		vs.suspendHostTrap(regir.SlotSpan{}, callErr)
	}
	vs.doReturn(results)
}

// resolveIndirect looks up CallIndirect's table slot and validates its
// signature, trapping on every failure mode names for
// this instruction.
func (vs *vmState) resolveIndirect(f *frame, tableIndex, typeIndex uint32, elemIndex uint64) *store.FuncInstance {
	if int(tableIndex) >= len(f.instance.Tables) {
		vs.trap(api.TrapTableOutOfBounds)
	}
	table := vs.st.Table(f.instance.Tables[tableIndex])
	raw, ok := table.Get(uint32(elemIndex))
	if !ok {
		vs.trap(api.TrapTableOutOfBounds)
	}
	if raw == store.TableElementNull {
		vs.trap(api.TrapIndirectCallToNull)
	}
	fn := vs.st.FuncAt(uint32(raw - 1))
	if !f.instance.CheckSignature(typeIndex, fn) {
		vs.trap(api.TrapBadSignature)
	}
	return fn
}
