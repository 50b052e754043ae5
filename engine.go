// Package wasmregvm is the embedder-facing facade over the register-IR
// core: a Store plus a CallEngine, wired together behind the minimal
// minimal host surface. Wasm binary parsing, validation,
// and module linking are out of scope; callers arrive
// here with already-validated function bodies and already-resolved
// import handles.
package wasmregvm

import (
	"context"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/engine/interpreter"
	"github.com/wasmregvm/core/internal/regir"
	"github.com/wasmregvm/core/store"
)

// Engine owns one Store and the CallEngine that drives it. It is the
// single object an embedder constructs; everything else (functions,
// memories, tables, instances) is registered against it.
type Engine struct {
	Store *store.Store
	calls *interpreter.CallEngine
}

// NewEngine allocates an empty Store (fuel disabled, unlimited
// resources, no call hook) and binds a CallEngine to it.
func NewEngine() *Engine {
	st := store.NewStore()
	return &Engine{Store: st, calls: interpreter.NewCallEngine(st)}
}

// DefineFunc registers a Wasm function's already-validated body for
// lazy translation: nothing is compiled until the first call reaches
// it. codeMap is the owning instance's CodeMap, shared across
// every function the instance defines; localIndex is this function's
// position within it.
func (e *Engine) DefineFunc(def api.FunctionDefinition, locals []api.ValueType, body []regir.WasmOp, codeMap *regir.CodeMap, localIndex uint32) store.FuncHandle {
	fn := &store.FuncInstance{
		Def:        def,
		CodeMap:    codeMap,
		LocalIndex: localIndex,
		Locals:     locals,
		Body:       body,
	}
	return e.Store.AllocFunc(fn)
}

// DefineHostFunc registers an embedder-provided callback as a Wasm
// function ("Register a host function with a typed signature and an
// opaque callback").
func (e *Engine) DefineHostFunc(def api.FunctionDefinition, fn func(ctx context.Context, params []uint64) ([]uint64, error)) store.FuncHandle {
	return e.Store.AllocFunc(&store.FuncInstance{
		Def:  def,
		Host: &store.HostFunc{Def: def, Func: fn},
	})
}

// NewCodeMap allocates a fresh lazy-compilation table sized for
// numFunctions; every instance that declares its own functions needs
// exactly one (shared by all functions it defines).
func (e *Engine) NewCodeMap(numFunctions int) *regir.CodeMap {
	return regir.NewCodeMap(numFunctions)
}

// AllocMemory allocates a linear memory of min pages (optionally
// capped at max), consulting the Store's resource limiter first.
func (e *Engine) AllocMemory(min uint32, max *uint32) (store.MemoryHandle, bool) {
	return e.Store.AllocMemory(min, max)
}

// AllocTable allocates a table of min elements (optionally capped at
// max), consulting the Store's resource limiter first.
func (e *Engine) AllocTable(min uint32, max *uint32) (store.TableHandle, bool) {
	return e.Store.AllocTable(min, max)
}

// AllocGlobal registers a new global variable.
func (e *Engine) AllocGlobal(kind regir.ValueKind, init uint64, mutable bool) store.GlobalHandle {
	return e.Store.AllocGlobal(kind, init, mutable)
}

// AllocDataSegment registers a passive or active data segment's bytes,
// consumed by OpMemoryInit and retired by OpDataDrop.
func (e *Engine) AllocDataSegment(b []byte) store.DataSegmentHandle {
	return e.Store.AllocDataSegment(b)
}

// AllocElemSegment registers a passive or active element segment's
// function references, consumed by OpTableInit and retired by
// OpElemDrop.
func (e *Engine) AllocElemSegment(elems []uint64) store.ElemSegmentHandle {
	return e.Store.AllocElemSegment(elems)
}

// NewInstance registers a module instance from its already-resolved
// handle lists, consulting the Store's resource limiter first, then
// backpatches Owner on every non-host function in funcs: a function's
// instance can only be known once the instance it belongs to has been
// allocated, so this is the one place that closes the cycle.
func (e *Engine) NewInstance(name string, funcs []store.FuncHandle, memories []store.MemoryHandle, tables []store.TableHandle,
	globals []store.GlobalHandle, data []store.DataSegmentHandle, elems []store.ElemSegmentHandle, types []store.FuncType) (store.InstanceHandle, bool) {
	h, ok := e.Store.AllocInstance(store.NewInstance(name, funcs, memories, tables, globals, data, elems, types))
	if !ok {
		return h, false
	}
	for _, fh := range funcs {
		fn := e.Store.Func(fh)
		if !fn.IsHost() {
			fn.Owner = h
		}
	}
	return h, true
}

// SetCallHook installs hook as the Store's call-boundary observer,
// replacing store.NopCallHook.
func (e *Engine) SetCallHook(hook store.CallHook) { e.Store.Hook = hook }

// SetResourceLimiter installs limiter as the Store's allocation gate,
// replacing store.UnlimitedResources.
func (e *Engine) SetResourceLimiter(limiter store.ResourceLimiter) { e.Store.Limiter = limiter }

// EnableFuel turns on fuel metering with the given cost table and
// starting budget.
func (e *Engine) EnableFuel(costs store.FuelCosts, remaining uint64) {
	e.Store.Fuel.Enabled = true
	e.Store.Fuel.Costs = costs
	e.Store.Fuel.SetRemaining(remaining)
}

// FuelRemaining reports the fuel units left, meaningful only if fuel
// metering is enabled.
func (e *Engine) FuelRemaining() uint64 { return e.Store.Fuel.Remaining() }

// SetFuelRemaining replaces the fuel budget, as the embedder does
// before resuming a suspended OutOfFuel invocation.
func (e *Engine) SetFuelRemaining(n uint64) { e.Store.Fuel.SetRemaining(n) }

// Invoke calls the function addressed by h with params, running it to
// completion, a fatal trap, or a resumable suspension ("Invoke a
// Wasm function ... or trap").
func (e *Engine) Invoke(ctx context.Context, h store.FuncHandle, params []uint64) ([]uint64, *interpreter.Paused, error) {
	return e.calls.Invoke(ctx, h, params)
}

// Resume continues a suspended invocation with host-provided return
// values or, for a fuel suspension, after the embedder has already
// called SetFuelRemaining ("Resume a suspended invocation").
func (e *Engine) Resume(ctx context.Context, p *interpreter.Paused, providedResults []uint64) ([]uint64, *interpreter.Paused, error) {
	return e.calls.Resume(ctx, p, providedResults)
}
