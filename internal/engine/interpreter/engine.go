// Package interpreter is the register-based bytecode executor: it
// drives a regir.CompiledFunc's Instruction stream over a flat
// slot arena, lazily triggering translation (regir.Translate) the
// first time a call reaches an untranslated function, and exposes
// the suspend/resume boundary a host call or a fuel exhaustion needs.
package interpreter

import (
	"context"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/regir"
	"github.com/wasmregvm/core/store"
)

// CallEngine is the entry point an embedder drives to run a
// Store-resident function to completion or suspension. One CallEngine
// is bound to one Store; it holds no other state between calls —
// every in-flight invocation's state lives in its own *Paused, so
// multiple invocations against the same Store may be suspended
// concurrently (as long as the embedder serializes its own access to
// that Store).
type CallEngine struct {
	st *store.Store
}

// NewCallEngine binds a CallEngine to st.
func NewCallEngine(st *store.Store) *CallEngine {
	return &CallEngine{st: st}
}

// Paused is the opaque continuation returned by Invoke/Resume when
// execution stops on a resumable trap. Its only legal use is as the
// argument to a later Resume call on the same CallEngine.
type Paused struct {
	vs   *vmState
	Trap *api.TrapError
}

// Code reports the resumable trap that produced this continuation.
func (p *Paused) Code() api.TrapCode { return p.Trap.Code }

// Invoke calls the function addressed by h with params, running it to
// completion, a fatal trap, or a resumable suspension.
//
// Exactly one of the three return groups is meaningful: (results, nil,
// nil) on normal completion; (nil, paused, err) with err.Resumable()
// true on suspension (Resume(paused, ...) continues it); (nil, nil,
// err) on a fatal trap, which has already unwound the entire call
// stack. Running out of fuel during the lazy first-time compile of fn
// itself also takes this last form — paused is nil even though
// TrapOutOfFuel reports Resumable() true, since nothing has executed
// yet for Resume to continue; callers must gate on paused != nil; the
// err.Resumable() value by itself does not imply Resume is callable.
func (ce *CallEngine) Invoke(ctx context.Context, h store.FuncHandle, params []uint64) ([]uint64, *Paused, error) {
	fn := ce.st.Func(h)

	ctx, hookErr := ce.st.Hook.EnterWasmFromHost(ctx, fn.Def, params)
	if hookErr != nil {
		err := &api.TrapError{Code: api.TrapCallHookVetoed, Cause: hookErr}
		ce.st.Hook.ReturnWasmToHost(ctx, fn.Def, nil, err)
		return nil, nil, err
	}

	if fn.IsHost() {
		// A host function invoked directly, with no translated caller
		// frame to suspend into: failure is reported straight back,
		// never as a resumable suspension (there is nothing to resume).
		results, callErr := fn.Host.Func(ctx, params)
		ctx = ce.st.Hook.ReturnHostToWasm(ctx, fn.Def, results, callErr)
		var err error
		if callErr != nil {
			err = &api.TrapError{Code: api.TrapHostTrap, Cause: callErr}
		}
		ce.st.Hook.ReturnWasmToHost(ctx, fn.Def, results, err)
		return results, nil, err
	}

	compileCost := ce.st.Fuel.Costs.Compile * uint64(len(fn.Body))
	code, err := fn.CodeMap.Get(fn.LocalIndex, ce.st.Fuel, compileCost, fn.Translate)
	if err != nil {
		ce.st.Hook.ReturnWasmToHost(ctx, fn.Def, nil, err)
		return nil, nil, err
	}
	if len(params) != int(code.NumParams) {
		err := &api.TrapError{Code: api.TrapBadSignature, Message: "argument count mismatch"}
		ce.st.Hook.ReturnWasmToHost(ctx, fn.Def, nil, err)
		return nil, nil, err
	}

	vs := newVMState(ce.st)
	inst := vs.instanceOf(fn, &frame{})
	vs.pushFrame(0, int(code.SlotCount), code, fn, inst, 0)
	copy(vs.slots, params)

	return ce.run(ctx, vs, fn.Def)
}

// Resume continues a suspended invocation, supplying the results the
// embedder computed out-of-band: for TrapHostTrap, the host is
// expected to provide results into the caller's result span; for
// TrapOutOfFuel the embedder is expected to have already called
// Store.Fuel.SetRemaining before calling Resume, and providedResults
// is ignored.
func (ce *CallEngine) Resume(ctx context.Context, p *Paused, providedResults []uint64) ([]uint64, *Paused, error) {
	vs := p.vs
	switch p.Trap.Code {
	case api.TrapHostTrap:
		if vs.pendingTailReturn {
			vs.pendingTailReturn = false
			vs.doReturn(providedResults)
			if len(vs.frames) == 0 {
				results := vs.finalResults
				ce.st.Hook.ReturnWasmToHost(ctx, p.vs.curFrameFunc(), results, nil)
				return results, nil, nil
			}
		} else {
			vs.writeSpan(vs.curFrame(), vs.pendingResultSpan, providedResults)
		}
	case api.TrapOutOfFuel:
		// Remaining fuel is expected to already have been replenished by
		// the embedder; ip still points at the instruction that
		// suspended, so the same charge is retried on re-entry.
	default:
		// Only the two resumable kinds ever produce a *Paused.
		panic("interpreter: resume of non-resumable trap")
	}
	return ce.run(ctx, vs, p.vs.curFrameFunc())
}

// curFrameFunc reports the top frame's FunctionDefinition, used only
// for CallHook bookkeeping around a Resume that completes outright.
func (vs *vmState) curFrameFunc() api.FunctionDefinition {
	if len(vs.frames) == 0 {
		return api.FunctionDefinition{}
	}
	return vs.curFrame().fn.Def
}

// run drives the dispatch loop and classifies how it stopped.
func (ce *CallEngine) run(ctx context.Context, vs *vmState, def api.FunctionDefinition) (results []uint64, paused *Paused, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case *suspension:
			paused = &Paused{vs: vs, Trap: v.trap}
			err = v.trap
		case *api.TrapError:
			err = v
			ce.st.Hook.ReturnWasmToHost(ctx, def, nil, err)
		case regir.TranslationError:
			// A callee reached for the first time failed to translate.
			err = v
			ce.st.Hook.ReturnWasmToHost(ctx, def, nil, err)
		default:
			panic(r)
		}
	}()

	ctx = vs.run(ctx)
	results = vs.finalResults
	ce.st.Hook.ReturnWasmToHost(ctx, def, results, nil)
	return results, nil, nil
}
