package interpreter

import (
	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/buildoptions"
	"github.com/wasmregvm/core/internal/regir"
	"github.com/wasmregvm/core/store"
)

// frame is one entry of the executor's call stack: a translated
// function's slot window plus its resume point. base is an absolute
// index into vmState.slots; every Instruction.X1/X2/Result/Span Slot
// is resolved relative to it.
type frame struct {
	base       int
	code       *regir.CompiledFunc
	fn         *store.FuncInstance
	instance   *store.Instance
	ip         int
	resultBase int
}

// vmState is the state threaded through every instruction handler.
// One vmState belongs to exactly one top-level invocation; a host
// function that calls back into the store does so through a fresh (or
// nested) vmState, never by mutating an in-flight one concurrently.
type vmState struct {
	st     *store.Store
	slots  []uint64
	frames []frame

	// pendingResultSpan is set immediately before a HostTrap suspension
	// and consumed by Resume, which writes the embedder-supplied
	// results there before continuing.
	pendingResultSpan regir.SlotSpan

	// pendingTailReturn marks that the pending HostTrap suspension was
	// raised from a tail call to an imported function: Resume must
	// propagate the embedder-supplied results straight out via
	// doReturn rather than writing them into pendingResultSpan and
	// falling through to the next instruction.
	pendingTailReturn bool

	// finalResults holds the outermost frame's return values once the
	// call stack has fully unwound; run's caller reads it after the
	// dispatch loop returns with zero frames left.
	finalResults []uint64

	// mem0 caches the current frame's instance's memory 0, refreshed
	// on every call/return (cheap: a single pointer copy). It points at
	// the MemoryInstance itself, so a Grow that reallocates Buffer is
	// seen through it without a refresh.
	mem0 *store.MemoryInstance
}

func newVMState(st *store.Store) *vmState {
	return &vmState{st: st}
}

func (vs *vmState) curFrame() *frame { return &vs.frames[len(vs.frames)-1] }

// pushFrame pushes a new frame whose slot window starts at base (for
// an internal call, inside the caller's window at its argument span),
// growing the slot arena to cover base+slotCount and enforcing the
// call-stack ceiling.
func (vs *vmState) pushFrame(base int, slotCount int, code *regir.CompiledFunc, fn *store.FuncInstance, inst *store.Instance, resultBase int) *frame {
	if len(vs.frames) >= buildoptions.CallStackCeiling {
		panic(&api.TrapError{Code: api.TrapStackOverflow, FrameTrace: vs.frameTrace()})
	}
	if buildoptions.IsTest && len(vs.frames) > 0 {
		top := vs.curFrame()
		if base < top.base {
			panic("interpreter: new frame's slot window starts below its caller's base")
		}
	}
	need := base + slotCount
	if need > len(vs.slots) {
		grown := make([]uint64, need)
		copy(grown, vs.slots)
		vs.slots = grown
	}
	vs.frames = append(vs.frames, frame{base: base, code: code, fn: fn, instance: inst, resultBase: resultBase})
	f := vs.curFrame()
	if inst != nil {
		if m0, ok := inst.Memory0(); ok {
			vs.mem0 = vs.st.Memory(m0)
		} else {
			vs.mem0 = nil
		}
	}
	return f
}

// popFrame discards the top frame and restores the caller's mem0 cache.
func (vs *vmState) popFrame() {
	vs.frames = vs.frames[:len(vs.frames)-1]
	if len(vs.frames) == 0 {
		vs.mem0 = nil
		return
	}
	f := vs.curFrame()
	if f.instance != nil {
		if m0, ok := f.instance.Memory0(); ok {
			vs.mem0 = vs.st.Memory(m0)
		} else {
			vs.mem0 = nil
		}
	}
}

// read resolves an operand Slot against frame f: a live slot reads
// vs.slots, a constant-pool reference reads f.code.Pool.
func (vs *vmState) read(f *frame, s regir.Slot) uint64 {
	if s.IsConst() {
		bits, _ := f.code.Pool.Resolve(s)
		return bits
	}
	return vs.slots[f.base+int(s)]
}

// write stores v into the live slot s of frame f. Only ever called
// with a non-constant Slot (an instruction's Result field).
func (vs *vmState) write(f *frame, s regir.Slot, v uint64) {
	vs.slots[f.base+int(s)] = v
}

// readSpan copies a span's live values out as a slice, resolving
// constants the same way read does. Used for multi-value return/call
// boundaries.
func (vs *vmState) readSpan(f *frame, sp regir.SlotSpan) []uint64 {
	out := make([]uint64, sp.Len)
	sp.Iter(func(s regir.Slot) {
		out[int(s-sp.Head)] = vs.read(f, s)
	})
	return out
}

// writeSpan writes vals into the live slots of span sp in frame f.
func (vs *vmState) writeSpan(f *frame, sp regir.SlotSpan, vals []uint64) {
	sp.Iter(func(s regir.Slot) {
		vs.write(f, s, vals[int(s-sp.Head)])
	})
}

// copySpan moves src's values (resolved in frame f, which may
// reference constants) into dst's live slots (also in frame f). Used
// to implement a taken branch's Span1->Span2 parameter transfer and
// BranchTarget.CopyFrom/CopyTo.
func (vs *vmState) copySpan(f *frame, src, dst regir.SlotSpan) {
	if dst.Len == 0 {
		return
	}
	// Snapshot source values first: src and dst may overlap (a loop's
	// back-edge commonly carries its own previous-iteration result).
	vals := vs.readSpan(f, src)
	vs.writeSpan(f, dst, vals)
}
