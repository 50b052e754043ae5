package interpreter

import (
	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/regir"
)

// frameTrace renders vs.frames as innermost-first debug strings, the
// same shape wasmdebug stack traces use. Called only when a trap is
// about to panic, never on the hot path.
func (vs *vmState) frameTrace() []string {
	trace := make([]string, len(vs.frames))
	for i, f := range vs.frames {
		trace[len(trace)-1-i] = f.fn.Def.DebugName()
	}
	return trace
}

// trap panics with a fatal *api.TrapError. dispatch's caller recovers
// this and drops the call stack entirely. Never use this for
// TrapOutOfFuel/TrapHostTrap — those go through suspend, which
// preserves continuation state.
func (vs *vmState) trap(code api.TrapCode) {
	panic(&api.TrapError{Code: code, FrameTrace: vs.frameTrace()})
}

func (vs *vmState) trapWithCause(code api.TrapCode, cause error) {
	panic(&api.TrapError{Code: code, Cause: cause, FrameTrace: vs.frameTrace()})
}

// suspension is the panic value raised by a resumable trap
// (TrapOutOfFuel, TrapHostTrap). It carries nothing beyond the trap
// itself: the vmState's frames/ip are left exactly as dispatch found
// them, which is the entire continuation. A HostTrap suspension also
// leaves vs.pendingResultSpan set so Resume knows where to deposit the
// embedder-supplied results.
type suspension struct {
	trap *api.TrapError
}

// suspendOutOfFuel raises a resumable OutOfFuel suspension. ip is left
// on the fuel-metered instruction itself, so resuming re-attempts the
// same charge.
func suspendOutOfFuel() {
	panic(&suspension{trap: &api.TrapError{Code: api.TrapOutOfFuel}})
}

// suspendHostTrap raises a resumable HostTrap suspension for a host
// function call at resultSpan that returned err. vs records resultSpan
// so Resume's caller-supplied results land in the right place.
func (vs *vmState) suspendHostTrap(resultSpan regir.SlotSpan, err error) {
	vs.pendingResultSpan = resultSpan
	panic(&suspension{trap: &api.TrapError{Code: api.TrapHostTrap, Cause: err}})
}
