package store

import (
	"context"

	"github.com/wasmregvm/core/api"
)

// CallHook generalizes a single function-call Before/After pair into
// the four call-boundary events a register-IR executor actually
// crosses: Wasm calling into Wasm never needs the store's attention,
// but every edge that leaves or re-enters the interpreter loop does.
//
// EnterWasmFromHost and EnterHostFromWasm may veto the transition by
// returning a non-nil error (the two Return methods only observe);
// the executor turns that into api.TrapCallHookVetoed at the
// crossed boundary rather than the generic api.TrapHostTrap, so the
// embedder can tell "the host function itself failed" apart from
// "the hook refused to let the call happen".
type CallHook interface {
	// EnterWasmFromHost fires when the embedder invokes a Wasm
	// function directly (the outermost call into the store).
	EnterWasmFromHost(ctx context.Context, def api.FunctionDefinition, params []uint64) (context.Context, error)

	// ReturnWasmToHost fires when that outermost invocation completes,
	// successfully or trapped.
	ReturnWasmToHost(ctx context.Context, def api.FunctionDefinition, results []uint64, err error) context.Context

	// EnterHostFromWasm fires immediately before a CallImported
	// instruction invokes its host callback.
	EnterHostFromWasm(ctx context.Context, def api.FunctionDefinition, params []uint64) (context.Context, error)

	// ReturnHostToWasm fires after that host callback returns, just
	// before control resumes inside the caller's translated code.
	ReturnHostToWasm(ctx context.Context, def api.FunctionDefinition, results []uint64, err error) context.Context
}

// NopCallHook implements CallHook with no observation and no veto; a
// Store with no hook registered behaves as if this were installed.
type NopCallHook struct{}

func (NopCallHook) EnterWasmFromHost(ctx context.Context, _ api.FunctionDefinition, _ []uint64) (context.Context, error) {
	return ctx, nil
}

func (NopCallHook) ReturnWasmToHost(ctx context.Context, _ api.FunctionDefinition, _ []uint64, _ error) context.Context {
	return ctx
}

func (NopCallHook) EnterHostFromWasm(ctx context.Context, _ api.FunctionDefinition, _ []uint64) (context.Context, error) {
	return ctx, nil
}

func (NopCallHook) ReturnHostToWasm(ctx context.Context, _ api.FunctionDefinition, _ []uint64, _ error) context.Context {
	return ctx
}
