// Package experimental holds call-boundary observation APIs that sit
// above the four-event store.CallHook: single-function before/after
// listeners, adapted here to the host-call re-entry boundary rather
// than every internal call.
package experimental

import (
	"context"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/store"
)

// FunctionListenerFactory returns FunctionListeners to be notified when a
// host function is called.
type FunctionListenerFactory interface {
	// NewListener returns a FunctionListener for a defined function. If nil is
	// returned, no listener will be notified.
	NewListener(api.FunctionDefinition) FunctionListener
}

// FunctionListener can be registered for any host function via
// FunctionListenerFactory to be notified when the function is called.
type FunctionListener interface {
	// Before is invoked before a function is called. The returned context will
	// be used as the context of this function call.
	Before(ctx context.Context, def api.FunctionDefinition, paramValues []uint64) context.Context

	// After is invoked after a function is called.
	After(ctx context.Context, def api.FunctionDefinition, err error, resultValues []uint64)
}

// FunctionListenerCallHook adapts a FunctionListenerFactory into a
// store.CallHook, routing only the EnterHostFromWasm/ReturnHostToWasm
// pair; a listener never observes the outermost host-to-Wasm edge.
type FunctionListenerCallHook struct {
	store.NopCallHook
	Factory FunctionListenerFactory
}

func (h FunctionListenerCallHook) EnterHostFromWasm(ctx context.Context, def api.FunctionDefinition, params []uint64) (context.Context, error) {
	l := h.Factory.NewListener(def)
	if l == nil {
		return ctx, nil
	}
	return context.WithValue(l.Before(ctx, def, params), listenerKey{}, l), nil
}

func (h FunctionListenerCallHook) ReturnHostToWasm(ctx context.Context, def api.FunctionDefinition, results []uint64, err error) context.Context {
	if l, ok := ctx.Value(listenerKey{}).(FunctionListener); ok {
		l.After(ctx, def, err, results)
	}
	return ctx
}

type listenerKey struct{}
