package store

import "github.com/wasmregvm/core/internal/regir"

// GlobalInstance is one store-owned global variable, read/written by
// OpGlobalGet/OpGlobalSet.
type GlobalInstance struct {
	Kind    regir.ValueKind
	Val     uint64
	Mutable bool
}

// NewGlobalInstance constructs a GlobalInstance with its initial value.
func NewGlobalInstance(kind regir.ValueKind, init uint64, mutable bool) *GlobalInstance {
	return &GlobalInstance{Kind: kind, Val: init, Mutable: mutable}
}
