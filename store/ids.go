package store

import (
	"errors"
	"sync/atomic"
)

// ErrForeignStoreHandle is returned whenever a handle minted by one
// Store is presented to a different Store.
var ErrForeignStoreHandle = errors.New("store: handle belongs to a different store")

var nextStoreID uint32

// newStoreID mints a process-wide unique store identity. Stores are
// never compared across processes, so a monotonic counter (rather
// than a random UUID) is sufficient and keeps handle equality a plain
// struct comparison.
func newStoreID() uint32 {
	return atomic.AddUint32(&nextStoreID, 1)
}

// handle is the common shape of every arena reference: which store
// minted it, and its index into that store's arena. Embedded into the
// per-kind handle types below rather than used generically, so a
// MemoryHandle and a TableHandle remain distinct types the compiler
// won't let the embedder confuse.
type handle struct {
	storeID uint32
	index   uint32
}

func (h handle) checkStore(s *Store) error {
	if h.storeID != s.id {
		return ErrForeignStoreHandle
	}
	return nil
}

// Index is the arena position this handle addresses, for diagnostics.
func (h handle) Index() uint32 { return h.index }

// FuncHandle addresses one entry of a Store's function arena.
type FuncHandle struct{ handle }

// MemoryHandle addresses one entry of a Store's memory arena.
type MemoryHandle struct{ handle }

// TableHandle addresses one entry of a Store's table arena.
type TableHandle struct{ handle }

// GlobalHandle addresses one entry of a Store's global arena.
type GlobalHandle struct{ handle }

// DataSegmentHandle addresses one entry of a Store's data-segment arena.
type DataSegmentHandle struct{ handle }

// ElemSegmentHandle addresses one entry of a Store's element-segment arena.
type ElemSegmentHandle struct{ handle }

// InstanceHandle addresses one entry of a Store's instance arena.
type InstanceHandle struct{ handle }

// ExternHandle addresses one entry of a Store's opaque-external arena
// (host-provided values threaded through as externref, an "opaque
// externref" scope note).
type ExternHandle struct{ handle }
