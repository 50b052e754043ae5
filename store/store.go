package store

import "github.com/wasmregvm/core/internal/regir"

// Store is the set of arenas (functions, memories, tables, globals,
// data segments, element segments, instances, external objects) plus
// global state: fuel meter, optional resource limiter, optional call
// hook. A Store is never shared across goroutines.
type Store struct {
	id uint32

	functions []*FuncInstance
	memories  []*MemoryInstance
	tables    []*TableInstance
	globals   []*GlobalInstance
	data      [][]byte
	elems     [][]uint64
	instances []*Instance
	externs   []interface{}

	Fuel    *Fuel
	Limiter ResourceLimiter
	Hook    CallHook
}

// NewStore allocates an empty Store with fuel disabled, an unlimited
// resource limiter, and no call hook; all three are overridable after
// construction.
func NewStore() *Store {
	return &Store{
		id:      newStoreID(),
		Fuel:    NewFuel(),
		Limiter: UnlimitedResources{},
		Hook:    NopCallHook{},
	}
}

func (s *Store) mustOwn(h handle) {
	if err := h.checkStore(s); err != nil {
		panic(err)
	}
}

// AllocFunc registers f and returns its handle.
func (s *Store) AllocFunc(f *FuncInstance) FuncHandle {
	idx := uint32(len(s.functions))
	s.functions = append(s.functions, f)
	return FuncHandle{handle{storeID: s.id, index: idx}}
}

// Func dereferences a FuncHandle, panicking on a foreign-store handle
//.
func (s *Store) Func(h FuncHandle) *FuncInstance {
	s.mustOwn(h.handle)
	return s.functions[h.index]
}

// AllocMemory allocates a new MemoryInstance, consulting Limiter first
//. ok is false if the limiter refused.
func (s *Store) AllocMemory(min uint32, max *uint32) (h MemoryHandle, ok bool) {
	if !s.Limiter.CanAllocateMemory(min) {
		return MemoryHandle{}, false
	}
	idx := uint32(len(s.memories))
	s.memories = append(s.memories, NewMemoryInstance(min, max))
	return MemoryHandle{handle{storeID: s.id, index: idx}}, true
}

func (s *Store) Memory(h MemoryHandle) *MemoryInstance {
	s.mustOwn(h.handle)
	return s.memories[h.index]
}

// AllocTable allocates a new TableInstance, consulting Limiter first.
func (s *Store) AllocTable(min uint32, max *uint32) (h TableHandle, ok bool) {
	if !s.Limiter.CanAllocateTable(min) {
		return TableHandle{}, false
	}
	idx := uint32(len(s.tables))
	s.tables = append(s.tables, NewTableInstance(min, max))
	return TableHandle{handle{storeID: s.id, index: idx}}, true
}

func (s *Store) Table(h TableHandle) *TableInstance {
	s.mustOwn(h.handle)
	return s.tables[h.index]
}

// AllocGlobal registers a new GlobalInstance and returns its handle.
func (s *Store) AllocGlobal(kind regir.ValueKind, init uint64, mutable bool) GlobalHandle {
	idx := uint32(len(s.globals))
	s.globals = append(s.globals, NewGlobalInstance(kind, init, mutable))
	return GlobalHandle{handle{storeID: s.id, index: idx}}
}

func (s *Store) Global(h GlobalHandle) *GlobalInstance {
	s.mustOwn(h.handle)
	return s.globals[h.index]
}

// AllocDataSegment registers a passive/active data segment's bytes
// (consumed by OpMemoryInit, dropped by OpDataDrop).
func (s *Store) AllocDataSegment(b []byte) DataSegmentHandle {
	idx := uint32(len(s.data))
	s.data = append(s.data, b)
	return DataSegmentHandle{handle{storeID: s.id, index: idx}}
}

// DataSegment returns the bytes for h, or nil if it has been dropped.
func (s *Store) DataSegment(h DataSegmentHandle) []byte {
	s.mustOwn(h.handle)
	return s.data[h.index]
}

// DropData implements OpDataDrop: the segment becomes permanently empty.
func (s *Store) DropData(h DataSegmentHandle) {
	s.mustOwn(h.handle)
	s.data[h.index] = nil
}

// AllocElemSegment registers a passive/active element segment's
// function-reference cells (consumed by OpTableInit, dropped by
// OpElemDrop).
func (s *Store) AllocElemSegment(elems []uint64) ElemSegmentHandle {
	idx := uint32(len(s.elems))
	s.elems = append(s.elems, elems)
	return ElemSegmentHandle{handle{storeID: s.id, index: idx}}
}

func (s *Store) ElemSegment(h ElemSegmentHandle) []uint64 {
	s.mustOwn(h.handle)
	return s.elems[h.index]
}

// DropElem implements OpElemDrop.
func (s *Store) DropElem(h ElemSegmentHandle) {
	s.mustOwn(h.handle)
	s.elems[h.index] = nil
}

// AllocInstance registers inst, consulting Limiter first.
func (s *Store) AllocInstance(inst *Instance) (h InstanceHandle, ok bool) {
	if !s.Limiter.CanAllocateInstance() {
		return InstanceHandle{}, false
	}
	idx := uint32(len(s.instances))
	inst.handle = handle{storeID: s.id, index: idx}
	s.instances = append(s.instances, inst)
	return InstanceHandle{inst.handle}, true
}

func (s *Store) Instance(h InstanceHandle) *Instance {
	s.mustOwn(h.handle)
	return s.instances[h.index]
}

// AllocExtern registers an opaque host value and returns a handle an
// externref Slot can carry.
func (s *Store) AllocExtern(v interface{}) ExternHandle {
	idx := uint32(len(s.externs))
	s.externs = append(s.externs, v)
	return ExternHandle{handle{storeID: s.id, index: idx}}
}

func (s *Store) Extern(h ExternHandle) interface{} {
	s.mustOwn(h.handle)
	return s.externs[h.index]
}

// The accessors below address an arena by its raw uint32 index rather
// than a tagged handle. The executor's dispatch loop already knows
// every index it uses came from this store (an Instance's own handle
// lists, or a table cell this store's CallIndirect/RefFunc minted),
// so the foreign-store check mustOwn performs would be pure overhead
// on the hottest path in the package; these exist for that path only
// (internal/engine/interpreter), not as a public alternative to the
// handle API.

// FuncAt returns the function at raw arena index idx.
func (s *Store) FuncAt(idx uint32) *FuncInstance { return s.functions[idx] }

// MemoryAt returns the memory at raw arena index idx.
func (s *Store) MemoryAt(idx uint32) *MemoryInstance { return s.memories[idx] }

// TableAt returns the table at raw arena index idx.
func (s *Store) TableAt(idx uint32) *TableInstance { return s.tables[idx] }

// GlobalAt returns the global at raw arena index idx.
func (s *Store) GlobalAt(idx uint32) *GlobalInstance { return s.globals[idx] }

// DataAt returns the data segment at raw arena index idx (nil if dropped).
func (s *Store) DataAt(idx uint32) []byte { return s.data[idx] }

// DropDataAt drops the data segment at raw arena index idx.
func (s *Store) DropDataAt(idx uint32) { s.data[idx] = nil }

// ElemAt returns the element segment at raw arena index idx (nil if dropped).
func (s *Store) ElemAt(idx uint32) []uint64 { return s.elems[idx] }

// DropElemAt drops the element segment at raw arena index idx.
func (s *Store) DropElemAt(idx uint32) { s.elems[idx] = nil }
