package store

// Wasm 1.0 tables have no engine-imposed maximum beyond what the
// module or the resource limiter declares, so this is only used when
// neither specifies one.
const defaultTableMax = uint32(1) << 31

// TableElementNull is the sentinel stored for an uninitialized or
// explicitly nulled table slot (ref.null funcref/externref). Every
// live function reference is stored as its store arena index plus one
// (OpRefFunc writes Index()+1 and CallIndirect subtracts one), making
// 0 unambiguous.
const TableElementNull = uint64(0)

// TableInstance is one store-owned table. Elements holds opaque 64-bit reference cells exactly as the
// IR's OpTableGet/OpTableSet/OpRefFunc instructions produce and
// consume them (operations.go: "externref/funcref travel as opaque
// 64-bit cells") rather than `[]interface{}`, since this core has no
// module/instance object graph to point an interface at.
type TableInstance struct {
	Elements []uint64
	Min      uint32
	Max      *uint32
}

// NewTableInstance allocates a TableInstance with min null elements.
func NewTableInstance(min uint32, max *uint32) *TableInstance {
	return &TableInstance{Elements: make([]uint64, min), Min: min, Max: max}
}

func (t *TableInstance) max() uint32 {
	if t.Max != nil {
		return *t.Max
	}
	return defaultTableMax
}

// Grow attempts to add delta elements initialized to init, consulting
// limiter first. Mirrors MemoryInstance.Grow's never-traps contract.
func (t *TableInstance) Grow(delta uint32, init uint64, limiter ResourceLimiter) uint32 {
	cur := uint32(len(t.Elements))
	if delta == 0 {
		return cur
	}
	desired := cur + delta
	if desired < cur || desired > t.max() {
		return ^uint32(0)
	}
	if limiter != nil && !limiter.CanGrowTable(cur, desired) {
		return ^uint32(0)
	}
	grown := make([]uint64, delta)
	for i := range grown {
		grown[i] = init
	}
	t.Elements = append(t.Elements, grown...)
	return cur
}

// Get reads element i, reporting false if out of bounds (the executor
// turns that into api.TrapTableOutOfBounds).
func (t *TableInstance) Get(i uint32) (uint64, bool) {
	if i >= uint32(len(t.Elements)) {
		return 0, false
	}
	return t.Elements[i], true
}

// Set writes v into element i, reporting false if out of bounds.
func (t *TableInstance) Set(i uint32, v uint64) bool {
	if i >= uint32(len(t.Elements)) {
		return false
	}
	t.Elements[i] = v
	return true
}
