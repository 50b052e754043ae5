package regir

// ConstantPool is a per-function, append-only, deduplicated sequence
// of 64-bit typed immediate values. An encoded negative Slot -k
// resolves to the (k-1)-th entry. Deduplication is scoped to a single
// function: sharing across functions is a non-goal (it would force
// wider slot encodings for no real benefit, since each function's
// pool is tiny).
type ConstantPool struct {
	values []constEntry
	index  map[constKey]Slot
}

type constEntry struct {
	bits uint64
	kind ValueKind
}

type constKey struct {
	bits uint64
	kind ValueKind
}

// NewConstantPool returns an empty pool ready for use during
// translation of a single function.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{index: map[constKey]Slot{}}
}

// Intern returns the Slot addressing bits/kind in the pool, appending
// a new entry only if this exact (bits, kind) pair hasn't been seen
// before in this function.
func (p *ConstantPool) Intern(bits uint64, kind ValueKind) Slot {
	key := constKey{bits: bits, kind: kind}
	if s, ok := p.index[key]; ok {
		return s
	}
	idx := len(p.values)
	if idx > MaxConstIndex {
		panic(TooManyLocalsOrConstants{Reason: "constant pool overflow"})
	}
	p.values = append(p.values, constEntry{bits: bits, kind: kind})
	s := FromConstIndex(idx)
	p.index[key] = s
	return s
}

// At returns the raw bits and type of the i-th pool entry.
func (p *ConstantPool) At(i int) (uint64, ValueKind) {
	e := p.values[i]
	return e.bits, e.kind
}

// Len returns the number of distinct constants interned so far.
func (p *ConstantPool) Len() int { return len(p.values) }

// Resolve reads the value addressed by the constant-referencing Slot
// s, panicking if s does not address the pool. The executor's hot path
// reads live slots directly out of the frame window and only falls
// back to Resolve for a Slot with IsConst() true.
func (p *ConstantPool) Resolve(s Slot) (uint64, ValueKind) {
	return p.At(s.ConstIndex())
}
