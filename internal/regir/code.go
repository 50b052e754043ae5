package regir

import (
	"sync"

	"github.com/wasmregvm/core/api"
)

// FuelCharger is the minimal fuel-accounting surface CodeMap.Get
// needs to charge for compilation; store.Fuel implements it. Kept as
// an interface here rather than importing the store package directly,
// since store already imports regir for the translator/IR types Get
// hands back.
type FuelCharger interface {
	ConsumeOrTrap(cost uint64) *api.TrapError
}

// CompilationState tracks a CompiledFunc's lazy-translation lifecycle:
// exactly one Uncompiled->Compiled transition per function, with
// races serialized by CompiledFunc's own lock.
type CompilationState uint8

const (
	Uncompiled CompilationState = iota
	Compiled
)

// CompiledFunc is the code-map entry for one Wasm function: its
// opcode buffer, per-function constant pool, frame size, and
// branch-table side tables, plus the lazy-compilation state machine
// that guards the Uncompiled->Compiled transition.
type CompiledFunc struct {
	mu    sync.Mutex
	state CompilationState

	FuncIndex uint32
	NumParams uint16
	NumResults uint16

	Ops      []Instruction
	Pool     *ConstantPool
	// SlotCount is the high-water mark reached by the translator's
	// bump allocator: the frame must reserve at least this many live
	// slots.
	SlotCount uint16
	// BranchTables holds the side tables referenced by OpBranchTable
	// instructions via Instruction.Imm32.
	BranchTables [][]BranchTarget
}

// State returns the current compilation state under the function's lock.
func (f *CompiledFunc) State() CompilationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// markCompiled performs the one-way Uncompiled->Compiled transition.
// Callers must hold f.mu.
func (f *CompiledFunc) markCompiled() { f.state = Compiled }

// CodeMap owns CompiledFunc entries keyed by function index and
// serializes lazy translation: Get returns a reference to the
// compiled form, triggering translation if the entry is Uncompiled.
type CodeMap struct {
	mu      sync.RWMutex
	entries []*CompiledFunc
}

// NewCodeMap allocates a code map with one empty, Uncompiled entry per
// function index in [0, numFunctions).
func NewCodeMap(numFunctions int) *CodeMap {
	entries := make([]*CompiledFunc, numFunctions)
	for i := range entries {
		entries[i] = &CompiledFunc{FuncIndex: uint32(i), state: Uncompiled}
	}
	return &CodeMap{entries: entries}
}

// Entry returns the (possibly still Uncompiled) code-map entry for a
// function index.
func (m *CodeMap) Entry(funcIndex uint32) *CompiledFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[funcIndex]
}

// NumFunctions returns the number of tracked functions.
func (m *CodeMap) NumFunctions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Get fetches the compiled form of funcIndex, translating it via
// translate on first access. translate is called with the function's
// own lock held, so concurrent Get calls for the same function block
// on one translation rather than racing.
//
// When fuel is non-nil, compilation is charged cost fuel units before
// translate runs at all: exceeding the budget returns the resulting
// *api.TrapError (TrapOutOfFuel) without ever invoking translate, so
// the entry is left exactly as it was (still Uncompiled, unmodified).
// A nil fuel charges nothing, matching an embedder that never enabled
// fuel accounting.
func (m *CodeMap) Get(funcIndex uint32, fuel FuelCharger, cost uint64, translate func(*CompiledFunc) error) (*CompiledFunc, error) {
	entry := m.Entry(funcIndex)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.state == Compiled {
		return entry, nil
	}
	if fuel != nil {
		if trap := fuel.ConsumeOrTrap(cost); trap != nil {
			return nil, trap
		}
	}
	if err := translate(entry); err != nil {
		return nil, err
	}
	entry.markCompiled()
	return entry, nil
}
