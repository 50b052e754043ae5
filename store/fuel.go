package store

import "github.com/wasmregvm/core/api"

// FuelCosts distinguishes a handful of per-category charges rather
// than billing every opcode the same flat unit, so bulk operations
// and growth operations are metered proportionally to the work they
// do.
type FuelCosts struct {
	// Base is the per-instruction cost the executor charges for every
	// dispatched instruction (arithmetic, control, loads/stores, ...).
	Base uint64
	// EntityGrowth is charged once per page/element grown by
	// MemoryGrow/TableGrow, on top of Base.
	EntityGrowth uint64
	// PerByte is charged once per byte moved by MemoryCopy/Fill/Init
	// and TableCopy/Fill/Init, on top of Base.
	PerByte uint64
	// Call is charged once per CallInternal/CallImported/CallIndirect,
	// on top of Base, reflecting frame-setup cost.
	Call uint64
	// Compile is charged once per source WasmOp the first time a
	// function is lazily translated, proportional to CodeMap.Get's
	// compilation work rather than its later execution.
	Compile uint64
}

// DefaultFuelCosts is a reasonable starting cost table; embedders that
// need their own pricing model set Fuel.Costs directly.
var DefaultFuelCosts = FuelCosts{
	Base:         1,
	EntityGrowth: 1,
	PerByte:      1,
	Call:         1,
	Compile:      1,
}

// Fuel meters cooperative cancellation: setting fuel to zero lets the
// embedder force suspension. A Fuel with Enabled false never breaks
// the executor's dispatch loop; every ConsumeFuel call becomes a
// no-op check.
type Fuel struct {
	Enabled   bool
	Costs     FuelCosts
	remaining uint64
}

// NewFuel constructs a disabled Fuel meter (the default instantiation
// path does not charge anything unless the embedder opts in).
func NewFuel() *Fuel {
	return &Fuel{Costs: DefaultFuelCosts}
}

// Remaining returns the fuel units left, meaningful only if Enabled.
func (f *Fuel) Remaining() uint64 { return f.remaining }

// SetRemaining replaces the fuel budget, as the embedder does before
// resuming a suspended OutOfFuel invocation.
func (f *Fuel) SetRemaining(n uint64) { f.remaining = n }

// Consume attempts to charge cost fuel units. It reports ok=true
// without charging anything if fuel is disabled, and ok=false without
// mutating remaining if cost would underflow remaining — the caller
// (the executor's per-instruction charge, or a metered growth/bulk
// operation) then breaks out with api.TrapOutOfFuel.
func (f *Fuel) Consume(cost uint64) (ok bool) {
	if !f.Enabled {
		return true
	}
	if cost > f.remaining {
		return false
	}
	f.remaining -= cost
	return true
}

// ConsumeOrTrap is Consume with the trap packaged for handlers that
// just want to propagate a break reason.
func (f *Fuel) ConsumeOrTrap(cost uint64) *api.TrapError {
	if f.Consume(cost) {
		return nil
	}
	return &api.TrapError{Code: api.TrapOutOfFuel}
}
