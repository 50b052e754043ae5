package interpreter

// chargeBase meters one dispatched instruction at store.FuelCosts.Base.
// Charges per dispatched opcode rather than batching by basic block:
// simpler, and equivalent in effect since Base is constant — the
// executor never emits a dedicated fuel-charging instruction for the
// translator to place (OpConsumeFuel exists as a documented extension
// point for that batching strategy, but nothing emits it).
func (vs *vmState) chargeBase() bool {
	return vs.st.Fuel.Consume(vs.st.Fuel.Costs.Base)
}

func (vs *vmState) chargeCall() bool {
	return vs.st.Fuel.Consume(vs.st.Fuel.Costs.Call)
}

func (vs *vmState) chargeGrowth(units uint32) bool {
	return vs.st.Fuel.Consume(vs.st.Fuel.Costs.EntityGrowth * uint64(units))
}

func (vs *vmState) chargeBytes(n uint32) bool {
	return vs.st.Fuel.Consume(vs.st.Fuel.Costs.PerByte * uint64(n))
}
