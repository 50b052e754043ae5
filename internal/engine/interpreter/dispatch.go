package interpreter

import (
	"context"

	"github.com/wasmregvm/core/api"
	"github.com/wasmregvm/core/internal/regir"
)

// run drives the dispatch loop until the call stack unwinds entirely
// (a normal return from the outermost frame) or a trap/suspension
// panic propagates past it to the Invoke/Resume boundary (engine.go).
//
// This is the register-IR analogue of a stack-machine interpreter's
// giant opcode switch, rewritten as a flat loop over an explicit
// frame stack instead of Go recursion: tail-call frame reuse
// (return_call*) replaces the top frame in place, which only a flat
// loop — not a recursive call — can do without growing the Go stack.
func (vs *vmState) run(ctx context.Context) context.Context {
	for len(vs.frames) > 0 {
		f := vs.curFrame()
		i := f.code.Ops[f.ip]

		if !vs.chargeBase() {
			suspendOutOfFuel()
		}

		switch i.Op {
		case regir.OpTrap:
			vs.trap(api.TrapCode(i.Imm32))

		case regir.OpReturn:
			vs.doReturn(nil)
			continue
		case regir.OpReturnValue:
			vs.doReturn([]uint64{vs.read(f, i.X1)})
			continue
		case regir.OpReturnSpan:
			vs.doReturn(vs.readSpan(f, i.Span1))
			continue

		case regir.OpBranch:
			vs.copySpan(f, i.Span1, i.Span2)
			f.ip += int(i.Offset)
			continue

		case regir.OpBranchIfEqz:
			if vs.read(f, i.X1) == 0 {
				vs.copySpan(f, i.Span1, i.Span2)
				f.ip += int(i.Offset)
				continue
			}

		case regir.OpBranchIfNez:
			if vs.read(f, i.X1) != 0 {
				vs.copySpan(f, i.Span1, i.Span2)
				f.ip += int(i.Offset)
				continue
			}

		case regir.OpBranchCmp:
			result, trapCode, trapped := regir.EvalBin(i.Kind, i.Bin, vs.read(f, i.X1), vs.read(f, i.X2))
			if trapped {
				vs.trap(trapCode)
			}
			if result != 0 {
				vs.copySpan(f, i.Span1, i.Span2)
				f.ip += int(i.Offset)
				continue
			}

		case regir.OpBranchTable:
			table := f.code.BranchTables[i.Imm32]
			idx := vs.read(f, i.X1)
			if idx >= uint64(len(table)) {
				idx = uint64(len(table) - 1) // validator guarantees a default entry
			}
			entry := table[idx]
			vs.copySpan(f, entry.CopyFrom, entry.CopyTo)
			f.ip += int(entry.Offset)
			continue

		case regir.OpCopy:
			vs.write(f, i.Result, vs.read(f, i.X1))
		case regir.OpCopySpan:
			vs.copySpan(f, i.Span1, i.Span2)

		case regir.OpGlobalGet:
			g := vs.st.Global(f.instance.Globals[i.Imm32])
			vs.write(f, i.Result, g.Val)
		case regir.OpGlobalSet:
			g := vs.st.Global(f.instance.Globals[i.Imm32])
			g.Val = vs.read(f, i.X1)

		case regir.OpCallInternal:
			fn := vs.funcAt(f, i.Imm32)
			if !vs.chargeCall() {
				suspendOutOfFuel()
			}
			f.ip++
			vs.enterInternal(f, fn, i.Span1, i.Span2)
			continue
		case regir.OpCallImported:
			fn := vs.funcAt(f, i.Imm32)
			if !vs.chargeCall() {
				suspendOutOfFuel()
			}
			f.ip++
			ctx = vs.callHostSync(ctx, f, fn.Host, i.Span1, i.Span2)
			continue
		case regir.OpCallIndirect:
			fn := vs.resolveIndirect(f, i.Imm32, i.Imm32b, vs.read(f, i.X1))
			if !vs.chargeCall() {
				suspendOutOfFuel()
			}
			f.ip++
			if fn.IsHost() {
				ctx = vs.callHostSync(ctx, f, fn.Host, i.Span1, i.Span2)
			} else {
				vs.enterInternal(f, fn, i.Span1, i.Span2)
			}
			continue

		case regir.OpReturnCallInternal:
			fn := vs.funcAt(f, i.Imm32)
			if !vs.chargeCall() {
				suspendOutOfFuel()
			}
			vs.tailEnterInternal(f, fn, i.Span1)
			continue
		case regir.OpReturnCallImported:
			fn := vs.funcAt(f, i.Imm32)
			if !vs.chargeCall() {
				suspendOutOfFuel()
			}
			vs.tailCallHost(ctx, f, fn.Host, i.Span1)
			continue
		case regir.OpReturnCallIndirect:
			fn := vs.resolveIndirect(f, i.Imm32, i.Imm32b, vs.read(f, i.X1))
			if !vs.chargeCall() {
				suspendOutOfFuel()
			}
			if fn.IsHost() {
				vs.tailCallHost(ctx, f, fn.Host, i.Span1)
			} else {
				vs.tailEnterInternal(f, fn, i.Span1)
			}
			continue

		case regir.OpBinary:
			result, trapCode, trapped := regir.EvalBin(i.Kind, i.Bin, vs.read(f, i.X1), vs.read(f, i.X2))
			if trapped {
				vs.trap(trapCode)
			}
			vs.write(f, i.Result, result)
		case regir.OpUnary:
			result, trapCode, trapped := regir.EvalUn(i.Kind, i.Un, vs.read(f, i.X1))
			if trapped {
				vs.trap(trapCode)
			}
			vs.write(f, i.Result, result)
		case regir.OpSelect:
			if vs.read(f, i.X1) != 0 {
				vs.write(f, i.Result, vs.read(f, i.Span1.Head))
			} else {
				vs.write(f, i.Result, vs.read(f, i.Span2.Head))
			}
		case regir.OpSelectCmp:
			result, trapCode, trapped := regir.EvalBin(i.Kind, i.Bin, vs.read(f, i.X1), vs.read(f, i.X2))
			if trapped {
				vs.trap(trapCode)
			}
			if result != 0 {
				vs.write(f, i.Result, vs.read(f, i.Span1.Head))
			} else {
				vs.write(f, i.Result, vs.read(f, i.Span2.Head))
			}

		case regir.OpLoad:
			v, ok := vs.execLoad(f, i.Imm32, i.Signed, vs.read(f, i.X1), i.Offset, i.Imm32b)
			if !ok {
				vs.trap(api.TrapMemoryOutOfBounds)
			}
			vs.write(f, i.Result, v)
		case regir.OpStore:
			if !vs.execStore(f, i.Imm32, vs.read(f, i.X1), i.Offset, i.Imm32b, vs.read(f, i.X2)) {
				vs.trap(api.TrapMemoryOutOfBounds)
			}
		case regir.OpMemorySize:
			vs.write(f, i.Result, uint64(vs.memoryAt(f, i.Imm32).PageSize()))
		case regir.OpMemoryGrow:
			delta := uint32(vs.read(f, i.X1))
			if !vs.chargeGrowth(delta) {
				suspendOutOfFuel()
			}
			prev := vs.memoryAt(f, i.Imm32).Grow(delta, vs.st.Limiter)
			vs.write(f, i.Result, uint64(prev))
		case regir.OpMemoryCopy:
			n := uint32(vs.read(f, i.Span1.Head))
			if !vs.chargeBytes(n) {
				suspendOutOfFuel()
			}
			mem := vs.memoryAt(f, i.Imm32)
			if !memoryCopy(mem, mem, uint32(vs.read(f, i.X1)), uint32(vs.read(f, i.X2)), n) {
				vs.trap(api.TrapMemoryOutOfBounds)
			}
		case regir.OpMemoryFill:
			n := uint32(vs.read(f, i.Span1.Head))
			if !vs.chargeBytes(n) {
				suspendOutOfFuel()
			}
			if !memoryFill(vs.memoryAt(f, i.Imm32), uint32(vs.read(f, i.X1)), byte(vs.read(f, i.X2)), n) {
				vs.trap(api.TrapMemoryOutOfBounds)
			}
		case regir.OpMemoryInit:
			n := uint32(vs.read(f, i.Span1.Head))
			if !vs.chargeBytes(n) {
				suspendOutOfFuel()
			}
			data := vs.st.DataSegment(f.instance.Data[i.Imm32b])
			if !memoryInit(vs.memoryAt(f, i.Imm32), data, uint32(vs.read(f, i.X1)), uint32(vs.read(f, i.X2)), n) {
				vs.trap(api.TrapMemoryOutOfBounds)
			}
		case regir.OpDataDrop:
			vs.st.DropData(f.instance.Data[i.Imm32])

		case regir.OpTableGet:
			v, ok := vs.tableAt(f, i.Imm32).Get(uint32(vs.read(f, i.X1)))
			if !ok {
				vs.trap(api.TrapTableOutOfBounds)
			}
			vs.write(f, i.Result, v)
		case regir.OpTableSet:
			if !vs.tableAt(f, i.Imm32).Set(uint32(vs.read(f, i.X1)), vs.read(f, i.X2)) {
				vs.trap(api.TrapTableOutOfBounds)
			}
		case regir.OpTableSize:
			vs.write(f, i.Result, uint64(len(vs.tableAt(f, i.Imm32).Elements)))
		case regir.OpTableGrow:
			n := uint32(vs.read(f, i.X1))
			if !vs.chargeGrowth(n) {
				suspendOutOfFuel()
			}
			prev := vs.tableAt(f, i.Imm32).Grow(n, vs.read(f, i.X2), vs.st.Limiter)
			vs.write(f, i.Result, uint64(prev))
		case regir.OpTableCopy:
			n := uint32(vs.read(f, i.Span1.Head))
			if !vs.chargeBytes(n) {
				suspendOutOfFuel()
			}
			dst, src := vs.tableAt(f, i.Imm32), vs.tableAt(f, i.Imm32b)
			if !tableCopy(dst, src, uint32(vs.read(f, i.X1)), uint32(vs.read(f, i.X2)), n) {
				vs.trap(api.TrapTableOutOfBounds)
			}
		case regir.OpTableFill:
			n := uint32(vs.read(f, i.Span1.Head))
			if !vs.chargeBytes(n) {
				suspendOutOfFuel()
			}
			if !tableFill(vs.tableAt(f, i.Imm32), uint32(vs.read(f, i.X1)), vs.read(f, i.X2), n) {
				vs.trap(api.TrapTableOutOfBounds)
			}
		case regir.OpTableInit:
			n := uint32(vs.read(f, i.Span1.Head))
			if !vs.chargeBytes(n) {
				suspendOutOfFuel()
			}
			elems := vs.st.ElemSegment(f.instance.Elems[i.Imm32b])
			if !tableInit(vs.tableAt(f, i.Imm32), elems, uint32(vs.read(f, i.X1)), uint32(vs.read(f, i.X2)), n) {
				vs.trap(api.TrapTableOutOfBounds)
			}
		case regir.OpElemDrop:
			vs.st.DropElem(f.instance.Elems[i.Imm32])

		case regir.OpConsumeFuel:
			// Not emitted by today's translator (its instruction
			// stream never schedules an explicit fuel charge:
			// chargeBase above already meters every dispatched
			// opcode). Kept as the extension point a future
			// block-level batching pass would target.
			if !vs.st.Fuel.Consume(uint64(i.Imm32)) {
				suspendOutOfFuel()
			}
		case regir.OpRefFunc:
			fh := f.instance.Funcs[i.Imm32]
			vs.write(f, i.Result, uint64(fh.Index())+1)
		case regir.OpRefNull:
			vs.write(f, i.Result, 0)
		case regir.OpRefIsNull:
			vs.write(f, i.Result, b2u64(vs.read(f, i.X1) == 0))

		case regir.OpI64Add128, regir.OpI64Sub128, regir.OpI64MulWide, regir.OpU64MulWide:
			// Wide-arithmetic proposal opcodes: no WasmOpKind source
			// operator feeds these yet, so the translator never emits
			// them. See DESIGN.md's "dispatch.go" entry. Dispatching one
			// would mean a malformed code map, not a reachable Wasm
			// program state.
			vs.trap(api.TrapUnreachableCodeReached)

		default:
			panic("interpreter: unhandled opcode")
		}

		f.ip++
	}
	return ctx
}

func b2u64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
