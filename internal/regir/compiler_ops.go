package regir

import "github.com/wasmregvm/core/api"

// translateOp dispatches one validated Wasm operator to its handler.
// Once the current frame is marked unreachable, every operator except
// the structural ones (block/loop/if/else/end) is dead: 's
// "Dead-code elision" drops it without emitting anything rather than
// translating it and relying on the executor to never reach it.
func (t *translator) translateOp(op WasmOp) {
	if t.curFrame().unreachable {
		switch op.Kind {
		case WasmBlock, WasmLoop, WasmIf:
			t.pushDeadFrame(op)
			return
		case WasmElse:
			t.handleElse(op)
			return
		case WasmEnd:
			t.handleEnd(op)
			return
		default:
			return
		}
	}

	switch op.Kind {
	case WasmUnreachable:
		t.emit(Instruction{Op: OpTrap, Imm32: uint32(trapCodeUnreachable)})
		t.curFrame().unreachable = true
	case WasmNop:
		// no operand-stack or control-flow effect.
	case WasmBlock:
		t.pushFrame(BlockBlock, kindsOf(op.Signature.Params), kindsOf(op.Signature.Results))
	case WasmLoop:
		t.pushFrame(BlockLoop, kindsOf(op.Signature.Params), kindsOf(op.Signature.Results))
	case WasmIf:
		t.handleIf(op)
	case WasmElse:
		t.handleElse(op)
	case WasmEnd:
		t.handleEnd(op)
	case WasmBr:
		t.handleBr(op)
	case WasmBrIf:
		t.handleBrIf(op)
	case WasmBrTable:
		t.handleBrTable(op)
	case WasmReturn:
		t.handleReturn()
	case WasmCall, WasmCallIndirect:
		t.handleCall(op)
	case WasmDrop:
		t.pop()
	case WasmSelect, WasmTypedSelect:
		t.handleSelect(op)
	case WasmLocalGet:
		t.push(operand{slot: Slot(op.Index), kind: t.localKinds[op.Index]})
	case WasmLocalSet:
		v := t.pop()
		t.storeToSlot(Slot(op.Index), v)
	case WasmLocalTee:
		v := t.peek()
		t.storeToSlot(Slot(op.Index), v)
		t.stack[len(t.stack)-1] = operand{slot: Slot(op.Index), kind: v.kind}
	case WasmGlobalGet:
		dst := t.alloc(op.ConstKind)
		t.emit(Instruction{Op: OpGlobalGet, Kind: op.ConstKind, Result: dst.slot, Imm32: op.Index})
		t.push(dst)
	case WasmGlobalSet:
		v := t.pop()
		t.emit(Instruction{Op: OpGlobalSet, Kind: v.kind, X1: v.slot, Imm32: op.Index})
	case WasmConst:
		t.pushConst(op.ConstBits, op.ConstKind)
	case WasmBinary:
		t.handleBinary(op)
	case WasmUnary:
		t.handleUnary(op)
	case WasmLoad:
		t.handleLoad(op)
	case WasmStore:
		t.handleStore(op)
	case WasmMemorySize:
		dst := t.alloc(KindI32)
		t.emit(Instruction{Op: OpMemorySize, Result: dst.slot, Imm32: op.MemIndex})
		t.push(dst)
	case WasmMemoryGrow:
		delta := t.pop()
		dst := t.alloc(KindI32)
		t.emit(Instruction{Op: OpMemoryGrow, Result: dst.slot, X1: delta.slot, Imm32: op.MemIndex})
		t.push(dst)
	case WasmMemoryCopy:
		n, src, dst := t.pop(), t.pop(), t.pop()
		t.emit(Instruction{Op: OpMemoryCopy, X1: dst.slot, X2: src.slot, Span1: spanOf(n.slot), Imm32: op.MemIndex})
	case WasmMemoryFill:
		n, val, dst := t.pop(), t.pop(), t.pop()
		t.emit(Instruction{Op: OpMemoryFill, X1: dst.slot, X2: val.slot, Span1: spanOf(n.slot), Imm32: op.MemIndex})
	case WasmMemoryInit:
		n, src, dst := t.pop(), t.pop(), t.pop()
		t.emit(Instruction{Op: OpMemoryInit, X1: dst.slot, X2: src.slot, Span1: spanOf(n.slot), Imm32: op.MemIndex, Imm32b: op.DataIndex})
	case WasmDataDrop:
		t.emit(Instruction{Op: OpDataDrop, Imm32: op.DataIndex})
	case WasmTableGet:
		idx := t.pop()
		dst := t.alloc(KindI64)
		t.emit(Instruction{Op: OpTableGet, Result: dst.slot, X1: idx.slot, Imm32: op.TableIndex})
		t.push(dst)
	case WasmTableSet:
		val, idx := t.pop(), t.pop()
		t.emit(Instruction{Op: OpTableSet, X1: idx.slot, X2: val.slot, Imm32: op.TableIndex})
	case WasmTableSize:
		dst := t.alloc(KindI32)
		t.emit(Instruction{Op: OpTableSize, Result: dst.slot, Imm32: op.TableIndex})
		t.push(dst)
	case WasmTableGrow:
		val, n := t.pop(), t.pop()
		dst := t.alloc(KindI32)
		t.emit(Instruction{Op: OpTableGrow, Result: dst.slot, X1: n.slot, X2: val.slot, Imm32: op.TableIndex})
		t.push(dst)
	case WasmTableCopy:
		n, src, dst := t.pop(), t.pop(), t.pop()
		t.emit(Instruction{Op: OpTableCopy, X1: dst.slot, X2: src.slot, Span1: spanOf(n.slot), Imm32: op.DstTable, Imm32b: op.SrcTable})
	case WasmTableFill:
		n, val, dst := t.pop(), t.pop(), t.pop()
		t.emit(Instruction{Op: OpTableFill, X1: dst.slot, X2: val.slot, Span1: spanOf(n.slot), Imm32: op.TableIndex})
	case WasmTableInit:
		n, src, dst := t.pop(), t.pop(), t.pop()
		t.emit(Instruction{Op: OpTableInit, X1: dst.slot, X2: src.slot, Span1: spanOf(n.slot), Imm32: op.TableIndex, Imm32b: op.ElemIndex})
	case WasmElemDrop:
		t.emit(Instruction{Op: OpElemDrop, Imm32: op.ElemIndex})
	case WasmRefFunc:
		dst := t.alloc(KindI64)
		t.emit(Instruction{Op: OpRefFunc, Result: dst.slot, Imm32: op.Index})
		t.push(dst)
	case WasmRefNull:
		t.pushConst(0, KindI64)
	case WasmRefIsNull:
		t.handleRefIsNull()
	default:
		panic(MalformedAfterValidation{FuncIndex: t.funcIndex, Detail: "unhandled operator kind"})
	}
}

// trapCodeUnreachable is the Imm32 the executor reads off an
// OpTrap instruction emitted for the `unreachable` operator.
const trapCodeUnreachable = uint32(api.TrapUnreachableCodeReached)

func kindsOf(types []api.ValueType) []ValueKind {
	if len(types) == 0 {
		return nil
	}
	out := make([]ValueKind, len(types))
	for i, vt := range types {
		out[i] = KindFromValueType(vt)
	}
	return out
}

// pushDeadFrame enters a structured region whose enclosing context is
// already unreachable: no spans are reserved and nothing is emitted,
// since nothing inside can ever execute, but the frame stack must
// still track the nesting so the matching else/end is recognized.
func (t *translator) pushDeadFrame(op WasmOp) {
	t.frames = append(t.frames, controlFrame{
		kind:        blockKindOf(op),
		unreachable: true,
		deadAtBirth: true,
	})
}

func blockKindOf(op WasmOp) BlockKind {
	switch op.Kind {
	case WasmLoop:
		return BlockLoop
	case WasmIf:
		return BlockIf
	default:
		return BlockBlock
	}
}

func (t *translator) handleIf(op WasmOp) {
	cond := t.pop()
	var idx int
	if cmp, kind, x1, x2, ok := t.tryFuseCompareBranch(cond); ok {
		idx = t.emit(Instruction{Op: OpBranchCmp, Kind: kind, Bin: invertComparison(cmp), X1: x1, X2: x2})
	} else {
		idx = t.emit(Instruction{Op: OpBranchIfEqz, X1: cond.slot})
	}
	t.pushFrame(BlockIf, nil, nil)
	f := t.curFrame()
	f.resultKinds = kindsOf(op.Signature.Results)
	if len(f.resultKinds) > 0 {
		f.resultSpan = t.allocSpan(f.resultKinds)
	}
	f.ifElseJumpPatch = idx
}

func (t *translator) handleElse(op WasmOp) {
	f := t.curFrame()
	if f.deadAtBirth {
		f.elseReached = true
		return
	}
	if !f.unreachable && f.resultSpan.Len > 0 {
		v := t.pop()
		t.storeToSlot(f.resultSpan.At(0), v)
	}
	idx := t.emit(Instruction{Op: OpBranch})
	f.addPatch(idx)
	t.ops[f.ifElseJumpPatch].Offset = int32(len(t.ops) - f.ifElseJumpPatch)
	f.elseReached = true
	f.unreachable = false
	t.stack = t.stack[:f.stackHeightAtEntry]
}

func (t *translator) handleEnd(op WasmOp) {
	f := t.curFrame()
	if f.deadAtBirth {
		t.frames = t.frames[:len(t.frames)-1]
		return
	}
	if f.kind == BlockIf && !f.elseReached {
		t.ops[f.ifElseJumpPatch].Offset = int32(len(t.ops) - f.ifElseJumpPatch)
	}

	if len(t.frames) == 1 {
		if !f.unreachable {
			t.emitFunctionReturn(f)
		}
		landing := len(t.ops) - 1
		t.patchAll(f.patchList, landing)
		t.frames = t.frames[:0]
		return
	}

	if !f.unreachable && f.resultSpan.Len > 0 {
		v := t.pop()
		t.storeToSlot(f.resultSpan.At(0), v)
	}
	t.frames = t.frames[:len(t.frames)-1]
	landing := len(t.ops)
	t.patchAll(f.patchList, landing)
	if f.resultSpan.Len > 0 {
		t.push(operand{slot: f.resultSpan.At(0), kind: f.resultKinds[0], joined: true})
	}
}

// emitFunctionReturn copies the live operand-stack tail matching the
// function's result arity into the outermost frame's reserved span
// and emits the terminal return instruction. Used both by the natural
// fallthrough at the function's implicit closing `end` and by
// handleReturn (the explicit `return` operator).
func (t *translator) emitFunctionReturn(outer *controlFrame) {
	n := len(outer.resultKinds)
	for i := n - 1; i >= 0; i-- {
		v := t.pop()
		t.storeToSlot(outer.resultSpan.At(i), v)
	}
	switch n {
	case 0:
		t.emit(Instruction{Op: OpReturn})
	case 1:
		t.emit(Instruction{Op: OpReturnValue, Kind: outer.resultKinds[0], X1: outer.resultSpan.At(0)})
	default:
		t.emit(Instruction{Op: OpReturnSpan, Span1: outer.resultSpan})
	}
}

func (t *translator) handleReturn() {
	t.emitFunctionReturn(&t.frames[0])
	t.curFrame().unreachable = true
}

func (t *translator) frameAt(relativeDepth uint32) *controlFrame {
	return &t.frames[len(t.frames)-1-int(relativeDepth)]
}

func (t *translator) handleBr(op WasmOp) {
	target := t.frameAt(op.RelativeDepth)
	src, dst := t.branchSpans(target, true)
	idx := t.emit(Instruction{Op: OpBranch, Span1: src, Span2: dst})
	t.resolveBranchTarget(target, idx)
	t.curFrame().unreachable = true
}

func (t *translator) handleBrIf(op WasmOp) {
	target := t.frameAt(op.RelativeDepth)
	cond := t.pop()
	src, dst := t.branchSpansPeek(target)
	var idx int
	if cmp, kind, x1, x2, ok := t.tryFuseCompareBranch(cond); ok {
		idx = t.emit(Instruction{Op: OpBranchCmp, Kind: kind, Bin: cmp, X1: x1, X2: x2, Span1: src, Span2: dst})
	} else {
		idx = t.emit(Instruction{Op: OpBranchIfNez, X1: cond.slot, Span1: src, Span2: dst})
	}
	t.resolveBranchTarget(target, idx)
}

// branchSpansPeek is handleBrIf's non-consuming variant of
// branchSpans: the branch-parameter value must remain on the operand
// stack for the fallthrough path, since the copy the executor
// performs only fires when the branch is actually taken.
func (t *translator) branchSpansPeek(target *controlFrame) (src, dst SlotSpan) {
	return t.branchSpans(target, false)
}

func (t *translator) handleBrTable(op WasmOp) {
	idx := t.pop()
	depths := append(append([]uint32{}, op.TableDepths...), op.TableDefault)
	table := make([]BranchTarget, len(depths))
	tableIndex := len(t.branchTables)
	t.branchTables = append(t.branchTables, table)

	// br_table's targets all share the branch's label arity (validator
	// guarantee); the value, if any, is consumed once here and copied
	// into whichever target is actually reached.
	var carried operand
	hasResult := len(depths) > 0 && len(t.frameAt(depths[0]).labelResultKinds()) > 0
	if hasResult {
		carried = t.pop()
	}

	opIdx := t.emit(Instruction{Op: OpBranchTable, X1: idx.slot, Imm32: uint32(tableIndex)})
	for i, d := range depths {
		target := t.frameAt(d)
		entry := BranchTarget{}
		if hasResult {
			entry.CopyFrom = spanOf(carried.slot)
			entry.CopyTo = target.labelSpan()
		}
		if target.kind == BlockLoop {
			entry.Offset = int32(target.loopHead - opIdx)
			t.branchTables[tableIndex][i] = entry
		} else {
			t.branchTables[tableIndex][i] = entry
			target.addTablePatch(opIdx, tableIndex, i)
		}
	}
	t.curFrame().unreachable = true
}

// resolveBranchTarget patches idx immediately (backward, loop) or
// registers it for patching once target's `end` is reached (forward).
func (t *translator) resolveBranchTarget(target *controlFrame, idx int) {
	if target.kind == BlockLoop {
		t.ops[idx].Offset = int32(target.loopHead - idx)
		return
	}
	target.addPatch(idx)
}

func (t *translator) handleCall(op WasmOp) {
	var idx Slot
	if op.Kind == WasmCallIndirect {
		v := t.pop()
		idx = v.slot
	}
	argSpan := t.reserveArgs(op.CallParams)
	var resultSpan SlotSpan
	if len(op.CallResults) > 0 {
		resultSpan = t.allocSpan(op.CallResults)
	}

	var instrOp Op
	switch {
	case op.Kind == WasmCallIndirect && op.TailCall:
		instrOp = OpReturnCallIndirect
	case op.Kind == WasmCallIndirect:
		instrOp = OpCallIndirect
	case op.TailCall && op.CallImported:
		instrOp = OpReturnCallImported
	case op.TailCall:
		instrOp = OpReturnCallInternal
	case op.CallImported:
		instrOp = OpCallImported
	default:
		instrOp = OpCallInternal
	}

	i := Instruction{Op: instrOp, Span1: argSpan, Span2: resultSpan, Imm32: op.Index, Imm32b: op.TypeIndex}
	if op.Kind == WasmCallIndirect {
		i.X1 = idx
		i.Imm32 = op.TableIndex
	}
	t.emit(i)

	if op.TailCall {
		t.curFrame().unreachable = true
		return
	}
	for i, k := range op.CallResults {
		t.push(operand{slot: resultSpan.At(i), kind: k})
	}
}

// reserveArgs moves the top len(paramKinds) operands into a freshly
// allocated contiguous span, the calling convention every call
// instruction expects. Arguments may
// already be scattered across non-adjacent slots (constants, locals,
// relinked temporaries), so this always materializes them rather than
// only doing so when necessary; that's a missed peephole opportunity,
// not a correctness gap. A call with no parameters gets an empty span
// headed at the first free slot, so the callee's frame still starts
// above every live value of the caller.
func (t *translator) reserveArgs(paramKinds []ValueKind) SlotSpan {
	if len(paramKinds) == 0 {
		return SlotSpan{Head: t.allocNext}
	}
	vals := make([]operand, len(paramKinds))
	for i := len(paramKinds) - 1; i >= 0; i-- {
		vals[i] = t.pop()
	}
	span := t.allocSpan(paramKinds)
	for i, v := range vals {
		t.storeToSlot(span.At(i), v)
	}
	return span
}

func (t *translator) handleSelect(op WasmOp) {
	cond := t.pop()
	v2 := t.pop()
	v1 := t.pop()
	kind := op.OpKind
	if op.Kind == WasmTypedSelect {
		kind = KindFromValueType(op.SelectType)
	}
	dst := t.alloc(kind)
	// OpSelect/OpSelectCmp never interpret the chosen value, so
	// Instruction.Kind here carries the *comparison's* operand type
	// (needed to evaluate Bin), not the selected value's type.
	if cmp, cmpKind, x1, x2, ok := t.tryFuseCompareSelect(cond); ok {
		t.emit(Instruction{Op: OpSelectCmp, Kind: cmpKind, Bin: cmp, X1: x1, X2: x2, Result: dst.slot,
			Span1: spanOf(v1.slot), Span2: spanOf(v2.slot)})
	} else {
		t.emit(Instruction{Op: OpSelect, Kind: kind, X1: cond.slot, Result: dst.slot,
			Span1: spanOf(v1.slot), Span2: spanOf(v2.slot)})
	}
	t.push(dst)
}

func (t *translator) handleBinary(op WasmOp) {
	x2 := t.pop()
	x1 := t.pop()
	if x1.phantom || x2.phantom {
		t.pushPhantom(op.OpKind)
		return
	}
	if x1.isConst && x2.isConst && IsFoldSafe(op.OpKind, op.Bin, x1.bits, x2.bits) {
		result, _, _ := EvalBin(op.OpKind, op.Bin, x1.bits, x2.bits)
		t.pushConst(result, op.OpKind)
		return
	}
	resultSlot, assign := t.resultSlotFor(x1, op.OpKind)
	t.emit(Instruction{Op: OpBinary, Kind: op.OpKind, Bin: op.Bin, Result: resultSlot, X1: x1.slot, X2: x2.slot, AssignToX1: assign})
	t.push(operand{slot: resultSlot, kind: op.OpKind})
}

func (t *translator) handleUnary(op WasmOp) {
	x := t.pop()
	if x.phantom {
		t.pushPhantom(op.OpKind)
		return
	}
	if x.isConst {
		if result, _, trapped := EvalUn(op.OpKind, op.Un, x.bits); !trapped {
			t.pushConst(result, op.OpKind)
			return
		}
		// Would trap: fall through and emit so the trap surfaces at
		// execution time, never at translation time.
	}
	resultSlot, assign := t.resultSlotFor(x, op.OpKind)
	t.emit(Instruction{Op: OpUnary, Kind: op.OpKind, Un: op.Un, Result: resultSlot, X1: x.slot, AssignToX1: assign})
	t.push(operand{slot: resultSlot, kind: op.OpKind})
}

// resultSlotFor picks an arithmetic instruction's result home: x's own
// slot when x is a dead scratch temporary (the common case; this is
// the "assign-form" realization of result relinking, ),
// or a freshly allocated slot otherwise.
func (t *translator) resultSlotFor(x operand, kind ValueKind) (slot Slot, assign bool) {
	if !x.isConst && !x.phantom && x.slot >= t.numReserved {
		return x.slot, true
	}
	return t.alloc(kind).slot, false
}

func (t *translator) handleLoad(op WasmOp) {
	addr := t.pop()
	dst := t.alloc(op.OpKind)
	t.emit(Instruction{Op: OpLoad, Kind: op.OpKind, Signed: op.Signed, Result: dst.slot, X1: addr.slot,
		Offset: int32(op.Offset), Imm32: uint32(op.Width), Imm32b: op.MemIndex})
	t.push(dst)
}

func (t *translator) handleStore(op WasmOp) {
	val := t.pop()
	addr := t.pop()
	t.emit(Instruction{Op: OpStore, Kind: op.OpKind, X1: addr.slot, X2: val.slot,
		Offset: int32(op.Offset), Imm32: uint32(op.Width), Imm32b: op.MemIndex})
}

func (t *translator) handleRefIsNull() {
	v := t.pop()
	if v.isConst {
		t.pushConst(b2u64(v.bits == 0), KindI32)
		return
	}
	dst := t.alloc(KindI32)
	t.emit(Instruction{Op: OpUnary, Kind: KindI64, Un: UnEqz, Result: dst.slot, X1: v.slot})
	t.push(operand{slot: dst.slot, kind: KindI32})
}

func invertComparison(b BinOp) BinOp {
	switch b {
	case BinEq:
		return BinNe
	case BinNe:
		return BinEq
	case BinLtS:
		return BinGeS
	case BinLtU:
		return BinGeU
	case BinLeS:
		return BinGtS
	case BinLeU:
		return BinGtU
	case BinGtS:
		return BinLeS
	case BinGtU:
		return BinLeU
	case BinGeS:
		return BinLtS
	case BinGeU:
		return BinLtU
	}
	return b
}
