package regir

// singleResultSlot returns a pointer to the one Slot field an
// instruction writes its value to, or nil for instructions with no
// single-slot result (control transfers, stores, span-producing ops).
// Used by storeToSlot's relinking peephole.
func singleResultSlot(i *Instruction) *Slot {
	switch i.Op {
	case OpBinary, OpUnary, OpSelect, OpSelectCmp, OpLoad, OpGlobalGet, OpCopy,
		OpRefFunc, OpRefNull, OpTableGet, OpMemorySize, OpMemoryGrow, OpTableSize, OpTableGrow:
		return &i.Result
	}
	return nil
}

// storeToSlot moves an operand's value into dst, a fixed slot
// (typically a local, or a block/loop's reserved param/result home).
// Per 's "result relinking": if the operand is the direct
// output of the instruction just emitted and that slot is a scratch
// temporary (not itself a local or other fixed home), the
// just-emitted instruction is rewritten in place to write straight to
// dst instead of copying afterward. Skipped entirely when v.joined:
// a value that crossed a control-flow join may have more than one
// static producer, and "the last emitted instruction" is only one of
// them.
func (t *translator) storeToSlot(dst Slot, v operand) {
	if v.phantom {
		return // dead code: no real value to move, nothing observes dst anyway
	}
	if v.isConst {
		t.emit(Instruction{Op: OpCopy, Kind: v.kind, Result: dst, X1: v.slot})
		return
	}
	if v.slot == dst {
		return
	}
	if last := t.lastOp(); last != nil && !v.joined {
		if p := singleResultSlot(last); p != nil && *p == v.slot && v.slot >= t.numReserved {
			*p = dst
			if last.Op == OpBinary || last.Op == OpUnary {
				last.AssignToX1 = dst == last.X1
			}
			return
		}
	}
	t.emit(Instruction{Op: OpCopy, Kind: v.kind, Result: dst, X1: v.slot})
}

// pushFrame enters a new structured-control-flow region. Block/loop/if
// signatures are restricted to at most one parameter and one result
// (see Translate's doc comment).
func (t *translator) pushFrame(kind BlockKind, paramKinds, resultKinds []ValueKind) {
	f := controlFrame{
		kind:               kind,
		paramKinds:         paramKinds,
		resultKinds:        resultKinds,
		stackHeightAtEntry: len(t.stack) - len(paramKinds),
	}
	if len(resultKinds) > 0 {
		f.resultSpan = t.allocSpan(resultKinds)
	}
	if kind == BlockLoop && len(paramKinds) > 0 {
		f.paramSpan = t.allocSpan(paramKinds)
	}
	t.frames = append(t.frames, f)

	if kind == BlockLoop && len(paramKinds) > 0 {
		cur := t.curFrame()
		tmp := make([]operand, len(paramKinds))
		for i := len(paramKinds) - 1; i >= 0; i-- {
			tmp[i] = t.pop()
		}
		for i, k := range paramKinds {
			dst := cur.paramSpan.At(i)
			t.storeToSlot(dst, tmp[i])
			t.push(operand{slot: dst, kind: k})
		}
	}
	if kind == BlockLoop {
		t.curFrame().loopHead = len(t.ops)
	}
}

// branchSpans returns the (source, dest) slot spans a branch to
// target should carry: the top of the current operand stack matching
// target's label arity, and target's reserved label-home span. consume
// controls whether the source operand is popped (an unconditional
// transfer) or merely peeked (a conditional one, since the non-taken
// path must leave the value on the stack for fallthrough code).
func (t *translator) branchSpans(target *controlFrame, consume bool) (src, dst SlotSpan) {
	kinds := target.labelResultKinds()
	if len(kinds) == 0 {
		return SlotSpan{}, SlotSpan{}
	}
	var v operand
	if consume {
		v = t.pop()
	} else {
		v = t.peek()
	}
	if v.phantom {
		return SlotSpan{}, SlotSpan{}
	}
	return spanOf(v.slot), target.labelSpan()
}

// tryFuseCompareBranch folds a comparison immediately followed by a
// conditional branch on its boolean result into one OpBranchCmp
// instruction, provided the
// comparison's result is dead everywhere except this branch.
func (t *translator) tryFuseCompareBranch(cond operand) (cmp BinOp, kind ValueKind, x1, x2 Slot, ok bool) {
	if cond.isConst || cond.phantom {
		return 0, 0, 0, 0, false
	}
	last := t.lastOp()
	if last == nil || last.Op != OpBinary || last.Result != cond.slot || cond.slot < t.numReserved {
		return 0, 0, 0, 0, false
	}
	if !isComparison(last.Bin) {
		return 0, 0, 0, 0, false
	}
	cmp, kind, x1, x2 = last.Bin, last.Kind, last.X1, last.X2
	t.ops = t.ops[:len(t.ops)-1] // the comparison is subsumed into the fused branch
	if cond.slot+1 == t.allocNext {
		t.allocNext = cond.slot
	}
	return cmp, kind, x1, x2, true
}

// tryFuseCompareSelect is tryFuseCompareBranch's analogue for select
//.
func (t *translator) tryFuseCompareSelect(cond operand) (cmp BinOp, kind ValueKind, x1, x2 Slot, ok bool) {
	return t.tryFuseCompareBranch(cond)
}

// spanOf wraps a single operand slot as a length-1 SlotSpan without
// NewSlotSpan's live-slot check: unlike a call's or function's
// reserved argument/result window (always freshly bump-allocated,
// never a constant), a single branch-carried, select, or varargs
// value may legitimately be a constant-pool reference, and the
// executor resolves a span's Head through the same live-or-constant
// Slot rule as any other operand field.
func spanOf(s Slot) SlotSpan { return SlotSpan{Head: s, Len: 1} }

func isComparison(b BinOp) bool {
	switch b {
	case BinEq, BinNe, BinLtS, BinLtU, BinLeS, BinLeU, BinGtS, BinGtU, BinGeS, BinGeU:
		return true
	}
	return false
}
