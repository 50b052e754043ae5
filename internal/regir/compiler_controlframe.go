package regir

// controlFrame is one entry of the translator's control-frame stack,
// tracking a structured block/loop/if.
type controlFrame struct {
	kind BlockKind

	// stackHeightAtEntry is the operand-stack depth when this frame
	// was entered, used to reset the stack shape after dead code and
	// to bound pop() against underflow.
	stackHeightAtEntry int

	paramKinds  []ValueKind
	resultKinds []ValueKind

	// resultSpan is the frame's reserved home for its result value(s):
	// every branch that targets this label, plus the natural
	// fallthrough at `end`, writes here, so there's exactly one place
	// downstream code reads the label's value from regardless of which
	// path produced it.
	resultSpan SlotSpan
	// paramSpan is a loop's reserved home for its parameter value(s):
	// a backward branch to a loop copies the next iteration's operands
	// here before jumping to loopHead. Unused for block/if.
	paramSpan SlotSpan

	// patchList holds branch/table-entry sites whose Offset field must
	// be rewritten to a relative displacement once this frame's `end`
	// is reached (forward branches: "forward labels emit
	// placeholders patched when the target end is encountered").
	patchList []patchRef

	// loopHead is the opcode index of this frame's first instruction,
	// used as the immediate backward-branch target for `loop` frames
	//.
	loopHead int

	// unreachable is set once an unconditional branch/return/trap has
	// been emitted in this frame; until the matching else/end, further
	// operators are translated without emitting instructions.
	unreachable bool

	// deadAtBirth marks a frame pushed while its enclosing region was
	// already unreachable: no span is reserved, nothing inside it is
	// ever emitted, and its own end/else need only pop the frame
	// stack (see pushDeadFrame).
	deadAtBirth bool

	// elseReached distinguishes an `if` frame that has seen its `else`
	// operator (so `end` closes the else-arm) from one that hasn't
	// (so `end` must synthesize the empty else-arm's result copy).
	elseReached bool

	// ifElseJumpPatch is the opcode index of the conditional branch
	// emitted for `if`, rewritten once `else` (or, lacking one, `end`)
	// is reached.
	ifElseJumpPatch int
}

// patchRef is a single forward-branch site awaiting its target
// address. A plain branch patches Instruction.Offset directly; a
// br_table case patches one entry of a BranchTarget side table.
type patchRef struct {
	opIndex    int
	isTable    bool
	tableIndex int
	entryIndex int
}

func (f *controlFrame) addPatch(opIndex int) {
	f.patchList = append(f.patchList, patchRef{opIndex: opIndex})
}

func (f *controlFrame) addTablePatch(opIndex, tableIndex, entryIndex int) {
	f.patchList = append(f.patchList, patchRef{opIndex: opIndex, isTable: true, tableIndex: tableIndex, entryIndex: entryIndex})
}

// labelResultKinds returns the value kinds carried across a branch to
// this frame's label: a loop's label is its entry (so branching there
// passes the loop's *parameters*), while block/if labels are their
// exit (so branching there passes the block's *results*).
func (f *controlFrame) labelResultKinds() []ValueKind {
	if f.kind == BlockLoop {
		return f.paramKinds
	}
	return f.resultKinds
}

// labelSpan returns the slot home a branch to this frame's label
// writes into, paired with labelResultKinds.
func (f *controlFrame) labelSpan() SlotSpan {
	if f.kind == BlockLoop {
		return f.paramSpan
	}
	return f.resultSpan
}
