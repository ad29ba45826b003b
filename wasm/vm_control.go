package wasm

// execute dispatches a single decoded instruction against the current
// frame, mutating the thread's value stack and, for control-flow and
// call instructions, its frame/label stacks. Opcode immediates are read
// from c as needed; c.pos on return becomes the frame's new pc, unless
// the instruction already installed its own target frame's pc directly
// (a call, or an exception unwinding into an enclosing frame).
func (t *Thread) execute(op Opcode, opPos int, c *byteCursor, fr *frame) {
	switch {
	case op == OpcodeUnreachable:
		trap(TrapUnreachable, "unreachable executed")
	case op == OpcodeNop:
	case op == OpcodeBlock:
		t.enterBlock(op, opPos, c, fr)
	case op == OpcodeLoop:
		t.enterBlock(op, opPos, c, fr)
	case op == OpcodeIf:
		t.execIf(opPos, c, fr)
	case op == OpcodeElse:
		t.execElse(c, fr)
	case op == OpcodeEnd:
		t.execEnd(fr)
	case op == OpcodeBr:
		depth, _ := c.readVarU32()
		t.branch(c, fr, int(depth))
	case op == OpcodeBrIf:
		depth, _ := c.readVarU32()
		if t.popValue().I32() != 0 {
			t.branch(c, fr, int(depth))
		}
	case op == OpcodeBrTable:
		t.execBrTable(c, fr)
	case op == OpcodeReturn:
		t.doReturn(fr, fr.labels[0].stackBase)
	case op == OpcodeCall:
		idx, _ := c.readVarU32()
		t.callAny(fr.fn.Module.Functions[idx])
	case op == OpcodeCallIndirect:
		t.execCallIndirect(c, fr)
	case op == OpcodeDrop, op == OpcodeSelect:
		t.execParametric(op)
	case op == OpcodeLocalGet, op == OpcodeLocalSet, op == OpcodeLocalTee,
		op == OpcodeGlobalGet, op == OpcodeGlobalSet:
		t.execVariable(op, c, fr)
	case isLoadOp(op) || isStoreOp(op) || op == OpcodeMemorySize || op == OpcodeMemoryGrow:
		t.execMemory(op, c, fr)
	case op == OpcodeTry:
		t.execTry(opPos, c, fr)
	case op == OpcodeCatch, op == OpcodeCatchAll:
		t.execCatch(opPos, c, fr)
	case op == OpcodeThrow:
		t.execThrow(c, fr)
	case op == OpcodeRethrow:
		t.execRethrow(c, fr)
	default:
		t.execNumeric(op, c)
	}
}

// enterBlock pushes a label for a block or loop. The condition (for if,
// handled separately) has already been consumed by the caller for if;
// block/loop have no operand.
func (t *Thread) enterBlock(op Opcode, opPos int, c *byteCursor, fr *frame) {
	results, _ := readBlockType(c)
	fr.labels = append(fr.labels, label{
		opcodePos:   opPos,
		isLoop:      op == OpcodeLoop,
		resultArity: len(results),
		stackBase:   len(t.values),
	})
}

func (t *Thread) execIf(opPos int, c *byteCursor, fr *frame) {
	results, _ := readBlockType(c)
	cond := t.popValue().I32()
	fr.labels = append(fr.labels, label{
		opcodePos:   opPos,
		resultArity: len(results),
		stackBase:   len(t.values),
	})
	if cond == 0 {
		jumps := fr.fn.jumps
		if target, ok := jumps.elseAt[opPos]; ok {
			c.pos = target
		} else {
			// No else clause: skip straight to end and pop the label
			// we just pushed, matching the empty result type an
			// else-less if is required to have.
			c.pos = jumps.end[opPos]
			t.execEnd(fr)
		}
	}
}

func (t *Thread) execElse(c *byteCursor, fr *frame) {
	// Reached by falling off the end of a taken then-branch: behaves
	// exactly like reaching the if's end (the label's result values are
	// already on the stack), then skip the else-branch body.
	l := fr.labels[len(fr.labels)-1]
	fr.labels = fr.labels[:len(fr.labels)-1]
	c.pos = fr.fn.jumps.end[l.opcodePos]
}

func (t *Thread) execEnd(fr *frame) {
	l := fr.labels[len(fr.labels)-1]
	fr.labels = fr.labels[:len(fr.labels)-1]
	if len(fr.labels) == 0 {
		t.doReturn(fr, l.stackBase)
		return
	}
}

// branch implements br to depth: pops the label's result values,
// truncates the stack to the target label's base, pushes the results
// back (block/if) or leaves the stack ready to re-enter (loop), and
// moves the pc to the target. It always operates on fr, the frame
// currently executing, so the jump target is installed on c (the
// cursor step() copies back into fr.pc) rather than on fr directly.
func (t *Thread) branch(c *byteCursor, fr *frame, depth int) {
	idx := len(fr.labels) - 1 - depth
	if idx < 0 {
		trap(TrapUnreachable, "invalid branch depth %d", depth)
	}
	l := fr.labels[idx]
	if l.isLoop {
		t.values = t.values[:l.stackBase]
		fr.labels = fr.labels[:idx+1]
		c.pos = fr.fn.jumps.loopStart[l.opcodePos]
		return
	}
	arity := l.resultArity
	saved := make([]Value, arity)
	for i := arity - 1; i >= 0; i-- {
		saved[i] = t.popValue()
	}
	t.values = t.values[:l.stackBase]
	for _, v := range saved {
		t.pushValue(v)
	}
	fr.labels = fr.labels[:idx]
	if idx == 0 {
		t.doReturn(fr, l.stackBase)
		return
	}
	if l.opcodePos == -1 {
		c.pos = len(fr.fn.Body)
	} else {
		c.pos = fr.fn.jumps.end[l.opcodePos]
	}
}

func (t *Thread) execBrTable(c *byteCursor, fr *frame) {
	n, _ := c.readVarU32()
	targets := make([]uint32, n)
	for i := range targets {
		targets[i], _ = c.readVarU32()
	}
	defaultDepth, _ := c.readVarU32()
	idx := t.popValue().I32()
	depth := defaultDepth
	if idx >= 0 && uint32(idx) < n {
		depth = targets[idx]
	}
	t.branch(c, fr, int(depth))
}

// doReturn pops the function's declared results off the stack, truncates
// down to base (the function-level label's stack height when it was
// called), and pushes the results back before popping the frame. base is
// supplied by the caller rather than read from fr.labels[0] because two
// callers (execEnd, branch) have already truncated fr.labels to empty by
// the time they call this, once the function-level label itself is the
// one being popped; execute's return case passes fr.labels[0].stackBase
// itself.
func (t *Thread) doReturn(fr *frame, base int) {
	numResults := len(fr.fn.Type.Results)
	saved := make([]Value, numResults)
	for i := numResults - 1; i >= 0; i-- {
		saved[i] = t.popValue()
	}
	t.values = t.values[:base]
	for _, v := range saved {
		t.pushValue(v)
	}
	t.popFrame()
}

func (t *Thread) execCallIndirect(c *byteCursor, fr *frame) {
	typeIdx, _ := c.readVarU32()
	c.readByte() // reserved table index

	elemIdxVal := t.popValue().I32()
	table := fr.fn.Module.Tables[0]
	if elemIdxVal < 0 || uint32(elemIdxVal) >= uint32(len(table.Elements)) {
		trap(TrapUndefinedTableIndex, "undefined element index %d", elemIdxVal)
	}
	target := table.Elements[elemIdxVal]
	if target == nil {
		trap(TrapUninitializedElement, "uninitialized element %d", elemIdxVal)
	}
	want := fr.fn.Module.Types[typeIdx]
	if !target.Type.Equal(want) {
		trap(TrapIndirectCallSignatureMismatch, "indirect call signature mismatch")
	}
	t.callAny(target)
}

func opcodeMnemonic(op Opcode) string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "unknown"
}
