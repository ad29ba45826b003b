package wasm

// thrownException is the payload an in-flight throw/rethrow carries while
// Thread.throwFrom searches for a matching handler (SPEC_FULL.md §8).
type thrownException struct {
	tagIndex uint32
	args     []Value
}

// execTry pushes a label for a try construct, exactly like enterBlock
// except it is marked isTry so throwFrom knows to consider it a handler
// site.
func (t *Thread) execTry(opPos int, c *byteCursor, fr *frame) {
	results, _ := readBlockType(c)
	fr.labels = append(fr.labels, label{
		opcodePos:   opPos,
		resultArity: len(results),
		stackBase:   len(t.values),
		isTry:       true,
	})
}

// execCatch handles both OpcodeCatch and OpcodeCatchAll reached by
// ordinary linear execution: either the try body completed without a
// throw, or a preceding catch/catch_all clause's handler body ran to
// completion. Either way there is nothing left to handle, so skip
// straight to the try's end, popping its label exactly like an
// else-less if skips to its end (execIf).
func (t *Thread) execCatch(opPos int, c *byteCursor, fr *frame) {
	c.pos = fr.fn.jumps.end[opPos]
	t.execEnd(fr)
}

// execThrow reads a tag index, pops its declared parameter values off the
// operand stack, and searches for a matching handler.
func (t *Thread) execThrow(c *byteCursor, fr *frame) {
	tagIdx, _ := c.readVarU32()
	params := fr.fn.Module.Exceptions[tagIdx].Params
	args := make([]Value, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		args[i] = t.popValue()
	}
	t.throwFrom(c, fr, len(fr.labels), tagIdx, args)
}

// execRethrow re-raises the exception active at handler depth n, counting
// outward from the instruction's position over labels of the current
// frame that are currently handling an exception (label.exc != nil),
// analogous to how br's depth counts enclosing labels. The search for a
// new handler resumes just outside the target handler, so a handler can
// never catch its own rethrow.
func (t *Thread) execRethrow(c *byteCursor, fr *frame) {
	depth, _ := c.readVarU32()
	idx := -1
	seen := 0
	for i := len(fr.labels) - 1; i >= 0; i-- {
		if fr.labels[i].exc != nil {
			if seen == int(depth) {
				idx = i
				break
			}
			seen++
		}
	}
	if idx < 0 {
		trap(TrapUncaughtException, "rethrow: no active handler at depth %d", depth)
	}
	exc := fr.labels[idx].exc
	t.throwFrom(c, fr, idx, exc.tagIndex, exc.args)
}

// throwFrom searches outward for a try label whose catch/catch_all set
// matches tagIndex, starting at labels below startLabel in origFr and,
// if exhausted, the labels of each enclosing frame in turn, discarding
// (popping) every frame it passes through with no handler. On a match it
// unwinds the value and label stacks to the handler, pushes args, and
// jumps execution to the clause body: if the handler lives in origFr (the
// frame currently being stepped), the jump is installed on c so step()'s
// trailing fr.pc = c.pos picks it up; otherwise it is installed directly
// on the (already-current, since intervening frames were popped) target
// frame. On total failure it traps TrapUncaughtException.
func (t *Thread) throwFrom(c *byteCursor, origFr *frame, startLabel int, tagIndex uint32, args []Value) {
	frameIdx := len(t.frames) - 1
	for frameIdx >= 0 {
		fr := t.frames[frameIdx]
		for i := startLabel - 1; i >= 0; i-- {
			l := fr.labels[i]
			if !l.isTry {
				continue
			}
			jumps := fr.fn.jumps
			var clause catchClause
			found, viaCatchAll := false, false
			for _, cl := range jumps.catches[l.opcodePos] {
				if cl.tagIndex == tagIndex {
					clause, found = cl, true
					break
				}
			}
			if !found {
				if cl, ok := jumps.catchAll[l.opcodePos]; ok {
					clause, found, viaCatchAll = cl, true, true
				}
			}
			if !found {
				continue
			}
			t.values = t.values[:l.stackBase]
			fr.labels = fr.labels[:i+1]
			// catch_all never exposes the payload (its tag, and so its
			// type, is unknown to the validator, which reserves no stack
			// slots for it); only a specific-tag catch does.
			if !viaCatchAll {
				for _, v := range args {
					t.pushValue(v)
				}
			}
			fr.labels[i].exc = &thrownException{tagIndex: tagIndex, args: args}
			t.frames = t.frames[:frameIdx+1]
			if fr == origFr {
				c.pos = clause.pos
			} else {
				fr.pc = clause.pos
			}
			return
		}
		t.frames = t.frames[:frameIdx]
		frameIdx--
		if frameIdx >= 0 {
			startLabel = len(t.frames[frameIdx].labels)
		}
	}
	trap(TrapUncaughtException, "uncaught exception, tag %d", tagIndex)
}
