package wasm

// execVariable implements the local.*/global.* family. Locals live in the
// current frame; globals live in the Environment (spec.md §5's shared
// mutable-state rule: globals, unlike locals, are visible across module
// boundaries once exported/imported).
func (t *Thread) execVariable(op Opcode, c *byteCursor, fr *frame) {
	switch op {
	case OpcodeLocalGet:
		idx, _ := c.readVarU32()
		t.pushValue(fr.locals[idx])
	case OpcodeLocalSet:
		idx, _ := c.readVarU32()
		fr.locals[idx] = t.popValue()
	case OpcodeLocalTee:
		idx, _ := c.readVarU32()
		v := t.popValue()
		fr.locals[idx] = v
		t.pushValue(v)
	case OpcodeGlobalGet:
		idx, _ := c.readVarU32()
		g := t.globalAt(fr, idx)
		t.pushValue(g.Val)
	case OpcodeGlobalSet:
		idx, _ := c.readVarU32()
		g := t.globalAt(fr, idx)
		g.Val = t.popValue()
	}
}

func (t *Thread) globalAt(fr *frame, idx uint32) *GlobalInstance {
	return fr.fn.Module.Globals[idx]
}
