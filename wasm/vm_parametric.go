package wasm

func (t *Thread) execParametric(op Opcode) {
	switch op {
	case OpcodeDrop:
		t.popValue()
	case OpcodeSelect:
		cond := t.popValue().I32()
		v2 := t.popValue()
		v1 := t.popValue()
		if cond != 0 {
			t.pushValue(v1)
		} else {
			t.pushValue(v2)
		}
	}
}
