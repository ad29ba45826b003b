package wasm

func isLoadOp(op Opcode) bool {
	_, ok := loadOps[op]
	return ok
}

func isStoreOp(op Opcode) bool {
	_, ok := storeOps[op]
	return ok
}

// execMemory implements every load/store variant plus memory.size and
// memory.grow, all operating on the sole MVP memory (index 0).
func (t *Thread) execMemory(op Opcode, c *byteCursor, fr *frame) {
	switch op {
	case OpcodeMemorySize:
		c.readByte() // reserved
		mem := fr.fn.Module.Memories[0]
		t.pushValue(I32(int32(mem.PageCount())))
		return
	case OpcodeMemoryGrow:
		c.readByte() // reserved
		mem := fr.fn.Module.Memories[0]
		delta := t.popValue().I32()
		old := mem.PageCount()
		if delta < 0 {
			t.pushValue(I32(-1))
			return
		}
		newPages := uint64(old) + uint64(delta)
		if (mem.Max != nil && newPages > uint64(*mem.Max)) || newPages > uint64(t.cfg.memoryMaxPages) {
			t.pushValue(I32(-1))
			return
		}
		mem.Data = append(mem.Data, make([]byte, uint64(delta)*MemoryPageSize)...)
		t.pushValue(I32(int32(old)))
		return
	}

	offsetImm, _ := c.readMemArg()
	mem := fr.fn.Module.Memories[0]

	if isStoreOp(op) {
		// Wasm bytecode pushes address then value, so the value is on
		// top of the stack and must be popped before the address.
		v := t.popValue()
		base := uint32(t.popValue().I32())
		addr := uint64(base) + uint64(offsetImm)
		t.doStore(op, mem, addr, v)
		return
	}

	base := uint32(t.popValue().I32())
	addr := uint64(base) + uint64(offsetImm)
	v := t.doLoad(op, mem, addr)
	t.pushValue(v)
}

func (t *Thread) checkBounds(mem *MemoryInstance, addr uint64, size uint64) {
	if addr+size > uint64(len(mem.Data)) {
		trap(TrapMemoryAccessOutOfBounds, "out of bounds memory access")
	}
}

func (t *Thread) doLoad(op Opcode, mem *MemoryInstance, addr uint64) Value {
	switch op {
	case OpcodeI32Load:
		t.checkBounds(mem, addr, 4)
		return I32(int32(le32(mem.Data[addr:])))
	case OpcodeI64Load:
		t.checkBounds(mem, addr, 8)
		return I64(int64(le64(mem.Data[addr:])))
	case OpcodeF32Load:
		t.checkBounds(mem, addr, 4)
		return Value{Type: ValueTypeF32, Bits: uint64(le32(mem.Data[addr:]))}
	case OpcodeF64Load:
		t.checkBounds(mem, addr, 8)
		return Value{Type: ValueTypeF64, Bits: le64(mem.Data[addr:])}
	case OpcodeI32Load8S:
		t.checkBounds(mem, addr, 1)
		return I32(int32(int8(mem.Data[addr])))
	case OpcodeI32Load8U:
		t.checkBounds(mem, addr, 1)
		return I32(int32(mem.Data[addr]))
	case OpcodeI32Load16S:
		t.checkBounds(mem, addr, 2)
		return I32(int32(int16(le16(mem.Data[addr:]))))
	case OpcodeI32Load16U:
		t.checkBounds(mem, addr, 2)
		return I32(int32(le16(mem.Data[addr:])))
	case OpcodeI64Load8S:
		t.checkBounds(mem, addr, 1)
		return I64(int64(int8(mem.Data[addr])))
	case OpcodeI64Load8U:
		t.checkBounds(mem, addr, 1)
		return I64(int64(mem.Data[addr]))
	case OpcodeI64Load16S:
		t.checkBounds(mem, addr, 2)
		return I64(int64(int16(le16(mem.Data[addr:]))))
	case OpcodeI64Load16U:
		t.checkBounds(mem, addr, 2)
		return I64(int64(le16(mem.Data[addr:])))
	case OpcodeI64Load32S:
		t.checkBounds(mem, addr, 4)
		return I64(int64(int32(le32(mem.Data[addr:]))))
	case OpcodeI64Load32U:
		t.checkBounds(mem, addr, 4)
		return I64(int64(le32(mem.Data[addr:])))
	}
	trap(TrapUnreachable, "unhandled load opcode %#x", byte(op))
	return Value{}
}

// doStore writes v, already popped by execMemory, into mem at addr. v is
// the value operand (deeper pop from execMemory's perspective would be
// wrong; the caller has already popped it before the address, matching
// wasm bytecode's address-then-value push order).
func (t *Thread) doStore(op Opcode, mem *MemoryInstance, addr uint64, v Value) {
	switch op {
	case OpcodeI32Store:
		t.checkBounds(mem, addr, 4)
		putLE32(mem.Data[addr:], uint32(v.I32()))
	case OpcodeI64Store:
		t.checkBounds(mem, addr, 8)
		putLE64(mem.Data[addr:], uint64(v.I64()))
	case OpcodeF32Store:
		t.checkBounds(mem, addr, 4)
		putLE32(mem.Data[addr:], uint32(v.Bits))
	case OpcodeF64Store:
		t.checkBounds(mem, addr, 8)
		putLE64(mem.Data[addr:], v.Bits)
	case OpcodeI32Store8:
		t.checkBounds(mem, addr, 1)
		mem.Data[addr] = uint8(v.I32())
	case OpcodeI32Store16:
		t.checkBounds(mem, addr, 2)
		putLE16(mem.Data[addr:], uint16(v.I32()))
	case OpcodeI64Store8:
		t.checkBounds(mem, addr, 1)
		mem.Data[addr] = uint8(v.I64())
	case OpcodeI64Store16:
		t.checkBounds(mem, addr, 2)
		putLE16(mem.Data[addr:], uint16(v.I64()))
	case OpcodeI64Store32:
		t.checkBounds(mem, addr, 4)
		putLE32(mem.Data[addr:], uint32(v.I64()))
	default:
		trap(TrapUnreachable, "unhandled store opcode %#x", byte(op))
	}
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func le64(b []byte) uint64 {
	return uint64(le32(b)) | uint64(le32(b[4:]))<<32
}
func putLE16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func putLE64(b []byte, v uint64) {
	putLE32(b, uint32(v))
	putLE32(b[4:], uint32(v>>32))
}
