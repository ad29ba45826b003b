package wasm

import (
	"bytes"

	"github.com/wazerolite/wazerolite/wasm/leb128"
)

// byteCursor walks a function body's already-decoded instruction stream.
// Both the validator and the interpreter use it: spec.md keeps function
// bodies as raw bytes rather than a pre-parsed IR (unlike the teacher's
// JIT-oriented wazeroir), so both passes decode instructions the same
// way, once each.
type byteCursor struct {
	body []byte
	pos  int
}

func newByteCursor(body []byte) *byteCursor { return &byteCursor{body: body} }

func (c *byteCursor) atEnd() bool { return c.pos >= len(c.body) }

func (c *byteCursor) readByte() (byte, bool) {
	if c.pos >= len(c.body) {
		return 0, false
	}
	b := c.body[c.pos]
	c.pos++
	return b, true
}

func (c *byteCursor) readVarU32() (uint32, bool) {
	v, n, err := leb128.DecodeUint32(bytes.NewReader(c.body[c.pos:]))
	if err != nil {
		return 0, false
	}
	c.pos += int(n)
	return v, true
}

func (c *byteCursor) readVarI32() (int32, bool) {
	v, n, err := leb128.DecodeInt32(bytes.NewReader(c.body[c.pos:]))
	if err != nil {
		return 0, false
	}
	c.pos += int(n)
	return v, true
}

func (c *byteCursor) readVarI64() (int64, bool) {
	v, n, err := leb128.DecodeInt64(bytes.NewReader(c.body[c.pos:]))
	if err != nil {
		return 0, false
	}
	c.pos += int(n)
	return v, true
}

func (c *byteCursor) readF32Bits() (uint32, bool) {
	if c.pos+4 > len(c.body) {
		return 0, false
	}
	b := c.body[c.pos : c.pos+4]
	c.pos += 4
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}

func (c *byteCursor) readF64Bits() (uint64, bool) {
	if c.pos+8 > len(c.body) {
		return 0, false
	}
	b := c.body[c.pos : c.pos+8]
	c.pos += 8
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, true
}

// readMemArg reads an alignment hint (discarded) and an offset, the
// immediate pair every load/store instruction carries.
func (c *byteCursor) readMemArg() (offset uint32, ok bool) {
	if _, ok = c.readVarU32(); !ok { // align
		return 0, false
	}
	return c.readVarU32()
}
