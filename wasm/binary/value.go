package binary

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/wazerolite/wazerolite/wasm/leb128"
)

// readValueType reads, validates and returns a single value-type encoding byte.
func readValueType(r *reader) (byte, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case 0x7f, 0x7e, 0x7d, 0x7c:
		return b, nil
	}
	return 0, fmt.Errorf("invalid value type: %#x", b)
}

func readName(r *reader) (string, error) {
	size, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return "", fmt.Errorf("read name length: %w", err)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read name bytes: %w", err)
	}
	name := string(buf)
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("invalid UTF-8 encoding")
	}
	return name, nil
}

func readFloat32Bits(r *reader) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("read f32: %w", err)
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

func readFloat64Bits(r *reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, fmt.Errorf("read f64: %w", err)
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

func readLimits(r *reader) (Limits, error) {
	flag, err := r.readByte()
	if err != nil {
		return Limits{}, fmt.Errorf("read limits flag: %w", err)
	}
	min, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return Limits{}, fmt.Errorf("read limits min: %w", err)
	}
	l := Limits{Min: min}
	switch flag {
	case 0x00:
	case 0x01:
		max, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return Limits{}, fmt.Errorf("read limits max: %w", err)
		}
		l.Max = &max
	default:
		return Limits{}, fmt.Errorf("invalid limits flag: %#x", flag)
	}
	return l, nil
}

func readConstExpr(r *reader) (ConstExpr, error) {
	op, err := r.readByte()
	if err != nil {
		return ConstExpr{}, fmt.Errorf("read const expr opcode: %w", err)
	}
	ce := ConstExpr{Opcode: op}
	switch op {
	case 0x41: // i32.const
		v, _, err := leb128.DecodeInt32(r)
		if err != nil {
			return ConstExpr{}, fmt.Errorf("read i32.const operand: %w", err)
		}
		ce.I32Value = v
	case 0x42: // i64.const
		v, _, err := leb128.DecodeInt64(r)
		if err != nil {
			return ConstExpr{}, fmt.Errorf("read i64.const operand: %w", err)
		}
		ce.I64Value = v
	case 0x43: // f32.const
		v, err := readFloat32Bits(r)
		if err != nil {
			return ConstExpr{}, err
		}
		ce.F32Bits = v
	case 0x44: // f64.const
		v, err := readFloat64Bits(r)
		if err != nil {
			return ConstExpr{}, err
		}
		ce.F64Bits = v
	case 0x23: // global.get
		v, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return ConstExpr{}, fmt.Errorf("read global.get operand: %w", err)
		}
		ce.GlobalIndex = v
	default:
		return ConstExpr{}, fmt.Errorf("invalid opcode for constant expression: %#x", op)
	}
	end, err := r.readByte()
	if err != nil {
		return ConstExpr{}, fmt.Errorf("read constant expression end: %w", err)
	}
	if end != 0x0b {
		return ConstExpr{}, fmt.Errorf("constant expression not terminated with end opcode")
	}
	return ce, nil
}
