package wasm

import (
	"math"
	"math/bits"
)

// execNumeric implements every constant, comparison, and arithmetic/
// conversion opcode not already dispatched by execute's control/memory/
// variable cases.
func (t *Thread) execNumeric(op Opcode, c *byteCursor) {
	switch op {
	case OpcodeI32Const:
		v, _ := c.readVarI32()
		t.pushValue(I32(v))
		return
	case OpcodeI64Const:
		v, _ := c.readVarI64()
		t.pushValue(I64(v))
		return
	case OpcodeF32Const:
		bits32, _ := c.readF32Bits()
		t.pushValue(Value{Type: ValueTypeF32, Bits: uint64(bits32)})
		return
	case OpcodeF64Const:
		bits64, _ := c.readF64Bits()
		t.pushValue(Value{Type: ValueTypeF64, Bits: bits64})
		return
	}

	if v, ok := t.tryUnary(op); ok {
		t.pushValue(v)
		return
	}
	t.execBinaryOrCompare(op)
}

func (t *Thread) tryUnary(op Opcode) (Value, bool) {
	switch op {
	case OpcodeI32Eqz:
		return boolValue(t.popValue().I32() == 0), true
	case OpcodeI64Eqz:
		return boolValue(t.popValue().I64() == 0), true

	case OpcodeI32Clz:
		return I32(int32(bits.LeadingZeros32(uint32(t.popValue().I32())))), true
	case OpcodeI32Ctz:
		return I32(int32(bits.TrailingZeros32(uint32(t.popValue().I32())))), true
	case OpcodeI32Popcnt:
		return I32(int32(bits.OnesCount32(uint32(t.popValue().I32())))), true
	case OpcodeI64Clz:
		return I64(int64(bits.LeadingZeros64(uint64(t.popValue().I64())))), true
	case OpcodeI64Ctz:
		return I64(int64(bits.TrailingZeros64(uint64(t.popValue().I64())))), true
	case OpcodeI64Popcnt:
		return I64(int64(bits.OnesCount64(uint64(t.popValue().I64())))), true

	case OpcodeF32Abs:
		return f32Value(float32(math.Abs(float64(t.popValue().F32())))), true
	case OpcodeF32Neg:
		return f32Value(-t.popValue().F32()), true
	case OpcodeF32Ceil:
		return f32Value(float32(math.Ceil(float64(t.popValue().F32())))), true
	case OpcodeF32Floor:
		return f32Value(float32(math.Floor(float64(t.popValue().F32())))), true
	case OpcodeF32Trunc:
		return f32Value(float32(math.Trunc(float64(t.popValue().F32())))), true
	case OpcodeF32Nearest:
		return f32Value(float32(math.RoundToEven(float64(t.popValue().F32())))), true
	case OpcodeF32Sqrt:
		return f32Value(float32(math.Sqrt(float64(t.popValue().F32())))), true

	case OpcodeF64Abs:
		return f64Value(math.Abs(t.popValue().F64())), true
	case OpcodeF64Neg:
		return f64Value(-t.popValue().F64()), true
	case OpcodeF64Ceil:
		return f64Value(math.Ceil(t.popValue().F64())), true
	case OpcodeF64Floor:
		return f64Value(math.Floor(t.popValue().F64())), true
	case OpcodeF64Trunc:
		return f64Value(math.Trunc(t.popValue().F64())), true
	case OpcodeF64Nearest:
		return f64Value(math.RoundToEven(t.popValue().F64())), true
	case OpcodeF64Sqrt:
		return f64Value(math.Sqrt(t.popValue().F64())), true

	case OpcodeI32WrapI64:
		return I32(int32(t.popValue().I64())), true
	case OpcodeI64ExtendI32S:
		return I64(int64(t.popValue().I32())), true
	case OpcodeI64ExtendI32U:
		return I64(int64(uint32(t.popValue().I32()))), true

	case OpcodeI32TruncF32S:
		return I32(int32(truncToInt(float64(t.popValue().F32()), -2147483648, 2147483647))), true
	case OpcodeI32TruncF32U:
		return I32(int32(uint32(truncToUint(float64(t.popValue().F32()), 4294967295)))), true
	case OpcodeI32TruncF64S:
		return I32(int32(truncToInt(t.popValue().F64(), -2147483648, 2147483647))), true
	case OpcodeI32TruncF64U:
		return I32(int32(uint32(truncToUint(t.popValue().F64(), 4294967295)))), true
	case OpcodeI64TruncF32S:
		return I64(truncToInt(float64(t.popValue().F32()), -9223372036854775808, 9223372036854775807)), true
	case OpcodeI64TruncF32U:
		return I64(int64(truncToUint(float64(t.popValue().F32()), 18446744073709551615))), true
	case OpcodeI64TruncF64S:
		return I64(truncToInt(t.popValue().F64(), -9223372036854775808, 9223372036854775807)), true
	case OpcodeI64TruncF64U:
		return I64(int64(truncToUint(t.popValue().F64(), 18446744073709551615))), true

	case OpcodeF32ConvertI32S:
		return f32Value(float32(t.popValue().I32())), true
	case OpcodeF32ConvertI32U:
		return f32Value(float32(uint32(t.popValue().I32()))), true
	case OpcodeF32ConvertI64S:
		return f32Value(float32(t.popValue().I64())), true
	case OpcodeF32ConvertI64U:
		return f32Value(float32(uint64(t.popValue().I64()))), true
	case OpcodeF32DemoteF64:
		return f32Value(float32(t.popValue().F64())), true
	case OpcodeF64ConvertI32S:
		return f64Value(float64(t.popValue().I32())), true
	case OpcodeF64ConvertI32U:
		return f64Value(float64(uint32(t.popValue().I32()))), true
	case OpcodeF64ConvertI64S:
		return f64Value(float64(t.popValue().I64())), true
	case OpcodeF64ConvertI64U:
		return f64Value(float64(uint64(t.popValue().I64()))), true
	case OpcodeF64PromoteF32:
		return f64Value(float64(t.popValue().F32())), true

	case OpcodeI32ReinterpretF32:
		return I32(int32(uint32(t.popValue().Bits))), true
	case OpcodeI64ReinterpretF64:
		return I64(int64(t.popValue().Bits)), true
	case OpcodeF32ReinterpretI32:
		return Value{Type: ValueTypeF32, Bits: uint64(uint32(t.popValue().I32()))}, true
	case OpcodeF64ReinterpretI64:
		return Value{Type: ValueTypeF64, Bits: uint64(t.popValue().I64())}, true
	}
	return Value{}, false
}

// truncToInt implements trunc_s: NaN and out-of-range values trap rather
// than saturating, per spec.md §4.3.
func truncToInt(f float64, min, max float64) int64 {
	if math.IsNaN(f) {
		trap(TrapInvalidConversionToInteger, "invalid conversion to integer")
	}
	truncated := math.Trunc(f)
	if truncated < min || truncated >= max+1 {
		trap(TrapInvalidConversionToInteger, "integer overflow")
	}
	return int64(truncated)
}

func truncToUint(f float64, max float64) uint64 {
	if math.IsNaN(f) {
		trap(TrapInvalidConversionToInteger, "invalid conversion to integer")
	}
	truncated := math.Trunc(f)
	if truncated < 0 || truncated >= max+1 {
		trap(TrapInvalidConversionToInteger, "integer overflow")
	}
	return uint64(truncated)
}

func boolValue(b bool) Value {
	if b {
		return I32(1)
	}
	return I32(0)
}

func f32Value(f float32) Value { return Value{Type: ValueTypeF32, Bits: uint64(math.Float32bits(f))} }
func f64Value(f float64) Value { return Value{Type: ValueTypeF64, Bits: math.Float64bits(f)} }

func (t *Thread) execBinaryOrCompare(op Opcode) {
	switch op {
	case OpcodeI32Add, OpcodeI32Sub, OpcodeI32Mul, OpcodeI32DivS, OpcodeI32DivU,
		OpcodeI32RemS, OpcodeI32RemU, OpcodeI32And, OpcodeI32Or, OpcodeI32Xor,
		OpcodeI32Shl, OpcodeI32ShrS, OpcodeI32ShrU, OpcodeI32Rotl, OpcodeI32Rotr:
		b := t.popValue().I32()
		a := t.popValue().I32()
		t.pushValue(I32(i32BinOp(op, a, b)))
		return
	case OpcodeI64Add, OpcodeI64Sub, OpcodeI64Mul, OpcodeI64DivS, OpcodeI64DivU,
		OpcodeI64RemS, OpcodeI64RemU, OpcodeI64And, OpcodeI64Or, OpcodeI64Xor,
		OpcodeI64Shl, OpcodeI64ShrS, OpcodeI64ShrU, OpcodeI64Rotl, OpcodeI64Rotr:
		b := t.popValue().I64()
		a := t.popValue().I64()
		t.pushValue(I64(i64BinOp(op, a, b)))
		return
	case OpcodeF32Add, OpcodeF32Sub, OpcodeF32Mul, OpcodeF32Div, OpcodeF32Min, OpcodeF32Max, OpcodeF32Copysign:
		b := t.popValue()
		a := t.popValue()
		t.pushValue(f32BinOp(op, a, b))
		return
	case OpcodeF64Add, OpcodeF64Sub, OpcodeF64Mul, OpcodeF64Div, OpcodeF64Min, OpcodeF64Max, OpcodeF64Copysign:
		b := t.popValue()
		a := t.popValue()
		t.pushValue(f64BinOp(op, a, b))
		return
	}
	t.execCompare(op)
}

func i32BinOp(op Opcode, a, b int32) int32 {
	switch op {
	case OpcodeI32Add:
		return a + b
	case OpcodeI32Sub:
		return a - b
	case OpcodeI32Mul:
		return a * b
	case OpcodeI32DivS:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		if a == -2147483648 && b == -1 {
			trap(TrapIntegerOverflow, "integer overflow")
		}
		return a / b
	case OpcodeI32DivU:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		return int32(uint32(a) / uint32(b))
	case OpcodeI32RemS:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		if a == -2147483648 && b == -1 {
			return 0
		}
		return a % b
	case OpcodeI32RemU:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		return int32(uint32(a) % uint32(b))
	case OpcodeI32And:
		return a & b
	case OpcodeI32Or:
		return a | b
	case OpcodeI32Xor:
		return a ^ b
	case OpcodeI32Shl:
		return a << (uint32(b) % 32)
	case OpcodeI32ShrS:
		return a >> (uint32(b) % 32)
	case OpcodeI32ShrU:
		return int32(uint32(a) >> (uint32(b) % 32))
	case OpcodeI32Rotl:
		return int32(bits.RotateLeft32(uint32(a), int(b)))
	case OpcodeI32Rotr:
		return int32(bits.RotateLeft32(uint32(a), -int(b)))
	}
	panic("unreachable")
}

func i64BinOp(op Opcode, a, b int64) int64 {
	switch op {
	case OpcodeI64Add:
		return a + b
	case OpcodeI64Sub:
		return a - b
	case OpcodeI64Mul:
		return a * b
	case OpcodeI64DivS:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		if a == -9223372036854775808 && b == -1 {
			trap(TrapIntegerOverflow, "integer overflow")
		}
		return a / b
	case OpcodeI64DivU:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		return int64(uint64(a) / uint64(b))
	case OpcodeI64RemS:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		if a == -9223372036854775808 && b == -1 {
			return 0
		}
		return a % b
	case OpcodeI64RemU:
		if b == 0 {
			trap(TrapIntegerDivideByZero, "integer divide by zero")
		}
		return int64(uint64(a) % uint64(b))
	case OpcodeI64And:
		return a & b
	case OpcodeI64Or:
		return a | b
	case OpcodeI64Xor:
		return a ^ b
	case OpcodeI64Shl:
		return a << (uint64(b) % 64)
	case OpcodeI64ShrS:
		return a >> (uint64(b) % 64)
	case OpcodeI64ShrU:
		return int64(uint64(a) >> (uint64(b) % 64))
	case OpcodeI64Rotl:
		return int64(bits.RotateLeft64(uint64(a), int(b)))
	case OpcodeI64Rotr:
		return int64(bits.RotateLeft64(uint64(a), -int(b)))
	}
	panic("unreachable")
}

func f32BinOp(op Opcode, av, bv Value) Value {
	a, b := uint32(av.Bits), uint32(bv.Bits)
	if r, isNan := propagateNanF32(a, b); isNan && op != OpcodeF32Min && op != OpcodeF32Max {
		return Value{Type: ValueTypeF32, Bits: uint64(r)}
	}
	af, bf := av.F32(), bv.F32()
	switch op {
	case OpcodeF32Add:
		return f32Value(af + bf)
	case OpcodeF32Sub:
		return f32Value(af - bf)
	case OpcodeF32Mul:
		return f32Value(af * bf)
	case OpcodeF32Div:
		return f32Value(af / bf)
	case OpcodeF32Min:
		if r, isNan := propagateNanF32(a, b); isNan {
			return Value{Type: ValueTypeF32, Bits: uint64(r)}
		}
		return f32Value(float32(math.Min(float64(af), float64(bf))))
	case OpcodeF32Max:
		if r, isNan := propagateNanF32(a, b); isNan {
			return Value{Type: ValueTypeF32, Bits: uint64(r)}
		}
		return f32Value(float32(math.Max(float64(af), float64(bf))))
	case OpcodeF32Copysign:
		return f32Value(float32(math.Copysign(float64(af), float64(bf))))
	}
	panic("unreachable")
}

func f64BinOp(op Opcode, av, bv Value) Value {
	a, b := av.Bits, bv.Bits
	if r, isNan := propagateNanF64(a, b); isNan && op != OpcodeF64Min && op != OpcodeF64Max {
		return Value{Type: ValueTypeF64, Bits: r}
	}
	af, bf := av.F64(), bv.F64()
	switch op {
	case OpcodeF64Add:
		return f64Value(af + bf)
	case OpcodeF64Sub:
		return f64Value(af - bf)
	case OpcodeF64Mul:
		return f64Value(af * bf)
	case OpcodeF64Div:
		return f64Value(af / bf)
	case OpcodeF64Min:
		if r, isNan := propagateNanF64(a, b); isNan {
			return Value{Type: ValueTypeF64, Bits: r}
		}
		return f64Value(math.Min(af, bf))
	case OpcodeF64Max:
		if r, isNan := propagateNanF64(a, b); isNan {
			return Value{Type: ValueTypeF64, Bits: r}
		}
		return f64Value(math.Max(af, bf))
	case OpcodeF64Copysign:
		return f64Value(math.Copysign(af, bf))
	}
	panic("unreachable")
}

func (t *Thread) execCompare(op Opcode) {
	switch op {
	case OpcodeI32Eq, OpcodeI32Ne, OpcodeI32LtS, OpcodeI32LtU, OpcodeI32GtS, OpcodeI32GtU,
		OpcodeI32LeS, OpcodeI32LeU, OpcodeI32GeS, OpcodeI32GeU:
		b := t.popValue().I32()
		a := t.popValue().I32()
		t.pushValue(boolValue(i32Compare(op, a, b)))
	case OpcodeI64Eq, OpcodeI64Ne, OpcodeI64LtS, OpcodeI64LtU, OpcodeI64GtS, OpcodeI64GtU,
		OpcodeI64LeS, OpcodeI64LeU, OpcodeI64GeS, OpcodeI64GeU:
		b := t.popValue().I64()
		a := t.popValue().I64()
		t.pushValue(boolValue(i64Compare(op, a, b)))
	case OpcodeF32Eq, OpcodeF32Ne, OpcodeF32Lt, OpcodeF32Gt, OpcodeF32Le, OpcodeF32Ge:
		b := t.popValue().F32()
		a := t.popValue().F32()
		t.pushValue(boolValue(floatCompare(op, float64(a), float64(b))))
	case OpcodeF64Eq, OpcodeF64Ne, OpcodeF64Lt, OpcodeF64Gt, OpcodeF64Le, OpcodeF64Ge:
		b := t.popValue().F64()
		a := t.popValue().F64()
		t.pushValue(boolValue(floatCompare(op, a, b)))
	default:
		trap(TrapUnreachable, "invalid opcode %#x", byte(op))
	}
}

func i32Compare(op Opcode, a, b int32) bool {
	switch op {
	case OpcodeI32Eq:
		return a == b
	case OpcodeI32Ne:
		return a != b
	case OpcodeI32LtS:
		return a < b
	case OpcodeI32LtU:
		return uint32(a) < uint32(b)
	case OpcodeI32GtS:
		return a > b
	case OpcodeI32GtU:
		return uint32(a) > uint32(b)
	case OpcodeI32LeS:
		return a <= b
	case OpcodeI32LeU:
		return uint32(a) <= uint32(b)
	case OpcodeI32GeS:
		return a >= b
	case OpcodeI32GeU:
		return uint32(a) >= uint32(b)
	}
	panic("unreachable")
}

func i64Compare(op Opcode, a, b int64) bool {
	switch op {
	case OpcodeI64Eq:
		return a == b
	case OpcodeI64Ne:
		return a != b
	case OpcodeI64LtS:
		return a < b
	case OpcodeI64LtU:
		return uint64(a) < uint64(b)
	case OpcodeI64GtS:
		return a > b
	case OpcodeI64GtU:
		return uint64(a) > uint64(b)
	case OpcodeI64LeS:
		return a <= b
	case OpcodeI64LeU:
		return uint64(a) <= uint64(b)
	case OpcodeI64GeS:
		return a >= b
	case OpcodeI64GeU:
		return uint64(a) >= uint64(b)
	}
	panic("unreachable")
}

func floatCompare(op Opcode, a, b float64) bool {
	switch op {
	case OpcodeF32Eq, OpcodeF64Eq:
		return a == b
	case OpcodeF32Ne, OpcodeF64Ne:
		return a != b
	case OpcodeF32Lt, OpcodeF64Lt:
		return a < b
	case OpcodeF32Gt, OpcodeF64Gt:
		return a > b
	case OpcodeF32Le, OpcodeF64Le:
		return a <= b
	case OpcodeF32Ge, OpcodeF64Ge:
		return a >= b
	}
	panic("unreachable")
}
