package wasm

import "math"

// Value is a typed Wasm value. Floats are stored as their IEEE-754 bit
// pattern in Bits so that NaN payloads survive exactly, matching the
// convention the teacher uses for GlobalInstance.Val.
type Value struct {
	Type ValueType
	Bits uint64
}

// I32 constructs an i32 Value.
func I32(v int32) Value { return Value{Type: ValueTypeI32, Bits: uint64(uint32(v))} }

// I64 constructs an i64 Value.
func I64(v int64) Value { return Value{Type: ValueTypeI64, Bits: uint64(v)} }

// F32 constructs an f32 Value.
func F32(v float32) Value { return Value{Type: ValueTypeF32, Bits: uint64(math.Float32bits(v))} }

// F64 constructs an f64 Value.
func F64(v float64) Value { return Value{Type: ValueTypeF64, Bits: math.Float64bits(v)} }

// I32 returns v's payload as an int32. Behavior is undefined if v.Type != ValueTypeI32.
func (v Value) I32() int32 { return int32(uint32(v.Bits)) }

// I64 returns v's payload as an int64. Behavior is undefined if v.Type != ValueTypeI64.
func (v Value) I64() int64 { return int64(v.Bits) }

// F32 returns v's payload as a float32. Behavior is undefined if v.Type != ValueTypeF32.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.Bits)) }

// F64 returns v's payload as a float64. Behavior is undefined if v.Type != ValueTypeF64.
func (v Value) F64() float64 { return math.Float64frombits(v.Bits) }

// EncodeF32 converts a float32 into the uint64 payload convention used by
// FunctionInstance calls and global storage.
// See DecodeF32
func EncodeF32(v float32) uint64 { return uint64(math.Float32bits(v)) }

// DecodeF32 converts a uint64 payload back into a float32.
// See EncodeF32
func DecodeF32(v uint64) float32 { return math.Float32frombits(uint32(v)) }

// EncodeF64 converts a float64 into the uint64 payload convention used by
// FunctionInstance calls and global storage.
// See DecodeF64
func EncodeF64(v float64) uint64 { return math.Float64bits(v) }

// DecodeF64 converts a uint64 payload back into a float64.
// See EncodeF64
func DecodeF64(v uint64) float64 { return math.Float64frombits(v) }

const (
	f32ExpMask     uint32 = 0x7f800000
	f32MantissaBit uint32 = 1 << 22 // the top mantissa bit; set => quiet
	f32MantissaAll uint32 = 0x7fffff
	f64ExpMask     uint64 = 0x7ff0000000000000
	f64MantissaBit uint64 = 1 << 51
	f64MantissaAll uint64 = 0xfffffffffffff
)

// IsCanonicalNan32 reports whether bits represents the canonical NaN for
// f32: the quiet bit set and every other mantissa bit zero.
func IsCanonicalNan32(bits uint32) bool {
	return bits&f32ExpMask == f32ExpMask && bits&f32MantissaAll == f32MantissaBit
}

// IsArithmeticNan32 reports whether bits represents an arithmetic
// (quiet) NaN for f32: the quiet bit set, any other mantissa bits allowed.
func IsArithmeticNan32(bits uint32) bool {
	return bits&f32ExpMask == f32ExpMask && bits&f32MantissaBit != 0
}

// IsCanonicalNan64 reports whether bits represents the canonical NaN for f64.
func IsCanonicalNan64(bits uint64) bool {
	return bits&f64ExpMask == f64ExpMask && bits&f64MantissaAll == f64MantissaBit
}

// IsArithmeticNan64 reports whether bits represents an arithmetic
// (quiet) NaN for f64.
func IsArithmeticNan64(bits uint64) bool {
	return bits&f64ExpMask == f64ExpMask && bits&f64MantissaBit != 0
}

// IsCanonicalNan reports whether v (an f32 or f64 Value) holds a canonical NaN.
func (v Value) IsCanonicalNan() bool {
	switch v.Type {
	case ValueTypeF32:
		return IsCanonicalNan32(uint32(v.Bits))
	case ValueTypeF64:
		return IsCanonicalNan64(v.Bits)
	}
	return false
}

// IsArithmeticNan reports whether v (an f32 or f64 Value) holds an arithmetic NaN.
func (v Value) IsArithmeticNan() bool {
	switch v.Type {
	case ValueTypeF32:
		return IsArithmeticNan32(uint32(v.Bits))
	case ValueTypeF64:
		return IsArithmeticNan64(v.Bits)
	}
	return false
}

// canonicalizeNan32 sets the quiet bit and clears sign, used when the
// interpreter must produce a canonical NaN result (e.g. some binary ops
// applied to two different NaNs).
func canonicalizeNan32(bits uint32) uint32 {
	return (bits & f32ExpMask) | f32MantissaBit
}

func canonicalizeNan64(bits uint64) uint64 {
	return (bits & f64ExpMask) | f64MantissaBit
}

// propagateNanF32 implements the Wasm NaN-propagation rule for binary
// float ops: if either operand is NaN, the result is an arithmetic NaN
// derived from one of the operand payloads (quiet bit forced on).
func propagateNanF32(a, b uint32) (result uint32, isNan bool) {
	aNan := a&f32ExpMask == f32ExpMask && a&f32MantissaAll != 0
	bNan := b&f32ExpMask == f32ExpMask && b&f32MantissaAll != 0
	switch {
	case aNan:
		return a | f32MantissaBit, true
	case bNan:
		return b | f32MantissaBit, true
	}
	return 0, false
}

func propagateNanF64(a, b uint64) (result uint64, isNan bool) {
	aNan := a&f64ExpMask == f64ExpMask && a&f64MantissaAll != 0
	bNan := b&f64ExpMask == f64ExpMask && b&f64MantissaAll != 0
	switch {
	case aNan:
		return a | f64MantissaBit, true
	case bNan:
		return b | f64MantissaBit, true
	}
	return 0, false
}
