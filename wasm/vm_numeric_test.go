package wasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func f32Bits(f float32) []byte {
	bits := math.Float32bits(f)
	return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

// TestTruncF32NaNTraps checks i32.trunc_f32_s traps on a NaN input instead
// of producing a garbage integer.
func TestTruncF32NaNTraps(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := append([]byte{byte(OpcodeF32Const)}, f32Bits(float32(math.NaN()))...)
	body = append(body, byte(OpcodeI32TruncF32S), byte(OpcodeEnd))
	fn := newTestFunction(t, sig, nil, body, nil)

	res, _, err := runTestFunction(t, fn)
	require.Equal(t, RunResultTrapped, res)
	var trapErr *TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, TrapInvalidConversionToInteger, trapErr.Kind)
}

// TestTruncF32OutOfRangeTraps checks a finite but out-of-i32-range value
// traps rather than saturating.
func TestTruncF32OutOfRangeTraps(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := append([]byte{byte(OpcodeF32Const)}, f32Bits(1e20)...)
	body = append(body, byte(OpcodeI32TruncF32S), byte(OpcodeEnd))
	fn := newTestFunction(t, sig, nil, body, nil)

	res, _, err := runTestFunction(t, fn)
	require.Equal(t, RunResultTrapped, res)
	var trapErr *TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, TrapInvalidConversionToInteger, trapErr.Kind)
}

// TestF32AddNanPropagatesArithmeticNan checks that adding a NaN operand
// yields an arithmetic NaN result rather than a fresh, unrelated NaN or a
// non-NaN value.
func TestF32AddNanPropagatesArithmeticNan(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeF32}}
	body := append([]byte{byte(OpcodeF32Const)}, f32Bits(float32(math.NaN()))...)
	body = append(body, byte(OpcodeF32Const))
	body = append(body, f32Bits(1)...)
	body = append(body, byte(OpcodeF32Add), byte(OpcodeEnd))
	fn := newTestFunction(t, sig, nil, body, nil)

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Len(t, vals, 1)
	require.True(t, vals[0].IsArithmeticNan())
}

// TestF32DivNanPreservesCanonicalNan checks that dividing a canonical NaN
// by 1 yields a canonical NaN result, not just any arithmetic NaN,
// per the canonical-NaN-preservation case spec.md singles out.
func TestF32DivNanPreservesCanonicalNan(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeF32}}
	body := append([]byte{byte(OpcodeF32Const)}, f32Bits(float32(math.NaN()))...)
	body = append(body, byte(OpcodeF32Const))
	body = append(body, f32Bits(1)...)
	body = append(body, byte(OpcodeF32Div), byte(OpcodeEnd))
	fn := newTestFunction(t, sig, nil, body, nil)

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Len(t, vals, 1)
	require.True(t, vals[0].IsCanonicalNan())
}

// TestI32DivSOverflowTraps checks the MIN_INT / -1 special case traps
// rather than wrapping.
func TestI32DivSOverflowTraps(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeI32Const), 0x80, 0x80, 0x80, 0x80, 0x78, // -2147483648, sleb128
		byte(OpcodeI32Const), 0x7f, // -1
		byte(OpcodeI32DivS),
		byte(OpcodeEnd),
	}
	fn := newTestFunction(t, sig, nil, body, nil)

	res, _, err := runTestFunction(t, fn)
	require.Equal(t, RunResultTrapped, res)
	var trapErr *TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, TrapIntegerOverflow, trapErr.Kind)
}
