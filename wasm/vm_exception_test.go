package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// tagI32 is a single-tag exception table: one tag taking one i32 param.
func tagI32() []*FunctionType {
	return []*FunctionType{{Params: []ValueType{ValueTypeI32}}}
}

// TestTryCatchFallsThroughWithoutThrow checks that a try body which
// completes normally skips every catch/catch_all clause and leaves the
// try's own result values on the stack untouched.
func TestTryCatchFallsThroughWithoutThrow(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeTry), byte(ValueTypeI32),
		byte(OpcodeI32Const), 1,
		byte(OpcodeCatch), 0,
		byte(OpcodeDrop),        // discard the caught exception's i32 argument
		byte(OpcodeI32Const), 2, // unreachable: no throw, so this must be skipped
		byte(OpcodeEnd), // try/catch end
		byte(OpcodeEnd), // function end
	}
	fn := newTestFunction(t, sig, nil, body, tagI32())

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(1)}, vals)
}

// TestThrowCaughtByMatchingTag checks a thrown exception lands in the
// catch clause whose tag matches, with its argument on the stack.
func TestThrowCaughtByMatchingTag(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeTry), byte(ValueTypeI32),
		byte(OpcodeI32Const), 42,
		byte(OpcodeThrow), 0,
		byte(OpcodeCatch), 0,
		// exception arg (42) is already on the stack here
		byte(OpcodeEnd),
		byte(OpcodeEnd),
	}
	fn := newTestFunction(t, sig, nil, body, tagI32())

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(42)}, vals)
}

// TestThrowCaughtByCatchAll checks catch_all matches a tag with no
// dedicated catch clause.
func TestThrowCaughtByCatchAll(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeTry), byte(ValueTypeI32),
		byte(OpcodeI32Const), 7,
		byte(OpcodeThrow), 0,
		byte(OpcodeCatchAll),
		// catch_all never exposes the thrown payload on the stack.
		byte(OpcodeI32Const), 9,
		byte(OpcodeEnd),
		byte(OpcodeEnd),
	}
	fn := newTestFunction(t, sig, nil, body, tagI32())

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(9)}, vals)
}

// TestUncaughtThrowTraps checks a throw with no handler anywhere on the
// stack traps TrapUncaughtException rather than escaping any other way.
func TestUncaughtThrowTraps(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeI32Const), 1,
		byte(OpcodeThrow), 0,
		byte(OpcodeEnd),
	}
	fn := newTestFunction(t, sig, nil, body, tagI32())

	res, _, err := runTestFunction(t, fn)
	require.Equal(t, RunResultTrapped, res)
	var trapErr *TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, TrapUncaughtException, trapErr.Kind)
}

// TestRethrowEscapesToOuterHandler checks that rethrow inside a catch
// clause re-raises to an enclosing try, not back into the handler it
// was raised from.
func TestRethrowEscapesToOuterHandler(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeTry), byte(ValueTypeI32), // outer try
		byte(OpcodeTry), byte(ValueTypeI32), // inner try
		byte(OpcodeI32Const), 5,
		byte(OpcodeThrow), 0,
		byte(OpcodeCatch), 0, // inner catch: rethrow immediately
		byte(OpcodeDrop),
		byte(OpcodeRethrow), 0,
		byte(OpcodeEnd), // inner try/catch end
		byte(OpcodeCatch), 0, // outer catch
		byte(OpcodeEnd), // outer try/catch end
		byte(OpcodeEnd), // function end
	}
	fn := newTestFunction(t, sig, nil, body, tagI32())

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(5)}, vals)
}

// TestThrowPropagatesAcrossCallToCallerHandler builds a two-function module
// where the callee throws and only the caller has a try/catch, exercising
// the branch of throwFrom that pops an entire intervening frame (the
// callee's, which has no handler of its own) and installs the jump target
// directly on the caller's frame rather than through the cursor, since by
// the time a match is found the callee's frame is no longer the one step()
// is stepping.
func TestThrowPropagatesAcrossCallToCallerHandler(t *testing.T) {
	calleeSig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	calleeBody := []byte{
		byte(OpcodeI32Const), 0xcd, 0x00, // 77 as sleb128 (a lone 0x4d byte would decode as -51)
		byte(OpcodeThrow), 0,
		byte(OpcodeEnd),
	}

	callerSig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	callerBody := []byte{
		byte(OpcodeTry), byte(ValueTypeI32),
		byte(OpcodeCall), 1,
		byte(OpcodeCatch), 0,
		byte(OpcodeEnd),
		byte(OpcodeEnd),
	}

	exceptions := tagI32()
	mi := &ModuleInstance{
		Types:      []*FunctionType{callerSig, calleeSig},
		Exports:    map[string]*ExportInstance{},
		Exceptions: exceptions,
	}
	caller := &FunctionInstance{Type: callerSig, Module: mi, Body: callerBody}
	callee := &FunctionInstance{Type: calleeSig, Module: mi, Body: calleeBody}
	mi.Functions = []*FunctionInstance{caller, callee}
	m := &Module{Types: mi.Types, Funcs: []uint32{0, 1}, Exceptions: exceptions}

	require.NoError(t, validateFunctionBody(m, mi, caller, callerSig, true))
	require.NoError(t, validateFunctionBody(m, mi, callee, calleeSig, true))

	res, vals, err := runTestFunction(t, caller)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(77)}, vals)
}
