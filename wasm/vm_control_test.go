package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestFunction builds a validated FunctionInstance directly, bypassing
// binary decoding, for interpreter unit tests that only care about a raw
// instruction sequence: exactly what the teacher's own vm_test.go builds
// its fixtures with.
func newTestFunction(t *testing.T, sig *FunctionType, localTypes []ValueType, body []byte, exceptions []*FunctionType) *FunctionInstance {
	t.Helper()
	mi := &ModuleInstance{Types: []*FunctionType{sig}, Exports: map[string]*ExportInstance{}, Exceptions: exceptions}
	fn := &FunctionInstance{Type: sig, Module: mi, LocalTypes: localTypes, Body: body}
	mi.Functions = []*FunctionInstance{fn}
	m := &Module{Types: mi.Types, Funcs: []uint32{0}, Exceptions: exceptions}
	require.NoError(t, validateFunctionBody(m, mi, fn, sig, true))
	return fn
}

func runTestFunction(t *testing.T, fn *FunctionInstance, args ...Value) (RunResult, []Value, error) {
	t.Helper()
	th := NewThread(NewEnvironment(nil), nil)
	return th.RunFunction(fn, args...)
}

// TestBranchToLoopContinues counts a local up to 3 via br_if back to a
// loop label, exercising branch's loop-target pc fix: a br/br_if to a
// loop must actually re-enter the loop body, not fall through to the
// next instruction (the bug this repo fixed by writing branch targets
// through the cursor rather than directly onto the frame).
func TestBranchToLoopContinues(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeBlock), BlockTypeEmpty,
		byte(OpcodeLoop), BlockTypeEmpty,
		byte(OpcodeLocalGet), 0,
		byte(OpcodeI32Const), 1,
		byte(OpcodeI32Add),
		byte(OpcodeLocalSet), 0,
		byte(OpcodeLocalGet), 0,
		byte(OpcodeI32Const), 3,
		byte(OpcodeI32LtS),
		byte(OpcodeBrIf), 0, // branch to the loop (depth 0) while < 3
		byte(OpcodeEnd), // loop end
		byte(OpcodeEnd), // block end
		byte(OpcodeLocalGet), 0,
		byte(OpcodeEnd), // function end
	}
	fn := newTestFunction(t, sig, []ValueType{ValueTypeI32}, body, nil)

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(3)}, vals)
}

// TestBranchOutOfBlockSkipsRest verifies br to an enclosing block's depth
// jumps past the rest of that block's body instead of merely popping one
// label and falling through into it.
func TestBranchOutOfBlockSkipsRest(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeBlock), byte(ValueTypeI32),
		byte(OpcodeI32Const), 1,
		byte(OpcodeBr), 0,
		byte(OpcodeI32Const), 99, // unreachable: br above must skip this
		byte(OpcodeEnd),
		byte(OpcodeEnd),
	}
	fn := newTestFunction(t, sig, nil, body, nil)

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(1)}, vals)
}

func TestIntegerDivideByZeroTraps(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeI32Const), 1,
		byte(OpcodeI32Const), 0,
		byte(OpcodeI32DivS),
		byte(OpcodeEnd),
	}
	fn := newTestFunction(t, sig, nil, body, nil)

	res, _, err := runTestFunction(t, fn)
	require.Equal(t, RunResultTrapped, res)
	var trapErr *TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, TrapIntegerDivideByZero, trapErr.Kind)
}
