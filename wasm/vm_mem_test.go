package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestFunctionWithMemory is newTestFunction plus the given memory as
// the module's sole memory, for tests that need load/store to validate
// and execute.
func newTestFunctionWithMemory(t *testing.T, sig *FunctionType, body []byte, mem *MemoryInstance) *FunctionInstance {
	t.Helper()
	mi := &ModuleInstance{
		Types:    []*FunctionType{sig},
		Exports:  map[string]*ExportInstance{},
		Memories: []*MemoryInstance{mem},
	}
	fn := &FunctionInstance{Type: sig, Module: mi, Body: body}
	mi.Functions = []*FunctionInstance{fn}
	m := &Module{Types: mi.Types, Funcs: []uint32{0}}
	require.NoError(t, validateFunctionBody(m, mi, fn, sig, false))
	return fn
}

// TestStoreThenLoadRoundTrips writes an i32 to memory and reads it back
// through the narrowing 8-bit load, exercising both doStore/doLoad and
// the little-endian helpers.
func TestStoreThenLoadRoundTrips(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeI32Const), 0, // address
		byte(OpcodeI32Const), 0x48, // -56 as sleb128, truncates to byte 200
		byte(OpcodeI32Store8), 0, 0, // align, offset
		byte(OpcodeI32Const), 0, // address
		byte(OpcodeI32Load8U), 0, 0,
		byte(OpcodeEnd),
	}
	mem := &MemoryInstance{Data: make([]byte, MemoryPageSize)}
	fn := newTestFunctionWithMemory(t, sig, body, mem)

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(200)}, vals)
}

// TestLoadOutOfBoundsTraps checks that reading past the end of the sole
// memory traps rather than panicking with a slice-bounds error.
func TestLoadOutOfBoundsTraps(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeI32Const), 0, // address 0, but the memory below holds only 2 bytes
		byte(OpcodeI32Load), 0, 0,
		byte(OpcodeEnd),
	}
	mem := &MemoryInstance{Data: make([]byte, 2)}
	fn := newTestFunctionWithMemory(t, sig, body, mem)

	res, _, err := runTestFunction(t, fn)
	require.Equal(t, RunResultTrapped, res)
	var trapErr *TrapError
	require.ErrorAs(t, err, &trapErr)
	require.Equal(t, TrapMemoryAccessOutOfBounds, trapErr.Kind)
}

// TestMemoryGrowReturnsPreviousSize checks memory.grow's return-value
// convention and that it actually extends Data.
func TestMemoryGrowReturnsPreviousSize(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{
		byte(OpcodeI32Const), 1,
		byte(OpcodeMemoryGrow), 0,
		byte(OpcodeEnd),
	}
	mem := &MemoryInstance{Data: make([]byte, MemoryPageSize)}
	fn := newTestFunctionWithMemory(t, sig, body, mem)

	res, vals, err := runTestFunction(t, fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(1)}, vals) // previous page count
	require.Equal(t, 2*MemoryPageSize, len(mem.Data))
}
