package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// section encodes one binary-format section: id, then its LEB128-prefixed
// body. Bodies here are all short enough that a single-byte size prefix
// suffices (max 127 bytes), which every helper below respects.
func section(id byte, body []byte) []byte {
	if len(body) > 127 {
		panic("test section body too long for single-byte LEB128 size")
	}
	return append([]byte{id, byte(len(body))}, body...)
}

func encodeName(s string) []byte {
	return append([]byte{byte(len(s))}, []byte(s)...)
}

// encodeAddFortyTwoModule builds a complete binary module exporting a
// single niladic function "add" that returns the i32 constant 42,
// exercising ReadBinary's full section pipeline end to end (spec.md §2's
// binary format read the way a real .wasm file would arrive).
func encodeAddFortyTwoModule(t *testing.T) []byte {
	t.Helper()
	typeSec := section(1, []byte{
		0x01,             // one type
		0x60,             // func tag
		0x00,             // zero params
		0x01, 0x7f,       // one result: i32
	})
	funcSec := section(3, []byte{0x01, 0x00}) // one function, type index 0
	exportSec := section(7, append([]byte{0x01}, append(encodeName("add"), 0x00, 0x00)...))
	codeSec := section(10, []byte{
		0x01,             // one code entry
		0x04,             // body size
		0x00,             // zero local decl runs
		byte(OpcodeI32Const), 42,
		byte(OpcodeEnd),
	})
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, typeSec...)
	data = append(data, funcSec...)
	data = append(data, exportSec...)
	data = append(data, codeSec...)
	return data
}

// TestLoadModuleAndCallExportedFunction decodes and instantiates a
// hand-encoded binary module, then calls its export through the same
// Environment/GetExport/RunFunction path a host program would use.
func TestLoadModuleAndCallExportedFunction(t *testing.T) {
	env := NewEnvironment(nil)
	mi, err := env.LoadModule("m", encodeAddFortyTwoModule(t))
	require.NoError(t, err)

	exp, ok := mi.GetExport("add")
	require.True(t, ok)
	require.Equal(t, ExportKindFunc, exp.Kind)

	th := NewThread(env, nil)
	res, vals, err := th.RunFunction(mi.Functions[exp.Index])
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(42)}, vals)
}

// TestInstantiateRollsBackOnValidationFailure checks a module whose code
// section fails validation (the body falls off its end with nothing on the
// stack, though the function declares an i32 result) is rejected and leaves
// the Environment exactly as it was, per the transactional-instantiation
// contract (spec.md §3).
func TestInstantiateRollsBackOnValidationFailure(t *testing.T) {
	env := NewEnvironment(nil)

	typeSec := section(1, []byte{0x01, 0x60, 0x00, 0x01, 0x7f})
	funcSec := section(3, []byte{0x01, 0x00})
	codeSec := section(10, []byte{
		0x01, 0x02, 0x00,
		byte(OpcodeEnd), // falls off the end with an empty stack; needs an i32
	})
	// the entry above is well-formed but invalid: body size 2 covers only
	// the local-decl byte and the end opcode, i.e. no i32 is ever pushed.
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, typeSec...)
	data = append(data, funcSec...)
	data = append(data, codeSec...)

	before := env.Mark()
	mi, err := env.LoadModule("bad", data)
	require.Error(t, err)
	require.Nil(t, mi)
	require.Equal(t, before, env.Mark())
	_, ok := env.FindModule("bad")
	require.False(t, ok)
}

// TestInstantiateOutOfBoundsElementSegmentFails checks a table element
// segment whose offset+length overruns the declared table traps
// instantiation rather than growing the table or panicking (spec.md §8
// scenario 2 "out-of-bounds element segment").
func TestInstantiateOutOfBoundsElementSegmentFails(t *testing.T) {
	env := NewEnvironment(nil)

	tableSec := section(4, []byte{
		0x01,             // one table
		0x70,             // funcref
		0x00, 0x01,       // limits: flag=min-only, min=1
	})
	elemSec := section(9, []byte{
		0x01,             // one segment
		0x00,             // table index 0
		byte(OpcodeI32Const), 0x00, byte(OpcodeEnd), // offset expr: i32.const 0
		0x02, 0x00, 0x00, // two function indices, both 0 — overruns a 1-entry table
	})
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, tableSec...)
	data = append(data, elemSec...)

	before := env.Mark()
	mi, err := env.LoadModule("badelem", data)
	require.Error(t, err)
	require.Nil(t, mi)
	require.Equal(t, before, env.Mark())
}

// TestInstantiateOutOfBoundsDataSegmentFails is applyData's memory-side
// analogue of TestInstantiateOutOfBoundsElementSegmentFails: a data
// segment whose offset+length overruns the declared one-page memory traps
// instantiation instead of writing past the buffer.
func TestInstantiateOutOfBoundsDataSegmentFails(t *testing.T) {
	env := NewEnvironment(nil)

	memSec := section(5, []byte{
		0x01,       // one memory
		0x00, 0x01, // limits: flag=min-only, min=1 page
	})
	dataSec := section(11, []byte{
		0x01, // one segment
		0x00, // memory index 0
		byte(OpcodeI32Const), 0xff, 0xff, 0x03, byte(OpcodeEnd), // offset expr: i32.const 65535
		0x02, 0xaa, 0xbb, // two-byte init, overruns the page by one byte
	})
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, memSec...)
	data = append(data, dataSec...)

	before := env.Mark()
	mi, err := env.LoadModule("baddata", data)
	require.Error(t, err)
	require.Nil(t, mi)
	require.Equal(t, before, env.Mark())
}

// TestInstantiateImportSignatureMismatchFails checks importing a function
// under a type that doesn't match the exporter's actual signature is
// rejected by resolveImports rather than silently wired up wrong.
func TestInstantiateImportSignatureMismatchFails(t *testing.T) {
	env := NewEnvironment(nil)

	// Register a host module exporting a niladic, no-result function
	// under the name "identity".
	h := env.AppendHostModule("env")
	h.AddFunction("identity", &FunctionType{}, func(ctx *HostContext, args []Value) ([]Value, error) {
		return nil, nil
	})

	// The importer declares type 0 as (i32) -> i32, which doesn't match
	// the host export's actual () -> () signature.
	typeSec := section(1, []byte{0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f})
	importSec := section(2, append(append([]byte{0x01}, append(encodeName("env"), encodeName("identity")...)...), 0x00, 0x00))
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, typeSec...)
	data = append(data, importSec...)

	before := env.Mark()
	mi, err := env.LoadModule("importer", data)
	require.Error(t, err)
	require.Nil(t, mi)
	require.Equal(t, before, env.Mark())
}

// encodeTrappingStartModule builds a module whose start function is a
// bare "unreachable", for exercising Instantiate's specMode branch.
func encodeTrappingStartModule() []byte {
	typeSec := section(1, []byte{0x01, 0x60, 0x00, 0x00}) // one type, func tag, no params/results
	funcSec := section(3, []byte{0x01, 0x00})              // one function, type index 0
	codeSec := section(10, []byte{
		0x01, 0x02, 0x00, // one code entry, body size 2, zero local decl runs
		byte(OpcodeUnreachable), byte(OpcodeEnd),
	})
	startSec := section(8, []byte{0x00}) // start function index 0
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, typeSec...)
	data = append(data, funcSec...)
	data = append(data, startSec...)
	data = append(data, codeSec...)
	return data
}

// TestInstantiateRunsAllExportsWhenConfigured checks Config.WithRunAllExports
// drives Instantiate to auto-invoke every export and record the outcome,
// per SPEC_FULL.md §7's --run-all-exports supplement.
func TestInstantiateRunsAllExportsWhenConfigured(t *testing.T) {
	data := encodeAddFortyTwoModule(t)

	cfg := NewConfig().WithRunAllExports(true)
	env := NewEnvironment(cfg)
	mi, err := env.LoadModule("m", data)
	require.NoError(t, err)
	require.Len(t, mi.AutoRunResults, 1)
	require.Equal(t, "add", mi.AutoRunResults[0].Name)
	require.Equal(t, RunResultReturned, mi.AutoRunResults[0].Result)
	require.Equal(t, []Value{I32(42)}, mi.AutoRunResults[0].Values)

	plainEnv := NewEnvironment(nil)
	mi2, err := plainEnv.LoadModule("m2", data)
	require.NoError(t, err)
	require.Nil(t, mi2.AutoRunResults, "without WithRunAllExports, Instantiate must not auto-run anything")
}

// TestSpecModeLeavesTrappedStartModuleBoundForInspection checks that with
// WithSpecMode(true), a start-function trap during Instantiate still
// leaves the module name bound (findable via FindModule), instead of
// rolling the Environment fully back like the default (specMode=false)
// behavior does.
func TestSpecModeLeavesTrappedStartModuleBoundForInspection(t *testing.T) {
	data := encodeTrappingStartModule()

	specEnv := NewEnvironment(NewConfig().WithSpecMode(true))
	mi, err := specEnv.LoadModule("startx", data)
	require.Error(t, err)
	require.Nil(t, mi)

	bound, ok := specEnv.FindModule("startx")
	require.True(t, ok, "specMode should leave the trapped module bound for inspection")
	require.NotNil(t, bound)

	defaultEnv := NewEnvironment(nil)
	before := defaultEnv.Mark()
	mi, err = defaultEnv.LoadModule("startx", data)
	require.Error(t, err)
	require.Nil(t, mi)
	require.Equal(t, before, defaultEnv.Mark())

	_, ok = defaultEnv.FindModule("startx")
	require.False(t, ok, "default (non-specMode) behavior should fully roll back")
}

// TestLoadModuleRejectsInvalidUTF8ExportName checks an export section
// entry whose name bytes aren't valid UTF-8 fails decoding end to end,
// through ReadBinary rather than just binary.readName in isolation.
func TestLoadModuleRejectsInvalidUTF8ExportName(t *testing.T) {
	env := NewEnvironment(nil)

	typeSec := section(1, []byte{0x01, 0x60, 0x00, 0x00})
	funcSec := section(3, []byte{0x01, 0x00})
	exportSec := section(7, []byte{
		0x01,             // one export
		0x02, 0xff, 0xfe, // invalid-UTF-8 name, length 2
		0x00, 0x00, // kind=func, index 0
	})
	codeSec := section(10, []byte{0x01, 0x02, 0x00, byte(OpcodeUnreachable), byte(OpcodeEnd)})
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, typeSec...)
	data = append(data, funcSec...)
	data = append(data, exportSec...)
	data = append(data, codeSec...)

	before := env.Mark()
	mi, err := env.LoadModule("badname", data)
	require.Error(t, err)
	require.Nil(t, mi)
	require.Equal(t, before, env.Mark())
}

// TestValidateRejectsReturnWithEmptyStack checks `(func (result i32)
// return)` is rejected with the exact message the return-underflow case
// produces, per spec.md §8 scenario 4.
func TestValidateRejectsReturnWithEmptyStack(t *testing.T) {
	env := NewEnvironment(nil)

	typeSec := section(1, []byte{0x01, 0x60, 0x00, 0x01, 0x7f}) // () -> i32
	funcSec := section(3, []byte{0x01, 0x00})
	codeSec := section(10, []byte{
		0x01, 0x03, 0x00, // one code entry, body size 3, zero local decl runs
		byte(OpcodeReturn), byte(OpcodeEnd),
	})
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, typeSec...)
	data = append(data, funcSec...)
	data = append(data, codeSec...)

	before := env.Mark()
	mi, err := env.LoadModule("retunderflow", data)
	require.Error(t, err)
	require.Nil(t, mi)
	require.Equal(t, before, env.Mark())

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, "type stack size too small at return. got 0, expected at least 1", loadErr.Message)
}
