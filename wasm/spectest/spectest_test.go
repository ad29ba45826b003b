package spectest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wazerolite/wazerolite/wasm"
)

// TestRegisterExposesModuleUnderSpectestName checks that Register wires the
// host module into the Environment under the name other modules import it
// by ("spectest", matching the upstream test suite's convention).
func TestRegisterExposesModuleUnderSpectestName(t *testing.T) {
	env := wasm.NewEnvironment(nil)
	mi := Register(env, &bytes.Buffer{})
	require.NotNil(t, mi)

	found, ok := env.FindModule("spectest")
	require.True(t, ok)
	require.Same(t, mi, found)
}

// TestPrintFunctionsWriteToProvidedWriter checks each print_* export runs
// as a host function and writes its formatted line to the io.Writer passed
// to Register, rather than to stdout or nowhere.
func TestPrintFunctionsWriteToProvidedWriter(t *testing.T) {
	var buf bytes.Buffer
	env := wasm.NewEnvironment(nil)
	mi := Register(env, &buf)
	th := wasm.NewThread(env, nil)

	cases := []struct {
		name string
		args []wasm.Value
	}{
		{"print", nil},
		{"print_i32", []wasm.Value{wasm.I32(42)}},
		{"print_i64", []wasm.Value{wasm.I64(42)}},
		{"print_f32", []wasm.Value{wasm.F32(1.5)}},
		{"print_f64", []wasm.Value{wasm.F64(1.5)}},
		{"print_i32_f32", []wasm.Value{wasm.I32(1), wasm.F32(2.5)}},
		{"print_f64_f64", []wasm.Value{wasm.F64(1.5), wasm.F64(2.5)}},
	}

	for _, c := range cases {
		buf.Reset()
		exp, ok := mi.GetExport(c.name)
		require.True(t, ok, "missing export %s", c.name)
		require.Equal(t, wasm.ExportKindFunc, exp.Kind)

		res, vals, err := th.RunFunction(mi.Functions[exp.Index], c.args...)
		require.NoError(t, err)
		require.Equal(t, wasm.RunResultReturned, res)
		require.Empty(t, vals)
		require.NotEmpty(t, buf.String(), "print function %s wrote nothing", c.name)
	}
}

// TestRegisterFallsBackToEnvironmentLogStream checks that passing a nil
// writer to Register makes the print family write to env's own
// Config.WithLogStream writer instead of silently discarding output.
func TestRegisterFallsBackToEnvironmentLogStream(t *testing.T) {
	var buf bytes.Buffer
	cfg := wasm.NewConfig().WithLogStream(&buf)
	env := wasm.NewEnvironment(cfg)
	mi := Register(env, nil)

	exp, ok := mi.GetExport("print")
	require.True(t, ok)

	th := wasm.NewThread(env, nil)
	res, _, err := th.RunFunction(mi.Functions[exp.Index])
	require.NoError(t, err)
	require.Equal(t, wasm.RunResultReturned, res)
	require.NotEmpty(t, buf.String())
}

// TestTableHasDocumentedLimits checks the exported table's min/max match
// the upstream spectest module (10 entries, growable to 20).
func TestTableHasDocumentedLimits(t *testing.T) {
	env := wasm.NewEnvironment(nil)
	mi := Register(env, &bytes.Buffer{})

	exp, ok := mi.GetExport("table")
	require.True(t, ok)
	require.Equal(t, wasm.ExportKindTable, exp.Kind)

	tbl := mi.Tables[exp.Index]
	require.Len(t, tbl.Elements, 10)
	require.NotNil(t, tbl.Max)
	require.Equal(t, uint32(20), *tbl.Max)
}

// TestMemoryHasDocumentedLimits checks the exported memory starts at one
// page and caps at two, matching the upstream spectest module.
func TestMemoryHasDocumentedLimits(t *testing.T) {
	env := wasm.NewEnvironment(nil)
	mi := Register(env, &bytes.Buffer{})

	exp, ok := mi.GetExport("memory")
	require.True(t, ok)
	require.Equal(t, wasm.ExportKindMemory, exp.Kind)

	mem := mi.Memories[exp.Index]
	require.Equal(t, wasm.MemoryPageSize, len(mem.Data))
	require.NotNil(t, mem.Max)
	require.Equal(t, uint32(2), *mem.Max)
}

// TestGlobalsAreImmutableAndSetTo666 checks every exported global holds
// the constant 666 in its type's width and cannot be marked mutable.
func TestGlobalsAreImmutableAndSetTo666(t *testing.T) {
	env := wasm.NewEnvironment(nil)
	mi := Register(env, &bytes.Buffer{})

	cases := []struct {
		name string
		want wasm.Value
	}{
		{"global_i32", wasm.I32(666)},
		{"global_i64", wasm.I64(666)},
		{"global_f32", wasm.F32(666)},
		{"global_f64", wasm.F64(666)},
	}

	for _, c := range cases {
		exp, ok := mi.GetExport(c.name)
		require.True(t, ok, "missing export %s", c.name)
		require.Equal(t, wasm.ExportKindGlobal, exp.Kind)

		g := mi.Globals[exp.Index]
		require.False(t, g.Type.Mutable, "global %s should be immutable", c.name)
		require.Equal(t, c.want, g.Val)
	}
}

// TestImportingModuleCanResolveSpectestFunction checks a second module can
// import and call a spectest function through the normal import-resolution
// path (Environment.link), not just through direct HostModule access.
func TestImportingModuleCanResolveSpectestFunction(t *testing.T) {
	env := wasm.NewEnvironment(nil)
	Register(env, &bytes.Buffer{})

	sig := &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}}
	m := &wasm.Module{
		Types: []*wasm.FunctionType{sig},
		Imports: []*wasm.ImportSegment{
			{Module: "spectest", Name: "print_i32", Kind: wasm.ImportKindFunc, FuncTypeIndex: 0},
		},
		Funcs: []uint32{0},
		Codes: []*wasm.CodeSegment{{Body: []byte{
			byte(wasm.OpcodeLocalGet), 0,
			byte(wasm.OpcodeCall), 0, // calls the imported print_i32, index 0
			byte(wasm.OpcodeEnd),
		}}},
		Exports: []*wasm.ExportSegment{
			{Name: "run", Kind: wasm.ExportKindFunc, Index: 1},
		},
	}

	mi, err := env.Instantiate("importer", m)
	require.NoError(t, err)

	exp, ok := mi.GetExport("run")
	require.True(t, ok)

	th := wasm.NewThread(env, nil)
	res, vals, err := th.RunFunction(mi.Functions[exp.Index], wasm.I32(7))
	require.NoError(t, err)
	require.Equal(t, wasm.RunResultReturned, res)
	require.Empty(t, vals)
}
