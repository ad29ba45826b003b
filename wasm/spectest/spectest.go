// Package spectest provides the reference host module described by
// spec.md §4.4: a family of no-op "print" functions, a table, a memory,
// and four constant globals, all importable under the module name
// "spectest". It exists so a conformance runner can link test modules
// that import from "spectest" without hand-authoring a delegate per run.
package spectest

import (
	"fmt"
	"io"

	"github.com/wazerolite/wazerolite/wasm"
)

var (
	sigVoid       = &wasm.FunctionType{}
	sigI32        = &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}}
	sigI64        = &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI64}}
	sigF32        = &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeF32}}
	sigF64        = &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeF64}}
	sigI32F32     = &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeF32}}
	sigF64F64     = &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeF64, wasm.ValueTypeF64}}
	uint32Ptr     = func(v uint32) *uint32 { return &v }
	tableLimits   = wasm.Limits{Min: 10, Max: uint32Ptr(20)}
	memoryLimits  = wasm.Limits{Min: 1, Max: uint32Ptr(2)}
	globalIntBits = int32(666)
)

// Register appends the "spectest" host module to env, writing anything
// the print family emits to w. A nil w falls back to env's own
// Config.WithLogStream writer (io.Discard if that wasn't set either),
// so a caller that already configured a log stream on env doesn't need
// to thread it through separately here.
func Register(env *wasm.Environment, w io.Writer) *wasm.ModuleInstance {
	if w == nil {
		w = env.LogStream()
	}
	h := env.AppendHostModule("spectest")

	h.AddFunction("print", sigVoid, func(ctx *wasm.HostContext, args []wasm.Value) ([]wasm.Value, error) {
		fmt.Fprintln(w, "print()")
		return nil, nil
	})
	h.AddFunction("print_i32", sigI32, func(ctx *wasm.HostContext, args []wasm.Value) ([]wasm.Value, error) {
		fmt.Fprintf(w, "print_i32(%d)\n", args[0].I32())
		return nil, nil
	})
	h.AddFunction("print_i64", sigI64, func(ctx *wasm.HostContext, args []wasm.Value) ([]wasm.Value, error) {
		fmt.Fprintf(w, "print_i64(%d)\n", args[0].I64())
		return nil, nil
	})
	h.AddFunction("print_f32", sigF32, func(ctx *wasm.HostContext, args []wasm.Value) ([]wasm.Value, error) {
		fmt.Fprintf(w, "print_f32(%g)\n", args[0].F32())
		return nil, nil
	})
	h.AddFunction("print_f64", sigF64, func(ctx *wasm.HostContext, args []wasm.Value) ([]wasm.Value, error) {
		fmt.Fprintf(w, "print_f64(%g)\n", args[0].F64())
		return nil, nil
	})
	h.AddFunction("print_i32_f32", sigI32F32, func(ctx *wasm.HostContext, args []wasm.Value) ([]wasm.Value, error) {
		fmt.Fprintf(w, "print_i32_f32(%d, %g)\n", args[0].I32(), args[1].F32())
		return nil, nil
	})
	h.AddFunction("print_f64_f64", sigF64F64, func(ctx *wasm.HostContext, args []wasm.Value) ([]wasm.Value, error) {
		fmt.Fprintf(w, "print_f64_f64(%g, %g)\n", args[0].F64(), args[1].F64())
		return nil, nil
	})

	h.AddTable("table", tableLimits)
	h.AddMemory("memory", memoryLimits)

	h.AddGlobal("global_i32", wasm.I32(globalIntBits), false)
	h.AddGlobal("global_i64", wasm.I64(int64(globalIntBits)), false)
	h.AddGlobal("global_f32", wasm.F32(float32(globalIntBits)), false)
	h.AddGlobal("global_f64", wasm.F64(float64(globalIntBits)), false)

	return h.Instance()
}
