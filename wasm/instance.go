package wasm

// FunctionInstance is a callable function bound into a ModuleInstance: it
// is either a defined function (Body/LocalTypes populated) or a host
// function (GoFunc populated), following the teacher's single-struct
// convention for both cases (wasm/instance.go's FunctionInstance) rather
// than an interface, which keeps the interpreter's call path a single
// type switch on GoFunc == nil.
type FunctionInstance struct {
	Type   *FunctionType
	Module *ModuleInstance // the module that defines this function's locals/body, nil for a bare host func not yet bound

	// Defined function fields.
	LocalTypes []ValueType
	Body       []byte

	// Host function field: when non-nil this instance is a host function
	// and Body/LocalTypes are unused.
	GoFunc HostFunction

	// Name is diagnostic only, taken from the module's "name" custom
	// section when present.
	Name string

	// jumps caches the branch-target offsets computed once by the
	// validator, so Thread.RunFunction never rescans a body to find a
	// matching end/else for br/br_if/br_table.
	jumps *jumpTable
}

// IsHost reports whether f is bound to a Go host function rather than a
// decoded Wasm function body.
func (f *FunctionInstance) IsHost() bool { return f.GoFunc != nil }

// HostFunction is the signature host modules implement for imported
// functions (spec.md §5). ctx identifies the calling Thread; it carries
// no cancellation signal or deadline.
type HostFunction func(ctx *HostContext, args []Value) ([]Value, error)

// TableInstance is a mutable vector of function references, backing the
// MVP's single-table-per-module funcref table. An unwritten slot holds
// nil, distinguished from a written slot at trap time to produce
// TrapUninitializedElement rather than TrapUndefinedTableIndex
// (spec.md §4.3 distinguishes the two).
type TableInstance struct {
	Elements []*FunctionInstance
	Max      *uint32
}

// MemoryInstance is a mutable byte buffer sized in whole pages.
const MemoryPageSize = 65536

type MemoryInstance struct {
	Data []byte
	Max  *uint32 // in pages, nil if unbounded (subject to Config.WithMemoryMaxPages)
}

// PageCount reports the memory's current size in pages.
func (m *MemoryInstance) PageCount() uint32 { return uint32(len(m.Data)) / MemoryPageSize }

// GlobalInstance is a single mutable-or-constant global cell.
type GlobalInstance struct {
	Type *GlobalType
	Val  Value
}

// ExportInstance names one of a ModuleInstance's items for lookup by
// ModuleInstance.GetExport / spectest import resolution.
type ExportInstance struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// ModuleInstance is a module bound into an Environment: either a defined
// module produced by decoding+validating+linking a binary Module, or a
// host module assembled directly by AppendHostModule. Both cases share
// storage shape (spec.md's host-import glue requires host modules to be
// indistinguishable from defined modules as import providers).
type ModuleInstance struct {
	Name string

	Types     []*FunctionType
	Functions []*FunctionInstance
	Tables    []*TableInstance
	Memories  []*MemoryInstance
	Globals   []*GlobalInstance
	Exports   map[string]*ExportInstance

	// Exceptions holds the exception-handling extension's tag signatures
	// (SPEC_FULL.md §8), copied verbatim from the decoded Module; empty
	// for host modules and modules that don't use the extension.
	Exceptions []*FunctionType

	// IsHost distinguishes a module assembled via AppendHostModule (no
	// Wasm bytes ever existed) from one produced by ReadBinary+Instantiate.
	IsHost bool

	// AutoRunResults holds Environment.RunAllExports' return value when
	// Config.WithRunAllExports(true) drove it automatically during
	// Instantiate (SPEC_FULL.md §7); nil otherwise.
	AutoRunResults []ExportResult
}

// GetExport resolves name to its ExportInstance, or reports ok=false
// (TrapUnknownExport at the call site, spec.md §4.3).
func (mi *ModuleInstance) GetExport(name string) (*ExportInstance, bool) {
	e, ok := mi.Exports[name]
	return e, ok
}

// GetFunction resolves an exported function by name, trapping-by-return
// on either an unknown export or a kind mismatch, matching the two
// distinct TrapKinds spec.md §4.3 requires callers be able to tell apart.
func (mi *ModuleInstance) GetFunction(name string) (*FunctionInstance, error) {
	e, ok := mi.GetExport(name)
	if !ok {
		return nil, &TrapError{Kind: TrapUnknownExport, Message: name}
	}
	if e.Kind != ExportKindFunc {
		return nil, &TrapError{Kind: TrapExportKindMismatch, Message: name}
	}
	return mi.Functions[e.Index], nil
}

// HostContext is the argument passed to a HostFunction. It is
// intentionally minimal: spec.md's host-import glue does not require
// host functions to see anything beyond their arguments and a way to
// identify the calling thread for diagnostics.
type HostContext struct {
	Thread *Thread
}
