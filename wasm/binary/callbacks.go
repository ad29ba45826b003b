package binary

// Callbacks receives one call per structural element the Decoder streams
// out of a binary module, in file order. Every type here is a plain,
// wasm-package-independent value so this package has no dependency on the
// domain model it feeds: the consumer (wasm.moduleBuilder) is the only
// place wire shapes are turned into validated domain types. A method
// returning a non-nil error aborts decoding; Decoder.Decode returns that
// error unwrapped, so the caller's own error type (e.g. *wasm.LoadError)
// survives the round trip.
type Callbacks interface {
	// OnType is called once per entry of the type section.
	OnType(index uint32, params, results []byte) error

	// OnImport is called once per entry of the import section. kind is
	// 0=func,1=table,2=memory,3=global; only the fields relevant to kind
	// are meaningful.
	OnImport(index uint32, module, name string, kind byte,
		funcTypeIndex uint32,
		tableElemType byte, tableLimits Limits,
		memLimits Limits,
		globalType byte, globalMutable bool) error

	// OnFunction is called once per entry of the function section: the
	// type index of a defined function, in defined-function order.
	OnFunction(index uint32, typeIndex uint32) error

	// OnTable is called once per entry of the table section.
	OnTable(index uint32, elemType byte, limits Limits) error

	// OnMemory is called once per entry of the memory section.
	OnMemory(index uint32, limits Limits) error

	// OnGlobal is called once per entry of the global section.
	OnGlobal(index uint32, valType byte, mutable bool, init ConstExpr) error

	// OnExport is called once per entry of the export section. kind is
	// 0=func,1=table,2=memory,3=global.
	OnExport(index uint32, name string, kind byte, itemIndex uint32) error

	// OnStart is called at most once, for the start section.
	OnStart(funcIndex uint32) error

	// OnElement is called once per entry of the element section.
	OnElement(index uint32, tableIndex uint32, offset ConstExpr, funcIndices []uint32) error

	// OnCode is called once per entry of the code section, in
	// defined-function order (aligned with OnFunction's index order).
	OnCode(index uint32, numLocals uint32, localTypes []byte, body []byte) error

	// OnData is called once per entry of the data section.
	OnData(index uint32, memIndex uint32, offset ConstExpr, init []byte) error

	// OnCustomSection is called once per custom section, in file order.
	OnCustomSection(name string, data []byte) error

	// OnException is called once per entry of the exception-handling
	// extension's tag section (SPEC_FULL.md §8), absent from a module
	// that doesn't use the extension. params is the tag's parameter
	// value-type list.
	OnException(index uint32, params []byte) error
}

// Limits is the wire shape of a table/memory limits pair.
type Limits struct {
	Min uint32
	Max *uint32
}

// ConstExpr is the wire shape of a constant expression: a single opcode
// (one of i32.const, i64.const, f32.const, f64.const, global.get) plus
// its already-decoded operand.
type ConstExpr struct {
	Opcode byte
	// Exactly one of these is meaningful, selected by Opcode.
	I32Value    int32
	I64Value    int64
	F32Bits     uint32
	F64Bits     uint64
	GlobalIndex uint32
}
