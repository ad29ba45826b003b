package wasm

// ConstantExpression is a single-instruction initializer expression used
// by global initializers and element/data segment offsets. Only
// i32.const, i64.const, f32.const, f64.const, and global.get are legal
// (spec.md §3, "an initializer constant expression evaluated at
// instantiation time").
type ConstantExpression struct {
	Opcode Opcode
	// Immediate holds the decoded operand: int32/int64/float32/float64 for
	// the *.const forms, or uint32 (a global index) for global.get.
	Immediate interface{}
}

// ImportSegment is a single entry of the import section, prior to resolution.
type ImportSegment struct {
	Module, Name string
	Kind         ImportKind
	// Exactly one of the following is populated, selected by Kind.
	FuncTypeIndex uint32
	TableType     *TableType
	MemoryType    *MemoryType
	GlobalType    *GlobalType
}

// ExportSegment is a single entry of the export section.
type ExportSegment struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// GlobalSegment is a single entry of the global section: a declared type
// plus its initializer.
type GlobalSegment struct {
	Type *GlobalType
	Init *ConstantExpression
}

// ElementSegment initializes a range of a table with function indices.
// See spec.md's GLOSSARY "Element segment".
type ElementSegment struct {
	TableIndex uint32
	Offset     *ConstantExpression
	Init       []uint32 // function indices
}

// DataSegment initializes a range of a memory's bytes.
// See spec.md's GLOSSARY "Data segment".
type DataSegment struct {
	MemoryIndex uint32
	Offset      *ConstantExpression
	Init        []byte
}

// CodeSegment is one function body: its local declarations and its
// already-flattened instruction stream.
type CodeSegment struct {
	NumLocals  uint32
	LocalTypes []ValueType
	Body       []byte
}
