package wasm

// SectionID identifies the sections of a module in the WebAssembly 1.0
// (MVP) binary format.
// See https://www.w3.org/TR/wasm-core-1/#sections%E2%91%A0
type SectionID byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
)

// SectionIDName returns the canonical name of a module section.
func SectionIDName(id SectionID) string {
	switch id {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "elem"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	}
	return "unknown"
}

// ValueType is the binary encoding of a Wasm value type, e.g. i32.
// See https://www.w3.org/TR/wasm-core-1/#binary-valtype
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// String returns the text-format name of t, or "unknown" if t is invalid.
func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// IsValid reports whether t is one of the four MVP value types.
func (t ValueType) IsValid() bool {
	switch t {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return true
	}
	return false
}

// ImportKind indicates which import descriptor an ImportSegment carries.
// See https://www.w3.org/TR/wasm-core-1/#import-section%E2%91%A0
type ImportKind byte

const (
	ImportKindFunc   ImportKind = 0x00
	ImportKindTable  ImportKind = 0x01
	ImportKindMemory ImportKind = 0x02
	ImportKindGlobal ImportKind = 0x03
)

// ExportKind indicates which index space an ExportSegment refers into.
// See https://www.w3.org/TR/wasm-core-1/#export-section%E2%91%A0
type ExportKind byte

const (
	ExportKindFunc   ExportKind = 0x00
	ExportKindTable  ExportKind = 0x01
	ExportKindMemory ExportKind = 0x02
	ExportKindGlobal ExportKind = 0x03
)

// String returns the text-format name of an export/import kind.
func (k ExportKind) String() string {
	switch k {
	case ExportKindFunc:
		return "func"
	case ExportKindTable:
		return "table"
	case ExportKindMemory:
		return "mem"
	case ExportKindGlobal:
		return "global"
	}
	return "unknown"
}

// ElemTypeFuncRef is the sole MVP table element type: an (possibly null)
// function reference, encoded as 0x70.
const ElemTypeFuncRef = 0x70
