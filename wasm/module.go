package wasm

import "github.com/wazerolite/wazerolite/wasm/binary"

// Module is the raw, decoded-but-not-yet-validated shape of a binary
// module: one slice per section, indexed exactly as the binary format
// indexes them (spec.md §2). It carries no linking or execution state;
// Environment.Instantiate consumes it to build a ModuleInstance.
type Module struct {
	Types    []*FunctionType
	Imports  []*ImportSegment
	Funcs    []uint32 // func index -> type index, defined functions only
	Tables   []*TableType
	Memories []*MemoryType
	Globals  []*GlobalSegment
	Exports  []*ExportSegment
	Start    *uint32
	Elements []*ElementSegment
	Codes    []*CodeSegment
	Data     []*DataSegment

	// Exceptions holds the exception-handling extension's tag
	// declarations (SPEC_FULL.md §8), each a bare parameter-type list.
	// Empty unless the module's binary carries the extension's tag
	// section; ignored entirely unless Config.WithEnableExceptions(true).
	Exceptions []*FunctionType

	// CustomSections preserves name-tagged raw payloads (spec.md's
	// GLOSSARY "Custom section"); the "name" custom section in particular
	// backs GetFunctionName.
	CustomSections map[string][]byte
}

// ReadBinary decodes and structurally validates raw Wasm bytes into a
// Module, ready for Environment.Instantiate. Structural validation (magic
// number, section ordering, size accounting, LEB128/UTF-8 well-formedness)
// happens during decoding; type-level validation (spec.md §3's Validator)
// happens separately at Instantiate time, mirroring the teaser's split
// between DecodeModule and the store's addFunctions/addExports/...
// pipeline.
func ReadBinary(data []byte) (*Module, error) {
	b := newModuleBuilder()
	dec := binary.NewDecoder(data)
	if err := dec.Decode(b); err != nil {
		return nil, err
	}
	return b.build()
}

// GetFunctionName looks up name in the module's "name" custom section
// function-name subsection, if present. Absence of the custom section, or
// of an entry for index, is not an error: the name is diagnostic only
// (spec.md's ambient logging uses it for trace output).
func (m *Module) GetFunctionName(index uint32) (string, bool) {
	names, ok := m.functionNames()
	if !ok {
		return "", false
	}
	name, ok := names[index]
	return name, ok
}

func (m *Module) functionNames() (map[uint32]string, bool) {
	payload, ok := m.CustomSections["name"]
	if !ok {
		return nil, false
	}
	names, err := binary.ParseFunctionNames(payload)
	if err != nil {
		return nil, false
	}
	return names, true
}

// NumImportedFuncs reports how many of the module's function indices are
// satisfied by imports (spec.md §3: imported functions occupy the low
// indices, defined functions follow).
func (m *Module) NumImportedFuncs() int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Kind == ImportKindFunc {
			n++
		}
	}
	return n
}

// NumImportedTables, NumImportedMemories, NumImportedGlobals mirror
// NumImportedFuncs for the other three importable kinds.
func (m *Module) NumImportedTables() int   { return m.numImportedKind(ImportKindTable) }
func (m *Module) NumImportedMemories() int { return m.numImportedKind(ImportKindMemory) }
func (m *Module) NumImportedGlobals() int  { return m.numImportedKind(ImportKindGlobal) }

func (m *Module) numImportedKind(k ImportKind) int {
	n := 0
	for _, imp := range m.Imports {
		if imp.Kind == k {
			n++
		}
	}
	return n
}
