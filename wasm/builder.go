package wasm

import (
	"fmt"

	"github.com/wazerolite/wazerolite/wasm/binary"
)

// moduleBuilder implements binary.Callbacks, accumulating decoded
// sections into a Module. It performs only the structural checks that
// depend purely on shape (e.g. "type index in range"); type-level
// validation of function bodies happens later, in the operand-stack
// validator (validator.go), matching the split spec.md §3 draws between
// well-formedness and validity.
type moduleBuilder struct {
	m   *Module
	err error
}

func newModuleBuilder() *moduleBuilder {
	return &moduleBuilder{m: &Module{CustomSections: map[string][]byte{}}}
}

func (b *moduleBuilder) build() (*Module, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.m, nil
}

func (b *moduleBuilder) fail(format string, args ...interface{}) error {
	err := &LoadError{Offset: -1, Message: fmt.Sprintf(format, args...)}
	b.err = err
	return err
}

func toValueTypes(bs []byte) []ValueType {
	out := make([]ValueType, len(bs))
	for i, x := range bs {
		out[i] = ValueType(x)
	}
	return out
}

func toLimits(l binary.Limits) Limits { return Limits{Min: l.Min, Max: l.Max} }

func toConstExpr(c binary.ConstExpr) *ConstantExpression {
	ce := &ConstantExpression{Opcode: Opcode(c.Opcode)}
	switch Opcode(c.Opcode) {
	case OpcodeI32Const:
		ce.Immediate = c.I32Value
	case OpcodeI64Const:
		ce.Immediate = c.I64Value
	case OpcodeF32Const:
		ce.Immediate = DecodeF32(uint64(c.F32Bits))
	case OpcodeF64Const:
		ce.Immediate = DecodeF64(c.F64Bits)
	case OpcodeGlobalGet:
		ce.Immediate = c.GlobalIndex
	}
	return ce
}

func (b *moduleBuilder) OnType(index uint32, params, results []byte) error {
	b.m.Types = append(b.m.Types, &FunctionType{Params: toValueTypes(params), Results: toValueTypes(results)})
	return nil
}

func (b *moduleBuilder) OnImport(index uint32, module, name string, kind byte,
	funcTypeIndex uint32,
	tableElemType byte, tableLimits binary.Limits,
	memLimits binary.Limits,
	globalType byte, globalMutable bool) error {
	seg := &ImportSegment{Module: module, Name: name, Kind: ImportKind(kind)}
	switch ImportKind(kind) {
	case ImportKindFunc:
		if int(funcTypeIndex) >= len(b.m.Types) {
			return b.fail("unknown type %d for import %s.%s", funcTypeIndex, module, name)
		}
		seg.FuncTypeIndex = funcTypeIndex
	case ImportKindTable:
		lim := toLimits(tableLimits)
		seg.TableType = &TableType{ElemType: tableElemType, Limits: lim}
	case ImportKindMemory:
		lim := toLimits(memLimits)
		seg.MemoryType = &lim
	case ImportKindGlobal:
		seg.GlobalType = &GlobalType{ValType: ValueType(globalType), Mutable: globalMutable}
	}
	b.m.Imports = append(b.m.Imports, seg)
	return nil
}

func (b *moduleBuilder) OnFunction(index uint32, typeIndex uint32) error {
	if int(typeIndex) >= len(b.m.Types) {
		return b.fail("unknown type %d for function %d", typeIndex, index)
	}
	b.m.Funcs = append(b.m.Funcs, typeIndex)
	return nil
}

func (b *moduleBuilder) OnTable(index uint32, elemType byte, limits binary.Limits) error {
	lim := toLimits(limits)
	if err := lim.Validate(); err != nil {
		return b.fail("table[%d]: %v", index, err)
	}
	b.m.Tables = append(b.m.Tables, &TableType{ElemType: elemType, Limits: lim})
	return nil
}

func (b *moduleBuilder) OnMemory(index uint32, limits binary.Limits) error {
	lim := toLimits(limits)
	if err := lim.Validate(); err != nil {
		return b.fail("memory[%d]: %v", index, err)
	}
	b.m.Memories = append(b.m.Memories, &lim)
	return nil
}

func (b *moduleBuilder) OnGlobal(index uint32, valType byte, mutable bool, init binary.ConstExpr) error {
	b.m.Globals = append(b.m.Globals, &GlobalSegment{
		Type: &GlobalType{ValType: ValueType(valType), Mutable: mutable},
		Init: toConstExpr(init),
	})
	return nil
}

func (b *moduleBuilder) OnExport(index uint32, name string, kind byte, itemIndex uint32) error {
	for _, e := range b.m.Exports {
		if e.Name == name {
			return b.fail("duplicate export %q", name)
		}
	}
	b.m.Exports = append(b.m.Exports, &ExportSegment{Name: name, Kind: ExportKind(kind), Index: itemIndex})
	return nil
}

func (b *moduleBuilder) OnStart(funcIndex uint32) error {
	f := funcIndex
	b.m.Start = &f
	return nil
}

func (b *moduleBuilder) OnElement(index uint32, tableIndex uint32, offset binary.ConstExpr, funcIndices []uint32) error {
	b.m.Elements = append(b.m.Elements, &ElementSegment{
		TableIndex: tableIndex,
		Offset:     toConstExpr(offset),
		Init:       funcIndices,
	})
	return nil
}

func (b *moduleBuilder) OnCode(index uint32, numLocals uint32, localTypes []byte, body []byte) error {
	b.m.Codes = append(b.m.Codes, &CodeSegment{
		NumLocals:  numLocals,
		LocalTypes: toValueTypes(localTypes),
		Body:       body,
	})
	return nil
}

func (b *moduleBuilder) OnData(index uint32, memIndex uint32, offset binary.ConstExpr, init []byte) error {
	b.m.Data = append(b.m.Data, &DataSegment{
		MemoryIndex: memIndex,
		Offset:      toConstExpr(offset),
		Init:        init,
	})
	return nil
}

func (b *moduleBuilder) OnException(index uint32, params []byte) error {
	b.m.Exceptions = append(b.m.Exceptions, &FunctionType{Params: toValueTypes(params)})
	return nil
}

func (b *moduleBuilder) OnCustomSection(name string, data []byte) error {
	if _, ok := b.m.CustomSections[name]; ok {
		return b.fail("duplicate custom section %q", name)
	}
	b.m.CustomSections[name] = data
	return nil
}
