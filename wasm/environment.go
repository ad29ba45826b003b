package wasm

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Mark is an opaque snapshot of the sizes of an Environment's append-only
// vectors, taken by Mark and consumed by ResetTo to drop every module,
// table, memory and global added since the snapshot. Name bindings are
// not snapshotted: ResetTo unbinds names that point at dropped modules,
// and a name bound (e.g. by RegisterModule) to a module older than the
// snapshot stays bound. Modeled on the teacher's per-phase rollback
// closures in wasm/store.go, generalized into a single named pair per
// spec.md §3's mark/reset discipline.
type Mark struct {
	numModules  int
	numFuncs    int
	numTables   int
	numMemories int
	numGlobals  int
}

// Environment (the Store) owns every module, function, table, memory,
// and global instance that has ever been linked into it. All vectors are
// append-only outside of ResetTo, so a Mark taken before a risky
// operation always refers to a valid prefix.
type Environment struct {
	config *Config

	modules   []*ModuleInstance
	byName    map[string]int // module name -> index into modules
	funcs     []*FunctionInstance
	tables    []*TableInstance
	memories  []*MemoryInstance
	globals   []*GlobalInstance
}

// NewEnvironment constructs an empty Environment. A nil cfg uses
// NewConfig()'s defaults.
func NewEnvironment(cfg *Config) *Environment {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Environment{config: cfg, byName: map[string]int{}}
}

// LogStream returns the writer Config.WithLogStream configured for e, or
// io.Discard if none was set. Host modules that print (e.g. spectest's
// print family) use this as their default sink when the caller doesn't
// hand them an explicit writer.
func (e *Environment) LogStream() io.Writer {
	return e.config.logStreamOrDiscard()
}

// Mark snapshots the Environment's current size.
func (e *Environment) Mark() Mark {
	return Mark{
		numModules:  len(e.modules),
		numFuncs:    len(e.funcs),
		numTables:   len(e.tables),
		numMemories: len(e.memories),
		numGlobals:  len(e.globals),
	}
}

// ResetTo truncates every vector back to the sizes recorded in m,
// unbinding every name bound to a module it drops; names bound to older
// modules are kept. Used to roll back a
// failed Instantiate (spec.md §3, §8 scenarios 1-3).
func (e *Environment) ResetTo(m Mark) {
	for name, idx := range e.byName {
		if idx >= m.numModules {
			delete(e.byName, name)
		}
	}
	e.modules = e.modules[:m.numModules]
	e.funcs = e.funcs[:m.numFuncs]
	e.tables = e.tables[:m.numTables]
	e.memories = e.memories[:m.numMemories]
	e.globals = e.globals[:m.numGlobals]
}

// FindModule looks up a module previously bound by name (via
// RegisterModule, AppendHostModule, or LoadModule's implicit binding).
func (e *Environment) FindModule(name string) (*ModuleInstance, bool) {
	idx, ok := e.byName[name]
	if !ok {
		return nil, false
	}
	return e.modules[idx], true
}

// LastModule returns the most recently linked module, or nil if none.
func (e *Environment) LastModule() *ModuleInstance {
	if len(e.modules) == 0 {
		return nil
	}
	return e.modules[len(e.modules)-1]
}

// RegisterModule binds an additional name (alias) to an already-linked
// module, identified by its position in link order (0-based).
func (e *Environment) RegisterModule(alias string, moduleIndex int) error {
	if moduleIndex < 0 || moduleIndex >= len(e.modules) {
		return fmt.Errorf("register module: index %d out of range", moduleIndex)
	}
	e.byName[alias] = moduleIndex
	return nil
}

// GetGlobal returns the global instance at env-wide index index.
func (e *Environment) GetGlobal(index uint32) *GlobalInstance {
	return e.globals[index]
}

func (e *Environment) logWarn(fields logrus.Fields, msg string) {
	if e.config.logger == nil {
		return
	}
	e.config.logger.WithFields(fields).Warn(msg)
}

// LoadModule decodes data and instantiates it in one step: the top-level
// convenience entry point named in spec.md §6 ("ReadBinary"). name binds
// the resulting module for later imports/RegisterModule/FindModule
// lookups; pass "" to link without binding a name.
func (e *Environment) LoadModule(name string, data []byte) (*ModuleInstance, error) {
	m, err := ReadBinary(data)
	if err != nil {
		e.logWarn(logrus.Fields{"module": name}, err.Error())
		return nil, err
	}
	return e.Instantiate(name, m)
}

// Instantiate links a decoded Module into the Environment: it validates
// every function body, resolves imports against already-bound modules,
// builds table/memory/global instances, runs element/data segment
// initialization, and (if present) invokes the start function. Any
// failure rolls the Environment back to its pre-call Mark, per spec.md
// §3's transactional instantiation contract, except that under
// Config.WithSpecMode(true) a module whose start function traps is left
// bound under name.
func (e *Environment) Instantiate(name string, m *Module) (*ModuleInstance, error) {
	mark := e.Mark()

	mi, err := e.link(m)
	if err != nil {
		e.ResetTo(mark)
		e.logWarn(logrus.Fields{"module": name}, err.Error())
		return nil, err
	}

	if m.Start != nil {
		th := NewThread(e, e.config)
		if _, _, err := th.RunFunction(mi.Functions[*m.Start]); err != nil {
			if e.config.specMode {
				// Leave the partially-instantiated module bound under name
				// so a spec-conformance runner can still inspect its state
				// after the trap, instead of rolling it back like a normal
				// load failure.
				e.bindModule(name, mi)
			} else {
				e.ResetTo(mark)
			}
			return nil, fmt.Errorf("start function trapped: %w", err)
		}
	}

	e.bindModule(name, mi)
	if e.config.runAllExports {
		mi.AutoRunResults = e.RunAllExports(mi)
	}
	return mi, nil
}

// bindModule appends mi to the module registry and, if name is non-empty,
// makes it findable by name.
func (e *Environment) bindModule(name string, mi *ModuleInstance) {
	idx := len(e.modules)
	e.modules = append(e.modules, mi)
	if name != "" {
		e.byName[name] = idx
	}
}

// AppendHostModule creates and registers an empty host module under
// name, returning a *HostModule builder for adding functions/table/
// memory/globals to it (wasm/host.go).
func (e *Environment) AppendHostModule(name string) *HostModule {
	mi := &ModuleInstance{Name: name, Exports: map[string]*ExportInstance{}, IsHost: true}
	idx := len(e.modules)
	e.modules = append(e.modules, mi)
	e.byName[name] = idx
	return &HostModule{env: e, instance: mi}
}

// link performs the validate+resolve+build pipeline described in
// SPEC_FULL.md §6.2, without running the start function (Instantiate's
// caller decides start-function/rollback timing).
func (e *Environment) link(m *Module) (*ModuleInstance, error) {
	mi := &ModuleInstance{Types: m.Types, Exports: map[string]*ExportInstance{}}

	if err := e.resolveImports(m, mi); err != nil {
		return nil, err
	}
	if err := e.buildTables(m, mi); err != nil {
		return nil, err
	}
	if err := e.buildMemories(m, mi); err != nil {
		return nil, err
	}
	if err := e.buildGlobals(m, mi); err != nil {
		return nil, err
	}
	if err := e.buildFunctions(m, mi); err != nil {
		return nil, err
	}
	mi.Exceptions = m.Exceptions
	if err := validateModule(m, mi, e.config.enableExceptions); err != nil {
		return nil, err
	}
	if err := e.buildExports(m, mi); err != nil {
		return nil, err
	}
	if err := e.applyElements(m, mi); err != nil {
		return nil, err
	}
	if err := e.applyData(m, mi); err != nil {
		return nil, err
	}
	return mi, nil
}

func (e *Environment) resolveImports(m *Module, mi *ModuleInstance) error {
	for _, imp := range m.Imports {
		src, ok := e.FindModule(imp.Module)
		if !ok {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("unknown module field %q", imp.Module)}
		}
		exp, ok := src.GetExport(imp.Name)
		if !ok {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("unknown module field %q", imp.Name)}
		}
		switch imp.Kind {
		case ImportKindFunc:
			if exp.Kind != ExportKindFunc {
				return &LoadError{Offset: -1, Message: "import signature mismatch"}
			}
			fn := src.Functions[exp.Index]
			want := m.Types[imp.FuncTypeIndex]
			if !fn.Type.Equal(want) {
				return &LoadError{Offset: -1, Message: "import signature mismatch"}
			}
			mi.Functions = append(mi.Functions, fn)
		case ImportKindTable:
			if exp.Kind != ExportKindTable {
				return &LoadError{Offset: -1, Message: "import signature mismatch"}
			}
			mi.Tables = append(mi.Tables, src.Tables[exp.Index])
		case ImportKindMemory:
			if exp.Kind != ExportKindMemory {
				return &LoadError{Offset: -1, Message: "import signature mismatch"}
			}
			mi.Memories = append(mi.Memories, src.Memories[exp.Index])
		case ImportKindGlobal:
			if exp.Kind != ExportKindGlobal {
				return &LoadError{Offset: -1, Message: "import signature mismatch"}
			}
			g := src.Globals[exp.Index]
			if g.Type.ValType != imp.GlobalType.ValType || g.Type.Mutable != imp.GlobalType.Mutable {
				return &LoadError{Offset: -1, Message: "import signature mismatch"}
			}
			mi.Globals = append(mi.Globals, g)
		}
	}
	return nil
}

func (e *Environment) buildTables(m *Module, mi *ModuleInstance) error {
	for _, t := range m.Tables {
		inst := &TableInstance{Elements: make([]*FunctionInstance, t.Limits.Min), Max: t.Limits.Max}
		mi.Tables = append(mi.Tables, inst)
		e.tables = append(e.tables, inst)
	}
	return nil
}

func (e *Environment) buildMemories(m *Module, mi *ModuleInstance) error {
	for _, mt := range m.Memories {
		if mt.Max != nil && *mt.Max > e.config.memoryMaxPages {
			return &LoadError{Offset: -1, Message: "memory max exceeds engine-configured limit"}
		}
		inst := &MemoryInstance{Data: make([]byte, uint64(mt.Min)*MemoryPageSize), Max: mt.Max}
		mi.Memories = append(mi.Memories, inst)
		e.memories = append(e.memories, inst)
	}
	return nil
}

func (e *Environment) buildGlobals(m *Module, mi *ModuleInstance) error {
	numImported := len(mi.Globals)
	for _, g := range m.Globals {
		val, err := e.evalConstExpr(mi, numImported, g.Init, g.Type.ValType)
		if err != nil {
			return err
		}
		inst := &GlobalInstance{Type: g.Type, Val: val}
		mi.Globals = append(mi.Globals, inst)
		e.globals = append(e.globals, inst)
	}
	return nil
}

func (e *Environment) evalConstExpr(mi *ModuleInstance, numImportedGlobals int, ce *ConstantExpression, want ValueType) (Value, error) {
	switch ce.Opcode {
	case OpcodeI32Const:
		return I32(ce.Immediate.(int32)), nil
	case OpcodeI64Const:
		return I64(ce.Immediate.(int64)), nil
	case OpcodeF32Const:
		return F32(ce.Immediate.(float32)), nil
	case OpcodeF64Const:
		return F64(ce.Immediate.(float64)), nil
	case OpcodeGlobalGet:
		idx := ce.Immediate.(uint32)
		if int(idx) >= numImportedGlobals {
			return Value{}, &LoadError{Offset: -1, Message: "global.get in constant expression must reference an imported global"}
		}
		g := mi.Globals[idx]
		if g.Type.Mutable {
			return Value{}, &LoadError{Offset: -1, Message: "global.get in constant expression must reference an immutable global"}
		}
		return g.Val, nil
	}
	return Value{}, &LoadError{Offset: -1, Message: "invalid constant expression"}
}

func (e *Environment) buildFunctions(m *Module, mi *ModuleInstance) error {
	for i, typeIdx := range m.Funcs {
		code := m.Codes[i]
		mi.Functions = append(mi.Functions, &FunctionInstance{
			Type:       m.Types[typeIdx],
			Module:     mi,
			LocalTypes: code.LocalTypes,
			Body:       code.Body,
		})
	}
	if names, ok := m.functionNames(); ok {
		for idx, name := range names {
			if int(idx) < len(mi.Functions) {
				mi.Functions[idx].Name = name
			}
		}
	}
	return nil
}

func (e *Environment) buildExports(m *Module, mi *ModuleInstance) error {
	for _, ex := range m.Exports {
		mi.Exports[ex.Name] = &ExportInstance{Name: ex.Name, Kind: ex.Kind, Index: ex.Index}
	}
	return nil
}

func (e *Environment) applyElements(m *Module, mi *ModuleInstance) error {
	for _, el := range m.Elements {
		table := mi.Tables[el.TableIndex]
		offVal, err := e.evalConstExpr(mi, len(mi.Globals), el.Offset, ValueTypeI32)
		if err != nil {
			return err
		}
		off := offVal.I32()
		max := uint32(len(table.Elements))
		if off < 0 || uint32(off)+uint32(len(el.Init)) > max {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("elem segment offset is out of bounds: %d >= max value %d", off, max)}
		}
		for i, fi := range el.Init {
			table.Elements[uint32(off)+uint32(i)] = mi.Functions[fi]
		}
	}
	return nil
}

func (e *Environment) applyData(m *Module, mi *ModuleInstance) error {
	for _, d := range m.Data {
		mem := mi.Memories[d.MemoryIndex]
		offVal, err := e.evalConstExpr(mi, len(mi.Globals), d.Offset, ValueTypeI32)
		if err != nil {
			return err
		}
		off := offVal.I32()
		max := uint32(len(mem.Data))
		if off < 0 || uint32(off)+uint32(len(d.Init)) > max {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("data segment is out of bounds: [%d, %d) >= max value %d", off, uint32(off)+uint32(len(d.Init)), max)}
		}
		copy(mem.Data[off:], d.Init)
	}
	return nil
}

// RunAllExports invokes every function export of mi with zero-valued
// arguments of the correct arity, per SPEC_FULL.md §7's --run-all-exports
// supplement. It ranges over the mi.Exports map, so the order in which
// the exports run is not defined. A trap on one export does not prevent
// the rest from running.
type ExportResult struct {
	Name   string
	Result RunResult
	Values []Value
	Err    error
}

func (e *Environment) RunAllExports(mi *ModuleInstance) []ExportResult {
	th := NewThread(e, e.config)
	var results []ExportResult
	for name, exp := range mi.Exports {
		if exp.Kind != ExportKindFunc {
			continue
		}
		fn := mi.Functions[exp.Index]
		args := make([]Value, len(fn.Type.Params))
		for i, t := range fn.Type.Params {
			args[i] = zeroValue(t)
		}
		res, vals, err := th.RunFunction(fn, args...)
		results = append(results, ExportResult{Name: name, Result: res, Values: vals, Err: err})
	}
	return results
}

func zeroValue(t ValueType) Value {
	switch t {
	case ValueTypeI32:
		return I32(0)
	case ValueTypeI64:
		return I64(0)
	case ValueTypeF32:
		return F32(0)
	case ValueTypeF64:
		return F64(0)
	}
	return Value{}
}
