package wasm

// HostModule is a builder for assembling a host-provided module directly
// (no Wasm bytes involved), returned by Environment.AppendHostModule.
// Every item added is immediately both stored in the ModuleInstance and
// exported under the same name, matching spec.md §4.4's "host modules
// export everything they define" convention (spectest is the reference
// case: every function/table/memory/global it defines is importable).
type HostModule struct {
	env      *Environment
	instance *ModuleInstance
}

// AddFunction defines and exports a host function of the given
// signature.
func (h *HostModule) AddFunction(name string, sig *FunctionType, fn HostFunction) *HostModule {
	idx := uint32(len(h.instance.Functions))
	h.instance.Functions = append(h.instance.Functions, &FunctionInstance{
		Type:   sig,
		Module: h.instance,
		GoFunc: fn,
		Name:   name,
	})
	h.instance.Exports[name] = &ExportInstance{Name: name, Kind: ExportKindFunc, Index: idx}
	return h
}

// AddTable defines and exports a table of the given limits, empty
// (all nil) initially.
func (h *HostModule) AddTable(name string, limits Limits) *HostModule {
	idx := uint32(len(h.instance.Tables))
	inst := &TableInstance{Elements: make([]*FunctionInstance, limits.Min), Max: limits.Max}
	h.instance.Tables = append(h.instance.Tables, inst)
	h.env.tables = append(h.env.tables, inst)
	h.instance.Exports[name] = &ExportInstance{Name: name, Kind: ExportKindTable, Index: idx}
	return h
}

// AddMemory defines and exports a memory of the given limits (in pages),
// zero-filled initially.
func (h *HostModule) AddMemory(name string, limits Limits) *HostModule {
	idx := uint32(len(h.instance.Memories))
	inst := &MemoryInstance{Data: make([]byte, uint64(limits.Min)*MemoryPageSize), Max: limits.Max}
	h.instance.Memories = append(h.instance.Memories, inst)
	h.env.memories = append(h.env.memories, inst)
	h.instance.Exports[name] = &ExportInstance{Name: name, Kind: ExportKindMemory, Index: idx}
	return h
}

// AddGlobal defines and exports a global with the given initial value.
func (h *HostModule) AddGlobal(name string, val Value, mutable bool) *HostModule {
	idx := uint32(len(h.instance.Globals))
	inst := &GlobalInstance{Type: &GlobalType{ValType: val.Type, Mutable: mutable}, Val: val}
	h.instance.Globals = append(h.instance.Globals, inst)
	h.env.globals = append(h.env.globals, inst)
	h.instance.Exports[name] = &ExportInstance{Name: name, Kind: ExportKindGlobal, Index: idx}
	return h
}

// Instance returns the underlying ModuleInstance, e.g. for passing to
// Environment.RegisterModule under an additional alias.
func (h *HostModule) Instance() *ModuleInstance { return h.instance }
