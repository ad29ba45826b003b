package wasm

import "fmt"

// valueTypeAny is a validator-internal marker representing an operand of
// unknown type, produced only inside unreachable code. It matches any
// concrete type during a pop, implementing the operand stack's
// "polymorphic" mode from spec.md §4.2.
const valueTypeAny ValueType = 0

type ctrlFrame struct {
	opcode      Opcode
	endTypes    []ValueType
	height      int
	unreachable bool
	opcodePos   int // position of this frame's introducing opcode byte, for jumpTable lookups
}

// jumpTable caches, per introducing-opcode byte position, where the
// interpreter jumps for each control-flow event: the position right
// after "end" (block/if labels branch here), the position right after
// the loop's blocktype immediate (loop labels branch here), and the
// position right after "else" (an if with a false condition jumps here,
// or straight to end's target if there is no else).
type jumpTable struct {
	end       map[int]int
	loopStart map[int]int
	elseAt    map[int]int

	// Exception-handling extension (SPEC_FULL.md §8). catches maps a
	// try's opcodePos to its ordered catch clauses; catchAll maps it to
	// its single catch_all clause, if any.
	catches   map[int][]catchClause
	catchAll  map[int]catchClause
}

// catchClause describes one "catch tag" or "catch_all" arm of a try:
// introPos is the position of the catch/catch_all opcode itself (used to
// redirect a normal, no-exception fallthrough straight to the try's
// end), pos is where its body begins (used to land a matching throw).
type catchClause struct {
	tagIndex uint32
	introPos int
	pos      int
}

func newJumpTable() *jumpTable {
	return &jumpTable{
		end: map[int]int{}, loopStart: map[int]int{}, elseAt: map[int]int{},
		catches: map[int][]catchClause{}, catchAll: map[int]catchClause{},
	}
}

type validator struct {
	mod             *Module
	mi              *ModuleInstance
	locals          []ValueType
	stack           []ValueType
	ctrl            []ctrlFrame
	jumps           *jumpTable
	allowExceptions bool
}

// validateModule type-checks every function body the module defines
// against its declared signature, the module's type/function/table/
// memory/global index spaces, per spec.md §4.2. mi must already have its
// Types/Functions/Tables/Memories/Globals populated (i.e. called after
// resolveImports/buildTables/buildMemories/buildGlobals/buildFunctions).
// allowExceptions gates the try/catch/throw/rethrow family (SPEC_FULL.md
// §8): when false those opcodes are rejected as invalid.
func validateModule(m *Module, mi *ModuleInstance, allowExceptions bool) error {
	numImportedFuncs := m.NumImportedFuncs()
	for i, typeIdx := range m.Funcs {
		fn := mi.Functions[numImportedFuncs+i]
		if err := validateFunctionBody(m, mi, fn, m.Types[typeIdx], allowExceptions); err != nil {
			return err
		}
	}
	return nil
}

func validateFunctionBody(m *Module, mi *ModuleInstance, fn *FunctionInstance, sig *FunctionType, allowExceptions bool) error {
	v := &validator{mod: m, mi: mi, jumps: newJumpTable(), allowExceptions: allowExceptions}
	v.locals = append(append([]ValueType{}, sig.Params...), fn.LocalTypes...)
	// opcodePos: -1 mirrors the runtime frame's own function-level label
	// (thread.go's callDefined), so this frame's jumpTable entries never
	// collide with a real block/loop/if/try that happens to start at
	// byte offset 0 of the body.
	v.ctrl = []ctrlFrame{{opcode: OpcodeBlock, endTypes: sig.Results, height: 0, opcodePos: -1}}

	c := newByteCursor(fn.Body)
	for !c.atEnd() {
		opPos := c.pos
		opByte, _ := c.readByte()
		op := Opcode(opByte)
		if err := v.step(op, opPos, c); err != nil {
			return err
		}
		if op == OpcodeEnd && len(v.ctrl) == 0 {
			break
		}
	}
	if len(v.ctrl) != 0 {
		return &LoadError{Offset: -1, Message: "function body missing end"}
	}
	fn.jumps = v.jumps
	return nil
}

func (v *validator) top() *ctrlFrame { return &v.ctrl[len(v.ctrl)-1] }

func (v *validator) push(t ValueType) { v.stack = append(v.stack, t) }

func (v *validator) pop() (ValueType, error) {
	f := v.top()
	if len(v.stack) == f.height {
		if f.unreachable {
			return valueTypeAny, nil
		}
		return 0, &LoadError{Offset: -1, Message: "type stack size too small"}
	}
	t := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return t, nil
}

func (v *validator) popExpect(want ValueType) error {
	got, err := v.pop()
	if err != nil {
		return err
	}
	if got != valueTypeAny && want != valueTypeAny && got != want {
		return &LoadError{Offset: -1, Message: fmt.Sprintf("type mismatch: expected %s but got %s", want, got)}
	}
	return nil
}

func (v *validator) popExpectMulti(want []ValueType) error {
	for i := len(want) - 1; i >= 0; i-- {
		if err := v.popExpect(want[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) pushMulti(ts []ValueType) {
	for _, t := range ts {
		v.push(t)
	}
}

func (v *validator) setUnreachable() {
	f := v.top()
	v.stack = v.stack[:f.height]
	f.unreachable = true
}

func (v *validator) pushCtrl(op Opcode, endTypes []ValueType, opcodePos int) {
	v.ctrl = append(v.ctrl, ctrlFrame{opcode: op, endTypes: endTypes, height: len(v.stack), opcodePos: opcodePos})
}

func (v *validator) popCtrl() (ctrlFrame, error) {
	f := *v.top()
	if err := v.popExpectMulti(f.endTypes); err != nil {
		return ctrlFrame{}, err
	}
	if len(v.stack) != f.height {
		return ctrlFrame{}, &LoadError{Offset: -1, Message: "type stack size too large at end of block"}
	}
	v.ctrl = v.ctrl[:len(v.ctrl)-1]
	return f, nil
}

// popFunctionEnd pops the outermost (function-level) control frame, reached
// when a function body's end opcode falls off the end without having hit an
// explicit return. It mirrors popCtrl's checks but reports the three named
// implicit-return error strings, distinct from the generic block-end ones,
// since falling off a function's end is its own documented failure mode.
func (v *validator) popFunctionEnd() (ctrlFrame, error) {
	f := *v.top()
	total := len(v.stack) - f.height
	for i := len(f.endTypes) - 1; i >= 0; i-- {
		got, err := v.pop()
		if err != nil {
			return ctrlFrame{}, &LoadError{Offset: -1, Message: fmt.Sprintf("type stack size too small at implicit return. got %d, expected at least %d", len(f.endTypes)-1-i, len(f.endTypes))}
		}
		if got != valueTypeAny && got != f.endTypes[i] {
			return ctrlFrame{}, &LoadError{Offset: -1, Message: fmt.Sprintf("type mismatch in implicit return, expected %s but got %s", f.endTypes[i], got)}
		}
	}
	if len(v.stack) != f.height {
		return ctrlFrame{}, &LoadError{Offset: -1, Message: fmt.Sprintf("type stack at end of function is %d, expected %d", total, len(f.endTypes))}
	}
	v.ctrl = v.ctrl[:len(v.ctrl)-1]
	return f, nil
}

// labelTypes returns the value types a branch to the frame at depth d
// (0 = innermost) must supply: a loop's label targets its start (no
// operands in the MVP, since blocktype carries only a result), a block
// or if's label targets its end (its result types).
func (v *validator) labelTypes(d int) ([]ValueType, error) {
	if d >= len(v.ctrl) {
		return nil, &LoadError{Offset: -1, Message: "invalid branch depth"}
	}
	f := v.ctrl[len(v.ctrl)-1-d]
	if f.opcode == OpcodeLoop {
		return nil, nil
	}
	return f.endTypes, nil
}

func readBlockType(c *byteCursor) ([]ValueType, error) {
	b, ok := c.readByte()
	if !ok {
		return nil, &LoadError{Offset: -1, Message: "read block type: unexpected end of body"}
	}
	if b == BlockTypeEmpty {
		return nil, nil
	}
	vt := ValueType(b)
	if !vt.IsValid() {
		return nil, &LoadError{Offset: -1, Message: fmt.Sprintf("invalid block type %#x", b)}
	}
	return []ValueType{vt}, nil
}

func (v *validator) localType(idx uint32) (ValueType, error) {
	if int(idx) >= len(v.locals) {
		return 0, &LoadError{Offset: -1, Message: fmt.Sprintf("unknown local %d", idx)}
	}
	return v.locals[idx], nil
}

func (v *validator) globalType(idx uint32) (*GlobalType, error) {
	if int(idx) >= len(v.mi.Globals) {
		return nil, &LoadError{Offset: -1, Message: fmt.Sprintf("unknown global %d", idx)}
	}
	return v.mi.Globals[idx].Type, nil
}

func (v *validator) requireMemory() error {
	if len(v.mi.Memories) == 0 {
		return &LoadError{Offset: -1, Message: "unknown memory 0"}
	}
	return nil
}

// step decodes and type-checks one instruction (whose opcode byte has
// already been consumed) at the cursor's current position. opPos is the
// byte offset of the opcode itself, used to key jumpTable entries.
func (v *validator) step(op Opcode, opPos int, c *byteCursor) error {
	switch op {
	case OpcodeUnreachable:
		v.setUnreachable()
	case OpcodeNop:
	case OpcodeBlock, OpcodeLoop, OpcodeIf:
		results, err := readBlockType(c)
		if err != nil {
			return err
		}
		if op == OpcodeIf {
			if err := v.popExpect(ValueTypeI32); err != nil {
				return err
			}
		}
		if op == OpcodeLoop {
			v.jumps.loopStart[opPos] = c.pos
		}
		v.pushCtrl(op, results, opPos)
	case OpcodeElse:
		f, err := v.popCtrl()
		if err != nil {
			return err
		}
		v.jumps.elseAt[f.opcodePos] = c.pos
		v.pushCtrl(OpcodeIf, f.endTypes, f.opcodePos)
	case OpcodeEnd:
		var f ctrlFrame
		var err error
		if len(v.ctrl) == 1 {
			f, err = v.popFunctionEnd()
		} else {
			f, err = v.popCtrl()
		}
		if err != nil {
			return err
		}
		v.jumps.end[f.opcodePos] = c.pos
		for _, cl := range v.jumps.catches[f.opcodePos] {
			v.jumps.end[cl.introPos] = c.pos
		}
		if cl, ok := v.jumps.catchAll[f.opcodePos]; ok {
			v.jumps.end[cl.introPos] = c.pos
		}
		v.pushMulti(f.endTypes)
	case OpcodeBr:
		depth, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		lt, err := v.labelTypes(int(depth))
		if err != nil {
			return err
		}
		if err := v.popExpectMulti(lt); err != nil {
			return err
		}
		v.setUnreachable()
	case OpcodeBrIf:
		depth, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		if err := v.popExpect(ValueTypeI32); err != nil {
			return err
		}
		lt, err := v.labelTypes(int(depth))
		if err != nil {
			return err
		}
		if err := v.popExpectMulti(lt); err != nil {
			return err
		}
		v.pushMulti(lt)
	case OpcodeBrTable:
		n, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		for i := uint32(0); i < n; i++ {
			if _, ok := c.readVarU32(); !ok {
				return errUnexpectedEnd()
			}
		}
		defaultDepth, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		if err := v.popExpect(ValueTypeI32); err != nil {
			return err
		}
		lt, err := v.labelTypes(int(defaultDepth))
		if err != nil {
			return err
		}
		if err := v.popExpectMulti(lt); err != nil {
			return err
		}
		v.setUnreachable()
	case OpcodeReturn:
		fnResults := v.ctrl[0].endTypes
		for i := len(fnResults) - 1; i >= 0; i-- {
			got, err := v.pop()
			if err != nil {
				return &LoadError{Offset: -1, Message: fmt.Sprintf("type stack size too small at return. got %d, expected at least %d", len(fnResults)-1-i, len(fnResults))}
			}
			if got != valueTypeAny && got != fnResults[i] {
				return &LoadError{Offset: -1, Message: fmt.Sprintf("type mismatch in implicit return, expected %s but got %s", fnResults[i], got)}
			}
		}
		v.setUnreachable()
	case OpcodeCall:
		idx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		if int(idx) >= len(v.mi.Functions) {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("unknown function %d", idx)}
		}
		sig := v.mi.Functions[idx].Type
		if err := v.popExpectMulti(sig.Params); err != nil {
			return err
		}
		v.pushMulti(sig.Results)
	case OpcodeCallIndirect:
		typeIdx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		if _, ok := c.readByte(); !ok { // reserved table index byte, always 0 in the MVP
			return errUnexpectedEnd()
		}
		if len(v.mi.Tables) == 0 {
			return &LoadError{Offset: -1, Message: "unknown table 0"}
		}
		if int(typeIdx) >= len(v.mod.Types) {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("unknown type %d", typeIdx)}
		}
		if err := v.popExpect(ValueTypeI32); err != nil {
			return err
		}
		sig := v.mod.Types[typeIdx]
		if err := v.popExpectMulti(sig.Params); err != nil {
			return err
		}
		v.pushMulti(sig.Results)
	case OpcodeDrop:
		if _, err := v.pop(); err != nil {
			return err
		}
	case OpcodeSelect:
		if err := v.popExpect(ValueTypeI32); err != nil {
			return err
		}
		t2, err := v.pop()
		if err != nil {
			return err
		}
		t1, err := v.pop()
		if err != nil {
			return err
		}
		if t1 != valueTypeAny && t2 != valueTypeAny && t1 != t2 {
			return &LoadError{Offset: -1, Message: "type mismatch"}
		}
		if t1 == valueTypeAny {
			t1 = t2
		}
		v.push(t1)
	case OpcodeLocalGet:
		idx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		v.push(t)
	case OpcodeLocalSet:
		idx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		if err := v.popExpect(t); err != nil {
			return err
		}
	case OpcodeLocalTee:
		idx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		if err := v.popExpect(t); err != nil {
			return err
		}
		v.push(t)
	case OpcodeGlobalGet:
		idx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		g, err := v.globalType(idx)
		if err != nil {
			return err
		}
		v.push(g.ValType)
	case OpcodeGlobalSet:
		idx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		g, err := v.globalType(idx)
		if err != nil {
			return err
		}
		if !g.Mutable {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("global %d is immutable", idx)}
		}
		if err := v.popExpect(g.ValType); err != nil {
			return err
		}
	case OpcodeMemorySize:
		if _, ok := c.readByte(); !ok { // reserved
			return errUnexpectedEnd()
		}
		if err := v.requireMemory(); err != nil {
			return err
		}
		v.push(ValueTypeI32)
	case OpcodeMemoryGrow:
		if _, ok := c.readByte(); !ok { // reserved
			return errUnexpectedEnd()
		}
		if err := v.requireMemory(); err != nil {
			return err
		}
		if err := v.popExpect(ValueTypeI32); err != nil {
			return err
		}
		v.push(ValueTypeI32)
	case OpcodeI32Const:
		if _, ok := c.readVarI32(); !ok {
			return errUnexpectedEnd()
		}
		v.push(ValueTypeI32)
	case OpcodeI64Const:
		if _, ok := c.readVarI64(); !ok {
			return errUnexpectedEnd()
		}
		v.push(ValueTypeI64)
	case OpcodeF32Const:
		if _, ok := c.readF32Bits(); !ok {
			return errUnexpectedEnd()
		}
		v.push(ValueTypeF32)
	case OpcodeF64Const:
		if _, ok := c.readF64Bits(); !ok {
			return errUnexpectedEnd()
		}
		v.push(ValueTypeF64)
	case OpcodeTry, OpcodeCatch, OpcodeCatchAll, OpcodeThrow, OpcodeRethrow:
		return v.stepException(op, opPos, c)
	default:
		return v.stepLoadStoreOrNumeric(op, c)
	}
	return nil
}

func (v *validator) stepException(op Opcode, opPos int, c *byteCursor) error {
	if !v.allowExceptions {
		return &LoadError{Offset: -1, Message: fmt.Sprintf("invalid opcode %#x: exceptions not enabled", byte(op))}
	}
	switch op {
	case OpcodeTry:
		results, err := readBlockType(c)
		if err != nil {
			return err
		}
		v.pushCtrl(op, results, opPos)
	case OpcodeCatch:
		tagIdx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		if int(tagIdx) >= len(v.mod.Exceptions) {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("unknown exception tag %d", tagIdx)}
		}
		f, err := v.popCtrl()
		if err != nil {
			return err
		}
		v.jumps.catches[f.opcodePos] = append(v.jumps.catches[f.opcodePos], catchClause{tagIndex: tagIdx, introPos: opPos, pos: c.pos})
		v.pushCtrl(OpcodeCatch, f.endTypes, f.opcodePos)
		v.pushMulti(v.mod.Exceptions[tagIdx].Params)
	case OpcodeCatchAll:
		f, err := v.popCtrl()
		if err != nil {
			return err
		}
		v.jumps.catchAll[f.opcodePos] = catchClause{introPos: opPos, pos: c.pos}
		v.pushCtrl(OpcodeCatchAll, f.endTypes, f.opcodePos)
	case OpcodeThrow:
		tagIdx, ok := c.readVarU32()
		if !ok {
			return errUnexpectedEnd()
		}
		if int(tagIdx) >= len(v.mod.Exceptions) {
			return &LoadError{Offset: -1, Message: fmt.Sprintf("unknown exception tag %d", tagIdx)}
		}
		if err := v.popExpectMulti(v.mod.Exceptions[tagIdx].Params); err != nil {
			return err
		}
		v.setUnreachable()
	case OpcodeRethrow:
		if _, ok := c.readVarU32(); !ok { // relative handler depth
			return errUnexpectedEnd()
		}
		v.setUnreachable()
	}
	return nil
}

func errUnexpectedEnd() error {
	return &LoadError{Offset: -1, Message: "unexpected end of function body"}
}

// loadStoreArity/numericArity tables drive the remaining, high-volume
// opcode families (memory load/store and numeric ops) generically rather
// than one case per opcode, matching the "arity by table, not by
// opcode" idiom the teacher uses for its own dispatch tables.
func (v *validator) stepLoadStoreOrNumeric(op Opcode, c *byteCursor) error {
	if info, ok := loadOps[op]; ok {
		if _, ok := c.readMemArg(); !ok {
			return errUnexpectedEnd()
		}
		if err := v.requireMemory(); err != nil {
			return err
		}
		if err := v.popExpect(ValueTypeI32); err != nil {
			return err
		}
		v.push(info)
		return nil
	}
	if info, ok := storeOps[op]; ok {
		if _, ok := c.readMemArg(); !ok {
			return errUnexpectedEnd()
		}
		if err := v.requireMemory(); err != nil {
			return err
		}
		if err := v.popExpect(info); err != nil {
			return err
		}
		if err := v.popExpect(ValueTypeI32); err != nil {
			return err
		}
		return nil
	}
	if sig, ok := numericOps[op]; ok {
		if err := v.popExpectMulti(sig.params); err != nil {
			return err
		}
		v.pushMulti(sig.results)
		return nil
	}
	return &LoadError{Offset: -1, Message: fmt.Sprintf("invalid opcode %#x", byte(op))}
}

var loadOps = map[Opcode]ValueType{
	OpcodeI32Load: ValueTypeI32, OpcodeI32Load8S: ValueTypeI32, OpcodeI32Load8U: ValueTypeI32,
	OpcodeI32Load16S: ValueTypeI32, OpcodeI32Load16U: ValueTypeI32,
	OpcodeI64Load: ValueTypeI64, OpcodeI64Load8S: ValueTypeI64, OpcodeI64Load8U: ValueTypeI64,
	OpcodeI64Load16S: ValueTypeI64, OpcodeI64Load16U: ValueTypeI64,
	OpcodeI64Load32S: ValueTypeI64, OpcodeI64Load32U: ValueTypeI64,
	OpcodeF32Load: ValueTypeF32, OpcodeF64Load: ValueTypeF64,
}

var storeOps = map[Opcode]ValueType{
	OpcodeI32Store: ValueTypeI32, OpcodeI32Store8: ValueTypeI32, OpcodeI32Store16: ValueTypeI32,
	OpcodeI64Store: ValueTypeI64, OpcodeI64Store8: ValueTypeI64, OpcodeI64Store16: ValueTypeI64, OpcodeI64Store32: ValueTypeI64,
	OpcodeF32Store: ValueTypeF32, OpcodeF64Store: ValueTypeF64,
}

type opSig struct {
	params  []ValueType
	results []ValueType
}

func unary(t ValueType) opSig             { return opSig{[]ValueType{t}, []ValueType{t}} }
func unaryTo(from, to ValueType) opSig    { return opSig{[]ValueType{from}, []ValueType{to}} }
func binaryOp(t ValueType) opSig          { return opSig{[]ValueType{t, t}, []ValueType{t}} }
func compare(t ValueType) opSig           { return opSig{[]ValueType{t, t}, []ValueType{ValueTypeI32}} }
func test(t ValueType) opSig              { return opSig{[]ValueType{t}, []ValueType{ValueTypeI32}} }

var numericOps = buildNumericOps()

func buildNumericOps() map[Opcode]opSig {
	m := map[Opcode]opSig{
		OpcodeI32Eqz: test(ValueTypeI32), OpcodeI64Eqz: test(ValueTypeI64),

		OpcodeI32Clz: unary(ValueTypeI32), OpcodeI32Ctz: unary(ValueTypeI32), OpcodeI32Popcnt: unary(ValueTypeI32),
		OpcodeI64Clz: unary(ValueTypeI64), OpcodeI64Ctz: unary(ValueTypeI64), OpcodeI64Popcnt: unary(ValueTypeI64),

		OpcodeF32Abs: unary(ValueTypeF32), OpcodeF32Neg: unary(ValueTypeF32), OpcodeF32Ceil: unary(ValueTypeF32),
		OpcodeF32Floor: unary(ValueTypeF32), OpcodeF32Trunc: unary(ValueTypeF32), OpcodeF32Nearest: unary(ValueTypeF32),
		OpcodeF32Sqrt: unary(ValueTypeF32),
		OpcodeF64Abs: unary(ValueTypeF64), OpcodeF64Neg: unary(ValueTypeF64), OpcodeF64Ceil: unary(ValueTypeF64),
		OpcodeF64Floor: unary(ValueTypeF64), OpcodeF64Trunc: unary(ValueTypeF64), OpcodeF64Nearest: unary(ValueTypeF64),
		OpcodeF64Sqrt: unary(ValueTypeF64),

		OpcodeI32WrapI64:    unaryTo(ValueTypeI64, ValueTypeI32),
		OpcodeI64ExtendI32S: unaryTo(ValueTypeI32, ValueTypeI64),
		OpcodeI64ExtendI32U: unaryTo(ValueTypeI32, ValueTypeI64),
		OpcodeI32TruncF32S:  unaryTo(ValueTypeF32, ValueTypeI32),
		OpcodeI32TruncF32U:  unaryTo(ValueTypeF32, ValueTypeI32),
		OpcodeI32TruncF64S:  unaryTo(ValueTypeF64, ValueTypeI32),
		OpcodeI32TruncF64U:  unaryTo(ValueTypeF64, ValueTypeI32),
		OpcodeI64TruncF32S:  unaryTo(ValueTypeF32, ValueTypeI64),
		OpcodeI64TruncF32U:  unaryTo(ValueTypeF32, ValueTypeI64),
		OpcodeI64TruncF64S:  unaryTo(ValueTypeF64, ValueTypeI64),
		OpcodeI64TruncF64U:  unaryTo(ValueTypeF64, ValueTypeI64),
		OpcodeF32ConvertI32S: unaryTo(ValueTypeI32, ValueTypeF32),
		OpcodeF32ConvertI32U: unaryTo(ValueTypeI32, ValueTypeF32),
		OpcodeF32ConvertI64S: unaryTo(ValueTypeI64, ValueTypeF32),
		OpcodeF32ConvertI64U: unaryTo(ValueTypeI64, ValueTypeF32),
		OpcodeF32DemoteF64:   unaryTo(ValueTypeF64, ValueTypeF32),
		OpcodeF64ConvertI32S: unaryTo(ValueTypeI32, ValueTypeF64),
		OpcodeF64ConvertI32U: unaryTo(ValueTypeI32, ValueTypeF64),
		OpcodeF64ConvertI64S: unaryTo(ValueTypeI64, ValueTypeF64),
		OpcodeF64ConvertI64U: unaryTo(ValueTypeI64, ValueTypeF64),
		OpcodeF64PromoteF32:  unaryTo(ValueTypeF32, ValueTypeF64),
		OpcodeI32ReinterpretF32: unaryTo(ValueTypeF32, ValueTypeI32),
		OpcodeI64ReinterpretF64: unaryTo(ValueTypeF64, ValueTypeI64),
		OpcodeF32ReinterpretI32: unaryTo(ValueTypeI32, ValueTypeF32),
		OpcodeF64ReinterpretI64: unaryTo(ValueTypeI64, ValueTypeF64),
	}
	for op, t := range map[Opcode]ValueType{
		OpcodeI32Add: ValueTypeI32, OpcodeI32Sub: ValueTypeI32, OpcodeI32Mul: ValueTypeI32,
		OpcodeI32DivS: ValueTypeI32, OpcodeI32DivU: ValueTypeI32, OpcodeI32RemS: ValueTypeI32, OpcodeI32RemU: ValueTypeI32,
		OpcodeI32And: ValueTypeI32, OpcodeI32Or: ValueTypeI32, OpcodeI32Xor: ValueTypeI32,
		OpcodeI32Shl: ValueTypeI32, OpcodeI32ShrS: ValueTypeI32, OpcodeI32ShrU: ValueTypeI32,
		OpcodeI32Rotl: ValueTypeI32, OpcodeI32Rotr: ValueTypeI32,

		OpcodeI64Add: ValueTypeI64, OpcodeI64Sub: ValueTypeI64, OpcodeI64Mul: ValueTypeI64,
		OpcodeI64DivS: ValueTypeI64, OpcodeI64DivU: ValueTypeI64, OpcodeI64RemS: ValueTypeI64, OpcodeI64RemU: ValueTypeI64,
		OpcodeI64And: ValueTypeI64, OpcodeI64Or: ValueTypeI64, OpcodeI64Xor: ValueTypeI64,
		OpcodeI64Shl: ValueTypeI64, OpcodeI64ShrS: ValueTypeI64, OpcodeI64ShrU: ValueTypeI64,
		OpcodeI64Rotl: ValueTypeI64, OpcodeI64Rotr: ValueTypeI64,

		OpcodeF32Add: ValueTypeF32, OpcodeF32Sub: ValueTypeF32, OpcodeF32Mul: ValueTypeF32, OpcodeF32Div: ValueTypeF32,
		OpcodeF32Min: ValueTypeF32, OpcodeF32Max: ValueTypeF32, OpcodeF32Copysign: ValueTypeF32,

		OpcodeF64Add: ValueTypeF64, OpcodeF64Sub: ValueTypeF64, OpcodeF64Mul: ValueTypeF64, OpcodeF64Div: ValueTypeF64,
		OpcodeF64Min: ValueTypeF64, OpcodeF64Max: ValueTypeF64, OpcodeF64Copysign: ValueTypeF64,
	} {
		m[op] = binaryOp(t)
	}
	for op, t := range map[Opcode]ValueType{
		OpcodeI32Eq: ValueTypeI32, OpcodeI32Ne: ValueTypeI32, OpcodeI32LtS: ValueTypeI32, OpcodeI32LtU: ValueTypeI32,
		OpcodeI32GtS: ValueTypeI32, OpcodeI32GtU: ValueTypeI32, OpcodeI32LeS: ValueTypeI32, OpcodeI32LeU: ValueTypeI32,
		OpcodeI32GeS: ValueTypeI32, OpcodeI32GeU: ValueTypeI32,

		OpcodeI64Eq: ValueTypeI64, OpcodeI64Ne: ValueTypeI64, OpcodeI64LtS: ValueTypeI64, OpcodeI64LtU: ValueTypeI64,
		OpcodeI64GtS: ValueTypeI64, OpcodeI64GtU: ValueTypeI64, OpcodeI64LeS: ValueTypeI64, OpcodeI64LeU: ValueTypeI64,
		OpcodeI64GeS: ValueTypeI64, OpcodeI64GeU: ValueTypeI64,

		OpcodeF32Eq: ValueTypeF32, OpcodeF32Ne: ValueTypeF32, OpcodeF32Lt: ValueTypeF32, OpcodeF32Gt: ValueTypeF32,
		OpcodeF32Le: ValueTypeF32, OpcodeF32Ge: ValueTypeF32,

		OpcodeF64Eq: ValueTypeF64, OpcodeF64Ne: ValueTypeF64, OpcodeF64Lt: ValueTypeF64, OpcodeF64Gt: ValueTypeF64,
		OpcodeF64Le: ValueTypeF64, OpcodeF64Ge: ValueTypeF64,
	} {
		m[op] = compare(t)
	}
	return m
}
