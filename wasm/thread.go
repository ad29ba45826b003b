package wasm

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// label is a runtime control-flow entry, one per active block/loop/if,
// mirroring the validator's ctrlFrame but carrying what execution needs
// instead of what type-checking needs: where to jump on a branch, and
// how many values below the label are "locals" the branch must not
// touch.
type label struct {
	opcodePos   int
	isLoop      bool
	resultArity int
	stackBase   int // value stack height when this label was entered

	// isTry marks a label pushed by "try", the exception-handling
	// extension's only label kind a throw needs to search for
	// (SPEC_FULL.md §8, vm_exception.go).
	isTry bool
	// exc is set while this label represents an active catch/catch_all
	// handler body, letting a nested "rethrow" find what it re-raises.
	exc *thrownException
}

// frame is one call's activation record.
type frame struct {
	fn     *FunctionInstance
	locals []Value
	pc     int
	labels []label
}

// Thread is one interpreter execution context: a fixed-capacity value
// stack and call stack, executing at most one function call chain at a
// time. It is not safe for concurrent use — spec.md §5 gives each Thread
// single-goroutine ownership. Threads created on the same Environment share
// its memories, tables and globals without any synchronization.
type Thread struct {
	env    *Environment
	cfg    *Config
	values []Value
	frames []*frame

	trace   bool
	traceW  io.Writer
	traceN  int
}

// NewThread creates a Thread bound to env, using cfg's stack sizes. If
// cfg was built with WithTrace(true), RunFunction traces to
// cfg.WithLogStream's writer (io.Discard if none was set) without needing
// TraceFunction's explicit writer.
func NewThread(env *Environment, cfg *Config) *Thread {
	if cfg == nil {
		cfg = env.config
	}
	return &Thread{
		env:    env,
		cfg:    cfg,
		values: make([]Value, 0, cfg.valueStackSize),
		trace:  cfg.trace,
		traceW: cfg.logStreamOrDiscard(),
	}
}

func (t *Thread) pushValue(v Value) {
	if len(t.values) >= t.cfg.valueStackSize {
		trap(TrapValueStackExhausted, "value stack exhausted")
	}
	t.values = append(t.values, v)
}

func (t *Thread) popValue() Value {
	if len(t.values) == 0 {
		trap(TrapValueStackExhausted, "value stack underflow")
	}
	v := t.values[len(t.values)-1]
	t.values = t.values[:len(t.values)-1]
	return v
}

func (t *Thread) pushFrame(fr *frame) {
	if len(t.frames) >= t.cfg.callStackSize {
		trap(TrapCallStackExhausted, "call stack exhausted")
	}
	t.frames = append(t.frames, fr)
}

func (t *Thread) popFrame() {
	t.frames = t.frames[:len(t.frames)-1]
}

func (t *Thread) currentFrame() *frame { return t.frames[len(t.frames)-1] }

// RunFunction invokes fn with args and runs it to completion, returning
// the closed RunResult outcome, the function's result values on a normal
// return, and a non-nil *TrapError (wrapped in err) on a trap.
func (t *Thread) RunFunction(fn *FunctionInstance, args ...Value) (result RunResult, values []Value, err error) {
	return t.run(fn, args)
}

// TraceFunction behaves like RunFunction but writes one line per executed
// instruction to w (spec.md §4.3 "Trace mode") for the duration of this
// call, overriding whatever Config.WithTrace/WithLogStream set up.
func (t *Thread) TraceFunction(w io.Writer, fn *FunctionInstance, args ...Value) (result RunResult, values []Value, err error) {
	prevTrace, prevW := t.trace, t.traceW
	t.trace = true
	t.traceW = w
	defer func() { t.trace = prevTrace; t.traceW = prevW }()
	return t.run(fn, args)
}

func (t *Thread) run(fn *FunctionInstance, args []Value) (result RunResult, values []Value, err error) {
	baseValues := len(t.values)
	baseFrames := len(t.frames)
	instrCount := 0

	defer func() {
		if r := recover(); r != nil {
			tp, ok := r.(trapPanic)
			if !ok {
				panic(r)
			}
			t.values = t.values[:baseValues]
			t.frames = t.frames[:baseFrames]
			result = RunResultTrapped
			err = &TrapError{Kind: tp.kind, Message: tp.message}
			if t.cfg.logger != nil {
				t.cfg.logger.WithFields(logrus.Fields{
					"function":     fn.Name,
					"instructions": instrCount,
					"trap":         tp.kind.String(),
				}).Debug("run trapped")
			}
		}
	}()

	if fn.IsHost() {
		out, herr := fn.GoFunc(&HostContext{Thread: t}, args)
		if herr != nil {
			return RunResultTrapped, nil, &TrapError{Kind: TrapHostTrapped, Message: herr.Error()}
		}
		return RunResultReturned, out, nil
	}

	t.callDefined(fn, args)
	for len(t.frames) > baseFrames {
		instrCount += t.step()
	}

	numResults := len(fn.Type.Results)
	out := make([]Value, numResults)
	copy(out, t.values[len(t.values)-numResults:])
	t.values = t.values[:baseValues]

	if t.cfg.logger != nil {
		t.cfg.logger.WithFields(logrus.Fields{
			"function":     fn.Name,
			"instructions": instrCount,
		}).Debug("run completed")
	}
	return RunResultReturned, out, nil
}

// callDefined pushes a new frame for fn (a non-host function) and
// initializes its locals from args plus zero-valued declared locals.
func (t *Thread) callDefined(fn *FunctionInstance, args []Value) {
	locals := make([]Value, len(fn.Type.Params)+len(fn.LocalTypes))
	copy(locals, args)
	for i, lt := range fn.LocalTypes {
		locals[len(fn.Type.Params)+i] = zeroValue(lt)
	}
	fr := &frame{
		fn:     fn,
		locals: locals,
		labels: []label{{opcodePos: -1, resultArity: len(fn.Type.Results), stackBase: len(t.values)}},
	}
	t.pushFrame(fr)
}

// callAny dispatches to either callDefined (pushing a frame the dispatch
// loop will run) or a host function (run to completion immediately,
// its results pushed directly), used by the call/call_indirect handlers.
func (t *Thread) callAny(fn *FunctionInstance) {
	if !fn.IsHost() {
		args := make([]Value, len(fn.Type.Params))
		for i := len(fn.Type.Params) - 1; i >= 0; i-- {
			args[i] = t.popValue()
		}
		t.callDefined(fn, args)
		return
	}
	args := make([]Value, len(fn.Type.Params))
	for i := len(fn.Type.Params) - 1; i >= 0; i-- {
		args[i] = t.popValue()
	}
	out, err := fn.GoFunc(&HostContext{Thread: t}, args)
	if err != nil {
		trap(TrapHostTrapped, "%s", err.Error())
	}
	if len(out) != len(fn.Type.Results) {
		trap(TrapHostTrapped, "host function %s returned %d values, want %d", fn.Name, len(out), len(fn.Type.Results))
	}
	for _, v := range out {
		t.pushValue(v)
	}
}

// step executes exactly one instruction of the current frame, returning
// 1 (so callers can accumulate an instruction count for trace summaries).
func (t *Thread) step() int {
	fr := t.currentFrame()
	c := &byteCursor{body: fr.fn.Body, pos: fr.pc}
	opPos := c.pos
	opByte, ok := c.readByte()
	if !ok {
		trap(TrapUnreachable, "read past end of function body")
	}
	op := Opcode(opByte)

	if t.trace {
		fmt.Fprintf(t.traceW, "%s: %#x %s\n", fr.fn.Name, opPos, opcodeMnemonic(op))
	}

	t.execute(op, opPos, c, fr)
	fr.pc = c.pos
	return 1
}
