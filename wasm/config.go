package wasm

import (
	"io"

	"github.com/sirupsen/logrus"
)

const (
	defaultValueStackSize = 16 * 1024
	defaultCallStackSize  = 1024
	defaultMemoryMaxPages = 65536
)

// Config carries engine-level options. It follows the teacher's own
// chainable-With* pattern: every With* method clones the receiver first,
// so a shared base Config can be specialized per call site without
// aliasing surprises.
type Config struct {
	valueStackSize   int
	callStackSize    int
	trace            bool
	logStream        io.Writer
	runAllExports    bool
	specMode         bool
	logger           *logrus.Logger
	memoryMaxPages   uint32
	enableExceptions bool
}

// NewConfig returns a Config with the engine's defaults.
func NewConfig() *Config {
	return &Config{
		valueStackSize: defaultValueStackSize,
		callStackSize:  defaultCallStackSize,
		memoryMaxPages: defaultMemoryMaxPages,
	}
}

func (c *Config) clone() *Config {
	cp := *c
	return &cp
}

// WithValueStackSize sets the interpreter's fixed value-stack capacity.
// Exceeding it traps with TrapValueStackExhausted.
func (c *Config) WithValueStackSize(n int) *Config {
	ret := c.clone()
	ret.valueStackSize = n
	return ret
}

// WithCallStackSize sets the interpreter's fixed call-stack (frame) depth.
// Exceeding it traps with TrapCallStackExhausted.
func (c *Config) WithCallStackSize(n int) *Config {
	ret := c.clone()
	ret.callStackSize = n
	return ret
}

// WithTrace makes every Thread built from this Config trace by default
// (as if every call went through TraceFunction), writing to
// WithLogStream's writer. RunFunction still traces under this setting;
// TraceFunction remains available to trace a single call to an explicit
// writer regardless of this setting.
func (c *Config) WithTrace(enabled bool) *Config {
	ret := c.clone()
	ret.trace = enabled
	return ret
}

// WithLogStream sets the writer a Thread created with this Config traces
// to when WithTrace(true) is also set, and the writer spectest.Register's
// print family falls back to when it isn't given one explicitly. Defaults
// to io.Discard (see logStreamOrDiscard).
func (c *Config) WithLogStream(w io.Writer) *Config {
	ret := c.clone()
	ret.logStream = w
	return ret
}

// WithRunAllExports makes Instantiate automatically call RunAllExports on
// every module it successfully binds, stashing the outcome in the
// returned ModuleInstance's AutoRunResults.
func (c *Config) WithRunAllExports(enabled bool) *Config {
	ret := c.clone()
	ret.runAllExports = enabled
	return ret
}

// WithSpecMode toggles spec-conformance-runner semantics: currently only
// affects whether a start-function trap during Instantiate leaves the
// partially-registered module name bound for inspection (true) or rolls
// the Environment fully back to the pre-load mark (false, the default).
func (c *Config) WithSpecMode(enabled bool) *Config {
	ret := c.clone()
	ret.specMode = enabled
	return ret
}

// WithLogger attaches a logrus.Logger for optional load-error and
// trace-summary diagnostics. A nil logger (the default) disables both.
func (c *Config) WithLogger(l *logrus.Logger) *Config {
	ret := c.clone()
	ret.logger = l
	return ret
}

// WithMemoryMaxPages caps how large any memory instance may grow via
// memory.grow, engine-wide, regardless of a module's own declared max.
func (c *Config) WithMemoryMaxPages(n uint32) *Config {
	ret := c.clone()
	ret.memoryMaxPages = n
	return ret
}

// WithEnableExceptions gates the try/catch/throw/rethrow extension
// (SPEC_FULL.md §8). Disabled by default: those opcodes are rejected by
// the validator with a load error.
func (c *Config) WithEnableExceptions(enabled bool) *Config {
	ret := c.clone()
	ret.enableExceptions = enabled
	return ret
}

func (c *Config) logStreamOrDiscard() io.Writer {
	if c.logStream != nil {
		return c.logStream
	}
	return io.Discard
}
