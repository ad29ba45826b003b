package wasm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRunFunctionTracesWhenConfigEnablesTrace checks that Config.WithTrace
// plus WithLogStream makes an ordinary RunFunction call trace to that
// writer, without the caller needing TraceFunction's explicit writer.
func TestRunFunctionTracesWhenConfigEnablesTrace(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{byte(OpcodeI32Const), 42, byte(OpcodeEnd)}
	fn := newTestFunction(t, sig, nil, body, nil)

	var buf bytes.Buffer
	cfg := NewConfig().WithTrace(true).WithLogStream(&buf)
	th := NewThread(NewEnvironment(cfg), cfg)

	res, vals, err := th.RunFunction(fn)
	require.NoError(t, err)
	require.Equal(t, RunResultReturned, res)
	require.Equal(t, []Value{I32(42)}, vals)
	require.NotEmpty(t, buf.String())
}

// TestRunFunctionDoesNotTraceByDefault is the sibling negative case:
// without WithTrace, RunFunction stays silent even with a log stream set.
func TestRunFunctionDoesNotTraceByDefault(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{byte(OpcodeI32Const), 42, byte(OpcodeEnd)}
	fn := newTestFunction(t, sig, nil, body, nil)

	var buf bytes.Buffer
	cfg := NewConfig().WithLogStream(&buf)
	th := NewThread(NewEnvironment(cfg), cfg)

	_, _, err := th.RunFunction(fn)
	require.NoError(t, err)
	require.Empty(t, buf.String())
}

// TestTraceFunctionOverridesConfigTraceWriter checks TraceFunction's
// explicit writer wins for the duration of its call, and the Thread's
// configured trace settings are restored afterward.
func TestTraceFunctionOverridesConfigTraceWriter(t *testing.T) {
	sig := &FunctionType{Results: []ValueType{ValueTypeI32}}
	body := []byte{byte(OpcodeI32Const), 42, byte(OpcodeEnd)}
	fn := newTestFunction(t, sig, nil, body, nil)

	var cfgBuf, callBuf bytes.Buffer
	cfg := NewConfig().WithTrace(true).WithLogStream(&cfgBuf)
	th := NewThread(NewEnvironment(cfg), cfg)

	_, _, err := th.TraceFunction(&callBuf, fn)
	require.NoError(t, err)
	require.NotEmpty(t, callBuf.String())
	require.Empty(t, cfgBuf.String())

	cfgBuf.Reset()
	_, _, err = th.RunFunction(fn)
	require.NoError(t, err)
	require.NotEmpty(t, cfgBuf.String(), "trace should resume writing to the configured stream after TraceFunction returns")
}
