// Package binary implements the WebAssembly 1.0 (MVP) binary format
// decoder. It streams a module's sections and their contents through a
// Callbacks value rather than building a wasm.Module directly, so a
// caller can validate incrementally (wasm.moduleBuilder) or, in
// principle, serve any other consumer of the same event stream.
// See https://www.w3.org/TR/wasm-core-1/#binary-format%E2%91%A0
package binary

import "fmt"

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// offsetError wraps a decode failure with the byte offset it occurred at.
// Decoder.Decode always returns this type (or a Callbacks-returned error,
// unwrapped) so a caller can render "(at offset 0x...)" diagnostics.
type offsetError struct {
	offset int
	err    error
}

func (e *offsetError) Error() string {
	return fmt.Sprintf("%s (at offset %#x)", e.err, e.offset)
}

func (e *offsetError) Unwrap() error { return e.err }

func errAt(offset int, format string, args ...interface{}) error {
	return &offsetError{offset: offset, err: fmt.Errorf(format, args...)}
}
