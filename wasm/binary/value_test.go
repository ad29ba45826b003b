package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestReadNameRejectsInvalidUTF8 checks a name whose bytes aren't valid
// UTF-8 fails to decode, per spec.md §4.1's "export name not valid UTF-8"
// binary-reader error condition.
func TestReadNameRejectsInvalidUTF8(t *testing.T) {
	// length-prefixed name: 2 bytes, 0xff 0xfe is not valid UTF-8.
	buf := []byte{0x02, 0xff, 0xfe}
	r := &reader{buf: bytes.NewReader(buf)}

	_, err := readName(r)
	require.Error(t, err)
}

// TestReadNameAcceptsValidUTF8 is the sibling positive case: an ordinary
// ASCII name still decodes normally.
func TestReadNameAcceptsValidUTF8(t *testing.T) {
	buf := []byte{0x03, 'a', 'd', 'd'}
	r := &reader{buf: bytes.NewReader(buf)}

	name, err := readName(r)
	require.NoError(t, err)
	require.Equal(t, "add", name)
}
