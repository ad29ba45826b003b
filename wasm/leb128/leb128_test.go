package leb128

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeUint32_roundtrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 20, 1<<32 - 1} {
		enc := EncodeUint32(v)
		got, n, err := DecodeUint32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint64(len(enc)), n)
	}
}

func TestDecodeInt32_roundtrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 63, -64, 64, -65, 1 << 20, -(1 << 20)} {
		enc := EncodeInt32(v)
		got, n, err := DecodeInt32(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint64(len(enc)), n)
	}
}

func TestDecodeInt64_roundtrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -64, 1 << 40, -(1 << 40)} {
		enc := EncodeInt64(v)
		got, n, err := DecodeInt64(bytes.NewReader(enc))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint64(len(enc)), n)
	}
}

func TestDecodeUint32_truncated(t *testing.T) {
	_, _, err := DecodeUint32(bytes.NewReader([]byte{0x80}))
	require.Error(t, err)
}
