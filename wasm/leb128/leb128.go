// Package leb128 implements the variable-length LEB128 integer encoding
// used throughout the WebAssembly binary format.
// See https://www.w3.org/TR/wasm-core-1/#integers%E2%91%A6
package leb128

import (
	"fmt"
	"io"
)

// DecodeUint32 reads an unsigned LEB128-encoded uint32, returning the value,
// the number of bytes consumed, and any read error.
func DecodeUint32(r io.Reader) (ret uint32, num uint64, err error) {
	const (
		mask  uint32 = 1 << 7
		mask2        = ^mask
	)
	for shift := 0; shift < 35; shift += 7 {
		b, err := readByteAsUint32(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= (b & mask2) << shift
		if b&mask == 0 {
			break
		}
	}
	return
}

// DecodeUint64 reads an unsigned LEB128-encoded uint64.
func DecodeUint64(r io.Reader) (ret uint64, num uint64, err error) {
	const (
		mask  uint64 = 1 << 7
		mask2        = ^mask
	)
	for shift := 0; shift < 64; shift += 7 {
		b, err := readByteAsUint64(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= (b & mask2) << shift
		if b&mask == 0 {
			break
		}
	}
	return
}

// DecodeInt32 reads a signed LEB128-encoded int32.
func DecodeInt32(r io.Reader) (ret int32, num uint64, err error) {
	const (
		mask  int32 = 1 << 7
		mask2       = ^mask
		mask3       = 1 << 6
		mask4       = ^0
	)
	var shift int
	var b int32
	for shift < 35 {
		b, err = readByteAsInt32(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= (b & mask2) << shift
		shift += 7
		if b&mask == 0 {
			break
		}
	}
	if shift < 32 && (b&mask3) == mask3 {
		ret |= mask4 << shift
	}
	return
}

// DecodeInt64 reads a signed LEB128-encoded int64.
func DecodeInt64(r io.Reader) (ret int64, num uint64, err error) {
	const (
		mask  int64 = 1 << 7
		mask2       = ^mask
		mask3       = 1 << 6
		mask4       = ^0
	)
	var shift int
	var b int64
	for shift < 64 {
		b, err = readByteAsInt64(r)
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", err)
		}
		num++
		ret |= (b & mask2) << shift
		shift += 7
		if b&mask == 0 {
			break
		}
	}
	if shift < 64 && (b&mask3) == mask3 {
		ret |= mask4 << shift
	}
	return
}

// EncodeUint32 returns the unsigned LEB128 encoding of v.
func EncodeUint32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// EncodeInt32 returns the signed LEB128 encoding of v.
func EncodeInt32(v int32) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// EncodeInt64 returns the signed LEB128 encoding of v.
func EncodeInt64(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func readByteAsUint32(r io.Reader) (uint32, error) {
	b := make([]byte, 1)
	_, err := io.ReadFull(r, b)
	return uint32(b[0]), err
}

func readByteAsInt32(r io.Reader) (int32, error) {
	b := make([]byte, 1)
	_, err := io.ReadFull(r, b)
	return int32(b[0]), err
}

func readByteAsUint64(r io.Reader) (uint64, error) {
	b := make([]byte, 1)
	_, err := io.ReadFull(r, b)
	return uint64(b[0]), err
}

func readByteAsInt64(r io.Reader) (int64, error) {
	b := make([]byte, 1)
	_, err := io.ReadFull(r, b)
	return int64(b[0]), err
}
