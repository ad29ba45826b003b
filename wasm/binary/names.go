package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wazerolite/wazerolite/wasm/leb128"
)

const nameSubsectionFunction = 1

// ParseFunctionNames extracts the function-name subsection of a "name"
// custom section payload, as produced by decodeCustomSection. Malformed
// or absent function-name data is reported as an error; callers treat
// names as diagnostic-only and ignore the error.
func ParseFunctionNames(payload []byte) (map[uint32]string, error) {
	r := &reader{buf: bytes.NewReader(payload)}
	for {
		id, err := r.readByte()
		if err == io.EOF {
			return nil, fmt.Errorf("no function name subsection")
		} else if err != nil {
			return nil, err
		}
		size, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, err
		}
		body := mustReadAll(io.LimitReader(r, int64(size)))
		if id != nameSubsectionFunction {
			continue
		}
		br := &reader{buf: bytes.NewReader(body)}
		n, _, err := leb128.DecodeUint32(br)
		if err != nil {
			return nil, err
		}
		names := make(map[uint32]string, n)
		for i := uint32(0); i < n; i++ {
			idx, _, err := leb128.DecodeUint32(br)
			if err != nil {
				return nil, err
			}
			name, err := readName(br)
			if err != nil {
				return nil, err
			}
			names[idx] = name
		}
		return names, nil
	}
}
