package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wazerolite/wazerolite/wasm/leb128"
)

// reader tracks the number of bytes consumed so decode errors can be
// tagged with an absolute offset, mirroring the teacher's own reader
// wrapper (wasm/binary/decoder.go).
type reader struct {
	buf  *bytes.Reader
	read int
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.buf.Read(p)
	r.read += n
	return n, err
}

func (r *reader) readByte() (byte, error) {
	b, err := r.buf.ReadByte()
	if err == nil {
		r.read++
	}
	return b, err
}

// section ids, unexported: only this file needs to switch on them.
const (
	sectionCustom byte = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData

	// sectionException carries the exception-handling extension's tag
	// declarations (SPEC_FULL.md §8). It is not part of the WebAssembly
	// 1.0 binary format; this engine places it after the data section so
	// the extension can be added without disturbing the ordering of the
	// twelve standard sections.
	sectionException
)

// Decoder streams a binary module's structure through a Callbacks value.
// See https://www.w3.org/TR/wasm-core-1/#binary-format%E2%91%A0
type Decoder struct {
	data []byte
}

// NewDecoder wraps data for decoding. data is not copied or retained
// beyond the call to Decode.
func NewDecoder(data []byte) *Decoder { return &Decoder{data: data} }

// Decode walks the module's header and sections in file order, invoking
// cb for each structural element. It returns the first error cb returns,
// unwrapped, or an *offsetError describing a structural decode failure.
func (d *Decoder) Decode(cb Callbacks) error {
	r := &reader{buf: bytes.NewReader(d.data)}

	magicBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, magicBuf); err != nil || !bytes.Equal(magicBuf, magic) {
		return errAt(r.read, "invalid magic number")
	}
	versionBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, versionBuf); err != nil || !bytes.Equal(versionBuf, version) {
		return errAt(r.read, "invalid version header")
	}

	seen := map[byte]bool{}
	lastNonCustom := byte(0)
	for {
		id, err := r.readByte()
		if err == io.EOF {
			break
		} else if err != nil {
			return errAt(r.read, "read section id: %v", err)
		}
		size, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read section size: %v", err)
		}
		sectionStartOffset := r.read
		bodyBytes := mustReadAll(io.LimitReader(r, int64(size)))
		if len(bodyBytes) != int(size) {
			return errAt(r.read, "section truncated: wanted %d bytes, got %d", size, len(bodyBytes))
		}
		sr := &reader{buf: bytes.NewReader(bodyBytes), read: sectionStartOffset}

		if id != sectionCustom {
			if id < lastNonCustom {
				return errAt(sectionStartOffset, "section out of order: id %d", id)
			}
			if seen[id] {
				return errAt(sectionStartOffset, "duplicate section: id %d", id)
			}
			seen[id] = true
			lastNonCustom = id
		}

		if err := d.decodeSection(id, sr, cb); err != nil {
			return err
		}
		r.read = sectionStartOffset + int(size)
		if _, err := r.buf.Seek(int64(r.read), io.SeekStart); err != nil {
			return errAt(r.read, "seek past section: %v", err)
		}
	}
	return nil
}

func mustReadAll(r io.Reader) []byte {
	b, _ := io.ReadAll(r)
	return b
}

func (d *Decoder) decodeSection(id byte, r *reader, cb Callbacks) error {
	switch id {
	case sectionCustom:
		return decodeCustomSection(r, cb)
	case sectionType:
		return decodeTypeSection(r, cb)
	case sectionImport:
		return decodeImportSection(r, cb)
	case sectionFunction:
		return decodeFunctionSection(r, cb)
	case sectionTable:
		return decodeTableSection(r, cb)
	case sectionMemory:
		return decodeMemorySection(r, cb)
	case sectionGlobal:
		return decodeGlobalSection(r, cb)
	case sectionExport:
		return decodeExportSection(r, cb)
	case sectionStart:
		return decodeStartSection(r, cb)
	case sectionElement:
		return decodeElementSection(r, cb)
	case sectionCode:
		return decodeCodeSection(r, cb)
	case sectionData:
		return decodeDataSection(r, cb)
	case sectionException:
		return decodeExceptionSection(r, cb)
	default:
		return errAt(r.read, "invalid section id: %d", id)
	}
}

func decodeCustomSection(r *reader, cb Callbacks) error {
	name, err := readName(r)
	if err != nil {
		return errAt(r.read, "read custom section name: %v", err)
	}
	data, _ := io.ReadAll(r)
	return cb.OnCustomSection(name, data)
}

func decodeTypeSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read type count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		tag, err := r.readByte()
		if err != nil || tag != 0x60 {
			return errAt(r.read, "invalid function type tag")
		}
		params, err := readValueTypeVector(r)
		if err != nil {
			return errAt(r.read, "read params: %v", err)
		}
		results, err := readValueTypeVector(r)
		if err != nil {
			return errAt(r.read, "read results: %v", err)
		}
		if len(results) > 1 {
			return errAt(r.read, "function type has more than one result")
		}
		if err := cb.OnType(i, params, results); err != nil {
			return err
		}
	}
	return nil
}

func readValueTypeVector(r *reader) ([]byte, error) {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i := range out {
		b, err := readValueType(r)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func decodeImportSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read import count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		mod, err := readName(r)
		if err != nil {
			return errAt(r.read, "read import module: %v", err)
		}
		name, err := readName(r)
		if err != nil {
			return errAt(r.read, "read import name: %v", err)
		}
		kind, err := r.readByte()
		if err != nil {
			return errAt(r.read, "read import kind: %v", err)
		}
		var funcTypeIndex uint32
		var tableElemType byte
		var tableLimits, memLimits Limits
		var globalType byte
		var globalMutable bool
		switch kind {
		case 0x00:
			funcTypeIndex, _, err = leb128.DecodeUint32(r)
		case 0x01:
			tableElemType, err = r.readByte()
			if err == nil {
				tableLimits, err = readLimits(r)
			}
		case 0x02:
			memLimits, err = readLimits(r)
		case 0x03:
			globalType, err = r.readByte()
			if err == nil {
				var m byte
				m, err = r.readByte()
				globalMutable = m == 0x01
			}
		default:
			err = fmt.Errorf("invalid import kind: %#x", kind)
		}
		if err != nil {
			return errAt(r.read, "read import descriptor: %v", err)
		}
		if err := cb.OnImport(i, mod, name, kind, funcTypeIndex, tableElemType, tableLimits, memLimits, globalType, globalMutable); err != nil {
			return err
		}
	}
	return nil
}

func decodeFunctionSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read function count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		ti, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read function type index: %v", err)
		}
		if err := cb.OnFunction(i, ti); err != nil {
			return err
		}
	}
	return nil
}

func decodeTableSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read table count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		elemType, err := r.readByte()
		if err != nil || elemType != 0x70 {
			return errAt(r.read, "invalid table element type")
		}
		limits, err := readLimits(r)
		if err != nil {
			return errAt(r.read, "read table limits: %v", err)
		}
		if err := cb.OnTable(i, elemType, limits); err != nil {
			return err
		}
	}
	return nil
}

func decodeMemorySection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read memory count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		limits, err := readLimits(r)
		if err != nil {
			return errAt(r.read, "read memory limits: %v", err)
		}
		if err := cb.OnMemory(i, limits); err != nil {
			return err
		}
	}
	return nil
}

func decodeGlobalSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read global count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		vt, err := readValueType(r)
		if err != nil {
			return errAt(r.read, "read global type: %v", err)
		}
		mutByte, err := r.readByte()
		if err != nil {
			return errAt(r.read, "read global mutability: %v", err)
		}
		init, err := readConstExpr(r)
		if err != nil {
			return errAt(r.read, "read global init: %v", err)
		}
		if err := cb.OnGlobal(i, vt, mutByte == 0x01, init); err != nil {
			return err
		}
	}
	return nil
}

func decodeExportSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read export count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		name, err := readName(r)
		if err != nil {
			return errAt(r.read, "read export name: %v", err)
		}
		kind, err := r.readByte()
		if err != nil {
			return errAt(r.read, "read export kind: %v", err)
		}
		idx, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read export index: %v", err)
		}
		if err := cb.OnExport(i, name, kind, idx); err != nil {
			return err
		}
	}
	return nil
}

func decodeStartSection(r *reader, cb Callbacks) error {
	idx, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read start function index: %v", err)
	}
	return cb.OnStart(idx)
}

func decodeElementSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read element count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		ti, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read element table index: %v", err)
		}
		offset, err := readConstExpr(r)
		if err != nil {
			return errAt(r.read, "read element offset: %v", err)
		}
		vn, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read element init count: %v", err)
		}
		init := make([]uint32, vn)
		for j := range init {
			fi, _, err := leb128.DecodeUint32(r)
			if err != nil {
				return errAt(r.read, "read element function index: %v", err)
			}
			init[j] = fi
		}
		if err := cb.OnElement(i, ti, offset, init); err != nil {
			return err
		}
	}
	return nil
}

func decodeCodeSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read code count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		size, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read code entry size: %v", err)
		}
		body := mustReadAll(io.LimitReader(r, int64(size)))
		br := &reader{buf: bytes.NewReader(body)}

		localDeclCount, _, err := leb128.DecodeUint32(br)
		if err != nil {
			return errAt(r.read, "read local decl count: %v", err)
		}
		var localTypes []byte
		var numLocals uint32
		for j := uint32(0); j < localDeclCount; j++ {
			cnt, _, err := leb128.DecodeUint32(br)
			if err != nil {
				return errAt(r.read, "read local decl run length: %v", err)
			}
			vt, err := readValueType(br)
			if err != nil {
				return errAt(r.read, "read local decl type: %v", err)
			}
			numLocals += cnt
			for k := uint32(0); k < cnt; k++ {
				localTypes = append(localTypes, vt)
			}
		}
		rest, _ := io.ReadAll(br)
		if len(rest) == 0 || rest[len(rest)-1] != 0x0b {
			return errAt(r.read, "function body not terminated with end opcode")
		}
		if err := cb.OnCode(i, numLocals, localTypes, rest); err != nil {
			return err
		}
	}
	return nil
}

func decodeExceptionSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read exception count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		params, err := readValueTypeVector(r)
		if err != nil {
			return errAt(r.read, "read exception params: %v", err)
		}
		if err := cb.OnException(i, params); err != nil {
			return err
		}
	}
	return nil
}

func decodeDataSection(r *reader, cb Callbacks) error {
	n, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return errAt(r.read, "read data count: %v", err)
	}
	for i := uint32(0); i < n; i++ {
		mi, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read data memory index: %v", err)
		}
		offset, err := readConstExpr(r)
		if err != nil {
			return errAt(r.read, "read data offset: %v", err)
		}
		size, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return errAt(r.read, "read data size: %v", err)
		}
		init := make([]byte, size)
		if _, err := io.ReadFull(r, init); err != nil {
			return errAt(r.read, "read data bytes: %v", err)
		}
		if err := cb.OnData(i, mi, offset, init); err != nil {
			return err
		}
	}
	return nil
}
