package wasm

import "fmt"

// Limits is the (initial, optional max) pair used by tables and memories.
// See https://www.w3.org/TR/wasm-core-1/#limits%E2%91%A6
type Limits struct {
	Min uint32
	Max *uint32
}

// Validate enforces "has_max ⇒ initial ≤ max" (spec.md §3).
func (l *Limits) Validate() error {
	if l.Max != nil && l.Min > *l.Max {
		return fmt.Errorf("size minimum must not be greater than maximum")
	}
	return nil
}

// FunctionType is an ordered sequence of parameter types and an ordered
// sequence of result types. The MVP restricts Results to at most one
// element.
// See https://www.w3.org/TR/wasm-core-1/#function-types%E2%91%A4
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// String renders t the way the teacher's FunctionType.String does, e.g.
// "i32i32_i32" for (i32, i32) -> i32, "null_null" for () -> ().
func (t *FunctionType) String() string {
	s := ""
	for _, p := range t.Params {
		s += p.String()
	}
	if len(t.Params) == 0 {
		s += "null"
	}
	s += "_"
	for _, r := range t.Results {
		s += r.String()
	}
	if len(t.Results) == 0 {
		s += "null"
	}
	return s
}

// Equal reports whether t and other declare the same parameter and result types.
func (t *FunctionType) Equal(other *FunctionType) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return sameTypes(t.Params, other.Params) && sameTypes(t.Results, other.Results)
}

func sameTypes(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GlobalType is a value type plus a mutability flag.
// See https://www.w3.org/TR/wasm-core-1/#global-types%E2%91%A4
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// TableType is the element type (always ElemTypeFuncRef in the MVP) plus limits.
type TableType struct {
	ElemType byte
	Limits   Limits
}

// MemoryType is just Limits, expressed in units of 64KiB pages.
type MemoryType = Limits
