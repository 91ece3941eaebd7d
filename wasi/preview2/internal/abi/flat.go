package abi

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/plugin-reactor/errors"
)

// Canonical ABI limits for flat lowering
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// Flatten returns the core value types carrying t on the stack.
func Flatten(t wit.Type) []api.ValueType {
	switch t := t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}
	case wit.S64, wit.U64:
		return []api.ValueType{api.ValueTypeI64}
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.TypeDef:
		return flattenKind(t.Kind)
	default:
		errors.Raise(errors.PhaseHost, errors.KindInternal, "cannot flatten %T", t)
		return nil
	}
}

func flattenKind(k wit.TypeDefKind) []api.ValueType {
	switch k := k.(type) {
	case wit.Type:
		return Flatten(k)
	case *wit.List:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.Own, *wit.Borrow, *wit.Enum, *wit.Flags:
		return []api.ValueType{api.ValueTypeI32}
	case *wit.Record:
		var flat []api.ValueType
		for _, f := range k.Fields {
			flat = append(flat, Flatten(f.Type)...)
		}
		return flat
	case *wit.Tuple:
		var flat []api.ValueType
		for _, t := range k.Types {
			flat = append(flat, Flatten(t)...)
		}
		return flat
	case *wit.Option:
		return flattenCases(k.Type)
	case *wit.Result:
		return flattenCases(k.OK, k.Err)
	case *wit.Variant:
		cases := make([]wit.Type, len(k.Cases))
		for i, c := range k.Cases {
			cases[i] = c.Type
		}
		return flattenCases(cases...)
	default:
		errors.Raise(errors.PhaseHost, errors.KindInternal, "cannot flatten %T", k)
		return nil
	}
}

// flattenCases lowers a discriminated union: an i32 tag followed by the
// slot-wise join of every case payload. Nil payloads carry nothing.
func flattenCases(cases ...wit.Type) []api.ValueType {
	var payload []api.ValueType
	for _, c := range cases {
		if c == nil {
			continue
		}
		for i, vt := range Flatten(c) {
			if i < len(payload) {
				payload[i] = join(payload[i], vt)
			} else {
				payload = append(payload, vt)
			}
		}
	}
	return append([]api.ValueType{api.ValueTypeI32}, payload...)
}

func join(a, b api.ValueType) api.ValueType {
	if a == b {
		return a
	}
	if (a == api.ValueTypeI32 && b == api.ValueTypeF32) || (a == api.ValueTypeF32 && b == api.ValueTypeI32) {
		return api.ValueTypeI32
	}
	return api.ValueTypeI64
}

// ImportSignature returns the core signature of a host function with the
// given WIT parameters and results. Parameters past MaxFlatParams are
// passed through a pointer; results past MaxFlatResults are written to a
// caller-supplied return pointer appended to the parameters.
func ImportSignature(params, results []wit.Type) (ps, rs []api.ValueType) {
	for _, p := range params {
		ps = append(ps, Flatten(p)...)
	}
	if len(ps) > MaxFlatParams {
		ps = []api.ValueType{api.ValueTypeI32}
	}
	for _, r := range results {
		rs = append(rs, Flatten(r)...)
	}
	if len(rs) > MaxFlatResults {
		ps = append(ps, api.ValueTypeI32)
		rs = nil
	}
	return ps, rs
}

// Resource returns an anonymous WIT resource type.
func Resource() *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Resource{}}
}

// Borrow returns borrow<r>.
func Borrow(r *wit.TypeDef) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Borrow{Type: r}}
}

// Own returns own<r>.
func Own(r *wit.TypeDef) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Own{Type: r}}
}

// List returns list<t>.
func List(t wit.Type) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.List{Type: t}}
}
