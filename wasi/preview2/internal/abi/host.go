package abi

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/plugin-reactor/errors"
)

// Handler is the lowered body of a host function. stack holds the flat
// parameters on entry and the flat results on return.
type Handler func(ctx context.Context, mem Memory, alloc Allocator, stack []uint64)

// Func describes one host function by its WIT signature.
type Func struct {
	Handler    Handler
	Name       string
	Params     []wit.Type
	Results    []wit.Type
	UsesMemory bool
}

// Signature returns the core signature of f.
func (f Func) Signature() (params, results []api.ValueType) {
	return ImportSignature(f.Params, f.Results)
}

// Instantiate registers funcs as the host module name in rt.
func Instantiate(ctx context.Context, rt wazero.Runtime, name string, funcs []Func) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(name)
	for _, f := range funcs {
		params, results := f.Signature()
		builder.NewFunctionBuilder().
			WithGoModuleFunction(lower(f), params, results).
			WithName(f.Name).
			Export(f.Name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInternal, err, "instantiate "+name)
	}
	return mod, nil
}

func lower(f Func) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		mem, alloc := Guest(ctx, mod)
		if f.UsesMemory && mem == nil {
			errors.Raise(errors.PhaseHost, errors.KindInternal, "%s: caller exports no memory", f.Name)
		}
		f.Handler(ctx, mem, alloc, stack)
	}
}

// Must traps the current call when err is non-nil.
func Must(err error, name string) {
	errors.Fail(errors.PhaseHost, err, "%s: guest memory", name)
}
