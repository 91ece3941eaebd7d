package cli

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/plugin-reactor/wasi/preview2/internal/abi"
)

var (
	inputStreamType  = abi.Resource()
	outputStreamType = abi.Resource()
)

// Instantiate registers wasi:cli/stdin, stdout and stderr in rt.
func Instantiate(ctx context.Context, rt wazero.Runtime, h *Host) error {
	modules := []struct {
		name  string
		funcs []abi.Func
	}{
		{h.Stdin.Namespace(), []abi.Func{getter("get-stdin", inputStreamType, h.Stdin.GetStdin)}},
		{h.Stdout.Namespace(), []abi.Func{getter("get-stdout", outputStreamType, h.Stdout.GetStdout)}},
		{h.Stderr.Namespace(), []abi.Func{getter("get-stderr", outputStreamType, h.Stderr.GetStderr)}},
	}
	for _, m := range modules {
		if _, err := abi.Instantiate(ctx, rt, m.name, m.funcs); err != nil {
			return err
		}
	}
	return nil
}

func getter(name string, stream wit.Type, get func(context.Context) uint32) abi.Func {
	return abi.Func{
		Name:    name,
		Results: []wit.Type{abi.Own(stream)},
		Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
			stack[0] = api.EncodeU32(get(ctx))
		},
	}
}
