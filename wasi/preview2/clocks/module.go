package clocks

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/plugin-reactor/wasi/preview2/internal/abi"
)

var (
	pollableType = abi.Resource()
	datetimeType = &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "seconds", Type: wit.U64{}},
		{Name: "nanoseconds", Type: wit.U32{}},
	}}}
)

// InstantiateMonotonic registers wasi:clocks/monotonic-clock in rt.
func InstantiateMonotonic(ctx context.Context, rt wazero.Runtime, h *MonotonicClockHost) (api.Module, error) {
	return abi.Instantiate(ctx, rt, h.Namespace(), monotonicFuncs(h))
}

// InstantiateWall registers wasi:clocks/wall-clock in rt.
func InstantiateWall(ctx context.Context, rt wazero.Runtime, h *WallClockHost) (api.Module, error) {
	return abi.Instantiate(ctx, rt, h.Namespace(), wallFuncs(h))
}

func monotonicFuncs(h *MonotonicClockHost) []abi.Func {
	return []abi.Func{
		{
			Name:    "now",
			Results: []wit.Type{wit.U64{}},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				stack[0] = h.Now(ctx)
			},
		},
		{
			Name:    "resolution",
			Results: []wit.Type{wit.U64{}},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				stack[0] = h.Resolution(ctx)
			},
		},
		{
			Name:    "subscribe-instant",
			Params:  []wit.Type{wit.U64{}},
			Results: []wit.Type{abi.Own(pollableType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				stack[0] = api.EncodeU32(h.SubscribeInstant(ctx, stack[0]))
			},
		},
		{
			Name:    "subscribe-duration",
			Params:  []wit.Type{wit.U64{}},
			Results: []wit.Type{abi.Own(pollableType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				stack[0] = api.EncodeU32(h.SubscribeDuration(ctx, stack[0]))
			},
		},
	}
}

func wallFuncs(h *WallClockHost) []abi.Func {
	datetime := func(name string, fn func(context.Context) Datetime) abi.Func {
		return abi.Func{
			Name:       name,
			Results:    []wit.Type{datetimeType},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, _ abi.Allocator, stack []uint64) {
				retptr := uint32(stack[0])
				d := fn(ctx)
				abi.Must(mem.WriteU64(retptr, d.Seconds), name)
				abi.Must(mem.WriteU32(retptr+8, d.Nanoseconds), name)
			},
		}
	}
	return []abi.Func{
		datetime("now", h.Now),
		datetime("resolution", h.Resolution),
	}
}
