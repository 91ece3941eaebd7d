package io

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
	"github.com/wippyai/plugin-reactor/wasi/preview2/internal/abi"
)

var (
	pollableType     = abi.Resource()
	inputStreamType  = abi.Resource()
	outputStreamType = abi.Resource()
	errorType        = abi.Resource()

	streamErrorType = &wit.TypeDef{Kind: &wit.Variant{Cases: []wit.Case{
		{Name: "last-operation-failed", Type: abi.Own(errorType)},
		{Name: "closed"},
	}}}
)

func streamResult(ok wit.Type) wit.Type {
	return &wit.TypeDef{Kind: &wit.Result{OK: ok, Err: streamErrorType}}
}

// Instantiate registers the poll, streams and error hosts in rt.
func Instantiate(ctx context.Context, rt wazero.Runtime, h *Host) error {
	if _, err := InstantiatePoll(ctx, rt, h.Poll); err != nil {
		return err
	}
	if _, err := abi.Instantiate(ctx, rt, h.Streams.Namespace(), streamsFuncs(h.Streams)); err != nil {
		return err
	}
	_, err := abi.Instantiate(ctx, rt, h.Error.Namespace(), errorFuncs(h.Error))
	return err
}

// InstantiatePoll registers wasi:io/poll in rt.
func InstantiatePoll(ctx context.Context, rt wazero.Runtime, h *PollHost) (api.Module, error) {
	return abi.Instantiate(ctx, rt, h.Namespace(), pollFuncs(h))
}

func pollFuncs(h *PollHost) []abi.Func {
	return []abi.Func{
		{
			Name:       "poll",
			Params:     []wit.Type{abi.List(abi.Borrow(pollableType))},
			Results:    []wit.Type{abi.List(wit.U32{})},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, alloc abi.Allocator, stack []uint64) {
				ptr, n, retptr := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])
				handles, err := abi.ReadU32List(mem, ptr, n)
				abi.Must(err, "poll")

				ready, err := h.Poll(ctx, handles)
				errors.Fail(errors.PhaseHost, err, "poll")

				list, err := abi.WriteU32List(mem, alloc, ready)
				abi.Must(err, "poll")
				abi.Must(mem.WriteU32(retptr, list), "poll")
				abi.Must(mem.WriteU32(retptr+4, uint32(len(ready))), "poll")
			},
		},
		{
			Name:    "[method]pollable.ready",
			Params:  []wit.Type{abi.Borrow(pollableType)},
			Results: []wit.Type{wit.Bool{}},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				stack[0] = api.EncodeU32(boolU32(h.MethodPollableReady(ctx, uint32(stack[0]))))
			},
		},
		{
			Name:   "[method]pollable.block",
			Params: []wit.Type{abi.Borrow(pollableType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				errors.Fail(errors.PhaseHost, h.MethodPollableBlock(ctx, uint32(stack[0])), "pollable.block")
			},
		},
		{
			Name:   "[resource-drop]pollable",
			Params: []wit.Type{abi.Own(pollableType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				h.ResourceDropPollable(ctx, uint32(stack[0]))
			},
		},
	}
}

func streamsFuncs(h *StreamsHost) []abi.Func {
	return []abi.Func{
		{
			Name:       "[method]input-stream.read",
			Params:     []wit.Type{abi.Borrow(inputStreamType), wit.U64{}},
			Results:    []wit.Type{streamResult(abi.List(wit.U8{}))},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, alloc abi.Allocator, stack []uint64) {
				self, length, retptr := uint32(stack[0]), stack[1], uint32(stack[2])
				data, se := h.MethodInputStreamRead(ctx, self, length)
				if se != nil {
					writeStreamError(mem, retptr, 4, se)
					return
				}
				ptr, err := abi.WriteBytes(mem, alloc, data, 1)
				abi.Must(err, "input-stream.read")
				abi.Must(mem.WriteU8(retptr, 0), "input-stream.read")
				abi.Must(mem.WriteU32(retptr+4, ptr), "input-stream.read")
				abi.Must(mem.WriteU32(retptr+8, uint32(len(data))), "input-stream.read")
			},
		},
		{
			Name:       "[method]input-stream.skip",
			Params:     []wit.Type{abi.Borrow(inputStreamType), wit.U64{}},
			Results:    []wit.Type{streamResult(wit.U64{})},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, _ abi.Allocator, stack []uint64) {
				self, length, retptr := uint32(stack[0]), stack[1], uint32(stack[2])
				n, se := h.MethodInputStreamSkip(ctx, self, length)
				writeU64Result(mem, retptr, n, se)
			},
		},
		{
			Name:    "[method]input-stream.subscribe",
			Params:  []wit.Type{abi.Borrow(inputStreamType)},
			Results: []wit.Type{abi.Own(pollableType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				stack[0] = api.EncodeU32(h.MethodInputStreamSubscribe(ctx, uint32(stack[0])))
			},
		},
		{
			Name:       "[method]output-stream.check-write",
			Params:     []wit.Type{abi.Borrow(outputStreamType)},
			Results:    []wit.Type{streamResult(wit.U64{})},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, _ abi.Allocator, stack []uint64) {
				self, retptr := uint32(stack[0]), uint32(stack[1])
				n, se := h.MethodOutputStreamCheckWrite(ctx, self)
				writeU64Result(mem, retptr, n, se)
			},
		},
		{
			Name:       "[method]output-stream.write",
			Params:     []wit.Type{abi.Borrow(outputStreamType), abi.List(wit.U8{})},
			Results:    []wit.Type{streamResult(nil)},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, _ abi.Allocator, stack []uint64) {
				self, ptr, n, retptr := uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), uint32(stack[3])
				data, err := mem.Read(ptr, n)
				abi.Must(err, "output-stream.write")
				writeUnitResult(mem, retptr, h.MethodOutputStreamWrite(ctx, self, data))
			},
		},
		{
			Name:       "[method]output-stream.flush",
			Params:     []wit.Type{abi.Borrow(outputStreamType)},
			Results:    []wit.Type{streamResult(nil)},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, _ abi.Allocator, stack []uint64) {
				self, retptr := uint32(stack[0]), uint32(stack[1])
				writeUnitResult(mem, retptr, h.MethodOutputStreamFlush(ctx, self))
			},
		},
		{
			Name:    "[method]output-stream.subscribe",
			Params:  []wit.Type{abi.Borrow(outputStreamType)},
			Results: []wit.Type{abi.Own(pollableType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				stack[0] = api.EncodeU32(h.MethodOutputStreamSubscribe(ctx, uint32(stack[0])))
			},
		},
		{
			Name:   "[resource-drop]input-stream",
			Params: []wit.Type{abi.Own(inputStreamType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				h.ResourceDropInputStream(ctx, uint32(stack[0]))
			},
		},
		{
			Name:   "[resource-drop]output-stream",
			Params: []wit.Type{abi.Own(outputStreamType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				h.ResourceDropOutputStream(ctx, uint32(stack[0]))
			},
		},
	}
}

func errorFuncs(h *ErrorHost) []abi.Func {
	return []abi.Func{
		{
			Name:       "[method]error.to-debug-string",
			Params:     []wit.Type{abi.Borrow(errorType)},
			Results:    []wit.Type{wit.String{}},
			UsesMemory: true,
			Handler: func(ctx context.Context, mem abi.Memory, alloc abi.Allocator, stack []uint64) {
				self, retptr := uint32(stack[0]), uint32(stack[1])
				msg := h.MethodErrorToDebugString(ctx, self)
				ptr, err := abi.WriteBytes(mem, alloc, []byte(msg), 1)
				abi.Must(err, "error.to-debug-string")
				abi.Must(mem.WriteU32(retptr, ptr), "error.to-debug-string")
				abi.Must(mem.WriteU32(retptr+4, uint32(len(msg))), "error.to-debug-string")
			},
		},
		{
			Name:   "[resource-drop]error",
			Params: []wit.Type{abi.Own(errorType)},
			Handler: func(ctx context.Context, _ abi.Memory, _ abi.Allocator, stack []uint64) {
				h.ResourceDropError(ctx, uint32(stack[0]))
			},
		},
	}
}

// writeStreamError stores the err arm of a result whose payload starts at
// retptr+off.
func writeStreamError(mem abi.Memory, retptr, off uint32, se *preview2.StreamError) {
	abi.Must(mem.WriteU8(retptr, 1), "stream-error")
	if se.Closed || !se.LastOpFailed {
		abi.Must(mem.WriteU8(retptr+off, 1), "stream-error")
		return
	}
	abi.Must(mem.WriteU8(retptr+off, 0), "stream-error")
	abi.Must(mem.WriteU32(retptr+off+4, se.LastOpFailedErr), "stream-error")
}

// writeU64Result stores result<u64, stream-error>; the payload is 8-aligned.
func writeU64Result(mem abi.Memory, retptr uint32, v uint64, se *preview2.StreamError) {
	if se != nil {
		writeStreamError(mem, retptr, 8, se)
		return
	}
	abi.Must(mem.WriteU8(retptr, 0), "stream result")
	abi.Must(mem.WriteU64(retptr+8, v), "stream result")
}

// writeUnitResult stores result<_, stream-error>.
func writeUnitResult(mem abi.Memory, retptr uint32, se *preview2.StreamError) {
	if se != nil {
		writeStreamError(mem, retptr, 4, se)
		return
	}
	abi.Must(mem.WriteU8(retptr, 0), "stream result")
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
