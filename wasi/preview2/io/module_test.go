package io

import (
	"context"
	"slices"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
	"github.com/wippyai/plugin-reactor/wasi/preview2/internal/abi"
	"github.com/wippyai/plugin-reactor/wasi/preview2/internal/abi/abitest"
)

func findFunc(t *testing.T, funcs []abi.Func, name string) abi.Func {
	t.Helper()
	for _, f := range funcs {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no host function %q", name)
	return abi.Func{}
}

func TestPollFunc_Lowered(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewPollHost(resources, nil)
	mem := abitest.New(4096)

	h0 := subscribe(t, resources, preview2.NewManualResource(false))
	h1 := subscribe(t, resources, preview2.NewManualResource(true))
	h2 := subscribe(t, resources, preview2.NewManualResource(true))

	const listPtr, retptr = 16, 64
	mem.PutU32s(listPtr, h0, h1, h2)

	stack := []uint64{listPtr, 3, retptr}
	findFunc(t, pollFuncs(host), "poll").Handler(context.Background(), mem, mem, stack)

	ptr, n := mem.U32(retptr), mem.U32(retptr+4)
	if got := mem.U32s(ptr, n); !slices.Equal(got, []uint32{1, 2}) {
		t.Errorf("lowered poll result = %v, want [1 2]", got)
	}
}

func TestPollFunc_EmptyListTraps(t *testing.T) {
	host := NewPollHost(preview2.NewResourceTable(), nil)
	mem := abitest.New(256)

	expectTrap(t, errors.KindProtocolViolation, func() {
		findFunc(t, pollFuncs(host), "poll").Handler(context.Background(), mem, mem, []uint64{0, 0, 64})
	})
}

func TestPollableReadyFunc(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewPollHost(resources, nil)

	h := subscribe(t, resources, preview2.NewManualResource(true))
	stack := []uint64{uint64(h)}
	findFunc(t, pollFuncs(host), "[method]pollable.ready").Handler(context.Background(), nil, nil, stack)
	if api.DecodeU32(stack[0]) != 1 {
		t.Errorf("ready = %d, want 1", stack[0])
	}
}

func TestInputStreamReadFunc(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewStreamsHost(resources)
	mem := abitest.New(4096)
	read := findFunc(t, streamsFuncs(host), "[method]input-stream.read")

	h := add(t, resources, preview2.NewInputStreamResource([]byte("abc")))

	const retptr = 32
	read.Handler(context.Background(), mem, mem, []uint64{uint64(h), 8, retptr})
	if mem.U8(retptr) != 0 {
		t.Fatalf("expected ok result, tag = %d", mem.U8(retptr))
	}
	ptr, n := mem.U32(retptr+4), mem.U32(retptr+8)
	if string(mem.Data[ptr:ptr+n]) != "abc" {
		t.Errorf("read %q", mem.Data[ptr:ptr+n])
	}

	read.Handler(context.Background(), mem, mem, []uint64{uint64(h), 8, retptr})
	if mem.U8(retptr) != 1 || mem.U8(retptr+4) != 1 {
		t.Errorf("expected err(closed), got tag %d case %d", mem.U8(retptr), mem.U8(retptr+4))
	}
}

func TestOutputStreamFuncs(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewStreamsHost(resources)
	mem := abitest.New(4096)
	funcs := streamsFuncs(host)

	stream := preview2.NewOutputStreamResource(nil)
	h := add(t, resources, stream)

	const retptr = 32
	findFunc(t, funcs, "[method]output-stream.check-write").Handler(context.Background(), mem, mem, []uint64{uint64(h), retptr})
	if mem.U8(retptr) != 0 || mem.U64(retptr+8) != preview2.DefaultBufferSize {
		t.Errorf("check-write = tag %d permit %d", mem.U8(retptr), mem.U64(retptr+8))
	}

	copy(mem.Data[128:], "payload")
	findFunc(t, funcs, "[method]output-stream.write").Handler(context.Background(), mem, mem, []uint64{uint64(h), 128, 7, retptr})
	if mem.U8(retptr) != 0 {
		t.Fatalf("write failed, tag = %d", mem.U8(retptr))
	}
	if string(stream.Bytes()) != "payload" {
		t.Errorf("stream got %q", stream.Bytes())
	}
}

func TestErrorToDebugStringFunc(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewErrorHost(resources)
	mem := abitest.New(4096)

	h := add(t, resources, preview2.NewErrorResource("broken"))
	const retptr = 8
	findFunc(t, errorFuncs(host), "[method]error.to-debug-string").Handler(context.Background(), mem, mem, []uint64{uint64(h), retptr})

	ptr, n := mem.U32(retptr), mem.U32(retptr+4)
	if string(mem.Data[ptr:ptr+n]) != "broken" {
		t.Errorf("debug string = %q", mem.Data[ptr:ptr+n])
	}
}

func TestInstantiate_CoreSignatures(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	host := NewHost(preview2.NewResourceTable(), nil)
	if err := Instantiate(ctx, rt, host); err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}

	i32, i64 := api.ValueTypeI32, api.ValueTypeI64
	tests := []struct {
		module, name string
		params       []api.ValueType
		results      []api.ValueType
	}{
		{"wasi:io/poll@0.2.8", "poll", []api.ValueType{i32, i32, i32}, nil},
		{"wasi:io/poll@0.2.8", "[method]pollable.ready", []api.ValueType{i32}, []api.ValueType{i32}},
		{"wasi:io/poll@0.2.8", "[resource-drop]pollable", []api.ValueType{i32}, nil},
		{"wasi:io/streams@0.2.8", "[method]input-stream.read", []api.ValueType{i32, i64, i32}, nil},
		{"wasi:io/streams@0.2.8", "[method]output-stream.write", []api.ValueType{i32, i32, i32, i32}, nil},
		{"wasi:io/streams@0.2.8", "[method]output-stream.subscribe", []api.ValueType{i32}, []api.ValueType{i32}},
		{"wasi:io/error@0.2.8", "[method]error.to-debug-string", []api.ValueType{i32, i32}, nil},
	}
	for _, tt := range tests {
		mod := rt.Module(tt.module)
		if mod == nil {
			t.Fatalf("module %s not instantiated", tt.module)
		}
		def, ok := mod.ExportedFunctionDefinitions()[tt.name]
		if !ok {
			t.Errorf("%s#%s not exported", tt.module, tt.name)
			continue
		}
		if !slices.Equal(def.ParamTypes(), tt.params) || !slices.Equal(def.ResultTypes(), tt.results) {
			t.Errorf("%s: signature (%v) -> (%v), want (%v) -> (%v)",
				tt.name, def.ParamTypes(), def.ResultTypes(), tt.params, tt.results)
		}
	}
}

func TestInstantiate_TrapSurfacesAsCallError(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := InstantiatePoll(ctx, rt, NewPollHost(preview2.NewResourceTable(), nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mod.ExportedFunction("[method]pollable.ready").Call(ctx, 9999); err == nil {
		t.Error("expected call on an unknown handle to fail")
	}
}
