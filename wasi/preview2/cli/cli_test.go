package cli

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
	wasiio "github.com/wippyai/plugin-reactor/wasi/preview2/io"
)

func TestStdinHost_SameHandleUntilDropped(t *testing.T) {
	w := preview2.New().WithStdin([]byte("hi"))
	defer w.Close()
	host := NewStdinHost(w)
	ctx := context.Background()

	first := host.GetStdin(ctx)
	if again := host.GetStdin(ctx); again != first {
		t.Fatalf("GetStdin = %d then %d, want the same handle", first, again)
	}
	typ, err := w.Resources().TypeOf(first)
	if err != nil || typ != preview2.ResourceInputStream {
		t.Fatalf("TypeOf = %v, %v", typ, err)
	}

	if err := w.Resources().Remove(first); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if again := host.GetStdin(ctx); again == first {
		t.Fatal("a dropped handle must not be handed out again")
	}
}

func TestStdinHost_PollThenRead(t *testing.T) {
	r, wr := io.Pipe()
	w := preview2.New().WithStdinReader(r)
	defer w.Close()
	ctx := context.Background()

	stdin := NewStdinHost(w).GetStdin(ctx)
	host := wasiio.NewHost(w.Resources(), nil)
	p := host.Streams.MethodInputStreamSubscribe(ctx, stdin)

	if host.Poll.MethodPollableReady(ctx, p) {
		t.Fatal("stdin must not be ready before data arrives")
	}

	go func() { _, _ = wr.Write([]byte("line\n")) }()

	ready, err := host.Poll.Poll(ctx, []uint32{p})
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !slices.Equal(ready, []uint32{0}) {
		t.Fatalf("Poll = %v, want [0]", ready)
	}
	data, se := host.Streams.MethodInputStreamRead(ctx, stdin, 64)
	if se != nil || string(data) != "line\n" {
		t.Fatalf("Read = %q, %v", data, se)
	}
}

func TestStdoutStderrHosts_WriteThrough(t *testing.T) {
	var out, errOut strings.Builder
	w := preview2.New().WithStdout(&out).WithStderr(&errOut)
	defer w.Close()
	ctx := context.Background()
	streams := wasiio.NewStreamsHost(w.Resources())

	stdout := NewStdoutHost(w).GetStdout(ctx)
	stderr := NewStderrHost(w).GetStderr(ctx)
	if stdout == stderr {
		t.Fatal("stdout and stderr share a handle")
	}

	if se := streams.MethodOutputStreamWrite(ctx, stdout, []byte("out")); se != nil {
		t.Fatalf("stdout write: %v", se)
	}
	if se := streams.MethodOutputStreamWrite(ctx, stderr, []byte("err")); se != nil {
		t.Fatalf("stderr write: %v", se)
	}
	if out.String() != "out" || errOut.String() != "err" {
		t.Fatalf("stdout=%q stderr=%q", out.String(), errOut.String())
	}
}

func TestGetters_TrapAfterClose(t *testing.T) {
	w := preview2.New()
	host := NewStdoutHost(w)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	defer func() {
		if trap := errors.Recover(recover()); trap == nil {
			t.Fatal("expected trap")
		}
	}()
	host.GetStdout(context.Background())
}

func TestInstantiate_CoreSignatures(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	w := preview2.New()
	defer w.Close()
	if err := Instantiate(ctx, rt, NewHost(w)); err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}

	for ns, fn := range map[string]string{
		"wasi:cli/stdin@0.2.8":  "get-stdin",
		"wasi:cli/stdout@0.2.8": "get-stdout",
		"wasi:cli/stderr@0.2.8": "get-stderr",
	} {
		mod := rt.Module(ns)
		if mod == nil {
			t.Fatalf("%s not instantiated", ns)
		}
		def, ok := mod.ExportedFunctionDefinitions()[fn]
		if !ok {
			t.Fatalf("%s.%s not exported", ns, fn)
		}
		if len(def.ParamTypes()) != 0 || !slices.Equal(def.ResultTypes(), []api.ValueType{api.ValueTypeI32}) {
			t.Errorf("%s: signature (%v) -> (%v)", fn, def.ParamTypes(), def.ResultTypes())
		}
	}

	results, err := rt.Module("wasi:cli/stdout@0.2.8").ExportedFunction("get-stdout").Call(ctx)
	if err != nil {
		t.Fatalf("get-stdout failed: %v", err)
	}
	if typ, err := w.Resources().TypeOf(uint32(results[0])); err != nil || typ != preview2.ResourceOutputStream {
		t.Fatalf("handle %d: %v, %v", results[0], typ, err)
	}
}
