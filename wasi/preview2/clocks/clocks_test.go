package clocks

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/plugin-reactor/wasi/preview2"
	"github.com/wippyai/plugin-reactor/wasi/preview2/internal/abi/abitest"
	"github.com/wippyai/plugin-reactor/wasi/preview2/io"
)

func TestMonotonicClockHost_Now(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	// Monotonic clock returns time since host creation
	now1 := host.Now(ctx)
	time.Sleep(1 * time.Millisecond)
	now2 := host.Now(ctx)

	if now2 <= now1 {
		t.Errorf("monotonic clock not monotonic: %d <= %d", now2, now1)
	}
	if now2-now1 < 1_000_000 {
		t.Errorf("expected at least 1ms elapsed, got %dns", now2-now1)
	}
}

func TestMonotonicClockHost_Resolution(t *testing.T) {
	host := NewMonotonicClockHost(preview2.NewResourceTable())

	if res := host.Resolution(context.Background()); res != 1 {
		t.Errorf("expected resolution 1 (nanosecond), got %d", res)
	}
}

func TestMonotonicClockHost_SubscribeInstant(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	when := host.Now(ctx) + 10_000_000 // 10ms in the future
	handle := host.SubscribeInstant(ctx, when)

	p, err := resources.Pollable(handle)
	if err != nil {
		t.Fatalf("expected pollable in resource table: %v", err)
	}
	if p.Ready() {
		t.Error("expected pollable to NOT be ready yet (10ms in future)")
	}

	past := host.SubscribeInstant(ctx, 0)
	if p, _ := resources.Pollable(past); !p.Ready() {
		t.Error("an instant in the past must be ready immediately")
	}
}

func TestMonotonicClockHost_SubscribeDuration(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	ctx := context.Background()

	handle := host.SubscribeDuration(ctx, 10_000_000) // 10ms

	p, err := resources.Pollable(handle)
	if err != nil {
		t.Fatalf("expected pollable in resource table: %v", err)
	}
	if p.Ready() {
		t.Error("expected pollable to NOT be ready yet (10ms duration)")
	}

	if err := p.Block(ctx); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if !p.Ready() {
		t.Error("expected pollable to be ready after Block()")
	}
}

func TestMonotonicClockHost_HugeDurationDoesNotOverflow(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)

	handle := host.SubscribeDuration(context.Background(), ^uint64(0))
	if p, _ := resources.Pollable(handle); p.Ready() {
		t.Error("maximal duration must not wrap into the past")
	}
	_ = resources.Remove(handle)
}

func TestMonotonicClockHost_DropPollableReleasesTimer(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	polls := io.NewPollHost(resources, nil)
	ctx := context.Background()

	handle := host.SubscribeDuration(ctx, uint64(time.Hour))
	polls.ResourceDropPollable(ctx, handle)
	if resources.Len() != 0 {
		t.Errorf("timer left in table after its pollable was dropped: %d", resources.Len())
	}
}

func TestMonotonicClockHost_PollPicksEarliestTimer(t *testing.T) {
	resources := preview2.NewResourceTable()
	host := NewMonotonicClockHost(resources)
	polls := io.NewPollHost(resources, nil)
	ctx := context.Background()

	slow := host.SubscribeDuration(ctx, uint64(time.Hour))
	fast := host.SubscribeDuration(ctx, uint64(10*time.Millisecond))

	ready, err := polls.Poll(ctx, []uint32{slow, fast})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ready, []uint32{1}) {
		t.Errorf("ready = %v, want [1]", ready)
	}
}

func TestWallClockHost_Now(t *testing.T) {
	host := NewWallClockHost()
	ctx := context.Background()

	before := time.Now()
	dt := host.Now(ctx)
	after := time.Now()

	if dt.Seconds < uint64(before.Unix()) || dt.Seconds > uint64(after.Unix()) {
		t.Errorf("wall clock seconds (%d) outside expected range [%d, %d]",
			dt.Seconds, before.Unix(), after.Unix())
	}
	if dt.Nanoseconds >= 1000000000 {
		t.Errorf("wall clock nanoseconds (%d) should be < 1000000000", dt.Nanoseconds)
	}
}

func TestWallClockHost_Resolution(t *testing.T) {
	res := NewWallClockHost().Resolution(context.Background())
	if res.Seconds != 0 || res.Nanoseconds != 1 {
		t.Errorf("expected resolution (0s, 1ns), got (%ds, %dns)", res.Seconds, res.Nanoseconds)
	}
}

func TestWallFuncs_Lowered(t *testing.T) {
	mem := abitest.New(256)
	funcs := wallFuncs(NewWallClockHost())

	const retptr = 16
	funcs[1].Handler(context.Background(), mem, nil, []uint64{retptr})
	if mem.U64(retptr) != 0 || mem.U32(retptr+8) != 1 {
		t.Errorf("resolution lowered as (%d, %d)", mem.U64(retptr), mem.U32(retptr+8))
	}
}

func TestMonotonicFuncs_Lowered(t *testing.T) {
	resources := preview2.NewResourceTable()
	funcs := monotonicFuncs(NewMonotonicClockHost(resources))

	stack := []uint64{uint64(time.Hour)}
	funcs[3].Handler(context.Background(), nil, nil, stack)
	if _, err := resources.Pollable(api.DecodeU32(stack[0])); err != nil {
		t.Errorf("subscribe-duration returned %d, not a pollable: %v", stack[0], err)
	}
}

func TestInstantiate_CoreSignatures(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	resources := preview2.NewResourceTable()
	mono, err := InstantiateMonotonic(ctx, rt, NewMonotonicClockHost(resources))
	if err != nil {
		t.Fatal(err)
	}
	wall, err := InstantiateWall(ctx, rt, NewWallClockHost())
	if err != nil {
		t.Fatal(err)
	}

	i32, i64 := api.ValueTypeI32, api.ValueTypeI64
	tests := []struct {
		mod     api.Module
		name    string
		params  []api.ValueType
		results []api.ValueType
	}{
		{mono, "now", nil, []api.ValueType{i64}},
		{mono, "subscribe-instant", []api.ValueType{i64}, []api.ValueType{i32}},
		{mono, "subscribe-duration", []api.ValueType{i64}, []api.ValueType{i32}},
		{wall, "now", []api.ValueType{i32}, nil},
	}
	for _, tt := range tests {
		def, ok := tt.mod.ExportedFunctionDefinitions()[tt.name]
		if !ok {
			t.Errorf("%s not exported", tt.name)
			continue
		}
		if !slices.Equal(def.ParamTypes(), tt.params) || !slices.Equal(def.ResultTypes(), tt.results) {
			t.Errorf("%s: signature (%v) -> (%v), want (%v) -> (%v)",
				tt.name, def.ParamTypes(), def.ResultTypes(), tt.params, tt.results)
		}
	}

	results, err := mono.ExportedFunction("now").Call(ctx)
	if err != nil || len(results) != 1 {
		t.Fatalf("now() = %v, %v", results, err)
	}
}

func TestWallClockHost_Register(t *testing.T) {
	funcs := NewWallClockHost().Register()
	if len(funcs) != 2 {
		t.Fatalf("Register returned %d functions, want 2", len(funcs))
	}
	if _, ok := funcs["now"].(func(context.Context) Datetime); !ok {
		t.Errorf("now has type %T", funcs["now"])
	}
	if _, ok := funcs["resolution"].(func(context.Context) Datetime); !ok {
		t.Errorf("resolution has type %T", funcs["resolution"])
	}
}
