// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kahdeg/dialos/dsb"
	"github.com/kahdeg/dialos/vm"
)

type stubPlatform struct {
	printed []string
}

func (p *stubPlatform) ConsoleLog(s string) { p.printed = append(p.printed, s) }
func (p *stubPlatform) CallNative(id vm.NativeID, args []vm.Value, pool *vm.ValuePool) (vm.Value, error) {
	return vm.Null, nil
}

func newRunningTask(m *dsb.Module, plat vm.Platform, desc AppletDescriptor) *Task {
	pool := vm.NewValuePool(m.HeapSize())
	v := vm.New(m, pool, plat)
	return NewTask(m, pool, v, desc)
}

// TestRepeatingAppletOverSimulatedTime is scenario S5: a repeating applet
// with a 100ms execute_interval_ms prints once per activation; over 350
// simulated milliseconds (ticked in 10ms steps) it must fire 4 times
// (t=0, 100, 200, 300) and still be Sleeping at t=350, not yet due for its
// 5th run at t=400.
func TestRepeatingAppletOverSimulatedTime(t *testing.T) {
	code := []byte{0x13, 7, 0xF0, 0xFF} // PUSH_I8 7; PRINT; HALT
	m := dsb.NewBuilder().HeapSize(4096).Code(code, nil).Finish()
	plat := &stubPlatform{}
	task := newRunningTask(m, plat, AppletDescriptor{Name: "ticker", Repeat: true, ExecuteIntervalMs: 100})

	s := New()
	s.Spawn(task)

	for now := int64(0); now <= 350; now += 10 {
		s.Tick(now)
	}

	require.Lenf(t, plat.printed, 4, "printed = %v", plat.printed)
	require.Equal(t, StateSleeping, task.State)
	require.EqualValues(t, 400, task.WakeAtMs)

	s.Tick(400)
	require.Lenf(t, plat.printed, 5, "printed = %v", plat.printed)
}

// TestOneShotAppletParksWithoutReset is the non-repeating half of §4.5:
// once Finished, a one-shot applet's VM is never Reset and Tick leaves it
// alone forever after.
func TestOneShotAppletParksWithoutReset(t *testing.T) {
	code := []byte{0x13, 1, 0xF0, 0xFF}
	m := dsb.NewBuilder().HeapSize(4096).Code(code, nil).Finish()
	plat := &stubPlatform{}
	task := newRunningTask(m, plat, AppletDescriptor{Name: "once", Repeat: false})

	s := New()
	s.Spawn(task)

	s.Tick(0)
	if task.State != StateFinished {
		t.Fatalf("state = %v, want Finished", task.State)
	}
	s.Tick(1000)
	s.Tick(2000)
	if len(plat.printed) != 1 {
		t.Fatalf("printed %d times, want exactly 1 (parked, never rerun)", len(plat.printed))
	}
}

// TestOutOfMemoryFaultsTask is scenario S3: an applet whose heap is too
// small to satisfy even its first string allocation faults with
// StatusOutOfMemory, and the scheduler records it as StateError rather than
// retrying silently.
func TestOutOfMemoryFaultsTask(t *testing.T) {
	b := dsb.NewBuilder()
	b.Constant("this string cannot fit in the budget")
	code := []byte{0x17, 0x00, 0x00, 0xFF} // PUSH_STR 0; HALT
	m := b.HeapSize(8).Code(code, nil).Finish()
	plat := &stubPlatform{}
	task := newRunningTask(m, plat, AppletDescriptor{Name: "oom", Repeat: false})

	s := New()
	s.Spawn(task)
	s.Tick(0)

	require.Equal(t, StateError, task.State)
	require.NotEmpty(t, task.ErrMsg)
	require.Zerof(t, task.Pool.Allocated(), "the failed alloc must not have charged the budget")
}

// TestErrorRetryReschedulesRepeatingApplet covers the repeating-applet arm
// of the Error transition: a faulting repeating applet is parked Sleeping
// (not Error) so it gets another chance later, per §4.5.
func TestErrorRetryReschedulesRepeatingApplet(t *testing.T) {
	b := dsb.NewBuilder()
	b.Constant("too big for this heap")
	code := []byte{0x17, 0x00, 0x00, 0xFF}
	m := b.HeapSize(8).Code(code, nil).Finish()
	plat := &stubPlatform{}
	task := newRunningTask(m, plat, AppletDescriptor{Name: "oom-repeat", Repeat: true, ExecuteIntervalMs: 100})

	s := New()
	s.Spawn(task)
	s.Tick(0)

	require.Equalf(t, StateSleeping, task.State, "repeating applet must be retried after fault, not parked Error")
	require.EqualValues(t, errorRetryDelayMs, task.WakeAtMs)
}

// TestTerminateRemovesTask exercises the "any state + terminate" transition.
func TestTerminateRemovesTask(t *testing.T) {
	code := []byte{0xFF}
	m := dsb.NewBuilder().HeapSize(256).Code(code, nil).Finish()
	plat := &stubPlatform{}
	task := newRunningTask(m, plat, AppletDescriptor{Name: "stop-me"})

	s := New()
	s.Spawn(task)
	if !s.Terminate(task.ID) {
		t.Fatalf("Terminate returned false for a known task")
	}
	if len(s.Tasks()) != 0 {
		t.Fatalf("task list = %v, want empty after terminate", s.Tasks())
	}
}
