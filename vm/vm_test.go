// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kahdeg/dialos/dsb"
)

func runToFinish(t *testing.T, v *VM, maxSlices int) VMResult {
	t.Helper()
	var last VMResult
	for i := 0; i < maxSlices; i++ {
		last = v.Execute(1000)
		if last.Status == StatusFinished || last.Status == StatusError || last.Status == StatusOutOfMemory {
			return last
		}
	}
	t.Fatalf("did not reach a terminal status within %d slices, last=%v", maxSlices, last.Status)
	return last
}

// TestS1ArithmeticAndPrint is scenario S1: push 2, push 3, ADD, PRINT, HALT.
func TestS1ArithmeticAndPrint(t *testing.T) {
	m := dsb.NewBuilder().
		Code([]byte{0x13, 0x02, 0x13, 0x03, 0x40, 0xF0, 0xFF}, nil).
		Finish()

	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := runToFinish(t, v, 1)
	if res.Status != StatusFinished {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if len(plat.printed) != 1 || plat.printed[0] != "5" {
		t.Fatalf("printed = %v, want [\"5\"]", plat.printed)
	}
	if len(v.stack) != 0 {
		t.Fatalf("stack not empty at Finished: %v", v.stack)
	}
}

// TestS2Template is scenario S2: constants = ["score=${0}", "x"].
// PUSH_STR 0; PUSH_I8 42; TEMPLATE_FORMAT 1; PRINT; HALT.
func TestS2Template(t *testing.T) {
	b := dsb.NewBuilder()
	b.Constant("score=${0}")
	b.Constant("x")
	code := []byte{
		0x17, 0x00, 0x00, // PUSH_STR 0
		0x13, 42, // PUSH_I8 42
		0xF1, 0x01, // TEMPLATE_FORMAT 1
		0xF0, // PRINT
		0xFF, // HALT
	}
	m := b.Code(code, nil).Finish()

	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := runToFinish(t, v, 1)
	if res.Status != StatusFinished {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if len(plat.printed) != 1 || plat.printed[0] != "score=42" {
		t.Fatalf("printed = %v, want [\"score=42\"]", plat.printed)
	}
}

// TestS4Exception is scenario S4:
// TRY +k; PUSH_STR "oops"; THROW; <unreachable>; <catch>: PRINT; HALT.
func TestS4Exception(t *testing.T) {
	b := dsb.NewBuilder()
	b.Constant("oops")

	// Layout (byte offsets):
	// 0: TRY off(5 bytes opcode+operand) -> target = 5 (len of TRY instr) + offset
	// We compute offset so the catch target lands exactly on PRINT below.
	tryInstrLen := 5 // opcode + 4-byte offset
	pushStrLen := 3  // opcode + 2-byte index
	throwLen := 1
	unreachableLen := 1 // a NOP standing in for unreachable code
	offset := int32(pushStrLen + throwLen + unreachableLen)

	code := []byte{0x80, 0, 0, 0, 0} // TRY placeholder offset
	code[1] = byte(offset)
	code[2] = byte(offset >> 8)
	code[3] = byte(offset >> 16)
	code[4] = byte(offset >> 24)
	code = append(code, 0x17, 0x00, 0x00) // PUSH_STR 0 ("oops")
	code = append(code, 0x82)             // THROW
	code = append(code, 0x00)             // NOP (unreachable)
	code = append(code, 0xF0)             // PRINT (catch target)
	code = append(code, 0xFF)             // HALT

	if len(code) != tryInstrLen+pushStrLen+throwLen+unreachableLen+2 {
		t.Fatalf("test setup: unexpected code length %d", len(code))
	}

	m := b.Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := runToFinish(t, v, 1)
	if res.Status != StatusFinished {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if len(plat.printed) != 1 || plat.printed[0] != "oops" {
		t.Fatalf("printed = %v, want [\"oops\"]", plat.printed)
	}
}

// TestExceptionSoundnessRestoresDepth is invariant 7: after a caught THROW,
// operand stack depth equals the value recorded when the handler was
// installed (here: one, the PUSH_TRUE pushed before TRY), plus the caught
// value pushed for the catch arm.
func TestExceptionSoundnessRestoresDepth(t *testing.T) {
	b := dsb.NewBuilder()
	b.Constant("boom")

	code := []byte{
		0x11,             // PUSH_TRUE (junk left for the THROW arm to discard)
		0x80, 4, 0, 0, 0, // TRY +4 -> lands right after PUSH_STR+THROW
		0x17, 0x00, 0x00, // PUSH_STR 0
		0x82, // THROW
		0xFF, // catch target: HALT directly (leaves thrown value on stack)
	}
	m := b.Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := v.Execute(1000)
	if res.Status != StatusFinished {
		t.Fatalf("status = %v err = %v", res.Status, res.Err)
	}
	// Stack base at TRY time was 1 (the PUSH_TRUE junk); after the handler
	// unwinds to that depth and pushes the thrown value, depth must be 2.
	if len(v.stack) != 2 {
		t.Fatalf("stack depth after catch = %d, want 2", len(v.stack))
	}
}

// TestArityMismatchIsFatal is invariant 8: a CALL with mismatched argc
// produces a fatal StackError-class failure, not a catchable one.
func TestArityMismatchIsFatal(t *testing.T) {
	b := dsb.NewBuilder()
	b.Function("needsOne", 10, 1)
	code := make([]byte, 10)
	// CALL func=0 argc=0 (declared param_count is 1: mismatch)
	code[0] = 0x63
	code[1] = 0
	code[2] = 0
	code[3] = 0 // argc = 0
	code[4] = 0xFF
	for i := 5; i < 10; i++ {
		code[i] = 0xFF
	}
	m := b.Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	v := New(m, pool, newFakePlatform())

	res := v.Execute(10)
	if res.Status != StatusError {
		t.Fatalf("status = %v, want Error", res.Status)
	}
}

// TestCooperativeProgressRespectsBudget is invariant 6: execute(N) never
// runs more than N dispatch cycles before returning, even on an infinite
// loop.
func TestCooperativeProgressRespectsBudget(t *testing.T) {
	// JUMP -5 forever: opcode(1)+offset(4) = 5 bytes, jump back to self.
	code := []byte{0x60, 0xFB, 0xFF, 0xFF, 0xFF} // offset = -5
	m := dsb.NewBuilder().Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	v := New(m, pool, newFakePlatform())

	res := v.Execute(37)
	if res.Status != StatusOK {
		t.Fatalf("status = %v, want OK (budget exhausted, not done)", res.Status)
	}
}

func TestDivisionByZeroIsCatchable(t *testing.T) {
	b := dsb.NewBuilder()
	code := []byte{
		0x80, 5, 0, 0, 0, // TRY +5 -> lands on PRINT below
		0x13, 1, // PUSH_I8 1
		0x13, 0, // PUSH_I8 0
		0x43, // DIV -> catchable ArithError
		0xF0, // catch target: PRINT the thrown message
		0xFF, // HALT
	}
	m := b.Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := v.Execute(100)
	if res.Status != StatusFinished {
		t.Fatalf("status = %v err = %v", res.Status, res.Err)
	}
	if len(plat.printed) != 1 {
		t.Fatalf("expected exactly one PRINT, got %v", plat.printed)
	}
}

// TestCompareInt32ExactNotFloat32Rounded guards against LT/LE/GT/GE routing
// Int32 operands through float32: float32's 24-bit mantissa can't
// distinguish 16777216 (2^24) from 16777217, so a float32-based compare
// would wrongly report 16777216 < 16777217 as false.
func TestCompareInt32ExactNotFloat32Rounded(t *testing.T) {
	code := []byte{
		0x15, 0x00, 0x00, 0x00, 0x01, // PUSH_I32 16777216
		0x15, 0x01, 0x00, 0x00, 0x01, // PUSH_I32 16777217
		0x52, // LT
		0xF0, // PRINT
		0xFF, // HALT
	}
	m := dsb.NewBuilder().Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := runToFinish(t, v, 1)
	require.Equalf(t, StatusFinished, res.Status, "err = %v", res.Err)
	require.Equal(t, []string{"true"}, plat.printed, "16777216 < 16777217 exactly")
}

// TestRegisterCallbackAndDispatch is a simplified S6: a top-level script
// registers a one-argument handler for "encoder.turn", then halts. Two
// platform events queued afterward (while the VM is idle) must each invoke
// the handler exactly once, in FIFO order, observing their own argument.
func TestRegisterCallbackAndDispatch(t *testing.T) {
	// Top level: PUSH_STR 0 ("encoder.turn"); LOAD_FUNCTION 0 (onTurn);
	// CALL_NATIVE id=NativeRegisterCallback argc=2; POP; HALT.
	topLevel := []byte{
		0x17, 0x00, 0x00, // PUSH_STR 0
		0x70, 0x00, 0x00, // LOAD_FUNCTION 0
		0x64, 0x00, 0x00, 2, // CALL_NATIVE 0,2
		0x01, // POP
		0xFF, // HALT
	}
	handlerEntry := uint32(len(topLevel))
	// Handler body: LOAD_LOCAL 0; PRINT; PUSH_TRUE; RETURN.
	handlerCode := []byte{
		0x20, 0x00, // LOAD_LOCAL 0
		0xF0, // PRINT
		0x11, // PUSH_TRUE
		0x67, // RETURN
	}
	code := append(append([]byte(nil), topLevel...), handlerCode...)

	b := dsb.NewBuilder()
	b.Constant("encoder.turn")
	b.Function("onTurn", handlerEntry, 1)
	m := b.Code(code, nil).Finish()

	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := v.Execute(100)
	if res.Status != StatusFinished {
		t.Fatalf("status after top-level = %v err = %v", res.Status, res.Err)
	}
	baseline := pool.Allocated()

	v.EnqueueCallback("encoder.turn", []Value{Int32Value(1)})
	v.EnqueueCallback("encoder.turn", []Value{Int32Value(-1)})

	res = v.Execute(100)
	if res.Status != StatusFinished {
		t.Fatalf("status after callbacks = %v err = %v", res.Status, res.Err)
	}
	if len(plat.printed) != 2 || plat.printed[0] != "1" || plat.printed[1] != "-1" {
		t.Fatalf("printed = %v, want [\"1\" \"-1\"] in FIFO order", plat.printed)
	}
	// Both callbacks only ever touched Int32 arguments, which are inline
	// (not heap) values, so heap usage must be back at the pre-dispatch
	// baseline with no GC needed.
	if pool.Allocated() != baseline {
		t.Fatalf("heap usage after both callbacks complete = %d, want baseline %d", pool.Allocated(), baseline)
	}
}
