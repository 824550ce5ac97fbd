// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kahdeg/dialos/dsb"
)

// TestCallMethodArrayBuiltins exercises CALL_METHOD dispatch against every
// Array built-in: push three elements onto an empty array, slice(1, 3) off
// it and print the slice's length, then indexOf the middle element.
func TestCallMethodArrayBuiltins(t *testing.T) {
	b := dsb.NewBuilder()
	push := b.Constant("push")
	slice := b.Constant("slice")
	indexOf := b.Constant("indexOf")
	length := b.Constant("length")
	arr := b.Global("arr")
	sliced := b.Global("sliced")

	code := []byte{
		0x15, 0x00, 0x00, 0x00, 0x00, // PUSH_I32 0 (initial array size)
		0x76, // NEW_ARRAY
	}
	code = append(code, 0x23, byte(arr), byte(arr>>8)) // STORE_GLOBAL arr

	appendPush := func(n byte) {
		code = append(code, 0x22, byte(arr), byte(arr>>8)) // LOAD_GLOBAL arr
		code = append(code, 0x13, n)                       // PUSH_I8 n
		code = append(code, 0x66, 1, byte(push), byte(push>>8)) // CALL_METHOD 1,push
		code = append(code, 0x01)                          // POP (discard new length)
	}
	appendPush(10)
	appendPush(20)
	appendPush(30)

	// sliced = arr.slice(1, 3) -> [20, 30]
	code = append(code, 0x22, byte(arr), byte(arr>>8)) // LOAD_GLOBAL arr
	code = append(code, 0x13, 1)                       // PUSH_I8 1
	code = append(code, 0x13, 3)                       // PUSH_I8 3
	code = append(code, 0x66, 2, byte(slice), byte(slice>>8)) // CALL_METHOD 2,slice
	code = append(code, 0x23, byte(sliced), byte(sliced>>8))  // STORE_GLOBAL sliced

	// print(sliced.length())
	code = append(code, 0x22, byte(sliced), byte(sliced>>8))   // LOAD_GLOBAL sliced
	code = append(code, 0x66, 0, byte(length), byte(length>>8)) // CALL_METHOD 0,length
	code = append(code, 0xF0) // PRINT

	// print(arr.indexOf(20))
	code = append(code, 0x22, byte(arr), byte(arr>>8)) // LOAD_GLOBAL arr
	code = append(code, 0x13, 20)                      // PUSH_I8 20
	code = append(code, 0x66, 1, byte(indexOf), byte(indexOf>>8)) // CALL_METHOD 1,indexOf
	code = append(code, 0xF0) // PRINT

	code = append(code, 0xFF) // HALT

	m := b.Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := runToFinish(t, v, 1)
	require.Equalf(t, StatusFinished, res.Status, "err = %v", res.Err)
	require.Equal(t, []string{"2", "1"}, plat.printed)
}

// TestCallMethodStringBuiltins exercises CALL_METHOD dispatch against the
// String built-ins: slice and indexOf, plus the pre-existing length.
func TestCallMethodStringBuiltins(t *testing.T) {
	b := dsb.NewBuilder()
	greeting := b.Constant("hello world")
	slice := b.Constant("slice")
	indexOf := b.Constant("indexOf")
	length := b.Constant("length")
	needle := b.Constant("world")

	code := []byte{0x17, byte(greeting), byte(greeting >> 8)} // PUSH_STR "hello world"
	code = append(code, 0x13, 6, 0x13, 11)                    // PUSH_I8 6; PUSH_I8 11
	code = append(code, 0x66, 2, byte(slice), byte(slice>>8)) // CALL_METHOD 2,slice -> "world"
	code = append(code, 0x66, 0, byte(length), byte(length>>8)) // CALL_METHOD 0,length -> 5
	code = append(code, 0xF0) // PRINT

	code = append(code, 0x17, byte(greeting), byte(greeting>>8)) // PUSH_STR "hello world"
	code = append(code, 0x17, byte(needle), byte(needle>>8))     // PUSH_STR "world"
	code = append(code, 0x66, 1, byte(indexOf), byte(indexOf>>8)) // CALL_METHOD 1,indexOf -> 6
	code = append(code, 0xF0)                                    // PRINT

	code = append(code, 0xFF) // HALT

	m := b.Code(code, nil).Finish()
	pool := NewValuePool(m.HeapSize())
	plat := newFakePlatform()
	v := New(m, pool, plat)

	res := runToFinish(t, v, 1)
	require.Equalf(t, StatusFinished, res.Status, "err = %v", res.Err)
	require.Equal(t, []string{"5", "6"}, plat.printed)
}
