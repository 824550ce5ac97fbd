// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package vm

// fakePlatform is a minimal in-memory Platform double used by this
// package's own tests; the real device binding lives in the platform
// package, which this package does not import (to keep vm dependency-free
// of any concrete device binding).
type fakePlatform struct {
	printed []string
	native  map[NativeID]func(args []Value, pool *ValuePool) (Value, error)
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{native: make(map[NativeID]func(args []Value, pool *ValuePool) (Value, error))}
}

func (f *fakePlatform) ConsoleLog(s string) {
	f.printed = append(f.printed, s)
}

func (f *fakePlatform) CallNative(id NativeID, args []Value, pool *ValuePool) (Value, error) {
	if fn, ok := f.native[id]; ok {
		return fn(args, pool)
	}
	return Null, nil
}
