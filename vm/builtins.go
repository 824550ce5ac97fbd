// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package vm

import "strings"

// getIntrinsicField resolves §4.3 GET_FIELD's "intrinsic properties of
// Array (length) and String (length)". ok is false when name is not an
// intrinsic of the receiver's tag, meaning the caller should fall through
// to Object field lookup (or fail for any other tag).
func getIntrinsicField(receiver Value, name string, pool *ValuePool) (Value, bool) {
	switch receiver.Tag {
	case TagArray:
		if name == "length" {
			return Int32Value(int32(pool.ArrayLen(receiver.Ref))), true
		}
	case TagString:
		if name == "length" {
			return Int32Value(int32(pool.StringLen(receiver.Ref))), true
		}
	}
	return Null, false
}

// builtinMethod is a built-in Array/String method exposed through
// CALL_METHOD. Built-ins are intentionally few; anything richer belongs in
// the compiler's standard library, compiled down to ordinary function calls.
type builtinMethod func(pool *ValuePool, receiver Value, args []Value) (Value, error)

var arrayMethods = map[string]builtinMethod{
	"length": func(pool *ValuePool, receiver Value, args []Value) (Value, error) {
		return Int32Value(int32(pool.ArrayLen(receiver.Ref))), nil
	},
	"push": func(pool *ValuePool, receiver Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return Null, ErrTypeMismatch
		}
		n := pool.ArrayLen(receiver.Ref)
		if !pool.ArraySet(receiver.Ref, n, args[0]) {
			return Null, ErrOutOfMemory
		}
		return Int32Value(int32(n + 1)), nil
	},
	// slice(start[, end]) returns a new Array over [start, end), both ends
	// clamped to the receiver's bounds; either index may be negative to
	// count back from the end, matching the compiler's intended string/
	// array symmetry.
	"slice": func(pool *ValuePool, receiver Value, args []Value) (Value, error) {
		n := pool.ArrayLen(receiver.Ref)
		start, end, err := sliceBounds(args, n)
		if err != nil {
			return Null, err
		}
		ref := pool.AllocArray(end - start)
		if ref.IsNil() {
			return Null, ErrOutOfMemory
		}
		for i := start; i < end; i++ {
			pool.ArraySet(ref, i-start, pool.ArrayGet(receiver.Ref, i))
		}
		return ArrayValue(ref), nil
	},
	// indexOf(value) returns the index of the first element Equal to value,
	// or -1 if none matches.
	"indexOf": func(pool *ValuePool, receiver Value, args []Value) (Value, error) {
		if len(args) != 1 {
			return Null, ErrTypeMismatch
		}
		n := pool.ArrayLen(receiver.Ref)
		for i := 0; i < n; i++ {
			if Equals(pool.ArrayGet(receiver.Ref, i), args[0], pool) {
				return Int32Value(int32(i)), nil
			}
		}
		return Int32Value(-1), nil
	},
}

var stringMethods = map[string]builtinMethod{
	"length": func(pool *ValuePool, receiver Value, args []Value) (Value, error) {
		return Int32Value(int32(pool.StringLen(receiver.Ref))), nil
	},
	// slice(start[, end]) returns a new String over [start, end), with the
	// same bounds/negative-index handling as the Array method above.
	"slice": func(pool *ValuePool, receiver Value, args []Value) (Value, error) {
		s := pool.StringContent(receiver.Ref)
		start, end, err := sliceBounds(args, len(s))
		if err != nil {
			return Null, err
		}
		ref := pool.AllocString(s[start:end])
		if ref.IsNil() {
			return Null, ErrOutOfMemory
		}
		return StringValue(ref), nil
	},
	// indexOf(substr) returns the byte offset of the first occurrence of
	// substr, or -1 if it does not occur.
	"indexOf": func(pool *ValuePool, receiver Value, args []Value) (Value, error) {
		if len(args) != 1 || args[0].Tag != TagString {
			return Null, ErrTypeMismatch
		}
		s := pool.StringContent(receiver.Ref)
		sub := pool.StringContent(args[0].Ref)
		return Int32Value(int32(strings.Index(s, sub))), nil
	},
}

// sliceBounds parses a (start[, end]) builtin-method argument list against a
// receiver of length n, clamping both ends into [0, n] and resolving
// negative indices by counting back from n.
func sliceBounds(args []Value, n int) (start, end int, err error) {
	if len(args) > 2 {
		return 0, 0, ErrTypeMismatch
	}
	start, end = 0, n
	if len(args) >= 1 {
		if args[0].Tag != TagInt32 {
			return 0, 0, ErrTypeMismatch
		}
		start = clampIndex(int(args[0].I32), n)
	}
	if len(args) >= 2 {
		if args[1].Tag != TagInt32 {
			return 0, 0, ErrTypeMismatch
		}
		end = clampIndex(int(args[1].I32), n)
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// lookupBuiltinMethod resolves a CALL_METHOD receiver/name pair against the
// built-in Array/String method tables. ok is false when the receiver's tag
// carries no built-ins (Object/Function/etc.), meaning the caller should
// fall through to Object field-as-Function dispatch.
func lookupBuiltinMethod(receiver Value, name string) (builtinMethod, bool) {
	switch receiver.Tag {
	case TagArray:
		m, ok := arrayMethods[name]
		return m, ok
	case TagString:
		m, ok := stringMethods[name]
		return m, ok
	default:
		return nil, false
	}
}
