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

import "math"

func isNumeric(v Value) bool {
	return v.Tag == TagInt32 || v.Tag == TagFloat32
}

func asFloat32(v Value) float32 {
	if v.Tag == TagFloat32 {
		return v.F32
	}
	return float32(v.I32)
}

// execAdd implements §4.2 ADD: Int32+Int32 wraps (Go's int32 addition
// already wraps modulo 2^32); a Float32 operand promotes the result;
// either side being a String triggers concatenation of both sides
// stringified.
func (v *VM) execAdd() (Status, error) {
	b, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fault(err)
	}

	if a.Tag == TagString || b.Tag == TagString {
		sa := ToString(a, v.pool)
		sb := ToString(b, v.pool)
		ref, err := v.allocWithRetry(func() HeapRef { return v.pool.AllocString(sa + sb) })
		if err != nil {
			return v.fault(err)
		}
		v.push(StringValue(ref))
		return StatusOK, nil
	}
	if !isNumeric(a) || !isNumeric(b) {
		return v.fault(ErrTypeMismatch)
	}
	if a.Tag == TagInt32 && b.Tag == TagInt32 {
		v.push(Int32Value(a.I32 + b.I32))
		return StatusOK, nil
	}
	v.push(Float32Value(asFloat32(a) + asFloat32(b)))
	return StatusOK, nil
}

// execArith implements SUB/MUL/DIV/MOD: numeric only (§4.2).
func (v *VM) execArith(op Opcode) (Status, error) {
	b, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	if !isNumeric(a) || !isNumeric(b) {
		return v.fault(ErrTypeMismatch)
	}

	bothInt := a.Tag == TagInt32 && b.Tag == TagInt32
	if bothInt && (op == OpDiv || op == OpMod) && b.I32 == 0 {
		return v.fault(ErrDivisionByZero)
	}

	if bothInt {
		switch op {
		case OpSub:
			v.push(Int32Value(a.I32 - b.I32))
		case OpMul:
			v.push(Int32Value(a.I32 * b.I32))
		case OpDiv:
			v.push(Int32Value(a.I32 / b.I32))
		case OpMod:
			v.push(Int32Value(a.I32 % b.I32))
		}
		return StatusOK, nil
	}

	fa, fb := asFloat32(a), asFloat32(b)
	switch op {
	case OpSub:
		v.push(Float32Value(fa - fb))
	case OpMul:
		v.push(Float32Value(fa * fb))
	case OpDiv:
		// §4.2: Float32 division by zero yields IEEE-754 inf/NaN, not an error.
		v.push(Float32Value(fa / fb))
	case OpMod:
		v.push(Float32Value(float32(math.Mod(float64(fa), float64(fb)))))
	}
	return StatusOK, nil
}

// execNeg implements NEG: numeric only. Negating Int32's minimum value
// wraps back to itself (two's complement), per the documented resolution
// of the open question on INT32_MIN.
func (v *VM) execNeg() (Status, error) {
	a, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	switch a.Tag {
	case TagInt32:
		v.push(Int32Value(-a.I32))
	case TagFloat32:
		v.push(Float32Value(-a.F32))
	default:
		return v.fault(ErrTypeMismatch)
	}
	return StatusOK, nil
}

// execStrConcat implements STR_CONCAT: both operands stringified per §3.1.
func (v *VM) execStrConcat() (Status, error) {
	b, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	s := ToString(a, v.pool) + ToString(b, v.pool)
	ref, err := v.allocWithRetry(func() HeapRef { return v.pool.AllocString(s) })
	if err != nil {
		return v.fault(err)
	}
	v.push(StringValue(ref))
	return StatusOK, nil
}

// execCompare implements LT/LE/GT/GE: numeric compare (Int32/Float32, mixed
// allowed), or lexicographic byte compare for String (§4.2).
func (v *VM) execCompare(op Opcode) (Status, error) {
	b, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	a, err := v.pop()
	if err != nil {
		return v.fault(err)
	}

	var less, equal bool
	switch {
	case a.Tag == TagString && b.Tag == TagString:
		sa, sb := v.pool.StringContent(a.Ref), v.pool.StringContent(b.Ref)
		less = sa < sb
		equal = sa == sb
	case a.Tag == TagInt32 && b.Tag == TagInt32:
		// Exact integer compare: float32's 24-bit mantissa can't distinguish
		// adjacent Int32 values past 2^24, so this must not go through
		// asFloat32 the way the mixed-type branch below does.
		less = a.I32 < b.I32
		equal = a.I32 == b.I32
	case isNumeric(a) && isNumeric(b):
		fa, fb := asFloat32(a), asFloat32(b)
		less = fa < fb
		equal = fa == fb
	default:
		return v.fault(ErrTypeMismatch)
	}

	var result bool
	switch op {
	case OpLt:
		result = less
	case OpLe:
		result = less || equal
	case OpGt:
		result = !less && !equal
	case OpGe:
		result = !less
	}
	v.push(BoolValue(result))
	return StatusOK, nil
}
