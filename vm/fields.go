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

// execGetField implements GET_FIELD n: name = constants[n]; Object fields,
// or intrinsic properties of Array/String (§4.3).
func (v *VM) execGetField(operand []byte) (Status, error) {
	idx := u16le(operand)
	if int(idx) >= len(v.module.Constants) {
		return v.fault(ErrBadConstantIndex)
	}
	name := v.module.Constants[idx]

	receiver, err := v.pop()
	if err != nil {
		return v.fault(err)
	}

	if val, ok := getIntrinsicField(receiver, name, v.pool); ok {
		v.push(val)
		return StatusOK, nil
	}
	if receiver.Tag != TagObject {
		return v.fault(ErrIndexOutOfRange)
	}
	v.push(v.pool.ObjectGetField(receiver.Ref, name))
	return StatusOK, nil
}

// execSetField implements SET_FIELD n: only Object receivers are writable;
// Array/String intrinsics (length) are read-only.
func (v *VM) execSetField(operand []byte) (Status, error) {
	idx := u16le(operand)
	if int(idx) >= len(v.module.Constants) {
		return v.fault(ErrBadConstantIndex)
	}
	name := v.module.Constants[idx]

	val, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	receiver, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	if receiver.Tag != TagObject {
		return v.fault(ErrIndexOutOfRange)
	}
	if !v.pool.ObjectSetField(receiver.Ref, name, val) {
		return v.fault(ErrOutOfMemory)
	}
	return StatusOK, nil
}

// execGetIndex implements GET_INDEX: Array only, bounds-checked, with an
// out-of-range read yielding Null (§4.3).
func (v *VM) execGetIndex() (Status, error) {
	idxVal, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	receiver, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	if receiver.Tag != TagArray || idxVal.Tag != TagInt32 {
		return v.fault(ErrTypeMismatch)
	}
	v.push(v.pool.ArrayGet(receiver.Ref, int(idxVal.I32)))
	return StatusOK, nil
}

// execSetIndex implements SET_INDEX: negative index is an error; an
// out-of-range positive index extends the array with Null (§4.3).
func (v *VM) execSetIndex() (Status, error) {
	val, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	idxVal, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	receiver, err := v.pop()
	if err != nil {
		return v.fault(err)
	}
	if receiver.Tag != TagArray || idxVal.Tag != TagInt32 {
		return v.fault(ErrTypeMismatch)
	}
	if idxVal.I32 < 0 {
		return v.fault(ErrIndexOutOfRange)
	}
	if !v.pool.ArraySet(receiver.Ref, int(idxVal.I32), val) {
		return v.fault(ErrOutOfMemory)
	}
	return StatusOK, nil
}
