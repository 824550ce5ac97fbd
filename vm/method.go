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

// execCallMethod implements CALL_METHOD argc,nameIdx (§4.3): the stack
// holds the receiver below argc call arguments. A built-in Array/String
// method is dispatched directly; an Object receiver falls through to its
// class's fields, treating a Function-typed field as the method (§9
// "method dispatch via CALL_METHOD looks up a function-typed field").
func (v *VM) execCallMethod(name string, argc int) (Status, error) {
	args, err := v.popN(argc)
	if err != nil {
		return v.fault(err)
	}
	receiver, err := v.pop()
	if err != nil {
		return v.fault(err)
	}

	if m, ok := lookupBuiltinMethod(receiver, name); ok {
		result, err := m(v.pool, receiver, args)
		if err != nil {
			return v.fault(err)
		}
		v.push(result)
		return StatusOK, nil
	}

	if receiver.Tag != TagObject {
		return v.fault(ErrUnknownMethod)
	}
	field := v.pool.ObjectGetField(receiver.Ref, name)
	if field.Tag != TagFunction {
		return v.fault(ErrUnknownMethod)
	}
	ref, ok := v.pool.FunctionRef(field.Ref)
	if !ok {
		return v.fault(ErrBadFunctionIndex)
	}
	// Re-push args so callMethodFunction's popN sees them again; it expects
	// argc values already on the stack in call order.
	for _, a := range args {
		v.push(a)
	}
	if err := v.callMethodFunction(ref.FunctionIndex, argc, receiver, name); err != nil {
		return v.fault(err)
	}
	return StatusOK, nil
}
