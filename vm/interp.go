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

// fault routes an opcode failure either to the active exception handler
// (§4.3 "per-instruction error handling") or, for the fatal kinds listed in
// §7 (StackError, decode faults) and OOM, straight up to Execute.
func (v *VM) fault(err error) (Status, error) {
	switch err {
	case ErrOutOfMemory:
		return StatusOutOfMemory, err
	case ErrStackUnderflow, ErrInvalidOpcode, ErrArityMismatch, ErrNoActiveFrame,
		ErrBadFunctionIndex, ErrBadConstantIndex, ErrBadGlobalIndex, ErrNoActiveHandler:
		return StatusError, err
	default:
		ref := v.pool.AllocString(err.Error())
		if ref.IsNil() {
			return StatusError, err
		}
		return v.throwValue(StringValue(ref))
	}
}

// throwValue is THROW's core: unwind to the nearest handler and resume at
// its catch_pc, or escalate to a fatal Error if none is active (§3.5,
// §4.3).
func (v *VM) throwValue(val Value) (Status, error) {
	if len(v.handlers) == 0 {
		return StatusError, errUnhandledThrow(val, v.pool)
	}
	h := v.handlers[len(v.handlers)-1]
	v.handlers = v.handlers[:len(v.handlers)-1]

	if h.stackDepth <= len(v.stack) {
		v.stack = v.stack[:h.stackDepth]
	}
	if h.callDepth <= len(v.frames) {
		v.frames = v.frames[:h.callDepth]
	}

	v.exception = val
	v.hasException = true
	v.push(val)
	v.pc = h.catchPC
	return StatusOK, nil
}

// step decodes and executes exactly one instruction.
func (v *VM) step() (Status, error) {
	op := Opcode(v.module.Code[v.pc])
	info, ok := opcodeTable[op]
	if !ok {
		return StatusError, ErrInvalidOpcode
	}
	v.pc++
	if int(v.pc)+info.operandSize > len(v.module.Code) {
		return StatusError, ErrInvalidOpcode
	}
	operand := v.module.Code[v.pc : int(v.pc)+info.operandSize]
	v.pc += uint32(info.operandSize)

	switch op {
	case OpNop:

	case OpPop:
		if _, err := v.pop(); err != nil {
			return v.fault(err)
		}
	case OpDup:
		top, err := v.peek()
		if err != nil {
			return v.fault(err)
		}
		v.push(top)
	case OpSwap:
		if len(v.stack) < 2 {
			return v.fault(ErrStackUnderflow)
		}
		n := len(v.stack)
		v.stack[n-1], v.stack[n-2] = v.stack[n-2], v.stack[n-1]

	case OpPushNull:
		v.push(Null)
	case OpPushTrue:
		v.push(BoolValue(true))
	case OpPushFalse:
		v.push(BoolValue(false))
	case OpPushI8:
		v.push(Int32Value(int32(int8(operand[0]))))
	case OpPushI16:
		v.push(Int32Value(int32(int16(u16le(operand)))))
	case OpPushI32:
		v.push(Int32Value(int32(u32le(operand))))
	case OpPushF32:
		v.push(Float32Value(math.Float32frombits(u32le(operand))))
	case OpPushStr:
		idx := u16le(operand)
		if int(idx) >= len(v.module.Constants) {
			return v.fault(ErrBadConstantIndex)
		}
		s := v.module.Constants[idx]
		ref, err := v.allocWithRetry(func() HeapRef { return v.pool.AllocString(s) })
		if err != nil {
			return v.fault(err)
		}
		v.push(StringValue(ref))

	case OpLoadLocal:
		fr, err := v.currentFrame()
		if err != nil {
			return v.fault(err)
		}
		v.push(fr.locals[operand[0]])
	case OpStoreLocal:
		fr, err := v.currentFrame()
		if err != nil {
			return v.fault(err)
		}
		val, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		fr.locals[operand[0]] = val

	case OpLoadGlobal:
		idx := u16le(operand)
		if int(idx) >= len(v.globals) {
			return v.fault(ErrBadGlobalIndex)
		}
		v.push(v.globals[idx])
	case OpStoreGlobal:
		idx := u16le(operand)
		if int(idx) >= len(v.globals) {
			return v.fault(ErrBadGlobalIndex)
		}
		val, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		v.globals[idx] = val

	case OpAdd:
		if status, err := v.execAdd(); err != nil {
			return status, err
		}
	case OpSub, OpMul, OpDiv, OpMod:
		if status, err := v.execArith(op); err != nil {
			return status, err
		}
	case OpNeg:
		if status, err := v.execNeg(); err != nil {
			return status, err
		}
	case OpStrConcat:
		if status, err := v.execStrConcat(); err != nil {
			return status, err
		}

	case OpEq, OpNe:
		b, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		a, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		eq := Equals(a, b, v.pool)
		if op == OpNe {
			eq = !eq
		}
		v.push(BoolValue(eq))
	case OpLt, OpLe, OpGt, OpGe:
		if status, err := v.execCompare(op); err != nil {
			return status, err
		}
	case OpNot:
		a, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		v.push(BoolValue(!a.Truthy(v.pool)))
	case OpAnd, OpOr:
		b, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		a, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		// §4.2: AND/OR return the selecting operand value; short-circuiting
		// is the compiler's responsibility, the VM just combines the two
		// top-of-stack values already evaluated.
		if op == OpAnd {
			if !a.Truthy(v.pool) {
				v.push(a)
			} else {
				v.push(b)
			}
		} else {
			if a.Truthy(v.pool) {
				v.push(a)
			} else {
				v.push(b)
			}
		}

	case OpJump:
		v.pc = uint32(int32(v.pc) + i32le(operand))
	case OpJumpIf, OpJumpIfNot:
		cond, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		take := cond.Truthy(v.pool)
		if op == OpJumpIfNot {
			take = !take
		}
		if take {
			v.pc = uint32(int32(v.pc) + i32le(operand))
		}

	case OpCall:
		fnIdx := u16le(operand[0:2])
		argc := int(operand[2])
		if err := v.call(fnIdx, argc, "<call>"); err != nil {
			return v.fault(err)
		}
	case OpCallIndirect:
		argc := int(operand[0])
		fnVal, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		if fnVal.Tag != TagFunction {
			return v.fault(ErrTypeMismatch)
		}
		ref, ok := v.pool.FunctionRef(fnVal.Ref)
		if !ok {
			return v.fault(ErrBadFunctionIndex)
		}
		if err := v.call(ref.FunctionIndex, argc, "<indirect>"); err != nil {
			return v.fault(err)
		}
	case OpCallNative:
		nativeID := NativeID(u16le(operand[0:2]))
		argc := int(operand[2])
		args, err := v.popN(argc)
		if err != nil {
			return v.fault(err)
		}
		if nativeID == NativeRegisterCallback {
			if len(args) != 2 || args[0].Tag != TagString {
				return v.fault(ErrTypeMismatch)
			}
			v.callbacks[v.pool.StringContent(args[0].Ref)] = args[1]
			v.push(Null)
			break
		}
		if nativeID == NativeSystemSleep {
			if len(args) != 1 || args[0].Tag != TagInt32 {
				return v.fault(ErrTypeMismatch)
			}
			v.RequestSleep(int64(args[0].I32))
			v.push(Null)
			return StatusYield, nil
		}
		result, err := v.platform.CallNative(nativeID, args, v.pool)
		if err != nil {
			return v.fault(err)
		}
		v.push(result)
	case OpCallMethod:
		argc := int(operand[0])
		nameIdx := u16le(operand[1:3])
		if int(nameIdx) >= len(v.module.Constants) {
			return v.fault(ErrBadConstantIndex)
		}
		name := v.module.Constants[nameIdx]
		if status, err := v.execCallMethod(name, argc); err != nil {
			return status, err
		}
	case OpReturn:
		retVal, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		done, err := v.ret(retVal)
		if err != nil {
			return v.fault(err)
		}
		if done {
			return StatusFinished, nil
		}

	case OpLoadFunction:
		idx := u16le(operand)
		if int(idx) >= len(v.module.Functions) {
			return v.fault(ErrBadFunctionIndex)
		}
		fn := v.module.Functions[idx]
		ref, err := v.allocWithRetry(func() HeapRef { return v.pool.AllocFunction(idx, fn.ParamCount) })
		if err != nil {
			return v.fault(err)
		}
		v.push(FunctionValue(ref))

	case OpGetField:
		if status, err := v.execGetField(operand); err != nil {
			return status, err
		}
	case OpSetField:
		if status, err := v.execSetField(operand); err != nil {
			return status, err
		}
	case OpGetIndex:
		if status, err := v.execGetIndex(); err != nil {
			return status, err
		}
	case OpSetIndex:
		if status, err := v.execSetIndex(); err != nil {
			return status, err
		}

	case OpNewObject:
		idx := u16le(operand)
		if int(idx) >= len(v.module.Constants) {
			return v.fault(ErrBadConstantIndex)
		}
		className := v.module.Constants[idx]
		ref, err := v.allocWithRetry(func() HeapRef { return v.pool.AllocObject(className) })
		if err != nil {
			return v.fault(err)
		}
		v.push(ObjectValue(ref))
	case OpNewArray:
		sizeVal, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		if sizeVal.Tag != TagInt32 || sizeVal.I32 < 0 {
			return v.fault(ErrIndexOutOfRange)
		}
		ref, err := v.allocWithRetry(func() HeapRef { return v.pool.AllocArray(int(sizeVal.I32)) })
		if err != nil {
			return v.fault(err)
		}
		v.push(ArrayValue(ref))

	case OpTry:
		offset := i32le(operand)
		v.handlers = append(v.handlers, handler{
			catchPC:    uint32(int32(v.pc) + offset),
			stackDepth: len(v.stack),
			callDepth:  len(v.frames),
		})
	case OpEndTry:
		if len(v.handlers) == 0 {
			return v.fault(ErrNoActiveHandler)
		}
		v.handlers = v.handlers[:len(v.handlers)-1]
	case OpThrow:
		val, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		return v.throwValue(val)

	case OpPrint:
		top, err := v.pop()
		if err != nil {
			return v.fault(err)
		}
		v.platform.ConsoleLog(ToString(top, v.pool))
	case OpTemplateFormat:
		argc := int(operand[0])
		if status, err := v.execTemplateFormat(argc); err != nil {
			return status, err
		}
	case OpHalt:
		return StatusFinished, nil

	default:
		return StatusError, ErrInvalidOpcode
	}

	return StatusOK, nil
}
