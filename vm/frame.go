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

// maxLocals bounds a frame's local slots; locals are addressed by a single
// operand byte in the bytecode (§4.2 LOAD_LOCAL/STORE_LOCAL), so 256 is the
// natural ceiling rather than an arbitrary limit.
const maxLocals = 256

// frame is one call-frame (§3.4): the return address, the local variable
// slots, the operand-stack depth at call time (so RETURN can truncate the
// stack back to it regardless of how much the callee pushed and popped),
// and a name used for diagnostics and stack traces.
type frame struct {
	returnPC  int32 // -1 marks the top-level (outermost) frame
	locals    [maxLocals]Value
	stackBase int
	name      string

	this    Value // receiver bound by CALL_METHOD dispatch to an Object field
	hasThis bool
}

// newFrame builds a frame for a call to fn, returning to returnPC with the
// operand stack currently at depth stackBase.
func newFrame(name string, returnPC int32, stackBase int) *frame {
	return &frame{name: name, returnPC: returnPC, stackBase: stackBase}
}
