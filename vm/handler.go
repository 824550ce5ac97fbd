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

// handler is one entry of the exception-handler stack (§3.5), pushed by
// TRY and popped by END_TRY or by THROW unwinding to it. stackDepth and
// callDepth record how far the operand stack and call stack must be
// truncated before resuming at catchPC, so a throw from deep inside nested
// calls and expression evaluation unwinds cleanly in one step.
type handler struct {
	catchPC    uint32
	stackDepth int
	callDepth  int
}
