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

// roots gathers the GC root set per §3.2: the operand stack, every call
// frame's locals, every registered callback value, all globals, any
// in-flight exception value, and the current "this" if present.
func (v *VM) roots() []Value {
	n := len(v.stack) + len(v.globals) + len(v.callbacks) + 1
	for _, fr := range v.frames {
		n += len(fr.locals)
	}
	out := make([]Value, 0, n)

	out = append(out, v.stack...)
	out = append(out, v.globals...)

	for _, fr := range v.frames {
		out = append(out, fr.locals[:]...)
		if fr.hasThis {
			out = append(out, fr.this)
		}
	}
	for _, cb := range v.callbacks {
		out = append(out, cb)
	}
	for _, cb := range v.callbackQ {
		out = append(out, cb.args...)
	}
	if v.hasException {
		out = append(out, v.exception)
	}
	return out
}

// collect runs one GC cycle using the VM's current root set. Called between
// instructions by vm.Execute's loop and by allocWithRetry after a failed
// allocation; the pool's allocators never call it (§3.2/§9).
func (v *VM) collect() GCStats {
	return v.pool.Collect(v.roots())
}
