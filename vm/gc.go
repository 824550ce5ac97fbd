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

// GCStats summarizes one collection cycle, useful for logging and tests.
type GCStats struct {
	FreedStrings   int
	FreedArrays    int
	FreedObjects   int
	FreedFunctions int
	FreedBytes     uint32
}

// Collect runs one precise mark-and-sweep cycle over the pool, using roots
// as the GC root set (§3.2/§4.4): the operand stack, every call frame's
// locals, every registered callback value, all globals, any in-flight
// exception value, and "this" if present. Collect is invoked by the
// interpreter between opcodes, and by its one-retry path after an
// allocation fails; the pool's own Alloc* methods never call it, which is
// what makes re-entrancy impossible by construction (§9).
func (p *ValuePool) Collect(roots []Value) GCStats {
	p.clearMarks()
	for _, r := range roots {
		p.mark(r)
	}
	return p.sweep()
}

func (p *ValuePool) clearMarks() {
	for i := range p.strings {
		p.strings[i].marked = false
	}
	for i := range p.arrays {
		p.arrays[i].marked = false
	}
	for i := range p.objects {
		p.objects[i].marked = false
	}
	for i := range p.funcs {
		p.funcs[i].marked = false
	}
}

// mark marks v's heap cell (if any) and recurses into its contents,
// stopping at cells already marked so reference cycles terminate.
func (p *ValuePool) mark(v Value) {
	if !v.IsHeapRef() || v.Ref.IsNil() {
		return
	}
	switch v.Ref.kind {
	case kindString:
		if int(v.Ref.idx) > len(p.strings) {
			return
		}
		c := &p.strings[v.Ref.idx-1]
		if c.freed || c.marked {
			return
		}
		c.marked = true

	case kindArray:
		if int(v.Ref.idx) > len(p.arrays) {
			return
		}
		c := &p.arrays[v.Ref.idx-1]
		if c.freed || c.marked {
			return
		}
		c.marked = true
		for _, elem := range c.elems {
			p.mark(elem)
		}

	case kindObject:
		if int(v.Ref.idx) > len(p.objects) {
			return
		}
		c := &p.objects[v.Ref.idx-1]
		if c.freed || c.marked {
			return
		}
		c.marked = true
		for _, f := range c.fields {
			p.mark(f.value)
		}

	case kindFunction:
		if int(v.Ref.idx) > len(p.funcs) {
			return
		}
		c := &p.funcs[v.Ref.idx-1]
		if c.freed || c.marked {
			return
		}
		c.marked = true
	}
}

// sweep destroys every unmarked, not-yet-freed cell in each type-local
// registry and refunds its byte cost. The intern table is the live-strings
// registry itself (via the interning map pruned here), so a freed string's
// content can never be returned by a later AllocString lookup — §4.4's
// intern invariant.
func (p *ValuePool) sweep() GCStats {
	var stats GCStats

	for i := range p.strings {
		c := &p.strings[i]
		if c.freed || c.marked {
			continue
		}
		if p.intern[c.data] == uint32(i+1) {
			delete(p.intern, c.data)
		}
		p.allocated -= c.size
		stats.FreedBytes += c.size
		stats.FreedStrings++
		c.freed = true
		c.data = ""
	}

	for i := range p.arrays {
		c := &p.arrays[i]
		if c.freed || c.marked {
			continue
		}
		p.allocated -= c.size
		stats.FreedBytes += c.size
		stats.FreedArrays++
		c.freed = true
		c.elems = nil
	}

	for i := range p.objects {
		c := &p.objects[i]
		if c.freed || c.marked {
			continue
		}
		p.allocated -= c.size
		stats.FreedBytes += c.size
		stats.FreedObjects++
		c.freed = true
		c.fields = nil
	}

	for i := range p.funcs {
		c := &p.funcs[i]
		if c.freed || c.marked {
			continue
		}
		p.allocated -= c.size
		stats.FreedBytes += c.size
		stats.FreedFunctions++
		c.freed = true
	}

	return stats
}
