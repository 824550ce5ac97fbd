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

// cellOverhead is the fixed bookkeeping cost charged against an applet's
// heap budget for every allocated cell, on top of its content: the budget-
// enforcement behavior is fixed, not a byte-exact layout, so this is kept
// small and constant so tests can reason about exact allocated totals.
const cellOverhead uint32 = 16

// valueSlotSize is the charged cost of one Value-sized slot inside an array
// or object cell.
const valueSlotSize uint32 = 16

// HeapKind discriminates which per-kind registry a HeapRef indexes into.
type HeapKind uint8

const (
	kindNone HeapKind = iota
	kindString
	kindArray
	kindObject
	kindFunction
)

// HeapRef is an opaque handle into a ValuePool. The zero value is the null
// reference returned by a failed allocation (§3.2).
//
// pool carries the owning pool's identity so that, in every build, passing
// a HeapRef minted by one applet's pool into another's panics (checkOwner)
// instead of silently aliasing memory — the concrete mechanism behind the
// "heap references are valid only within the owning applet's pool" rule in
// §3.1/§9.
type HeapRef struct {
	kind HeapKind
	idx  uint32 // 1-based index into the owning registry; 0 means invalid
	pool uint32 // owning pool's generation id
}

// IsNil reports whether ref is the null/OOM sentinel reference.
func (r HeapRef) IsNil() bool { return r.idx == 0 }

type stringCell struct {
	data   string
	size   uint32
	marked bool
	freed  bool
}

type arrayCell struct {
	elems  []Value
	size   uint32
	marked bool
	freed  bool
}

// orderedField is one entry of an Object's insertion-ordered field list.
type orderedField struct {
	name  string
	value Value
}

type objectCell struct {
	className string
	fields    []orderedField
	size      uint32
	marked    bool
	freed     bool
}

type functionCell struct {
	functionIndex uint16
	paramCount    uint8
	size          uint32
	marked        bool
	freed         bool
}

var nextPoolID uint32

// ValuePool is a fixed-byte-budget per-applet allocator for strings,
// arrays, objects, and function references, with precise mark-and-sweep
// GC. It never grows past HeapSize and never calls the system allocator
// beyond that budget — the accounting, not the Go runtime's own heap, is
// what is bounded.
//
// Grounded on probe-lang/lang/vm/memory.go's Memory type: a monotone
// region tracker with a configurable byte limit, bounds-checked access,
// and a scrub-on-free step to surface use-after-free bugs immediately.
// dialOS generalizes that flat byte-addressable model to typed cells
// (strings/arrays/objects/function refs) because the VM operates on tagged
// Values, not raw memory words.
type ValuePool struct {
	id        uint32
	heapSize  uint32
	allocated uint32

	strings  []stringCell
	arrays   []arrayCell
	objects  []objectCell
	funcs    []functionCell

	intern map[string]uint32 // string content -> 1-based index into strings
}

// NewValuePool creates a pool with the given byte budget. A zero heapSize
// is rejected by the caller (dsb.Module.HeapSize already substitutes the
// §3.3 default of 8192 before this is called).
func NewValuePool(heapSize uint32) *ValuePool {
	nextPoolID++
	return &ValuePool{
		id:       nextPoolID,
		heapSize: heapSize,
		intern:   make(map[string]uint32),
	}
}

// HeapSize returns the pool's fixed byte budget.
func (p *ValuePool) HeapSize() uint32 { return p.heapSize }

// Allocated returns the current number of accounted bytes in use.
func (p *ValuePool) Allocated() uint32 { return p.allocated }

// reserve checks and charges size bytes against the budget. It never
// triggers GC itself (§3.2/§4.4: allocation functions never trigger GC
// internally — the VM schedules GC between opcodes).
func (p *ValuePool) reserve(size uint32) bool {
	if p.allocated+size > p.heapSize {
		return false
	}
	p.allocated += size
	return true
}

func (p *ValuePool) ref(kind HeapKind, idx uint32) HeapRef {
	return HeapRef{kind: kind, idx: idx, pool: p.id}
}

// checkOwner panics (a programmer-error invariant violation, not a
// user-triggerable fault) if ref was minted by a different pool.
func (p *ValuePool) checkOwner(ref HeapRef) {
	if !ref.IsNil() && ref.pool != p.id {
		panic("vm: heap reference used against a foreign pool")
	}
}

// ---- Strings ---------------------------------------------------------------

// AllocString interns s: if a live string cell with identical content
// already exists, its reference is returned without charging the budget
// again (§3.2 "String interning"). Otherwise a new cell is allocated.
// Returns the nil HeapRef on OOM.
func (p *ValuePool) AllocString(s string) HeapRef {
	if idx, ok := p.intern[s]; ok {
		return p.ref(kindString, idx)
	}
	size := cellOverhead + uint32(len(s))
	if !p.reserve(size) {
		return HeapRef{}
	}
	p.strings = append(p.strings, stringCell{data: s, size: size})
	idx := uint32(len(p.strings))
	p.intern[s] = idx
	return p.ref(kindString, idx)
}

// StringContent returns the content of a string cell. Returns "" for a nil
// or freed reference.
func (p *ValuePool) StringContent(ref HeapRef) string {
	c := p.stringCellOf(ref)
	if c == nil {
		return ""
	}
	return c.data
}

// StringLen returns the byte length of a string cell (used for truthiness).
func (p *ValuePool) StringLen(ref HeapRef) int {
	c := p.stringCellOf(ref)
	if c == nil {
		return 0
	}
	return len(c.data)
}

func (p *ValuePool) stringCellOf(ref HeapRef) *stringCell {
	if ref.IsNil() || ref.kind != kindString {
		return nil
	}
	p.checkOwner(ref)
	if int(ref.idx) > len(p.strings) {
		return nil
	}
	c := &p.strings[ref.idx-1]
	if c.freed {
		return nil
	}
	return c
}

// ---- Arrays -----------------------------------------------------------------

// AllocArray allocates a new array of length n, elements initialized to
// Null. Returns the nil HeapRef on OOM.
func (p *ValuePool) AllocArray(n int) HeapRef {
	size := cellOverhead + uint32(n)*valueSlotSize
	if !p.reserve(size) {
		return HeapRef{}
	}
	elems := make([]Value, n)
	p.arrays = append(p.arrays, arrayCell{elems: elems, size: size})
	idx := uint32(len(p.arrays))
	return p.ref(kindArray, idx)
}

// ArrayLen returns the element count of an array cell (0 if the reference
// is nil or freed).
func (p *ValuePool) ArrayLen(ref HeapRef) int {
	c := p.arrayCellOf(ref)
	if c == nil {
		return 0
	}
	return len(c.elems)
}

// ArrayGet returns element i, or Null if i is out of range (§4.3 GET_INDEX:
// "out-of-range read → Null").
func (p *ValuePool) ArrayGet(ref HeapRef, i int) Value {
	c := p.arrayCellOf(ref)
	if c == nil || i < 0 || i >= len(c.elems) {
		return Null
	}
	return c.elems[i]
}

// ArraySet stores v at index i, extending the array with Null elements if
// i is beyond the current length (§4.3 SET_INDEX: "out-of-range write →
// extend with Null"). Returns false if the pool is out of budget for the
// extension; the array is left unmodified in that case.
func (p *ValuePool) ArraySet(ref HeapRef, i int, v Value) bool {
	c := p.arrayCellOf(ref)
	if c == nil || i < 0 {
		return false
	}
	if i >= len(c.elems) {
		grow := i + 1 - len(c.elems)
		extra := uint32(grow) * valueSlotSize
		if !p.reserve(extra) {
			return false
		}
		c.elems = append(c.elems, make([]Value, grow)...)
		c.size += extra
	}
	c.elems[i] = v
	return true
}

func (p *ValuePool) arrayCellOf(ref HeapRef) *arrayCell {
	if ref.IsNil() || ref.kind != kindArray {
		return nil
	}
	p.checkOwner(ref)
	if int(ref.idx) > len(p.arrays) {
		return nil
	}
	c := &p.arrays[ref.idx-1]
	if c.freed {
		return nil
	}
	return c
}

// ---- Objects ----------------------------------------------------------------

// AllocObject allocates a new Object with the given class name and no
// fields. Returns the nil HeapRef on OOM.
func (p *ValuePool) AllocObject(className string) HeapRef {
	size := cellOverhead + uint32(len(className))
	if !p.reserve(size) {
		return HeapRef{}
	}
	p.objects = append(p.objects, objectCell{className: className, size: size})
	idx := uint32(len(p.objects))
	return p.ref(kindObject, idx)
}

// ObjectClassName returns an object cell's class name ("" if nil/freed).
func (p *ValuePool) ObjectClassName(ref HeapRef) string {
	c := p.objectCellOf(ref)
	if c == nil {
		return ""
	}
	return c.className
}

// ObjectGetField looks up a field by name, returning Null if absent.
func (p *ValuePool) ObjectGetField(ref HeapRef, name string) Value {
	c := p.objectCellOf(ref)
	if c == nil {
		return Null
	}
	for _, f := range c.fields {
		if f.name == name {
			return f.value
		}
	}
	return Null
}

// ObjectSetField sets (or inserts, preserving insertion order) a field.
// Returns false if inserting a new field would exceed the heap budget.
func (p *ValuePool) ObjectSetField(ref HeapRef, name string, v Value) bool {
	c := p.objectCellOf(ref)
	if c == nil {
		return false
	}
	for i := range c.fields {
		if c.fields[i].name == name {
			c.fields[i].value = v
			return true
		}
	}
	extra := uint32(len(name)) + valueSlotSize
	if !p.reserve(extra) {
		return false
	}
	c.fields = append(c.fields, orderedField{name: name, value: v})
	c.size += extra
	return true
}

func (p *ValuePool) objectCellOf(ref HeapRef) *objectCell {
	if ref.IsNil() || ref.kind != kindObject {
		return nil
	}
	p.checkOwner(ref)
	if int(ref.idx) > len(p.objects) {
		return nil
	}
	c := &p.objects[ref.idx-1]
	if c.freed {
		return nil
	}
	return c
}

// ---- Function references ---------------------------------------------------

// AllocFunction allocates a heap cell holding a function reference.
func (p *ValuePool) AllocFunction(functionIndex uint16, paramCount uint8) HeapRef {
	size := cellOverhead + 4
	if !p.reserve(size) {
		return HeapRef{}
	}
	p.funcs = append(p.funcs, functionCell{functionIndex: functionIndex, paramCount: paramCount, size: size})
	idx := uint32(len(p.funcs))
	return p.ref(kindFunction, idx)
}

// FunctionRef returns the (functionIndex, paramCount) pair held by a
// function cell. ok is false for a nil or freed reference.
func (p *ValuePool) FunctionRef(ref HeapRef) (FuncRef, bool) {
	c := p.functionCellOf(ref)
	if c == nil {
		return FuncRef{}, false
	}
	return FuncRef{FunctionIndex: c.functionIndex, ParamCount: c.paramCount}, true
}

func (p *ValuePool) functionCellOf(ref HeapRef) *functionCell {
	if ref.IsNil() || ref.kind != kindFunction {
		return nil
	}
	p.checkOwner(ref)
	if int(ref.idx) > len(p.funcs) {
		return nil
	}
	c := &p.funcs[ref.idx-1]
	if c.freed {
		return nil
	}
	return c
}
