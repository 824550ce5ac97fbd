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

// Package dsb implements the DSB ("DSBC") bytecode module format: parsing,
// integrity verification, and encoding of applets consumed by the dialOS
// virtual machine.
package dsb

// Magic is the 4-byte file signature every DSB blob begins with.
var Magic = [4]byte{'D', 'S', 'B', 'C'}

// Version is the only module version this loader accepts.
const Version uint16 = 1

// flag bits within the module header.
const (
	FlagHasDebugInfo uint16 = 1 << 0
)

// DefaultHeapSize is used when a module's metadata omits heap_size (0).
const DefaultHeapSize uint32 = 8192

// Metadata describes a module's provenance and integrity fields.
type Metadata struct {
	HeapSize   uint32
	AppName    string
	AppVersion string
	Author     string
	Timestamp  uint32
	HashCode   uint32
	Checksum   uint16
}

// Function describes one entry in the function table.
type Function struct {
	Name         string
	EntryPC      uint32
	ParamCount   uint8
}

// Module is an immutable, verified, in-memory representation of a DSB file.
//
// A Module never mutates after Load returns it: the interpreter, the heap,
// and the scheduler all treat it as read-only shared state across the
// lifetime of the applet task that owns it.
type Module struct {
	VersionField uint16
	Flags        uint16
	Meta         Metadata

	Constants []string
	Globals   []string
	Functions []Function

	MainEntryPoint uint32
	Code           []byte
	DebugLines     []uint32 // empty if no debug info
}

// HasDebugInfo reports whether the module carries a per-instruction line
// table.
func (m *Module) HasDebugInfo() bool {
	return m.Flags&FlagHasDebugInfo != 0 && len(m.DebugLines) == len(m.Code)
}

// SourceLine returns the source line recorded for code offset pc, or 0 if
// no debug info is present or pc is out of range.
func (m *Module) SourceLine(pc uint32) uint32 {
	if !m.HasDebugInfo() || int(pc) >= len(m.DebugLines) {
		return 0
	}
	return m.DebugLines[pc]
}

// HeapSize returns the applet's declared heap budget, substituting
// DefaultHeapSize when the module declares zero.
func (m *Module) HeapSize() uint32 {
	if m.Meta.HeapSize == 0 {
		return DefaultHeapSize
	}
	return m.Meta.HeapSize
}
