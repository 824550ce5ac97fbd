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

package dsb

import (
	"encoding/binary"
	"fmt"
)

// reader is a small bounds-checked cursor over a DSB byte buffer, in the
// spirit of probe-lang/integration/engine.go's manual little-endian
// decoding but generalized to the full section list a DSB file carries.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) need(n int) error {
	if r.remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.pos, r.remaining())
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// str reads a u16-length-prefixed UTF-8 string (up to 65535 bytes).
func (r *reader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Load parses and integrity-checks a DSB byte buffer, returning an
// immutable Module. See spec §4.1 / §6.1 for the binary layout and §3.3 for
// the integrity formulas.
func Load(buf []byte) (*Module, error) {
	r := &reader{buf: buf}

	magic, err := r.bytes(4)
	if err != nil {
		return nil, err
	}
	if magic[0] != Magic[0] || magic[1] != Magic[1] || magic[2] != Magic[2] || magic[3] != Magic[3] {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, magic)
	}

	version, err := r.u16()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	flags, err := r.u16()
	if err != nil {
		return nil, err
	}

	heapSize, err := r.u32()
	if err != nil {
		return nil, err
	}

	appName, err := r.str()
	if err != nil {
		return nil, err
	}
	appVersion, err := r.str()
	if err != nil {
		return nil, err
	}
	author, err := r.str()
	if err != nil {
		return nil, err
	}

	timestamp, err := r.u32()
	if err != nil {
		return nil, err
	}
	hashCode, err := r.u32()
	if err != nil {
		return nil, err
	}
	checksum, err := r.u16()
	if err != nil {
		return nil, err
	}

	constants, err := readStringTable(r)
	if err != nil {
		return nil, fmt.Errorf("constants: %w", err)
	}
	globals, err := readStringTable(r)
	if err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}
	functions, err := readFunctionTable(r)
	if err != nil {
		return nil, fmt.Errorf("functions: %w", err)
	}

	mainEntryPoint, err := r.u32()
	if err != nil {
		return nil, err
	}

	codeSize, err := r.u32()
	if err != nil {
		return nil, err
	}
	codeBytes, err := r.bytes(int(codeSize))
	if err != nil {
		return nil, fmt.Errorf("code: %w", err)
	}
	code := append([]byte(nil), codeBytes...)

	var debugLines []uint32
	if flags&FlagHasDebugInfo != 0 {
		lineCount, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("debug table: %w", err)
		}
		if lineCount != codeSize {
			return nil, fmt.Errorf("%w: debug line count %d != code size %d", ErrTruncated, lineCount, codeSize)
		}
		debugLines = make([]uint32, lineCount)
		for i := range debugLines {
			v, err := r.u32()
			if err != nil {
				return nil, fmt.Errorf("debug table: %w", err)
			}
			debugLines[i] = v
		}
	}

	m := &Module{
		VersionField: version,
		Flags:        flags,
		Meta: Metadata{
			HeapSize:   heapSize,
			AppName:    appName,
			AppVersion: appVersion,
			Author:     author,
			Timestamp:  timestamp,
			HashCode:   hashCode,
			Checksum:   checksum,
		},
		Constants:      constants,
		Globals:        globals,
		Functions:      functions,
		MainEntryPoint: mainEntryPoint,
		Code:           code,
		DebugLines:     debugLines,
	}

	if err := verifyIntegrity(m); err != nil {
		return nil, err
	}
	return m, nil
}

func readStringTable(r *reader) ([]string, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(count) * 2); err != nil { // each entry is at least its u16 length
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func readFunctionTable(r *reader) ([]Function, error) {
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(count) * 7); err != nil { // u16 name length + u32 entry + u8 params
		return nil, err
	}
	out := make([]Function, count)
	for i := range out {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		entryPC, err := r.u32()
		if err != nil {
			return nil, err
		}
		paramCount, err := r.u8()
		if err != nil {
			return nil, err
		}
		out[i] = Function{Name: name, EntryPC: entryPC, ParamCount: paramCount}
	}
	return out, nil
}

// verifyIntegrity recomputes the checksum and hash_code and compares them
// against the values stored in the module, per §3.3 / §8 invariant 2.
func verifyIntegrity(m *Module) error {
	gotChecksum := computeChecksum(m.Code, m.DebugLines)
	if gotChecksum != m.Meta.Checksum {
		return fmt.Errorf("%w: computed %d, stored %d", ErrBadChecksum, gotChecksum, m.Meta.Checksum)
	}

	gotHash := computeHashCode(m.VersionField, m.Meta.HeapSize, m.Meta.Timestamp, gotChecksum, m.Meta.AppName, m.Meta.AppVersion, m.Meta.Author)
	if gotHash != m.Meta.HashCode {
		return fmt.Errorf("%w: computed %d, stored %d", ErrBadHash, gotHash, m.Meta.HashCode)
	}
	return nil
}

// VerifyIntegrity re-validates an already-loaded Module's checksum and hash.
// Exposed so callers can re-check a Module that was mutated by test code
// (Load itself always verifies before returning).
func VerifyIntegrity(m *Module) error {
	return verifyIntegrity(m)
}
