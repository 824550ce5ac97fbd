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

// Encode serializes m back into a DSB byte buffer, recomputing checksum and
// hash_code rather than trusting m.Meta's stored values. Encode(Load(b))
// reproduces b byte-for-byte for any b that Load accepted with no bytes past
// the last section (§8 invariant 1): Load keeps every field of the wire
// format in order, but it ignores trailing bytes, which Encode does not emit.
//
// Grounded on probe-lang/integration/engine.go's EncodePROBEContract, which
// manually appends little-endian fields into a growing byte slice; that
// 4-byte-magic + u32-count + fixed-width-constants shape is generalized here
// to the full DSB section list (length-prefixed strings, the function
// table, and the optional debug line table).
func Encode(m *Module) []byte {
	checksum := computeChecksum(m.Code, m.DebugLines)
	hashCode := computeHashCode(m.VersionField, m.Meta.HeapSize, m.Meta.Timestamp, checksum, m.Meta.AppName, m.Meta.AppVersion, m.Meta.Author)

	var out []byte
	out = append(out, Magic[:]...)
	out = appendU16(out, m.VersionField)
	out = appendU16(out, m.Flags)
	out = appendU32(out, m.Meta.HeapSize)
	out = appendStr(out, m.Meta.AppName)
	out = appendStr(out, m.Meta.AppVersion)
	out = appendStr(out, m.Meta.Author)
	out = appendU32(out, m.Meta.Timestamp)
	out = appendU32(out, hashCode)
	out = appendU16(out, checksum)

	out = appendU32(out, uint32(len(m.Constants)))
	for _, c := range m.Constants {
		out = appendStr(out, c)
	}
	out = appendU32(out, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		out = appendStr(out, g)
	}
	out = appendU32(out, uint32(len(m.Functions)))
	for _, f := range m.Functions {
		out = appendStr(out, f.Name)
		out = appendU32(out, f.EntryPC)
		out = append(out, f.ParamCount)
	}

	out = appendU32(out, m.MainEntryPoint)
	out = appendU32(out, uint32(len(m.Code)))
	out = append(out, m.Code...)

	if m.Flags&FlagHasDebugInfo != 0 {
		out = appendU32(out, uint32(len(m.DebugLines)))
		for _, line := range m.DebugLines {
			out = appendU32(out, line)
		}
	}

	return out
}

func appendU16(out []byte, v uint16) []byte {
	return append(out, byte(v), byte(v>>8))
}

func appendU32(out []byte, v uint32) []byte {
	return append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendStr(out []byte, s string) []byte {
	out = appendU16(out, uint16(len(s)))
	return append(out, s...)
}
