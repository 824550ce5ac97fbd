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

import "hash/fnv"

// computeChecksum implements §3.3: the sum, modulo 2^16, of every code byte
// plus every byte of the (optional) debug line table.
//
// This is a corruption detector, not a security primitive (see spec
// Non-goals) — a running byte sum is deliberately used in place of a
// cryptographic hash so that flipping any single byte anywhere in code or
// debug_lines is guaranteed to change the checksum, which is all §8
// invariant 2 requires.
func computeChecksum(code []byte, debugLines []uint32) uint16 {
	var sum uint32
	for _, b := range code {
		sum += uint32(b)
	}
	for _, line := range debugLines {
		sum += uint32(byte(line))
		sum += uint32(byte(line >> 8))
		sum += uint32(byte(line >> 16))
		sum += uint32(byte(line >> 24))
	}
	return uint16(sum % 65536)
}

// computeHashCode implements §3.3's hash_code: FNV-1a over the fields that
// identify a build (version, heap_size, timestamp, checksum, and the three
// metadata strings), in that order.
func computeHashCode(version uint16, heapSize uint32, timestamp uint32, checksum uint16, appName, appVersion, author string) uint32 {
	h := fnv.New32a()
	var buf [8]byte

	putU16(buf[:2], version)
	h.Write(buf[:2])

	putU32(buf[:4], heapSize)
	h.Write(buf[:4])

	putU32(buf[:4], timestamp)
	h.Write(buf[:4])

	putU16(buf[:2], checksum)
	h.Write(buf[:2])

	h.Write([]byte(appName))
	h.Write([]byte(appVersion))
	h.Write([]byte(author))

	return h.Sum32()
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
