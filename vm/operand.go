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

// All multi-byte operands are little-endian (§4.3).

func u16le(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func u32le(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// i32le reads a signed 4-byte little-endian offset, used by JUMP* and TRY.
func i32le(b []byte) int32 {
	return int32(u32le(b))
}

// allocWithRetry runs alloc once; on OOM it requests a single GC cycle and
// retries exactly once more before giving up (§4.4: "on demand after an
// allocation returns failure (one retry)").
func (v *VM) allocWithRetry(alloc func() HeapRef) (HeapRef, error) {
	if ref := alloc(); !ref.IsNil() {
		return ref, nil
	}
	v.collect()
	if ref := alloc(); !ref.IsNil() {
		return ref, nil
	}
	return HeapRef{}, ErrOutOfMemory
}
