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

import "fmt"

// Instruction is one decoded opcode and its raw operand bytes, returned by
// Disassemble for cmd/dsbtool.
type Instruction struct {
	Offset  uint32
	Opcode  Opcode
	Mnemonic string
	Operand []byte
}

// Disassemble walks code fetch-decode style exactly like step, but only
// decodes instruction boundaries rather than executing them — used by
// cmd/dsbtool, never by the interpreter itself.
func Disassemble(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := uint32(0)
	for int(pc) < len(code) {
		op := Opcode(code[pc])
		info, ok := opcodeTable[op]
		if !ok {
			return out, fmt.Errorf("vm: unknown opcode 0x%02x at offset %d", op, pc)
		}
		start := pc + 1
		end := start + uint32(info.operandSize)
		if int(end) > len(code) {
			return out, fmt.Errorf("vm: truncated operand for %s at offset %d", info.name, pc)
		}
		out = append(out, Instruction{
			Offset:   pc,
			Opcode:   op,
			Mnemonic: info.name,
			Operand:  code[start:end],
		})
		pc = end
	}
	return out, nil
}
