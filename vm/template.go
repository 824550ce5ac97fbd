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

import "strings"

// formatTemplate substitutes `${...}` placeholders in tmpl with args in
// left-to-right order, one placeholder consuming one argument regardless of
// what is written between the braces. This mirrors the compiler's emitted
// convention noted as an open question in the design notes: the bytecode
// only carries argc, so substitution order is positional, not keyed by the
// placeholder's contents.
func formatTemplate(tmpl string, args []Value, pool *ValuePool) string {
	var b strings.Builder
	argi := 0
	i := 0
	for i < len(tmpl) {
		start := strings.IndexByte(tmpl[i:], '$')
		if start < 0 || i+start+1 >= len(tmpl) || tmpl[i+start+1] != '{' {
			b.WriteString(tmpl[i:])
			break
		}
		open := i + start
		b.WriteString(tmpl[i:open])

		close := strings.IndexByte(tmpl[open:], '}')
		if close < 0 {
			b.WriteString(tmpl[open:])
			break
		}
		close += open

		if argi < len(args) {
			b.WriteString(ToString(args[argi], pool))
			argi++
		}
		i = close + 1
	}
	return b.String()
}
