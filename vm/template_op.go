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

// execTemplateFormat implements TEMPLATE_FORMAT argc (§4.2): pops argc+1
// values where the bottom is the template string and the rest are
// substitution values, in that order.
func (v *VM) execTemplateFormat(argc int) (Status, error) {
	all, err := v.popN(argc + 1)
	if err != nil {
		return v.fault(err)
	}
	tmplVal := all[0]
	args := all[1:]
	if tmplVal.Tag != TagString {
		return v.fault(ErrTypeMismatch)
	}
	out := formatTemplate(v.pool.StringContent(tmplVal.Ref), args, v.pool)
	ref, err := v.allocWithRetry(func() HeapRef { return v.pool.AllocString(out) })
	if err != nil {
		return v.fault(err)
	}
	v.push(StringValue(ref))
	return StatusOK, nil
}
