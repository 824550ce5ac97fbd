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

import "errors"

// Sentinel load failures, returned (wrapped with %w and positional context)
// from Load. Callers may compare with errors.Is.
var (
	ErrBadMagic           = errors.New("dsb: bad magic")
	ErrTruncated          = errors.New("dsb: truncated")
	ErrBadChecksum        = errors.New("dsb: checksum mismatch")
	ErrBadHash            = errors.New("dsb: hash mismatch")
	ErrUnsupportedVersion = errors.New("dsb: unsupported version")
)
