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

// Platform is the capability boundary the interpreter uses to reach the
// device (§6.2). It is defined here, rather than imported from a separate
// package, so that vm has zero dependencies on any concrete device binding;
// the platform package instead depends on vm and implements this interface.
//
// The VM is agnostic to what a given native id does: it forwards argc
// arguments and receives a single Value back, never inspecting the call's
// semantics itself.
type Platform interface {
	// CallNative dispatches CALL_NATIVE id with args already popped off the
	// operand stack, in call order. pool is supplied so a native call can
	// allocate heap cells (e.g. file.read returning a String).
	CallNative(id NativeID, args []Value, pool *ValuePool) (Value, error)

	// ConsoleLog implements PRINT: platform.console_log(toString(top)).
	ConsoleLog(s string)
}

// NativeRegisterCallback is the one native id the VM itself intercepts
// rather than forwarding to Platform, since "events.register_callback"
// mutates the VM's own callback table (§4.5: "the Platform stores callbacks
// in a name→Value table owned alongside the VM"). A concrete Platform
// implementation must still reserve this id (never assign it to another
// capability) but never receives a CallNative for it.
const NativeRegisterCallback NativeID = 0

// NativeSystemSleep is the other native id the VM intercepts itself: only
// the VM can suspend its own Execute loop, so "system.sleep(ms)" is handled
// directly in the CALL_NATIVE case (RequestSleep + StatusYield) rather than
// forwarded to Platform.CallNative (§9 "cooperative yield replacing
// blocking sleep").
const NativeSystemSleep NativeID = 65
