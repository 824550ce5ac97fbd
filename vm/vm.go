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

import (
	"fmt"

	"github.com/kahdeg/dialos/dsb"
)

// gcHighWatermark is the allocated/heapSize ratio past which Execute
// requests a collection between instructions (§4.4).
const gcHighWatermark = 0.85

// Status is the outcome of one Execute call.
type Status uint8

const (
	StatusOK Status = iota
	StatusYield
	StatusFinished
	StatusError
	StatusOutOfMemory
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusYield:
		return "Yield"
	case StatusFinished:
		return "Finished"
	case StatusError:
		return "Error"
	case StatusOutOfMemory:
		return "OutOfMemory"
	default:
		return "Unknown"
	}
}

// VMResult is returned by Execute (§4.3's "Scheduling contract").
type VMResult struct {
	Status Status
	Err    error // set when Status is StatusError or StatusOutOfMemory
}

// pendingCallback is one queued platform event awaiting dispatch (§4.5
// "Callbacks"): drained strictly FIFO, only between instructions.
type pendingCallback struct {
	event string
	args  []Value
}

// VM is one applet's interpreter: its own program counter, operand stack,
// call stack, exception-handler stack, and globals, paired with the
// applet's Module (read-only, shared) and ValuePool (owned).
//
// Grounded on probe-lang/lang/vm.VM's fetch-decode-execute shape and
// re-entrant Step/Execute split, generalized from a fixed-width register
// machine to a variable-width stack machine per §4.3.
type VM struct {
	module   *dsb.Module
	pool     *ValuePool
	platform Platform

	pc     uint32
	stack  []Value
	frames []*frame
	handlers []handler

	globals []Value

	callbacks    map[string]Value // event name -> registered Function/NativeFn Value
	callbackQ    []pendingCallback

	exception    Value
	hasException bool

	wakeRequested bool
	sleepDurationMs int64

	finished bool
}

// New constructs a VM bound to module, pool, and platform, with PC at the
// module's main entry point and an empty top-level frame.
func New(module *dsb.Module, pool *ValuePool, platform Platform) *VM {
	v := &VM{
		module:   module,
		pool:     pool,
		platform: platform,
		globals:  make([]Value, len(module.Globals)),
	}
	v.Reset()
	return v
}

// Reset rewinds the VM to its initial state: PC at main_entry_point, empty
// stacks, globals zeroed to Null, callback table and queue cleared. Used by
// the scheduler to restart a repeating applet (§4.5).
func (v *VM) Reset() {
	v.pc = v.module.MainEntryPoint
	v.stack = v.stack[:0]
	v.frames = []*frame{newFrame("<top>", -1, 0)}
	v.handlers = v.handlers[:0]
	for i := range v.globals {
		v.globals[i] = Null
	}
	v.callbacks = make(map[string]Value)
	v.callbackQ = nil
	v.hasException = false
	v.exception = Null
	v.wakeRequested = false
	v.finished = false
}

// Pool exposes the applet's heap for the scheduler and diagnostics.
func (v *VM) Pool() *ValuePool { return v.pool }

// SleepDurationMs returns the duration requested by the last system.sleep
// call (only meaningful immediately after a StatusYield result); the
// caller (the scheduler) adds its own current time to get an absolute wake
// time, since the VM itself has no clock (§9 "cooperative yield replacing
// blocking sleep").
func (v *VM) SleepDurationMs() (int64, bool) { return v.sleepDurationMs, v.wakeRequested }

// RequestSleep records a system.sleep(durationMs) request so step can
// return StatusYield. Called only from the OpCallNative case for
// NativeSystemSleep — never by a Platform implementation directly, since a
// Platform has no way to make Execute return early.
func (v *VM) RequestSleep(durationMs int64) {
	v.wakeRequested = true
	v.sleepDurationMs = durationMs
}

// HasCallback reports whether a handler is currently registered for event.
func (v *VM) HasCallback(event string) bool {
	_, ok := v.callbacks[event]
	return ok
}

// EnqueueCallback queues a platform event for dispatch at the next safe
// point between instructions (§4.5 "Callbacks", §5 "Ordering"). If no
// function is registered under event, the event is dropped.
func (v *VM) EnqueueCallback(event string, args []Value) {
	if _, ok := v.callbacks[event]; !ok {
		return
	}
	v.callbackQ = append(v.callbackQ, pendingCallback{event: event, args: args})
}

// Execute runs at most maxInstructions dispatch cycles (§4.3's scheduling
// contract). It is re-entrant: a later call resumes exactly where the
// previous one left off.
func (v *VM) Execute(maxInstructions uint32) VMResult {
	for i := uint32(0); i < maxInstructions; i++ {
		// Consumed by the caller immediately after the previous Execute
		// returned StatusYield; stale past that point otherwise.
		v.wakeRequested = false

		if v.pool.Allocated() > uint32(float64(v.pool.HeapSize())*gcHighWatermark) {
			v.collect()
		}

		// A finished top-level script still accepts callback dispatch: HALT
		// (unlike a top-level RETURN) leaves the outermost frame in place,
		// so a queued event can install a fresh call on top of it and run
		// to completion exactly like any other call (§4.5 S6: "Platform
		// emits ... events while VM is idle").
		if len(v.callbackQ) > 0 {
			v.dispatchNextCallback()
			continue
		}

		if v.finished {
			return VMResult{Status: StatusFinished}
		}

		if int(v.pc) >= len(v.module.Code) {
			v.finished = true
			return VMResult{Status: StatusFinished}
		}

		status, err := v.step()
		switch status {
		case StatusFinished:
			v.finished = true
			return VMResult{Status: StatusFinished}
		case StatusYield:
			return VMResult{Status: StatusYield}
		case StatusOutOfMemory:
			return VMResult{Status: StatusOutOfMemory, Err: err}
		case StatusError:
			v.finished = true
			return VMResult{Status: StatusError, Err: v.withLine(err)}
		}
	}
	return VMResult{Status: StatusOK}
}

func (v *VM) withLine(err error) error {
	if err == nil {
		return nil
	}
	line := v.module.SourceLine(v.pc)
	if line == 0 {
		return err
	}
	return fmt.Errorf("line %d: %w", line, err)
}

// dispatchNextCallback pops the front of the FIFO callback queue, pushes
// its args, and installs a synthetic call frame at the registered
// function's entry point, exactly as CALL would (§4.5).
func (v *VM) dispatchNextCallback() {
	cb := v.callbackQ[0]
	v.callbackQ = v.callbackQ[1:]

	target, ok := v.callbacks[cb.event]
	if !ok || target.Tag != TagFunction {
		return
	}
	ref, ok := v.pool.FunctionRef(target.Ref)
	if !ok {
		return
	}
	for _, a := range cb.args {
		v.stack = append(v.stack, a)
	}
	// A malformed registration (arity mismatch, stale function index) drops
	// the event rather than faulting the whole task: callback delivery is
	// best-effort from the platform's perspective.
	_ = v.call(ref.FunctionIndex, int(ref.ParamCount), fmt.Sprintf("callback:%s", cb.event))
}
