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

// Package scheduler implements the single-threaded cooperative applet
// scheduler (§4.5): round-robin ticking, sleep/wake transitions, and one-shot
// vs repeating lifecycle. The callback queue lives in the vm package
// (VM.EnqueueCallback); the scheduler itself does not deliver platform
// events to tasks.
package scheduler

import (
	"github.com/google/uuid"

	"github.com/kahdeg/dialos/dsb"
	"github.com/kahdeg/dialos/vm"
)

// State is a Task's lifecycle state (§3.6).
type State uint8

const (
	StateRunning State = iota
	StateSleeping
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// AppletDescriptor is the launch-time metadata governing a Task's
// repeat/interval behavior (§3.6, §4.5).
type AppletDescriptor struct {
	Name              string
	Repeat            bool
	ExecuteIntervalMs int64
}

// Task binds one applet's VM, Module, and Heap to its scheduler lifecycle
// state (§3.6). ID is a uuid so the Applet Manager and external tooling can
// name a running applet without depending on slice position.
type Task struct {
	ID uuid.UUID

	VM     *vm.VM
	Module *dsb.Module
	Pool   *vm.ValuePool

	Descriptor AppletDescriptor

	State     State
	WakeAtMs  int64
	ExecCount uint32
	ErrMsg    string
}

// NewTask wraps an already-constructed VM/Module/Pool triple into a
// schedulable Task, initially Running.
func NewTask(module *dsb.Module, pool *vm.ValuePool, v *vm.VM, desc AppletDescriptor) *Task {
	return &Task{
		ID:         uuid.New(),
		VM:         v,
		Module:     module,
		Pool:       pool,
		Descriptor: desc,
		State:      StateRunning,
	}
}
