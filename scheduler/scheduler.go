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

package scheduler

import (
	"github.com/google/uuid"

	"github.com/kahdeg/dialos/log"
	"github.com/kahdeg/dialos/vm"
)

// DefaultInstructionBudget is the instruction slice handed to a Running
// task's VM.Execute on each Tick when the caller does not override it
// (§4.5's scheduling contract).
const DefaultInstructionBudget = 1000

// errorRetryDelayMs is how long a crashed repeating applet is parked in
// Sleeping before it is restarted (§4.5), so a persistently failing applet
// does not spin the scheduler hot.
const errorRetryDelayMs = 5000

// Scheduler runs every registered Task round-robin, one instruction slice
// per Running task per Tick, with at most one VM instruction-dispatcher
// active at a time across the whole device (§4.5, §5's single-threaded
// ordering guarantee).
//
// Grounded on miner/worker.go's role as the single driver of one resource
// (block production) across registered inputs, but deliberately rebuilt
// without its goroutine/channel fan-out: dialOS has no worker pool to
// dispatch to, so Tick is a plain synchronous loop instead of a mainLoop
// goroutine reading off channels.
type Scheduler struct {
	log   *log.Logger
	tasks []*Task

	instructionBudget uint32
}

// New creates an empty Scheduler. nowMs is not tracked internally — callers
// pass the current time into every Tick, keeping the Scheduler itself free
// of any dependency on wall-clock time (and trivially testable with a fake
// clock).
func New() *Scheduler {
	return &Scheduler{
		log:               log.With("component", "scheduler"),
		instructionBudget: DefaultInstructionBudget,
	}
}

// SetInstructionBudget overrides the per-tick instruction slice size.
func (s *Scheduler) SetInstructionBudget(n uint32) { s.instructionBudget = n }

// Spawn registers t with the scheduler; NewTask leaves it Running.
func (s *Scheduler) Spawn(t *Task) {
	s.tasks = append(s.tasks, t)
	s.log.Info("applet spawned", "id", t.ID, "name", t.Descriptor.Name)
}

// Tasks returns the live task list in round-robin order, for the Applet
// Manager's menu and diagnostics.
func (s *Scheduler) Tasks() []*Task { return s.tasks }

// Terminate removes a task by ID, dropping its VM and Heap (§4.5 "any state
// + terminate -> removed"). Reports whether a matching task was found.
func (s *Scheduler) Terminate(id uuid.UUID) bool {
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.log.Info("applet terminated", "id", id, "name", t.Descriptor.Name)
			return true
		}
	}
	return false
}

// Tick advances every task by at most one instruction slice, applying the
// state-transition table of §4.5. nowMs is the caller's current time in
// milliseconds, used for sleep/wake comparisons and the error-retry delay.
func (s *Scheduler) Tick(nowMs int64) {
	for _, t := range s.tasks {
		s.tickOne(t, nowMs)
	}
}

func (s *Scheduler) tickOne(t *Task, nowMs int64) {
	switch t.State {
	case StateSleeping:
		if nowMs < t.WakeAtMs {
			return
		}
		// Due: wake and give it this same tick's instruction slice, rather
		// than waiting a further Tick just to flip the state back.
		t.State = StateRunning
	case StateFinished, StateError:
		return
	case StateRunning:
		// fall through to execution below
	default:
		return
	}

	res := t.VM.Execute(s.instructionBudget)
	t.ExecCount++

	switch res.Status {
	case vm.StatusOK:
		// Still Running: budget ran out mid-script, resume next Tick.

	case vm.StatusYield:
		if dur, ok := t.VM.SleepDurationMs(); ok {
			t.State = StateSleeping
			t.WakeAtMs = nowMs + dur
		}
		// else: cooperative yield with no sleep request, stay Running.

	case vm.StatusFinished:
		s.onFinished(t, nowMs)

	case vm.StatusError, vm.StatusOutOfMemory:
		s.onFault(t, nowMs, res)
	}
}

func (s *Scheduler) onFinished(t *Task, nowMs int64) {
	if !t.Descriptor.Repeat {
		t.State = StateFinished
		s.log.Info("applet finished (one-shot)", "id", t.ID, "name", t.Descriptor.Name)
		return
	}
	t.VM.Reset()
	if t.Descriptor.ExecuteIntervalMs > 0 {
		t.State = StateSleeping
		t.WakeAtMs = nowMs + t.Descriptor.ExecuteIntervalMs
	} else {
		t.State = StateRunning
	}
}

func (s *Scheduler) onFault(t *Task, nowMs int64, res vm.VMResult) {
	t.State = StateError
	if res.Err != nil {
		t.ErrMsg = res.Err.Error()
	} else {
		t.ErrMsg = res.Status.String()
	}
	s.log.Error("applet fault", "id", t.ID, "name", t.Descriptor.Name, "status", res.Status, "err", t.ErrMsg)

	if !t.Descriptor.Repeat {
		return
	}
	t.VM.Reset()
	t.State = StateSleeping
	t.WakeAtMs = nowMs + errorRetryDelayMs
}
