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

// Package appletmgr is the thin applet manager of §4.6: a menu over the
// installed-applet registry, encoder-delta-driven selection, install on
// long-press, and launch into the scheduler.
package appletmgr

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/kahdeg/dialos/log"
	"github.com/kahdeg/dialos/scheduler"
	"github.com/kahdeg/dialos/vm"
)

// onLoadEvent is the callback name invoked after launch if the applet's
// top-level code registered a handler for it before returning (§4.6).
const onLoadEvent = "app.onLoad"

// bootstrapBudget is the instruction slice Launch spends driving an
// applet's top-level code to its first HALT, so a registered app.onLoad
// handler can be queued before the scheduler ever ticks the task. Compiled
// top-level scripts are expected to be short (register handlers, then
// halt); an applet whose registration genuinely needs more than this many
// instructions will still run correctly, it just won't receive app.onLoad
// until a later launch.
const bootstrapBudget = 10000

// Manager ties the Registry, a Scheduler, and a Platform together.
type Manager struct {
	registry *Registry
	sched    *scheduler.Scheduler
	platform vm.Platform
	log      *log.Logger

	selected int
}

// New builds a Manager over an already-open Registry and Scheduler.
func New(registry *Registry, sched *scheduler.Scheduler, platform vm.Platform) *Manager {
	return &Manager{
		registry: registry,
		sched:    sched,
		platform: platform,
		log:      log.With("component", "appletmgr"),
	}
}

// MoveSelection advances the current menu selection by delta (positive or
// negative), wrapping around the installed-applet list, mirroring how an
// encoder's getDelta feeds the menu (§4.6 "tracks selection via encoder
// delta").
func (m *Manager) MoveSelection(delta int) error {
	entries, err := m.registry.Installed()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		m.selected = 0
		return nil
	}
	m.selected = ((m.selected+delta)%len(entries) + len(entries)) % len(entries)
	return nil
}

// Selected returns the currently highlighted entry, or false if the
// registry is empty.
func (m *Manager) Selected() (Entry, bool, error) {
	entries, err := m.registry.Installed()
	if err != nil {
		return Entry{}, false, err
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	if m.selected >= len(entries) {
		m.selected = len(entries) - 1
	}
	return entries[m.selected], true, nil
}

// RenderMenu writes a {selection marker, name, version, heap, running} table
// to w, standing in for the round display's menu screen.
func (m *Manager) RenderMenu(w io.Writer) error {
	entries, err := m.registry.Installed()
	if err != nil {
		return err
	}
	running := map[string]bool{}
	for _, t := range m.sched.Tasks() {
		running[t.Descriptor.Name] = t.State == scheduler.StateRunning || t.State == scheduler.StateSleeping
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Name", "Version", "Heap", "Running"})
	for i, e := range entries {
		marker := "  "
		if i == m.selected {
			marker = "->"
		}
		table.Append([]string{marker, e.Name, e.AppVersion, fmt.Sprintf("%d", e.HeapSize), fmt.Sprintf("%v", running[e.Name])})
	}
	table.Render()
	return nil
}

// Install copies blob into the registry as a new applet named name (§4.6
// "installs ... on long-selection if not installed").
func (m *Manager) Install(name string, blob []byte) (Entry, error) {
	e, err := m.registry.Install(name, blob)
	if err != nil {
		return Entry{}, err
	}
	m.log.Info("applet installed", "name", name, "heapSize", e.HeapSize)
	return e, nil
}

// LaunchOptions governs the scheduler task policy for a launched applet;
// the DSB format carries no repeat/interval fields of its own, so this is
// the Applet Manager's own launch-time policy (§4.6 leaves it unspecified
// beyond "spawn scheduler task").
type LaunchOptions struct {
	Repeat            bool
	ExecuteIntervalMs int64
}

// DefaultLaunchOptions schedules the applet to run continuously (repeat,
// no forced interval), suitable for an interactive GUI-style applet that
// manages its own pacing via system.sleep/Yield.
var DefaultLaunchOptions = LaunchOptions{Repeat: true, ExecuteIntervalMs: 0}

// Launch constructs a Module from the named applet's installed blob, a
// Heap sized per its metadata, a VM bound to platform, and spawns a
// scheduler Task for it. Launch then runs one bootstrapBudget slice of the
// applet's top-level code; if that slice finishes and a handler for
// "app.onLoad" is registered, Launch queues an app.onLoad callback on the VM,
// for dispatch by a later Execute slice of the task (§4.6).
func (m *Manager) Launch(name string, opts LaunchOptions) (*scheduler.Task, error) {
	module, err := m.registry.Load(name)
	if err != nil {
		return nil, fmt.Errorf("appletmgr: launch %s: %w", name, err)
	}

	pool := vm.NewValuePool(module.HeapSize())
	machine := vm.New(module, pool, m.platform)
	task := scheduler.NewTask(module, pool, machine, scheduler.AppletDescriptor{
		Name:              name,
		Repeat:            opts.Repeat,
		ExecuteIntervalMs: opts.ExecuteIntervalMs,
	})
	m.sched.Spawn(task)
	m.log.Info("applet launched", "name", name, "id", task.ID)

	res := machine.Execute(bootstrapBudget)
	task.ExecCount++
	if res.Status == vm.StatusFinished && machine.HasCallback(onLoadEvent) {
		machine.EnqueueCallback(onLoadEvent, nil)
	}
	return task, nil
}
