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

// Command dialosd simulates a dialOS device on the host: it runs the
// cooperative scheduler against the hostfs reference Platform and drives it
// from an interactive console, standing in for the round display's encoder
// and touch input (§4.6, §6.2) until real hardware is wired in.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/kahdeg/dialos/appletmgr"
	"github.com/kahdeg/dialos/config"
	"github.com/kahdeg/dialos/log"
	"github.com/kahdeg/dialos/platform/hostfs"
	"github.com/kahdeg/dialos/scheduler"
)

var app = cli.NewApp()

func init() {
	app.Name = "dialosd"
	app.Usage = "run a simulated dialOS device with an interactive console"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to config.toml"},
	}
	app.Action = run
}

// session bundles everything the REPL commands touch.
type session struct {
	cfg      config.Config
	plat     *hostfs.Platform
	registry *appletmgr.Registry
	sched    *scheduler.Scheduler
	mgr      *appletmgr.Manager
	nowMs    int64
}

func run(ctx *cli.Context) error {
	cfg := config.Default()
	if p := ctx.String("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "trace":
		log.SetLevel(log.LevelTrace)
	case "debug":
		log.SetLevel(log.LevelDebug)
	case "warn":
		log.SetLevel(log.LevelWarn)
	case "error":
		log.SetLevel(log.LevelError)
	default:
		log.SetLevel(log.LevelInfo)
	}

	plat, err := hostfs.New(cfg.AppletsDir)
	if err != nil {
		return err
	}
	registry, err := appletmgr.NewRegistry(cfg.AppletsDir)
	if err != nil {
		return err
	}
	sched := scheduler.New()
	sched.SetInstructionBudget(cfg.InstructionBudget)

	s := &session{
		cfg:      cfg,
		plat:     plat,
		registry: registry,
		sched:    sched,
		mgr:      appletmgr.New(registry, sched, plat),
	}

	fmt.Printf("dialosd: simulating a device rooted at %s (pollIntervalMs=%d)\n", cfg.AppletsDir, cfg.PollIntervalMs)
	fmt.Println("type 'help' for commands, 'quit' to exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("dialos> ")
		if err != nil { // io.EOF or Ctrl-C
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if quit := s.dispatch(input); quit {
			return nil
		}
	}
}

func (s *session) dispatch(input string) (quit bool) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		printHelp()
	case "ls":
		s.cmdList()
	case "menu":
		s.cmdMenu()
	case "select":
		s.cmdSelect(args)
	case "launch":
		s.cmdLaunch(args)
	case "ps":
		s.cmdPS()
	case "kill":
		s.cmdKill(args)
	case "tick":
		s.cmdTick(args)
	case "run":
		s.cmdRun(args)
	case "encoder":
		s.cmdEncoder(args)
	case "button":
		s.cmdButton(args)
	case "touch":
		s.cmdTouch(args)
	default:
		fmt.Printf("unknown command %q, try 'help'\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Println(`commands:
  ls                          list installed applets
  menu                        render the menu (selection marker, heap, running state)
  select <delta>               move the menu selection by delta (encoder-style)
  launch <name> [repeat] [intervalMs]   launch the selected or named applet
  ps                          list scheduler tasks and their state
  kill <taskID>               terminate a task
  tick [n]                    advance the scheduler by n ticks (default 1), PollIntervalMs apart
  run <ms>                    advance the scheduler for ms simulated milliseconds
  encoder <delta>             inject an encoder turn
  button <on|off>             set the encoder push-button state
  touch <x> <y> <on|off>      set the simulated touch point
  quit                        exit`)
}

func (s *session) cmdList() {
	entries, err := s.registry.Installed()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("(no applets installed under " + s.cfg.AppletsDir + ")")
		return
	}
	for _, e := range entries {
		fmt.Printf("  %-16s v%-8s heap=%d\n", e.Name, e.AppVersion, e.HeapSize)
	}
}

func (s *session) cmdMenu() {
	if err := s.mgr.RenderMenu(os.Stdout); err != nil {
		fmt.Println("error:", err)
	}
}

func (s *session) cmdSelect(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: select <delta>")
		return
	}
	delta, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := s.mgr.MoveSelection(delta); err != nil {
		fmt.Println("error:", err)
		return
	}
	s.cmdMenu()
}

func (s *session) cmdLaunch(args []string) {
	name := ""
	if len(args) > 0 {
		name = args[0]
	} else if e, ok, err := s.mgr.Selected(); err == nil && ok {
		name = e.Name
	}
	if name == "" {
		fmt.Println("usage: launch <name> [repeat] [intervalMs] (or select an applet first)")
		return
	}

	opts := appletmgr.DefaultLaunchOptions
	if len(args) > 1 {
		opts.Repeat = args[1] == "true" || args[1] == "1"
	}
	if len(args) > 2 {
		ms, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		opts.ExecuteIntervalMs = ms
	}

	task, err := s.mgr.Launch(name, opts)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("launched %s as task %s\n", name, task.ID)
}

func (s *session) cmdPS() {
	tasks := s.sched.Tasks()
	if len(tasks) == 0 {
		fmt.Println("(no running tasks)")
		return
	}
	for _, t := range tasks {
		line := fmt.Sprintf("  %s  %-10s  %-8s  execs=%-5d wakeAt=%d", t.ID, t.Descriptor.Name, t.State, t.ExecCount, t.WakeAtMs)
		if t.State == scheduler.StateError && t.ErrMsg != "" {
			line += "  err=" + t.ErrMsg
		}
		fmt.Println(line)
	}
}

func (s *session) cmdKill(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: kill <taskID>")
		return
	}
	id, err := parseTaskID(args[0], s.sched)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if !s.sched.Terminate(id) {
		fmt.Println("no such task")
	}
}

func (s *session) cmdTick(args []string) {
	n := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		n = parsed
	}
	for i := 0; i < n; i++ {
		s.nowMs += s.cfg.PollIntervalMs
		s.sched.Tick(s.nowMs)
	}
	fmt.Printf("now=%dms\n", s.nowMs)
}

func (s *session) cmdRun(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: run <ms>")
		return
	}
	total, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	step := s.cfg.PollIntervalMs
	if step <= 0 {
		step = 20
	}
	deadline := s.nowMs + total
	for s.nowMs < deadline {
		s.nowMs += step
		s.sched.Tick(s.nowMs)
	}
	fmt.Printf("now=%dms\n", s.nowMs)
}

func (s *session) cmdEncoder(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: encoder <delta>")
		return
	}
	delta, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	s.plat.InjectEncoder(int32(delta))
}

func (s *session) cmdButton(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: button <on|off>")
		return
	}
	s.plat.InjectEncoderButton(args[0] == "on")
}

func (s *session) cmdTouch(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: touch <x> <y> <on|off>")
		return
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	s.plat.InjectTouch(int32(x), int32(y), args[2] == "on")
}

// parseTaskID resolves a full or prefix-matched task ID, so a user doesn't
// need to retype an entire uuid from "ps" output to "kill" it.
func parseTaskID(s string, sched *scheduler.Scheduler) (uuid.UUID, error) {
	for _, t := range sched.Tasks() {
		if t.ID.String() == s || strings.HasPrefix(t.ID.String(), s) {
			return t.ID, nil
		}
	}
	return uuid.UUID{}, fmt.Errorf("no task matches %q", s)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dialosd:", err)
		os.Exit(1)
	}
}
