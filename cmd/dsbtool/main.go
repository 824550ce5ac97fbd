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

// Command dsbtool inspects and disassembles DSB bytecode modules.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/kahdeg/dialos/dsb"
	"github.com/kahdeg/dialos/platform"
	"github.com/kahdeg/dialos/vm"
)

var app = cli.NewApp()

func init() {
	app.Name = "dsbtool"
	app.Usage = "inspect and disassemble DSB applet bytecode"
	app.Commands = []cli.Command{inspectCommand, disasmCommand}
}

var inspectCommand = cli.Command{
	Name:      "inspect",
	Usage:     "print a module's header and metadata",
	ArgsUsage: "<file.dsb>",
	Action:    inspect,
}

var disasmCommand = cli.Command{
	Name:      "disasm",
	Usage:     "disassemble a module's code section",
	ArgsUsage: "<file.dsb>",
	Action:    disasm,
}

func loadArg(ctx *cli.Context) (*dsb.Module, error) {
	if ctx.NArg() != 1 {
		return nil, fmt.Errorf("usage: %s %s <file.dsb>", app.Name, ctx.Command.Name)
	}
	buf, err := os.ReadFile(ctx.Args().Get(0))
	if err != nil {
		return nil, err
	}
	return dsb.Load(buf)
}

func inspect(ctx *cli.Context) error {
	m, err := loadArg(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("app_name:    %s\n", m.Meta.AppName)
	fmt.Printf("app_version: %s\n", m.Meta.AppVersion)
	fmt.Printf("author:      %s\n", m.Meta.Author)
	fmt.Printf("heap_size:   %d\n", m.HeapSize())
	fmt.Printf("has_debug:   %v\n", m.HasDebugInfo())
	fmt.Printf("constants:   %d\n", len(m.Constants))
	fmt.Printf("globals:     %d\n", len(m.Globals))
	fmt.Printf("functions:   %d\n", len(m.Functions))
	for i, fn := range m.Functions {
		fmt.Printf("  [%d] %-16s entry=%-6d params=%d\n", i, fn.Name, fn.EntryPC, fn.ParamCount)
	}
	fmt.Printf("main_entry:  %d\n", m.MainEntryPoint)
	fmt.Printf("code_size:   %d\n", len(m.Code))
	return nil
}

func disasm(ctx *cli.Context) error {
	m, err := loadArg(ctx)
	if err != nil {
		return err
	}
	instrs, err := vm.Disassemble(m.Code)
	if err != nil {
		return err
	}
	for _, in := range instrs {
		line := fmt.Sprintf("%6d  %-14s", in.Offset, in.Mnemonic)
		line += annotate(m, in)
		if m.HasDebugInfo() && int(in.Offset) < len(m.DebugLines) {
			line += fmt.Sprintf("  ; line %d", m.DebugLines[in.Offset])
		}
		fmt.Println(line)
	}
	return nil
}

// annotate renders an operand byte slice into something more readable than
// raw hex where the opcode's operand indexes into a known table.
func annotate(m *dsb.Module, in vm.Instruction) string {
	switch in.Mnemonic {
	case "PUSH_STR":
		idx := binary.LittleEndian.Uint16(in.Operand)
		if int(idx) < len(m.Constants) {
			return fmt.Sprintf("%d ; %q", idx, m.Constants[idx])
		}
	case "LOAD_FUNCTION", "CALL":
		idx := binary.LittleEndian.Uint16(in.Operand)
		if int(idx) < len(m.Functions) {
			return fmt.Sprintf("%d ; %s", idx, m.Functions[idx].Name)
		}
	case "CALL_NATIVE":
		id := binary.LittleEndian.Uint16(in.Operand[0:2])
		return fmt.Sprintf("%d ; %s", id, platform.Name(vm.NativeID(id)))
	case "LOAD_LOCAL", "STORE_LOCAL":
		return fmt.Sprintf("%d", in.Operand[0])
	}
	if len(in.Operand) == 0 {
		return ""
	}
	return fmt.Sprintf("% x", in.Operand)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dsbtool:", err)
		os.Exit(1)
	}
}
