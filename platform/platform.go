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

// Package platform names the device capability surface the VM reaches
// through vm.Platform (§6.2). The interface itself lives in vm.Platform to
// avoid an import cycle; this package only assigns stable NativeIDs to the
// named capability groups and provides a reference implementation in
// platform/hostfs.
package platform

import "github.com/kahdeg/dialos/vm"

// Native ids are grouped by capability the way §6.2 groups them; the
// capability groups are non-exhaustive, so ids are assigned in blocks of 16
// to leave room within each group without renumbering later ones.
//
// 0 is reserved: vm.NativeRegisterCallback is intercepted by the VM itself
// and never reaches a Platform implementation.
const (
	ConsolePrint NativeID = 1 + iota
	ConsoleLog
	ConsoleWarn
	ConsoleError
)

const (
	DisplayClear NativeID = 16 + iota
	DisplayDrawText
	DisplayDrawRect
	DisplayDrawCircle
	DisplayDrawLine
	DisplayDrawPixel
	DisplaySetBrightness
	DisplayWidth
	DisplayHeight
	DisplaySetTitle
	DisplayDrawImage
)

const (
	EncoderGetButton NativeID = 32 + iota
	EncoderGetDelta
	EncoderGetPosition
	EncoderReset
)

const (
	TouchX NativeID = 48 + iota
	TouchY
	TouchIsPressed
)

const SystemGetTime NativeID = 64

// SystemSleep is vm.NativeSystemSleep: the VM intercepts it directly and a
// Platform implementation never receives a CallNative for it, the same way
// NativeRegisterCallback is intercepted (§9).
const SystemSleep = vm.NativeSystemSleep

const (
	SystemYield NativeID = 66 + iota
	SystemGetRTC
	SystemSetRTC
)

const (
	FileOpen NativeID = 80 + iota
	FileRead
	FileWrite
	FileClose
	FileExists
	FileDelete
	FileSize
)

const (
	DirList NativeID = 96 + iota
	DirCreate
	DirDelete
	DirExists
)

const (
	TimerSetTimeout NativeID = 112 + iota
	TimerSetInterval
	TimerClearTimeout
	TimerClearInterval
)

const (
	MemoryGetAvailable NativeID = 128 + iota
	MemoryGetUsage
)

const (
	AppExit NativeID = 144 + iota
	AppGetInfo
	AppInstall
	AppUninstall
	AppList
	AppGetMetadata
	AppLaunch
	AppValidate
)

const (
	IPCSend NativeID = 160 + iota
	IPCBroadcast
)

// NativeID is an alias of vm.NativeID so call sites in this package and its
// children never need to import vm just to spell the id type.
type NativeID = vm.NativeID

var names = map[NativeID]string{
	ConsolePrint: "console.print", ConsoleLog: "console.log", ConsoleWarn: "console.warn", ConsoleError: "console.error",
	DisplayClear: "display.clear", DisplayDrawText: "display.drawText", DisplayDrawRect: "display.drawRect",
	DisplayDrawCircle: "display.drawCircle", DisplayDrawLine: "display.drawLine", DisplayDrawPixel: "display.drawPixel",
	DisplaySetBrightness: "display.setBrightness", DisplayWidth: "display.width", DisplayHeight: "display.height",
	DisplaySetTitle: "display.setTitle", DisplayDrawImage: "display.drawImage",
	EncoderGetButton: "encoder.getButton", EncoderGetDelta: "encoder.getDelta", EncoderGetPosition: "encoder.getPosition", EncoderReset: "encoder.reset",
	TouchX: "touch.x", TouchY: "touch.y", TouchIsPressed: "touch.isPressed",
	SystemGetTime: "system.getTime", SystemSleep: "system.sleep", SystemYield: "system.yield", SystemGetRTC: "system.getRTC", SystemSetRTC: "system.setRTC",
	FileOpen: "file.open", FileRead: "file.read", FileWrite: "file.write", FileClose: "file.close", FileExists: "file.exists", FileDelete: "file.delete", FileSize: "file.size",
	DirList: "dir.list", DirCreate: "dir.create", DirDelete: "dir.delete", DirExists: "dir.exists",
	TimerSetTimeout: "timer.setTimeout", TimerSetInterval: "timer.setInterval", TimerClearTimeout: "timer.clearTimeout", TimerClearInterval: "timer.clearInterval",
	MemoryGetAvailable: "memory.getAvailable", MemoryGetUsage: "memory.getUsage",
	AppExit: "app.exit", AppGetInfo: "app.getInfo", AppInstall: "app.install", AppUninstall: "app.uninstall",
	AppList: "app.list", AppGetMetadata: "app.getMetadata", AppLaunch: "app.launch", AppValidate: "app.validate",
	IPCSend: "ipc.send", IPCBroadcast: "ipc.broadcast",
	vm.NativeRegisterCallback: "events.register_callback",
}

// Name returns the dotted capability name for id, or "unknown" — used by
// cmd/dsbtool's disassembler to annotate CALL_NATIVE operands.
func Name(id NativeID) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "unknown"
}
