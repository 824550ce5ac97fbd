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

// Package hostfs is a reference, test-only vm.Platform: console calls log
// through the log package, display drawing calls are no-ops returning Null
// (display.width/height report 240), and file/dir calls are backed by a real OS directory standing in for the
// device's RAM file system. It exists to make the scheduler and applet
// manager testable end-to-end without real hardware; it is not a claim
// about the production HAL's design (out of scope per the runtime's
// collaborators list).
package hostfs

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rjeczalik/notify"

	"github.com/kahdeg/dialos/log"
	"github.com/kahdeg/dialos/platform"
	"github.com/kahdeg/dialos/vm"
)

// InstallEvent is delivered on the channel returned by Watch whenever a new
// .dsb blob appears under the applets directory, analogous to the Applet
// Manager noticing /applets/<name>.dsb (§6.3).
type InstallEvent struct {
	Path string
}

// Platform is a hostfs-backed vm.Platform. AppletsDir is the real
// directory standing in for /applets in the device's RAM file system.
type Platform struct {
	AppletsDir string
	log        *log.Logger

	watchCh chan notify.EventInfo

	mu            sync.Mutex
	encoderPos    int32
	encoderDelta  int32
	encoderButton bool
	touchX        int32
	touchY        int32
	touchPressed  bool
}

// New creates a Platform rooted at appletsDir, creating the directory if it
// does not already exist.
func New(appletsDir string) (*Platform, error) {
	if err := os.MkdirAll(appletsDir, 0o755); err != nil {
		return nil, err
	}
	return &Platform{AppletsDir: appletsDir, log: log.With("component", "platform/hostfs")}, nil
}

// InjectEncoder records an encoder turn of delta steps (positive or
// negative), for a simulator driving the device without real hardware.
// EncoderGetDelta consumes (zeroes) the accumulated delta on read, matching
// how a real rotary encoder's ISR-fed counter is drained by the applet.
func (p *Platform) InjectEncoder(delta int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.encoderPos += delta
	p.encoderDelta += delta
}

// InjectEncoderButton sets the encoder's push-button state.
func (p *Platform) InjectEncoderButton(pressed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.encoderButton = pressed
}

// InjectTouch sets the simulated touch point and pressed state.
func (p *Platform) InjectTouch(x, y int32, pressed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touchX, p.touchY, p.touchPressed = x, y, pressed
}

// Watch starts watching AppletsDir for newly created files and returns a
// channel of InstallEvent. Stop must be called to release the watch.
func (p *Platform) Watch() (<-chan InstallEvent, error) {
	p.watchCh = make(chan notify.EventInfo, 8)
	if err := notify.Watch(filepath.Join(p.AppletsDir, "..."), p.watchCh, notify.Create); err != nil {
		return nil, err
	}
	out := make(chan InstallEvent, 8)
	go func() {
		for ev := range p.watchCh {
			if filepath.Ext(ev.Path()) != ".dsb" {
				continue
			}
			out <- InstallEvent{Path: ev.Path()}
		}
		close(out)
	}()
	return out, nil
}

// Stop releases the directory watch started by Watch.
func (p *Platform) Stop() {
	if p.watchCh != nil {
		notify.Stop(p.watchCh)
	}
}

// ConsoleLog implements PRINT (§6.2 console.*).
func (p *Platform) ConsoleLog(s string) {
	p.log.Info(s)
}

// CallNative dispatches one native id (§6.2). Unknown ids and display ids
// other than width/height return Null: this reference Platform has no round
// display to draw to, and reports a fixed 240x240 size.
func (p *Platform) CallNative(id vm.NativeID, args []vm.Value, pool *vm.ValuePool) (vm.Value, error) {
	switch id {
	case platform.ConsolePrint, platform.ConsoleLog:
		p.log.Info(argString(args, 0, pool))
		return vm.Null, nil
	case platform.ConsoleWarn:
		p.log.Warn(argString(args, 0, pool))
		return vm.Null, nil
	case platform.ConsoleError:
		p.log.Error(argString(args, 0, pool))
		return vm.Null, nil

	case platform.SystemGetTime:
		return vm.Int32Value(int32(time.Now().UnixMilli())), nil

	case platform.EncoderGetButton:
		p.mu.Lock()
		defer p.mu.Unlock()
		return vm.BoolValue(p.encoderButton), nil
	case platform.EncoderGetDelta:
		p.mu.Lock()
		defer p.mu.Unlock()
		d := p.encoderDelta
		p.encoderDelta = 0
		return vm.Int32Value(d), nil
	case platform.EncoderGetPosition:
		p.mu.Lock()
		defer p.mu.Unlock()
		return vm.Int32Value(p.encoderPos), nil
	case platform.EncoderReset:
		p.mu.Lock()
		defer p.mu.Unlock()
		p.encoderPos, p.encoderDelta = 0, 0
		return vm.Null, nil

	case platform.TouchX:
		p.mu.Lock()
		defer p.mu.Unlock()
		return vm.Int32Value(p.touchX), nil
	case platform.TouchY:
		p.mu.Lock()
		defer p.mu.Unlock()
		return vm.Int32Value(p.touchY), nil
	case platform.TouchIsPressed:
		p.mu.Lock()
		defer p.mu.Unlock()
		return vm.BoolValue(p.touchPressed), nil

	case platform.FileExists:
		_, err := os.Stat(filepath.Join(p.AppletsDir, argString(args, 0, pool)))
		return vm.BoolValue(err == nil), nil

	case platform.FileRead:
		data, err := os.ReadFile(filepath.Join(p.AppletsDir, argString(args, 0, pool)))
		if err != nil {
			return vm.Null, nil
		}
		ref := pool.AllocString(string(data))
		if ref.IsNil() {
			return vm.Null, vm.ErrOutOfMemory
		}
		return vm.StringValue(ref), nil

	case platform.FileWrite:
		name := argString(args, 0, pool)
		content := argString(args, 1, pool)
		err := os.WriteFile(filepath.Join(p.AppletsDir, name), []byte(content), 0o644)
		return vm.BoolValue(err == nil), nil

	case platform.DirList:
		entries, err := os.ReadDir(p.AppletsDir)
		if err != nil {
			return vm.Null, nil
		}
		ref := pool.AllocArray(len(entries))
		if ref.IsNil() {
			return vm.Null, vm.ErrOutOfMemory
		}
		for i, e := range entries {
			nameRef := pool.AllocString(e.Name())
			if nameRef.IsNil() {
				return vm.Null, vm.ErrOutOfMemory
			}
			pool.ArraySet(ref, i, vm.StringValue(nameRef))
		}
		return vm.ArrayValue(ref), nil

	case platform.DisplayWidth:
		return vm.Int32Value(240), nil
	case platform.DisplayHeight:
		return vm.Int32Value(240), nil

	default:
		// Every other capability group (gpio/i2c/buzzer/rfid/power/wifi/http/
		// ipc, and the remaining display/encoder/touch calls) has no host
		// analogue; this reference implementation answers Null rather than
		// simulating hardware it does not have.
		return vm.Null, nil
	}
}

func argString(args []vm.Value, i int, pool *vm.ValuePool) string {
	if i >= len(args) {
		return ""
	}
	return vm.ToString(args[i], pool)
}
