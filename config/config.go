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

// Package config loads the device's TOML configuration file, mirroring
// cmd/gprobe's config.go loading convention but for dialOS's much smaller
// settings surface.
package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// tomlSettings keeps TOML keys identical to the Go struct field names,
// exactly as cmd/gprobe's loader does, and turns an unrecognized key into a
// hard error instead of silently ignoring a typo in config.toml.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Config is the device's runtime configuration.
type Config struct {
	// InstructionBudget is the default per-tick instruction slice handed to
	// a Running task (§4.5); Scheduler.SetInstructionBudget applies one
	// slice size to every task.
	InstructionBudget uint32 `toml:",omitempty"`

	// DefaultHeapSize is loaded with the rest of the configuration but is not
	// read by module loading: a module whose metadata declares a zero
	// heap_size gets dsb.DefaultHeapSize from Module.HeapSize (§3.3).
	DefaultHeapSize uint32 `toml:",omitempty"`

	// PollIntervalMs is the time step between Scheduler.Tick calls:
	// cmd/dialosd advances its simulated clock by this much per tick.
	PollIntervalMs int64 `toml:",omitempty"`

	// AppletsDir is the RAM-FS-standin directory platform/hostfs watches
	// and appletmgr.Registry lists.
	AppletsDir string `toml:",omitempty"`

	// LogLevel is one of trace|debug|info|warn|error.
	LogLevel string `toml:",omitempty"`
}

// Default returns the configuration used when no config.toml is present.
func Default() Config {
	return Config{
		InstructionBudget: 1000,
		DefaultHeapSize:   8192,
		PollIntervalMs:    20,
		AppletsDir:        "./applets",
		LogLevel:          "info",
	}
}

// Load reads and decodes a TOML file at path over Default(), so an omitted
// field keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
