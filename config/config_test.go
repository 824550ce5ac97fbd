// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("InstructionBudget = 500\nLogLevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InstructionBudget != 500 {
		t.Fatalf("InstructionBudget = %d, want 500", cfg.InstructionBudget)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.DefaultHeapSize != Default().DefaultHeapSize {
		t.Fatalf("DefaultHeapSize = %d, want default %d", cfg.DefaultHeapSize, Default().DefaultHeapSize)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
