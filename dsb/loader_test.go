// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package dsb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleModule returns a small but non-trivial module with constants,
// globals, a function table, and a debug line table, used across this
// file's tests.
func sampleModule() *Module {
	b := NewBuilder().
		HeapSize(4096).
		AppName("demo").
		AppVersion("0.1").
		Author("tester").
		Timestamp(1700000000)

	b.Constant("score=${0}")
	b.Global("counter")
	b.Function("main", 0, 0)

	code := []byte{0x13, 0x02, 0x13, 0x03, 0x40, 0xF0, 0xFF}
	lines := []uint32{1, 1, 2, 2, 3, 3, 3}
	b.Code(code, lines)
	b.MainEntryPoint(0)

	return b.Finish()
}

func TestRoundTrip(t *testing.T) {
	m := sampleModule()
	buf := Encode(m)

	got, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf2 := Encode(got)
	if !bytes.Equal(buf, buf2) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", buf2, buf)
	}
}

func TestLoadValid(t *testing.T) {
	m := sampleModule()
	buf := Encode(m)

	got, err := Load(buf)
	require.NoError(t, err)
	require.Equal(t, "demo", got.Meta.AppName)
	require.Equal(t, uint32(4096), got.HeapSize())
	require.True(t, got.HasDebugInfo())
	require.Equal(t, uint32(3), got.SourceLine(4))
}

func TestDefaultHeapSize(t *testing.T) {
	m := NewBuilder().Code([]byte{0xF0}, nil).Finish()
	if m.HeapSize() != DefaultHeapSize {
		t.Errorf("HeapSize() = %d, want default %d", m.HeapSize(), DefaultHeapSize)
	}
}

func TestBadMagic(t *testing.T) {
	buf := Encode(sampleModule())
	buf[0] = 'X'
	if _, err := Load(buf); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("Load: got %v, want ErrBadMagic", err)
	}
}

func TestUnsupportedVersion(t *testing.T) {
	buf := Encode(sampleModule())
	buf[4] = 2 // version low byte
	if _, err := Load(buf); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("Load: got %v, want ErrUnsupportedVersion", err)
	}
}

func TestTruncated(t *testing.T) {
	buf := Encode(sampleModule())
	if _, err := Load(buf[:len(buf)-2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Load: got %v, want ErrTruncated", err)
	}
}

// TestIntegrityFlipEveryByte is §8 invariant 2: flipping any single byte of
// code, a debug line, or a metadata field must cause verification (or
// framing) to fail — never a silent successful load. Every other byte of the
// file is flipped as well, except the flags field and the bytes from the
// constant table through main_entry_point, which neither the checksum nor
// hash_code covers.
func TestIntegrityFlipEveryByte(t *testing.T) {
	m := sampleModule()
	base := Encode(m)

	// magic, version, flags, heap_size, the three length-prefixed metadata
	// strings, timestamp, hash_code, checksum.
	metaEnd := 4 + 2 + 2 + 4 +
		2 + len(m.Meta.AppName) + 2 + len(m.Meta.AppVersion) + 2 + len(m.Meta.Author) +
		4 + 4 + 2
	// code_size, code, line count and debug lines close the file.
	codeStart := len(base) - (4 + len(m.Code) + 4 + 4*len(m.DebugLines))

	for i := range base {
		if i == 6 || i == 7 || (i >= metaEnd && i < codeStart) {
			continue
		}
		mutated := append([]byte(nil), base...)
		mutated[i] ^= 0xFF
		if _, err := Load(mutated); err == nil {
			t.Errorf("byte %d: flipping succeeded, want a load failure", i)
		}
	}
}

func TestZeroLengthSections(t *testing.T) {
	b := NewBuilder().Code([]byte{0xF0}, nil)
	buf := b.Bytes()
	m, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Constants) != 0 || len(m.Globals) != 0 || len(m.Functions) != 0 {
		t.Errorf("expected empty sections, got constants=%d globals=%d functions=%d",
			len(m.Constants), len(m.Globals), len(m.Functions))
	}
}

// TestDebugFlagSetButTableMissing covers the §4.1 edge case: the debug flag
// bit may be set while the table itself is absent, which must be rejected
// as truncated rather than silently treated as "no debug info".
func TestDebugFlagSetButTableMissing(t *testing.T) {
	b := NewBuilder().Code([]byte{0x13, 0x02, 0xF0}, nil)
	buf := b.Bytes()
	buf[6] |= byte(FlagHasDebugInfo) // flip the flag bit on after encoding; no table follows

	if _, err := Load(buf); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Load: got %v, want ErrTruncated", err)
	}
}
