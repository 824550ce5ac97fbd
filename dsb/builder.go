// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package dsb

// Builder assembles a Module programmatically (used by tests) without
// requiring callers to hand-encode the wire format. Finish() stamps the integrity fields and returns the Module;
// Bytes() additionally serializes it.
//
// Grounded on probe-lang/lang/codegen.Generator's role as the bridge between
// a convenient in-memory program representation and the wire bytecode, generalized
// from its SSA-register model to dialOS's flat field list.
type Builder struct {
	version    uint16
	heapSize   uint32
	appName    string
	appVersion string
	author     string
	timestamp  uint32

	constants []string
	globals   []string
	functions []Function

	mainEntryPoint uint32
	code           []byte
	debugLines     []uint32
}

// NewBuilder starts a Builder with version 1 and no metadata set.
func NewBuilder() *Builder {
	return &Builder{version: Version}
}

func (b *Builder) HeapSize(n uint32) *Builder   { b.heapSize = n; return b }
func (b *Builder) AppName(s string) *Builder    { b.appName = s; return b }
func (b *Builder) AppVersion(s string) *Builder { b.appVersion = s; return b }
func (b *Builder) Author(s string) *Builder     { b.author = s; return b }
func (b *Builder) Timestamp(t uint32) *Builder  { b.timestamp = t; return b }

// Constant appends a constant string, returning its index.
func (b *Builder) Constant(s string) uint16 {
	b.constants = append(b.constants, s)
	return uint16(len(b.constants) - 1)
}

// Global declares a global variable slot, returning its index.
func (b *Builder) Global(name string) uint16 {
	b.globals = append(b.globals, name)
	return uint16(len(b.globals) - 1)
}

// Function registers a function table entry, returning its index.
func (b *Builder) Function(name string, entryPC uint32, paramCount uint8) uint16 {
	b.functions = append(b.functions, Function{Name: name, EntryPC: entryPC, ParamCount: paramCount})
	return uint16(len(b.functions) - 1)
}

// MainEntryPoint sets the top-level entry PC.
func (b *Builder) MainEntryPoint(pc uint32) *Builder { b.mainEntryPoint = pc; return b }

// Code sets the raw bytecode. If debugLines is non-nil it must be the same
// length as code; FlagHasDebugInfo is then set automatically.
func (b *Builder) Code(code []byte, debugLines []uint32) *Builder {
	b.code = code
	b.debugLines = debugLines
	return b
}

// Finish stamps checksum/hash_code and returns the assembled Module.
func (b *Builder) Finish() *Module {
	flags := uint16(0)
	debugLines := b.debugLines
	if debugLines != nil {
		flags |= FlagHasDebugInfo
	}

	checksum := computeChecksum(b.code, debugLines)
	hashCode := computeHashCode(b.version, b.heapSize, b.timestamp, checksum, b.appName, b.appVersion, b.author)

	return &Module{
		VersionField: b.version,
		Flags:        flags,
		Meta: Metadata{
			HeapSize:   b.heapSize,
			AppName:    b.appName,
			AppVersion: b.appVersion,
			Author:     b.author,
			Timestamp:  b.timestamp,
			HashCode:   hashCode,
			Checksum:   checksum,
		},
		Constants:      append([]string(nil), b.constants...),
		Globals:        append([]string(nil), b.globals...),
		Functions:      append([]Function(nil), b.functions...),
		MainEntryPoint: b.mainEntryPoint,
		Code:           b.code,
		DebugLines:     debugLines,
	}
}

// Bytes builds and serializes the module in one step.
func (b *Builder) Bytes() []byte {
	return Encode(b.Finish())
}
