// Package loader provides PlayStation executable (PS-X EXE) loading.
package loader

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Magic is the identifier at the start of every PS-X EXE header.
const Magic = "PS-X EXE"

// headerSize is the fixed header length; the payload follows it.
const headerSize = 0x800

// DefaultStackTop is the conventional initial stack pointer, used when
// the header leaves the stack base at zero.
const DefaultStackTop = 0x801ffff0

// Program represents a loaded executable ready to be placed in memory.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// GlobalPointer is the initial value for the gp register.
	GlobalPointer uint32
	// LoadAddr is the address where Data should be placed.
	LoadAddr uint32
	// Data contains the executable payload.
	Data []byte
	// InitialSP is the initial stack pointer value.
	InitialSP uint32
}

// Load parses a PS-X EXE file and returns a Program ready for loading
// into the emulator's memory.
func Load(path string) (*Program, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read executable: %w", err)
	}

	return Parse(file)
}

// Parse parses a PS-X EXE image held in memory.
func Parse(file []byte) (*Program, error) {
	if len(file) < headerSize {
		return nil, fmt.Errorf("executable too short: %d bytes", len(file))
	}

	if string(file[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("not a PS-X EXE file")
	}

	le := binary.LittleEndian
	entry := le.Uint32(file[0x10:])
	gp := le.Uint32(file[0x14:])
	dest := le.Uint32(file[0x18:])
	size := le.Uint32(file[0x1c:])
	spBase := le.Uint32(file[0x30:])
	spOffset := le.Uint32(file[0x34:])

	if int(size) > len(file)-headerSize {
		return nil, fmt.Errorf("truncated executable: header claims %d payload bytes, file has %d",
			size, len(file)-headerSize)
	}

	sp := spBase + spOffset
	if spBase == 0 {
		sp = DefaultStackTop
	}

	return &Program{
		EntryPoint:    entry,
		GlobalPointer: gp,
		LoadAddr:      dest,
		Data:          file[headerSize : headerSize+int(size)],
		InitialSP:     sp,
	}, nil
}
