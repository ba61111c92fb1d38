// Package loader reads assembly programs and initial machine state
// from disk into the forms the engine consumes.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
)

// LoadProgram assembles the program at path, placing its first
// instruction at startPC.
func LoadProgram(path string, startPC int) (*insts.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	prog, err := insts.Assemble(string(src), startPC)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s: %w", path, err)
	}

	return prog, nil
}

// InitialState describes pre-run architectural state: register values
// keyed by register number and memory words keyed by address.
type InitialState struct {
	Registers map[uint8]int16  `json:"registers,omitempty"`
	Memory    map[uint16]int16 `json:"memory,omitempty"`
}

// LoadState parses an initial-state JSON file.
func LoadState(path string) (*InitialState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state InitialState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if err := state.validate(); err != nil {
		return nil, fmt.Errorf("invalid state file %s: %w", path, err)
	}

	return &state, nil
}

func (s *InitialState) validate() error {
	for reg := range s.Registers {
		if reg == 0 {
			return fmt.Errorf("register 0 is hardwired to zero")
		}
		if reg >= insts.NumRegs {
			return fmt.Errorf("register %d out of range", reg)
		}
	}
	return nil
}

// Apply writes the state into a register file and memory.
func (s *InitialState) Apply(regFile *emu.RegFile, memory *emu.Memory) {
	for reg, value := range s.Registers {
		regFile.Write(reg, value)
	}
	for addr, value := range s.Memory {
		memory.Write(addr, value)
	}
}
