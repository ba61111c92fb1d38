package emu

import (
	"fmt"

	"github.com/omarsaqr12/tomsim/insts"
)

// StepResult reports the outcome of executing a single instruction.
type StepResult struct {
	// Done is true if the program counter left the program.
	Done bool

	// Inst is the instruction that was executed, nil when Done was already
	// true on entry.
	Inst *insts.Instruction

	// Err is set if execution cannot continue.
	Err error
}

// Emulator executes a program functionally, one instruction at a time, in
// program order. It shares the architectural state types with the timing
// engine and serves as the reference for the engine's final state.
type Emulator struct {
	prog    *insts.Program
	regFile *RegFile
	memory  *Memory

	pc int

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithRegFile sets the register file, allowing preloaded values.
func WithRegFile(rf *RegFile) EmulatorOption {
	return func(e *Emulator) {
		e.regFile = rf
	}
}

// WithMemory sets the memory, allowing preloaded values.
func WithMemory(mem *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = mem
	}
}

// WithMaxInstructions caps the number of executed instructions. A value of
// 0 means no limit. Useful for programs that do not terminate.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator for the given program.
func NewEmulator(prog *insts.Program, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		prog:    prog,
		regFile: &RegFile{},
		memory:  NewMemory(),
		pc:      prog.StartPC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the current program counter.
func (e *Emulator) PC() int {
	return e.pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	idx := e.pc - e.prog.StartPC()
	if idx < 0 || idx >= e.prog.Length() {
		return StepResult{Done: true}
	}
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("max instructions reached")}
	}

	inst := e.prog.At(idx)
	e.execute(inst)
	e.instructionCount++

	return StepResult{Inst: inst}
}

// Run executes instructions until the program counter leaves the program or
// the instruction cap is hit.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Done {
			return nil
		}
		if result.Err != nil {
			return result.Err
		}
	}
}

// execute applies one instruction to the architectural state and advances
// the program counter.
func (e *Emulator) execute(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpLOAD:
		addr := EffectiveAddr(e.regFile.Read(inst.Ra), inst.Imm)
		e.regFile.Write(inst.Rd, e.memory.Read(addr))
	case insts.OpSTORE:
		addr := EffectiveAddr(e.regFile.Read(inst.Ra), inst.Imm)
		e.memory.Write(addr, e.regFile.Read(inst.Rd))
	case insts.OpBEQ:
		if e.regFile.Read(inst.Ra) == e.regFile.Read(inst.Rb) {
			e.pc = int(inst.Imm)
			return
		}
	case insts.OpCALL:
		e.regFile.Write(1, int16(inst.PC+1))
		e.pc = int(inst.Imm)
		return
	case insts.OpRET:
		e.pc = int(e.regFile.Read(1))
		return
	case insts.OpADD:
		e.regFile.Write(inst.Rd, Add(e.regFile.Read(inst.Ra), e.regFile.Read(inst.Rb)))
	case insts.OpSUB:
		e.regFile.Write(inst.Rd, Sub(e.regFile.Read(inst.Ra), e.regFile.Read(inst.Rb)))
	case insts.OpNOR:
		e.regFile.Write(inst.Rd, Nor(e.regFile.Read(inst.Ra), e.regFile.Read(inst.Rb)))
	case insts.OpMUL:
		e.regFile.Write(inst.Rd, Mul(e.regFile.Read(inst.Ra), e.regFile.Read(inst.Rb)))
	}
	e.pc++
}
