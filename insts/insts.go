// Package insts provides the 16-bit instruction set definition and the
// assembler that turns program text into an immutable Program.
//
// The instruction set has nine operations over sixteen 16-bit registers
// (R0 is hard-wired to zero):
//   - Memory: LOAD, STORE with offset(base) addressing
//   - Control flow: BEQ, CALL, RET
//   - Arithmetic/logic: ADD, SUB, NOR, MUL
//
// Usage:
//
//	prog, err := insts.Assemble("ADD R1, R2, R3\nRET", 0)
//	if err != nil { ... }
//	fmt.Println(prog.At(0)) // ADD R1, R2, R3
package insts

import "fmt"

// NumRegs is the number of architectural registers.
const NumRegs = 16

// Op represents an opcode.
type Op uint8

// Opcodes.
const (
	OpUnknown Op = iota
	OpLOAD
	OpSTORE
	OpBEQ
	OpCALL
	OpRET
	OpADD
	OpSUB
	OpNOR
	OpMUL
)

var opNames = map[Op]string{
	OpLOAD:  "LOAD",
	OpSTORE: "STORE",
	OpBEQ:   "BEQ",
	OpCALL:  "CALL",
	OpRET:   "RET",
	OpADD:   "ADD",
	OpSUB:   "SUB",
	OpNOR:   "NOR",
	OpMUL:   "MUL",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Class represents a functional-unit class. Each class has its own set of
// reservation stations and its own execution latency.
type Class uint8

// Functional-unit classes.
const (
	ClassLoad Class = iota
	ClassStore
	ClassBranch
	ClassCallRet
	ClassAddSub
	ClassNor
	ClassMul

	// NumClasses is the number of functional-unit classes.
	NumClasses
)

var classNames = [NumClasses]string{
	"LOAD", "STORE", "BEQ", "CALL", "ADD", "NOR", "MUL",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "UNKNOWN"
}

// Class returns the functional-unit class that executes the opcode.
func (o Op) Class() Class {
	switch o {
	case OpLOAD:
		return ClassLoad
	case OpSTORE:
		return ClassStore
	case OpBEQ:
		return ClassBranch
	case OpCALL, OpRET:
		return ClassCallRet
	case OpADD, OpSUB:
		return ClassAddSub
	case OpNOR:
		return ClassNor
	case OpMUL:
		return ClassMul
	}
	return ClassAddSub
}

// IsControlFlow returns true for instructions that redirect the issue
// sequence (BEQ, CALL, RET). The engine issues nothing past an unresolved
// control-flow instruction.
func (o Op) IsControlFlow() bool {
	return o == OpBEQ || o == OpCALL || o == OpRET
}

// Instruction is a single decoded instruction. Instructions are created by
// the assembler and never mutated afterwards.
type Instruction struct {
	// Op is the operation code.
	Op Op

	// Rd is the destination register (LOAD, ADD, SUB, NOR, MUL), or the
	// source register whose value a STORE writes to memory.
	Rd uint8

	// Ra is the first source register: the base register for LOAD/STORE,
	// the first compare operand for BEQ.
	Ra uint8

	// Rb is the second source register (ADD, SUB, NOR, MUL, BEQ).
	Rb uint8

	// Imm holds the memory offset for LOAD/STORE, or the absolute target
	// PC for BEQ/CALL (labels are resolved at assembly).
	Imm int32

	// Index is the program-order index of the instruction.
	Index int

	// PC is the program counter value the instruction was placed at.
	PC int
}

func (i *Instruction) String() string {
	switch i.Op {
	case OpLOAD:
		return fmt.Sprintf("LOAD R%d, %d(R%d)", i.Rd, i.Imm, i.Ra)
	case OpSTORE:
		return fmt.Sprintf("STORE R%d, %d(R%d)", i.Rd, i.Imm, i.Ra)
	case OpBEQ:
		return fmt.Sprintf("BEQ R%d, R%d, %d", i.Ra, i.Rb, i.Imm)
	case OpCALL:
		return fmt.Sprintf("CALL %d", i.Imm)
	case OpRET:
		return "RET"
	case OpADD, OpSUB, OpNOR, OpMUL:
		return fmt.Sprintf("%s R%d, R%d, R%d", i.Op, i.Rd, i.Ra, i.Rb)
	}
	return "UNKNOWN"
}

// Program is an immutable ordered sequence of instructions with all label
// targets resolved to absolute instruction indices.
type Program struct {
	insts   []Instruction
	startPC int
}

// Length returns the number of instructions in the program.
func (p *Program) Length() int {
	return len(p.insts)
}

// StartPC returns the program counter value of the first instruction.
func (p *Program) StartPC() int {
	return p.startPC
}

// At returns the instruction at program-order index i.
func (p *Program) At(i int) *Instruction {
	return &p.insts[i]
}
