// Package emu provides the architectural state of the 16-bit machine and a
// functional (non-timed) reference emulator.
package emu

import "github.com/omarsaqr12/tomsim/insts"

// RegFile is the architectural register file: sixteen 16-bit signed words.
// Register 0 is hard-wired to zero.
type RegFile struct {
	regs [insts.NumRegs]int16
}

// Read returns the value of register r. Register 0 always reads as 0.
func (r *RegFile) Read(reg uint8) int16 {
	if reg == 0 {
		return 0
	}
	return r.regs[reg]
}

// Write sets register r to v. Writes to register 0 are discarded.
func (r *RegFile) Write(reg uint8, v int16) {
	if reg == 0 {
		return
	}
	r.regs[reg] = v
}

// Snapshot returns a copy of all register values.
func (r *RegFile) Snapshot() [insts.NumRegs]int16 {
	return r.regs
}
