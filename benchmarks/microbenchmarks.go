// Package benchmarks provides micro-programs that stress individual
// machine behaviors, plus a harness to run them and collect results.
package benchmarks

import "github.com/omarsaqr12/tomsim/emu"

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark.
	Name string

	// Description explains what the benchmark measures.
	Description string

	// Source is the assembly text, assembled at start PC 0.
	Source string

	// Setup seeds architectural state before the run. Optional.
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// ExpectedRegisters lists register values the run must produce.
	ExpectedRegisters map[uint8]int16

	// ExpectedMemory lists memory words the run must produce.
	ExpectedMemory map[uint16]int16
}

// GetMicrobenchmarks returns the standard benchmark set. Each entry
// targets one machine characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticParallel(),
		dependencyChain(),
		memorySequential(),
		branchLoop(),
		functionCalls(),
		mulPressure(),
		mixedOperations(),
	}
}

// arithmeticParallel measures throughput on independent operations:
// nothing blocks dispatch, so completion is bounded by the single
// write-back port.
func arithmeticParallel() Benchmark {
	return Benchmark{
		Name:        "arithmetic_parallel",
		Description: "independent ALU operations, write-back port bound",
		Source: `
			ADD R1, R8, R9
			ADD R2, R8, R9
			ADD R3, R8, R9
			ADD R4, R8, R9
			NOR R5, R8, R8
			NOR R6, R9, R9
		`,
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(8, 5)
			regFile.Write(9, 7)
		},
		ExpectedRegisters: map[uint8]int16{
			1: 12, 2: 12, 3: 12, 4: 12, 5: -6, 6: -8,
		},
	}
}

// dependencyChain measures forwarding latency: every instruction
// reads the previous one's result.
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "eight dependent ADDs, broadcast-to-dispatch latency bound",
		Source: `
			ADD R1, R1, R2
			ADD R1, R1, R2
			ADD R1, R1, R2
			ADD R1, R1, R2
			ADD R1, R1, R2
			ADD R1, R1, R2
			ADD R1, R1, R2
			ADD R1, R1, R2
		`,
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(2, 1)
		},
		ExpectedRegisters: map[uint8]int16{1: 8},
	}
}

// memorySequential measures load/store latency through the memory
// unit, with loads observing earlier committed stores.
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "store/load pairs to fixed addresses",
		Source: `
			STORE R2, 0(R0)
			STORE R3, 1(R0)
			LOAD R4, 0(R0)
			LOAD R5, 1(R0)
		`,
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(2, 11)
			regFile.Write(3, 22)
		},
		ExpectedRegisters: map[uint8]int16{4: 11, 5: 22},
		ExpectedMemory:    map[uint16]int16{0: 11, 1: 22},
	}
}

// branchLoop measures the cost of the always-not-taken policy on a
// counted loop: every back edge is a mispredict.
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "counted loop, one mispredict per iteration",
		Source: `
			loop: BEQ R2, R0, 4
			SUB R2, R2, R3
			ADD R4, R4, R3
			BEQ R0, R0, loop
		`,
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(2, 4)
			regFile.Write(3, 1)
		},
		ExpectedRegisters: map[uint8]int16{2: 0, 4: 4},
	}
}

// functionCalls measures CALL/RET redirection and return-address
// linking through R1.
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "call into a leaf routine and return",
		Source: `
			CALL 3
			ADD R4, R2, R3
			BEQ R0, R0, 5
			ADD R5, R2, R2
			RET
		`,
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(2, 10)
			regFile.Write(3, 5)
		},
		ExpectedRegisters: map[uint8]int16{1: 1, 4: 15, 5: 20},
	}
}

// mulPressure measures structural stalls: three multiplies against
// two multiplier stations.
func mulPressure() Benchmark {
	return Benchmark{
		Name:        "mul_pressure",
		Description: "multiplier station pressure, issue stalls on the third MUL",
		Source: `
			MUL R1, R8, R8
			MUL R2, R8, R9
			MUL R3, R9, R9
		`,
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.Write(8, 3)
			regFile.Write(9, 4)
		},
		ExpectedRegisters: map[uint8]int16{1: 9, 2: 12, 3: 16},
	}
}

// mixedOperations chains a load through the multiplier and adder into
// a store, touching every major unit.
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "load, multiply, add, store, nor dependency chain",
		Source: `
			LOAD R1, 0(R0)
			MUL R2, R1, R1
			ADD R3, R2, R1
			STORE R3, 1(R0)
			NOR R4, R3, R0
		`,
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			memory.Write(0, 3)
		},
		ExpectedRegisters: map[uint8]int16{1: 3, 2: 9, 3: 12, 4: -13},
		ExpectedMemory:    map[uint16]int16{0: 3, 1: 12},
	}
}
